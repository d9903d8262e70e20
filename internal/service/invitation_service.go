package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/examhall/examhall-backend/internal/model"
	"github.com/examhall/examhall-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrInvitationInvalid covers unknown and already-redeemed codes alike, so a
// probing student learns nothing from the error.
var ErrInvitationInvalid = errors.New("invitation code is invalid or already used")

// Unambiguous alphabet: no 0/O, 1/I/L pairs.
const inviteAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// InvitationSender delivers an invitation code to its recipient. The server
// ships without a sender; deployments plug in their own transport.
type InvitationSender interface {
	SendInvitation(ctx context.Context, email, examTitle, code string) error
}

// InvitationService manages invitation-mode enrollment.
type InvitationService struct {
	invitationRepo *repository.InvitationRepository
	examService    *ExamService
	sender         InvitationSender
	log            zerolog.Logger
}

// NewInvitationService creates a new InvitationService. sender may be nil, in
// which case codes are stored but not delivered.
func NewInvitationService(invitationRepo *repository.InvitationRepository, examService *ExamService, sender InvitationSender, log zerolog.Logger) *InvitationService {
	return &InvitationService{
		invitationRepo: invitationRepo,
		examService:    examService,
		sender:         sender,
		log:            log.With().Str("component", "invitation_service").Logger(),
	}
}

// CreateBatch issues one invitation per email for an exam the caller owns.
// Emails already invited are skipped, so re-sending a list is safe.
func (s *InvitationService) CreateBatch(ctx context.Context, examID uuid.UUID, authorID int, emails []string) ([]model.Invitation, error) {
	exam, err := s.examService.RequireAuthor(ctx, examID, authorID)
	if err != nil {
		return nil, err
	}
	if exam.AccessMode != model.AccessModeInvitation {
		return nil, ErrExamNotAvailable
	}

	invitations := make([]model.Invitation, 0, len(emails))
	for _, email := range emails {
		code, err := generateInviteCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		invitations = append(invitations, model.Invitation{
			ExamID: examID,
			Email:  email,
			Code:   code,
		})
	}
	created, err := s.invitationRepo.CreateBatch(ctx, invitations)
	if err != nil {
		return nil, fmt.Errorf("create invitations: %w", err)
	}
	s.log.Info().Str("exam_id", examID.String()).Int64("created", created).Msg("Invitations issued")

	result, err := s.invitationRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if s.sender != nil {
		for _, inv := range result {
			if inv.RedeemedBy != nil {
				continue
			}
			if err := s.sender.SendInvitation(ctx, inv.Email, exam.Title, inv.Code); err != nil {
				s.log.Error().Err(err).Str("email", inv.Email).Msg("Failed to send invitation")
			}
		}
	}
	return result, nil
}

// ListByExam returns an exam's invitations for its author.
func (s *InvitationService) ListByExam(ctx context.Context, examID uuid.UUID, authorID int) ([]model.Invitation, error) {
	if _, err := s.examService.RequireAuthor(ctx, examID, authorID); err != nil {
		return nil, err
	}
	return s.invitationRepo.ListByExam(ctx, examID)
}

// Redeem claims an invitation code for a student. Each code redeems once.
func (s *InvitationService) Redeem(ctx context.Context, code string, studentID int, now time.Time) (*model.Invitation, error) {
	inv, err := s.invitationRepo.Redeem(ctx, code, studentID, now)
	if err != nil {
		if errors.Is(err, repository.ErrInvitationTaken) {
			return nil, ErrInvitationInvalid
		}
		return nil, fmt.Errorf("redeem invitation: %w", err)
	}
	return inv, nil
}

func generateInviteCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = inviteAlphabet[int(buf[i])%len(inviteAlphabet)]
	}
	return string(buf), nil
}
