package model

import (
	"time"

	"github.com/google/uuid"
)

// Invitation enrolls one email address into one INVITATION-mode exam.
// Delivery of the code is handled by an external mailer; this core only
// issues and redeems codes.
type Invitation struct {
	ID         uuid.UUID  `json:"id"`
	ExamID     uuid.UUID  `json:"exam_id"`
	Email      string     `json:"email"`
	Code       string     `json:"code"`
	RedeemedBy *int       `json:"redeemed_by,omitempty"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// CreateInvitationsRequest is the teacher payload for issuing invitations.
type CreateInvitationsRequest struct {
	Emails []string `json:"emails" binding:"required,min=1,max=500,dive,email"`
}

// RedeemInvitationRequest is the student payload for redeeming a code.
type RedeemInvitationRequest struct {
	Code string `json:"code" binding:"required,len=8"`
}
