package service

import (
	"testing"

	"github.com/examhall/examhall-backend/internal/model"
)

func marksPtr(v float64) *float64 { return &v }

func TestAggregate(t *testing.T) {
	tests := []struct {
		name          string
		questionCount int
		answers       []model.Answer
		wantScore     float64
		wantStatus    GradingStatus
		wantGraded    int
	}{
		{
			name:          "no answers is pending",
			questionCount: 3,
			answers:       nil,
			wantScore:     0,
			wantStatus:    GradingStatusPending,
		},
		{
			name:          "ungraded answers is pending",
			questionCount: 2,
			answers: []model.Answer{
				{MarksObtained: nil},
				{MarksObtained: nil},
			},
			wantScore:  0,
			wantStatus: GradingStatusPending,
		},
		{
			name:          "some graded is partial",
			questionCount: 3,
			answers: []model.Answer{
				{MarksObtained: marksPtr(5)},
				{MarksObtained: nil},
			},
			wantScore:  5,
			wantStatus: GradingStatusPartial,
			wantGraded: 1,
		},
		{
			name:          "all questions graded is completed",
			questionCount: 2,
			answers: []model.Answer{
				{MarksObtained: marksPtr(5)},
				{MarksObtained: marksPtr(2.5)},
			},
			wantScore:  7.5,
			wantStatus: GradingStatusCompleted,
			wantGraded: 2,
		},
		{
			name:          "graded answer subset leaves partial when paper is larger",
			questionCount: 5,
			answers: []model.Answer{
				{MarksObtained: marksPtr(3)},
				{MarksObtained: marksPtr(0)},
			},
			wantScore:  3,
			wantStatus: GradingStatusPartial,
			wantGraded: 2,
		},
		{
			name:          "zero marks still counts as graded",
			questionCount: 1,
			answers: []model.Answer{
				{MarksObtained: marksPtr(0)},
			},
			wantScore:  0,
			wantStatus: GradingStatusCompleted,
			wantGraded: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Aggregate(tt.questionCount, tt.answers)
			if snap.TotalScore != tt.wantScore {
				t.Errorf("TotalScore = %v, want %v", snap.TotalScore, tt.wantScore)
			}
			if snap.GradingStatus != tt.wantStatus {
				t.Errorf("GradingStatus = %v, want %v", snap.GradingStatus, tt.wantStatus)
			}
			if snap.GradedCount != tt.wantGraded {
				t.Errorf("GradedCount = %v, want %v", snap.GradedCount, tt.wantGraded)
			}
			if snap.QuestionCount != tt.questionCount {
				t.Errorf("QuestionCount = %v, want %v", snap.QuestionCount, tt.questionCount)
			}
		})
	}
}

func TestAutoGradeMCQ(t *testing.T) {
	tests := []struct {
		name     string
		selected int
		correct  int
		maxMarks float64
		want     float64
	}{
		{"exact match gets full marks", 2, 2, 5, 5},
		{"wrong option gets zero", 1, 2, 5, 0},
		{"first option match", 0, 0, 2.5, 2.5},
		{"off by one gets zero", 3, 2, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AutoGradeMCQ(tt.selected, tt.correct, tt.maxMarks); got != tt.want {
				t.Errorf("AutoGradeMCQ(%d, %d, %v) = %v, want %v",
					tt.selected, tt.correct, tt.maxMarks, got, tt.want)
			}
		})
	}
}
