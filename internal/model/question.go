package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// QuestionType discriminates the question union.
type QuestionType string

const (
	QuestionTypeMCQ    QuestionType = "MCQ"
	QuestionTypeSAQ    QuestionType = "SAQ"
	QuestionTypeCoding QuestionType = "CODING"
)

// Question is a tagged union over the three question kinds. Exactly one of
// MCQ/SAQ/Coding is non-nil, matching Type. Graders switch on Type instead of
// probing raw JSON shapes.
type Question struct {
	ID       uuid.UUID     `json:"id"`
	ExamID   uuid.UUID     `json:"exam_id"`
	Type     QuestionType  `json:"type"`
	Text     string        `json:"text"`
	MaxMarks float64       `json:"max_marks"`
	Position int           `json:"position"`
	MCQ      *MCQDetail    `json:"mcq,omitempty"`
	SAQ      *SAQDetail    `json:"saq,omitempty"`
	Coding   *CodingDetail `json:"coding,omitempty"`
}

// MCQDetail holds multiple-choice options and the correct option index.
type MCQDetail struct {
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
}

// SAQDetail holds the model answer shown to graders for short-answer questions.
type SAQDetail struct {
	ExpectedAnswer string `json:"expected_answer"`
}

// CodingDetail holds the starter code and language for coding questions.
// Execution against test cases is handled by the external judge service.
type CodingDetail struct {
	Language    string          `json:"language"`
	StarterCode string          `json:"starter_code"`
	JudgeConfig json.RawMessage `json:"judge_config,omitempty"`
}

// QuestionForStudent is a question stripped of grading material.
type QuestionForStudent struct {
	ID       uuid.UUID    `json:"id"`
	Type     QuestionType `json:"type"`
	Text     string       `json:"text"`
	MaxMarks float64      `json:"max_marks"`
	Position int          `json:"position"`
	Options  []string     `json:"options,omitempty"`
	Language string       `json:"language,omitempty"`
	Starter  string       `json:"starter_code,omitempty"`
}

// ForStudent strips the answer key from a question.
func (q *Question) ForStudent() QuestionForStudent {
	s := QuestionForStudent{
		ID:       q.ID,
		Type:     q.Type,
		Text:     q.Text,
		MaxMarks: q.MaxMarks,
		Position: q.Position,
	}
	switch q.Type {
	case QuestionTypeMCQ:
		if q.MCQ != nil {
			s.Options = q.MCQ.Options
		}
	case QuestionTypeCoding:
		if q.Coding != nil {
			s.Language = q.Coding.Language
			s.Starter = q.Coding.StarterCode
		}
	}
	return s
}

// ValidateDetail checks that the detail payload matches the declared type.
// Returns field errors in the same shape as binding validation, or nil.
func (q *Question) ValidateDetail() map[string]string {
	switch q.Type {
	case QuestionTypeMCQ:
		if q.MCQ == nil {
			return map[string]string{"mcq": "mcq detail is required for MCQ questions"}
		}
		if len(q.MCQ.Options) < 2 {
			return map[string]string{"mcq.options": "at least two options are required"}
		}
		if q.MCQ.CorrectOption < 0 || q.MCQ.CorrectOption >= len(q.MCQ.Options) {
			return map[string]string{"mcq.correct_option": "correct_option must index an option"}
		}
	case QuestionTypeSAQ:
		if q.SAQ == nil {
			return map[string]string{"saq": "saq detail is required for SAQ questions"}
		}
	case QuestionTypeCoding:
		if q.Coding == nil {
			return map[string]string{"coding": "coding detail is required for CODING questions"}
		}
		if q.Coding.Language == "" {
			return map[string]string{"coding.language": "language is required"}
		}
	}
	return nil
}

// AddQuestionRequest is the payload for adding a question to an exam.
type AddQuestionRequest struct {
	Type     string        `json:"type" binding:"required,oneof=MCQ SAQ CODING"`
	Text     string        `json:"text" binding:"required,min=1,max=4000"`
	MaxMarks float64       `json:"max_marks" binding:"required,gt=0,max=100"`
	Position int           `json:"position" binding:"min=0"`
	MCQ      *MCQDetail    `json:"mcq" binding:"omitempty"`
	SAQ      *SAQDetail    `json:"saq" binding:"omitempty"`
	Coding   *CodingDetail `json:"coding" binding:"omitempty"`
}
