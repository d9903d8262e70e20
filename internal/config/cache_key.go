package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session.
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// SessionStartKey returns the cache key for a student's running attempt
// record (session ID plus start instant).
func (r *CacheKeyStruct) SessionStartKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:session_start", studentID, examID)
}

// StudentAnswersKey returns the cache key for a student's autosaved answers.
func (r *CacheKeyStruct) StudentAnswersKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:answers", studentID, examID)
}

// ExamPayloadKey returns the cache key for an exam's student-facing paper.
func (r *CacheKeyStruct) ExamPayloadKey(examID string) string {
	return fmt.Sprintf("exam:%s:payload", examID)
}

// ExamDurationKey returns the cache key for an exam's duration.
func (r *CacheKeyStruct) ExamDurationKey(examID string) string {
	return fmt.Sprintf("exam:%s:duration", examID)
}

// ExamAnswerKey returns the cache key for an exam's MCQ answer key hash.
func (r *CacheKeyStruct) ExamAnswerKey(examID string) string {
	return fmt.Sprintf("exam:%s:key", examID)
}

var CacheKey = NewCacheKeyStruct()
