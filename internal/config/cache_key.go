package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionKey returns the Redis key holding a student's session record.
func (r *CacheKeyStruct) SessionKey(examID uuid.UUID, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:session", studentID, examID)
}

// SessionAuditKey returns the Redis key of the working audit log list
// persisted alongside the session record.
func (r *CacheKeyStruct) SessionAuditKey(examID uuid.UUID, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:audit", studentID, examID)
}

var CacheKey = NewCacheKeyStruct()
