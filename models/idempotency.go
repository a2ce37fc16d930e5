package models

import (
	"time"
)

type IdempotencyStatus string

const (
	IdempotencyStatusProcessing IdempotencyStatus = "processing"
	IdempotencyStatusCompleted  IdempotencyStatus = "completed"
)

// IdempotencyRecord is the cache entry guarding one (scope, token) pair.
type IdempotencyRecord struct {
	Status      IdempotencyStatus   `json:"status"`
	Fingerprint string              `json:"fingerprint"`
	StartedAt   *time.Time          `json:"started_at,omitempty"`
	Response    *IdempotentResponse `json:"response,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

type IdempotentResponse struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

// Matches reports whether the record was written for the request with fingerprint.
func (r *IdempotencyRecord) Matches(fingerprint string) bool {
	return r.Fingerprint == fingerprint
}

func (r *IdempotencyRecord) IsCompleted() bool {
	return r.Status == IdempotencyStatusCompleted && r.Response != nil
}
