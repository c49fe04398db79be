package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	SchoolID     *string         `json:"school_id,omitempty" db:"school_id"`
	ActorID      *string         `json:"actor_id,omitempty" db:"actor_id"`
	Action       string          `json:"action" db:"action"`
	ResourceType string          `json:"resource_type,omitempty" db:"resource_type"`
	ResourceID   *string         `json:"resource_id,omitempty" db:"resource_id"`
	Details      json.RawMessage `json:"details" db:"details"`
	RequestID    *string         `json:"request_id,omitempty" db:"request_id"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
