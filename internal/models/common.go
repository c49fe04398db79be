package models

import "time"

// Audit is embedded in every tenant document.
type Audit struct {
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
	CreatedBy string    `json:"created_by,omitempty" bson:"created_by,omitempty"`
	UpdatedBy string    `json:"updated_by,omitempty" bson:"updated_by,omitempty"`
}

func NewAudit(by string, now time.Time) Audit {
	return Audit{CreatedAt: now, UpdatedAt: now, CreatedBy: by, UpdatedBy: by}
}

// SoftDelete marks a document as removed without deleting it.
type SoftDelete struct {
	IsDeleted bool       `json:"is_deleted" bson:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" bson:"deleted_at,omitempty"`
	DeletedBy string     `json:"deleted_by,omitempty" bson:"deleted_by,omitempty"`
}

// StringPtr returns nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
