package models

import (
	"time"

	"github.com/schoolhub/membership/internal/permission"
)

// User is a global identity mapped 1:1 from the external identity provider.
type User struct {
	ID         string                `json:"id" bson:"_id,omitempty"`
	ExternalID string                `json:"external_id" bson:"external_id"`
	Username   string                `json:"username" bson:"username"`
	Email      *string               `json:"email,omitempty" bson:"email,omitempty"`
	FirstName  *string               `json:"first_name,omitempty" bson:"first_name,omitempty"`
	LastName   *string               `json:"last_name,omitempty" bson:"last_name,omitempty"`
	AvatarURL  *string               `json:"avatar_url,omitempty" bson:"avatar_url,omitempty"`
	SystemRole permission.SystemRole `json:"system_role" bson:"system_role"`
	CreatedAt  time.Time             `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time             `json:"updated_at" bson:"updated_at"`
	LastLogin  *time.Time            `json:"last_login,omitempty" bson:"last_login,omitempty"`
}
