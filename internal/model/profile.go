package model

import "time"

const (
	RoleCreator    = "creator"
	RoleSubscriber = "subscriber"
)

type Profile struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Name       string    `db:"name" json:"name"`
	Role       string    `db:"role" json:"role"`
	AvatarURL  *string   `db:"avatar_url" json:"avatar_url,omitempty"`
	AvatarPath *string   `db:"avatar_path" json:"-"`
	KYCStatus  KYCStatus `db:"kyc_status" json:"kyc_status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Profile) IsCreator() bool {
	return p.Role == RoleCreator
}

func ValidRole(role string) bool {
	return role == RoleCreator || role == RoleSubscriber
}
