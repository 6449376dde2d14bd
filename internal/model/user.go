package model

import "time"

// Role identifies what a user is allowed to do at a door.
type Role string

const (
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
	RoleDean       Role = "dean"
	RoleCustodian  Role = "custodian"
)

// User is a person who can present a credential at a reader.
type User struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:256;not null" json:"name"`
	Role      Role      `gorm:"size:32;not null;index" json:"role"`
	IsActive  bool      `gorm:"not null" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AuthMethodType is the kind of credential a reader captured.
type AuthMethodType string

const (
	AuthMethodRFID        AuthMethodType = "rfid"
	AuthMethodFingerprint AuthMethodType = "fingerprint"
)

// Valid reports whether t is a supported credential kind.
func (t AuthMethodType) Valid() bool {
	return t == AuthMethodRFID || t == AuthMethodFingerprint
}

// AuthMethod binds a normalized credential identifier to a user.
type AuthMethod struct {
	ID         int64          `gorm:"primaryKey"`
	UserID     int64          `gorm:"index;not null"`
	MethodType AuthMethodType `gorm:"size:16;not null;uniqueIndex:ux_auth_method_identifier"`
	Identifier string         `gorm:"size:128;not null;uniqueIndex:ux_auth_method_identifier"`
	IsActive   bool           `gorm:"not null"`
	CreatedAt  time.Time

	User User `gorm:"constraint:OnDelete:CASCADE"`
}
