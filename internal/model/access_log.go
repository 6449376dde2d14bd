package model

import "time"

// ScanLocation is which side of the door the reader sits on.
type ScanLocation string

const (
	LocationInside  ScanLocation = "inside"
	LocationOutside ScanLocation = "outside"
)

// AccessResult is the outcome written to the audit log.
type AccessResult string

const (
	AccessSuccess AccessResult = "success"
	AccessDenied  AccessResult = "denied"
)

// AccessLogEntry is a write-once audit row for every access decision.
type AccessLogEntry struct {
	ID         int64          `gorm:"primaryKey" json:"id"`
	UserID     *int64         `gorm:"index" json:"userId,omitempty"`
	RoomID     int64          `gorm:"index;not null" json:"roomId"`
	AuthMethod AuthMethodType `gorm:"size:16;not null" json:"authMethod"`
	Location   ScanLocation   `gorm:"size:16;not null" json:"location"`
	Action     string         `gorm:"size:64;not null" json:"action"`
	Result     AccessResult   `gorm:"size:16;not null;index" json:"result"`
	Reason     string         `gorm:"size:512" json:"reason,omitempty"`
	RequestID  string         `gorm:"size:64" json:"requestId,omitempty"`
	Timestamp  time.Time      `gorm:"not null;index" json:"timestamp"`
}

// TableName pins the audit table name.
func (AccessLogEntry) TableName() string {
	return "access_logs"
}
