package model

import "time"

// SessionStatus is the persisted lifecycle state of a class session.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

// Session is one occurrence of a schedule on a calendar day. The unique index
// allows a single row per schedule and day, so an ended session cannot be reopened.
type Session struct {
	ID             int64         `gorm:"primaryKey" json:"id"`
	ScheduleID     int64         `gorm:"not null;uniqueIndex:ux_session_schedule_day" json:"scheduleId"`
	SessionDate    string        `gorm:"size:10;not null;uniqueIndex:ux_session_schedule_day" json:"sessionDate"`
	InstructorID   int64         `gorm:"index;not null" json:"instructorId"`
	RoomID         int64         `gorm:"index;not null" json:"roomId"`
	StartTime      time.Time     `gorm:"not null" json:"startTime"`
	EndTime        *time.Time    `json:"endTime,omitempty"`
	DoorUnlockedAt *time.Time    `json:"doorUnlockedAt,omitempty"`
	DoorLockedAt   *time.Time    `json:"doorLockedAt,omitempty"`
	Status         SessionStatus `gorm:"size:16;not null;index" json:"status"`
}

// TableName keeps sessions apart from any HTTP session tables.
func (Session) TableName() string {
	return "class_sessions"
}
