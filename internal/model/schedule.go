package model

import "time"

// Room is a physical classroom with a reader-controlled door.
type Room struct {
	ID         int64      `gorm:"primaryKey" json:"id"`
	RoomNumber string     `gorm:"uniqueIndex;size:64;not null" json:"roomNumber"`
	DoorStatus DoorStatus `gorm:"size:16;not null;default:'locked'" json:"doorStatus"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// DoorStatus is the lock state of a room door.
type DoorStatus string

const (
	DoorLocked   DoorStatus = "locked"
	DoorUnlocked DoorStatus = "unlocked"
)

// Subject is a course taught by one instructor.
type Subject struct {
	ID           int64  `gorm:"primaryKey" json:"id"`
	Code         string `gorm:"size:32;not null;index" json:"code"`
	Name         string `gorm:"size:256;not null" json:"name"`
	InstructorID int64  `gorm:"index;not null" json:"instructorId"`
}

// Schedule is a weekly recurring class slot. Times are zero-padded "15:04:05"
// strings in the campus timezone, so lexical order is chronological order.
type Schedule struct {
	ID           int64        `gorm:"primaryKey" json:"id"`
	SubjectID    int64        `gorm:"index;not null" json:"subjectId"`
	RoomID       int64        `gorm:"index:idx_schedule_room_day;not null" json:"roomId"`
	DayOfWeek    time.Weekday `gorm:"index:idx_schedule_room_day;not null" json:"dayOfWeek"`
	StartTime    string       `gorm:"size:8;not null" json:"startTime"`
	EndTime      string       `gorm:"size:8;not null" json:"endTime"`
	AcademicYear string       `gorm:"size:16;not null;index:idx_schedule_term" json:"academicYear"`
	Semester     string       `gorm:"size:16;not null;index:idx_schedule_term" json:"semester"`
	IsLab        bool         `gorm:"not null" json:"isLab"`

	Subject Subject `json:"-"`
}

// EnrollmentStatus is the roster state of a student in a subject.
type EnrollmentStatus string

const (
	EnrollmentEnrolled EnrollmentStatus = "enrolled"
	EnrollmentDropped  EnrollmentStatus = "dropped"
)

// Enrollment places a student on a subject roster for a term.
type Enrollment struct {
	ID           int64            `gorm:"primaryKey"`
	UserID       int64            `gorm:"index:idx_enrollment_user_subject;not null"`
	SubjectID    int64            `gorm:"index:idx_enrollment_user_subject;not null"`
	AcademicYear string           `gorm:"size:16;not null"`
	Semester     string           `gorm:"size:16;not null"`
	Status       EnrollmentStatus `gorm:"size:16;not null"`
}
