package model

import "time"

// AttendanceStatus is the state of one user's attendance for a class day.
type AttendanceStatus string

const (
	StatusEarlyArrival AttendanceStatus = "Early Arrival"
	StatusPresent      AttendanceStatus = "Present"
	StatusLate         AttendanceStatus = "Late"
	StatusEarlyAbsent  AttendanceStatus = "Early Scan|Absent"
)

// ScanType records which scan produced the current row state.
type ScanType string

const (
	ScanTimeIn               ScanType = "time_in"
	ScanTimeOut              ScanType = "time_out"
	ScanEarlyArrival         ScanType = "early_arrival"
	ScanTimeInConfirmation   ScanType = "time_in_confirmation"
	ScanEarlyArrivalUpgraded ScanType = "early_arrival_upgraded"
)

// AttendanceRecord holds at most one row per user, schedule and day.
type AttendanceRecord struct {
	ID             int64            `gorm:"primaryKey" json:"id"`
	UserID         int64            `gorm:"not null;uniqueIndex:ux_attendance_user_schedule_day" json:"userId"`
	ScheduleID     int64            `gorm:"not null;uniqueIndex:ux_attendance_user_schedule_day;index:idx_attendance_schedule_day" json:"scheduleId"`
	AttendanceDate string           `gorm:"size:10;not null;uniqueIndex:ux_attendance_user_schedule_day;index:idx_attendance_schedule_day" json:"attendanceDate"`
	SessionID      *int64           `gorm:"index" json:"sessionId,omitempty"`
	Status         AttendanceStatus `gorm:"size:32;not null;index" json:"status"`
	ScanType       ScanType         `gorm:"size:32;not null" json:"scanType"`
	ScanDateTime   time.Time        `gorm:"not null" json:"scanDateTime"`
	TimeOutAt      *time.Time       `json:"timeOutAt,omitempty"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}
