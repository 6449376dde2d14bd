package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"classroom-access-backend/internal/model"
)

// Store defines the interface for all database operations.
// A Store handed to a Transaction callback is bound to that transaction.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Store) error) error

	CurrentTerm(ctx context.Context) (model.Term, error)
	FindUserByCredential(ctx context.Context, method model.AuthMethodType, identifier string) (model.User, error)
	GetRoom(ctx context.Context, roomID int64) (model.Room, error)
	SetDoorStatus(ctx context.Context, roomID int64, status model.DoorStatus) error

	FindForInstructor(ctx context.Context, q InstructorQuery) ([]model.Schedule, error)
	FindForStudent(ctx context.Context, term model.Term, roomID int64, day time.Weekday, at string) ([]model.Schedule, error)
	FindEarlyWindow(ctx context.Context, term model.Term, roomID int64, day time.Weekday, after, until string) ([]model.Schedule, error)
	FindEnrollment(ctx context.Context, term model.Term, userID, subjectID int64) (model.Enrollment, error)
	ListRoomSchedules(ctx context.Context, term model.Term, roomID int64, day time.Weekday) ([]model.Schedule, error)

	GetSessionForDay(ctx context.Context, scheduleID int64, day string) (model.Session, error)
	FindActiveSession(ctx context.Context, f SessionFilter) (model.Session, error)
	CreateSession(ctx context.Context, sess *model.Session) error
	EndSession(ctx context.Context, sessionID int64, at time.Time, lockDoor bool) error

	GetAttendance(ctx context.Context, userID, scheduleID int64, day string) (model.AttendanceRecord, error)
	CreateAttendance(ctx context.Context, rec *model.AttendanceRecord) error
	UpdateAttendance(ctx context.Context, id int64, from model.AttendanceStatus, change AttendanceChange) error
	UpdateAttendanceStatuses(ctx context.Context, f AttendanceFilter, change AttendanceChange) (int64, error)
	ExpireEarlyArrivals(ctx context.Context, today string, now time.Time) (int64, error)

	AppendAccessLog(ctx context.Context, entry *model.AccessLogEntry) error
}

// InstructorQuery selects schedules taught by an instructor that overlap
// [StartBy, EndFrom] on a given room and weekday.
type InstructorQuery struct {
	Term         model.Term
	InstructorID int64
	RoomID       int64
	Day          time.Weekday
	StartBy      string // schedules starting at or before this time
	EndFrom      string // schedules ending at or after this time
}

// SessionFilter narrows active-session lookups. Zero InstructorID matches any instructor.
type SessionFilter struct {
	RoomID       int64
	Day          string
	InstructorID int64
}

// AttendanceFilter selects rows of one schedule and day in a given status.
type AttendanceFilter struct {
	ScheduleID int64
	Day        string
	Status     model.AttendanceStatus
}

// AttendanceChange lists the columns an attendance update writes. Nil fields are left untouched.
type AttendanceChange struct {
	Status    model.AttendanceStatus
	ScanType  model.ScanType
	SessionID *int64
	TimeOutAt *time.Time
	At        time.Time
}

func (c AttendanceChange) columns() map[string]any {
	cols := map[string]any{"updated_at": c.At}
	if c.Status != "" {
		cols["status"] = c.Status
	}
	if c.ScanType != "" {
		cols["scan_type"] = c.ScanType
	}
	if c.SessionID != nil {
		cols["session_id"] = *c.SessionID
	}
	if c.TimeOutAt != nil {
		cols["time_out_at"] = *c.TimeOutAt
	}
	return cols
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// Transaction runs fn inside one database transaction. Any error rolls back every write made through tx.
func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) CurrentTerm(ctx context.Context) (model.Term, error) {
	var setting model.TermSetting
	if err := s.db.WithContext(ctx).First(&setting).Error; err != nil {
		return model.Term{}, fmt.Errorf("failed to load current term: %w", translate(err))
	}
	return setting.Term(), nil
}

func (s *gormStore) FindUserByCredential(ctx context.Context, method model.AuthMethodType, identifier string) (model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Joins("JOIN auth_methods am ON am.user_id = users.id").
		Where("am.method_type = ? AND am.identifier = ? AND am.is_active = ?", method, identifier, true).
		Where("users.is_active = ?", true).
		First(&user).Error
	return user, translate(err)
}

func (s *gormStore) GetRoom(ctx context.Context, roomID int64) (model.Room, error) {
	var room model.Room
	err := s.db.WithContext(ctx).First(&room, roomID).Error
	return room, translate(err)
}

func (s *gormStore) SetDoorStatus(ctx context.Context, roomID int64, status model.DoorStatus) error {
	res := s.db.WithContext(ctx).Model(&model.Room{}).
		Where("id = ?", roomID).
		Update("door_status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update door status for room %d: %w", roomID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// termScope restricts schedule queries to one room, weekday and term, ordered for deterministic tie-breaks.
func termScope(term model.Term, roomID int64, day time.Weekday) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Where("schedules.room_id = ? AND schedules.day_of_week = ?", roomID, int(day)).
			Where("schedules.academic_year = ? AND schedules.semester = ?", term.AcademicYear, term.Semester).
			Order("schedules.start_time ASC").
			Order("schedules.id ASC")
	}
}

func (s *gormStore) FindForInstructor(ctx context.Context, q InstructorQuery) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := s.db.WithContext(ctx).
		Joins("JOIN subjects ON subjects.id = schedules.subject_id").
		Scopes(termScope(q.Term, q.RoomID, q.Day)).
		Where("subjects.instructor_id = ?", q.InstructorID).
		Where("schedules.start_time <= ? AND schedules.end_time >= ?", q.StartBy, q.EndFrom).
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query instructor schedules: %w", err)
	}
	return schedules, nil
}

func (s *gormStore) FindForStudent(ctx context.Context, term model.Term, roomID int64, day time.Weekday, at string) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := s.db.WithContext(ctx).
		Scopes(termScope(term, roomID, day)).
		Where("schedules.start_time <= ? AND schedules.end_time >= ?", at, at).
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query room schedules: %w", err)
	}
	return schedules, nil
}

func (s *gormStore) FindEarlyWindow(ctx context.Context, term model.Term, roomID int64, day time.Weekday, after, until string) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := s.db.WithContext(ctx).
		Scopes(termScope(term, roomID, day)).
		Where("schedules.start_time > ? AND schedules.start_time <= ?", after, until).
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming schedules: %w", err)
	}
	return schedules, nil
}

func (s *gormStore) FindEnrollment(ctx context.Context, term model.Term, userID, subjectID int64) (model.Enrollment, error) {
	var enrollment model.Enrollment
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND subject_id = ? AND status = ?", userID, subjectID, model.EnrollmentEnrolled).
		Where("academic_year = ? AND semester = ?", term.AcademicYear, term.Semester).
		First(&enrollment).Error
	return enrollment, translate(err)
}

func (s *gormStore) ListRoomSchedules(ctx context.Context, term model.Term, roomID int64, day time.Weekday) ([]model.Schedule, error) {
	var schedules []model.Schedule
	err := s.db.WithContext(ctx).
		Preload("Subject").
		Scopes(termScope(term, roomID, day)).
		Find(&schedules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules for room %d: %w", roomID, err)
	}
	return schedules, nil
}

// GetSessionForDay loads the session of a schedule on a day, locking the row on postgres.
func (s *gormStore) GetSessionForDay(ctx context.Context, scheduleID int64, day string) (model.Session, error) {
	var sess model.Session
	q := s.db.WithContext(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.Where("schedule_id = ? AND session_date = ?", scheduleID, day).First(&sess).Error
	return sess, translate(err)
}

func (s *gormStore) FindActiveSession(ctx context.Context, f SessionFilter) (model.Session, error) {
	var sess model.Session
	q := s.db.WithContext(ctx).
		Where("room_id = ? AND session_date = ? AND status = ?", f.RoomID, f.Day, model.SessionActive)
	if f.InstructorID != 0 {
		q = q.Where("instructor_id = ?", f.InstructorID)
	}
	err := q.Order("start_time ASC").Order("id ASC").First(&sess).Error
	return sess, translate(err)
}

func (s *gormStore) CreateSession(ctx context.Context, sess *model.Session) error {
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return fmt.Errorf("failed to create session for schedule %d: %w", sess.ScheduleID, translate(err))
	}
	return nil
}

// EndSession closes an active session. It returns ErrConflict when the session is no longer active.
func (s *gormStore) EndSession(ctx context.Context, sessionID int64, at time.Time, lockDoor bool) error {
	cols := map[string]any{
		"status":   model.SessionEnded,
		"end_time": at,
	}
	if lockDoor {
		cols["door_locked_at"] = at
	}
	res := s.db.WithContext(ctx).Model(&model.Session{}).
		Where("id = ? AND status = ?", sessionID, model.SessionActive).
		Updates(cols)
	if res.Error != nil {
		return fmt.Errorf("failed to end session %d: %w", sessionID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *gormStore) GetAttendance(ctx context.Context, userID, scheduleID int64, day string) (model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND schedule_id = ? AND attendance_date = ?", userID, scheduleID, day).
		First(&rec).Error
	return rec, translate(err)
}

func (s *gormStore) CreateAttendance(ctx context.Context, rec *model.AttendanceRecord) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create attendance for user %d: %w", rec.UserID, translate(err))
	}
	return nil
}

// UpdateAttendance rewrites one row only if it still holds status from.
func (s *gormStore) UpdateAttendance(ctx context.Context, id int64, from model.AttendanceStatus, change AttendanceChange) error {
	res := s.db.WithContext(ctx).Model(&model.AttendanceRecord{}).
		Where("id = ? AND status = ?", id, from).
		Updates(change.columns())
	if res.Error != nil {
		return fmt.Errorf("failed to update attendance %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (s *gormStore) UpdateAttendanceStatuses(ctx context.Context, f AttendanceFilter, change AttendanceChange) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.AttendanceRecord{}).
		Where("schedule_id = ? AND attendance_date = ? AND status = ?", f.ScheduleID, f.Day, f.Status).
		Updates(change.columns())
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update attendance for schedule %d: %w", f.ScheduleID, res.Error)
	}
	return res.RowsAffected, nil
}

// ExpireEarlyArrivals moves every dangling Early Arrival to Early Scan|Absent: rows whose
// session for the same schedule and day has ended, and rows from days before today.
func (s *gormStore) ExpireEarlyArrivals(ctx context.Context, today string, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.AttendanceRecord{}).
		Where("status = ?", model.StatusEarlyArrival).
		Where(`(attendance_date < ? OR EXISTS (
			SELECT 1 FROM class_sessions cs
			WHERE cs.schedule_id = attendance_records.schedule_id
			AND cs.session_date = attendance_records.attendance_date
			AND cs.status = ?))`, today, model.SessionEnded).
		Updates(map[string]any{
			"status":     model.StatusEarlyAbsent,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to expire early arrivals: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) AppendAccessLog(ctx context.Context, entry *model.AccessLogEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append access log: %w", err)
	}
	return nil
}
