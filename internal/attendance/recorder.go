package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"classroom-access-backend/internal/model"
	"classroom-access-backend/internal/schedule"
	"classroom-access-backend/internal/store"
)

var (
	// ErrAlreadyRecorded is returned when the user already has a row that the scan cannot advance.
	ErrAlreadyRecorded = errors.New("attendance already recorded for this class today")
	// ErrNoActiveSession is returned when a student time-in arrives before the instructor opened the class.
	ErrNoActiveSession = errors.New("class session has not started")
)

// advances lists the only status changes a row may make. Every other status is final.
var advances = map[model.AttendanceStatus][]model.AttendanceStatus{
	model.StatusEarlyArrival: {model.StatusPresent, model.StatusLate, model.StatusEarlyAbsent},
}

// CanAdvance reports whether a row in status from may move to status to.
func CanAdvance(from, to model.AttendanceStatus) bool {
	for _, s := range advances[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Scan is one attendance-producing read for a resolved schedule.
type Scan struct {
	UserID   int64
	Schedule model.Schedule
	Day      string
	Now      time.Time
}

// Outcome is the row as it stands after a scan.
type Outcome struct {
	Record    model.AttendanceRecord
	Confirmed bool // an early arrival was confirmed by this scan
}

// Recorder writes attendance rows. All methods take a transaction-bound store.
type Recorder struct {
	lateTolerance time.Duration
}

// NewRecorder creates a recorder that marks time-ins later than tolerance after start as Late.
func NewRecorder(lateTolerance time.Duration) *Recorder {
	return &Recorder{lateTolerance: lateTolerance}
}

// TimeIn records a student inside scan against the active session of scan.Schedule.
func (r *Recorder) TimeIn(ctx context.Context, tx store.Store, scan Scan) (Outcome, error) {
	sess, err := tx.GetSessionForDay(ctx, scan.Schedule.ID, scan.Day)
	if errors.Is(err, store.ErrNotFound) || (err == nil && sess.Status != model.SessionActive) {
		return Outcome{}, ErrNoActiveSession
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load session: %w", err)
	}

	existing, err := tx.GetAttendance(ctx, scan.UserID, scan.Schedule.ID, scan.Day)
	switch {
	case err == nil:
		return r.confirm(ctx, tx, existing, sess, scan.Now)
	case !errors.Is(err, store.ErrNotFound):
		return Outcome{}, fmt.Errorf("failed to load attendance: %w", err)
	}

	rec := model.AttendanceRecord{
		UserID:         scan.UserID,
		ScheduleID:     scan.Schedule.ID,
		AttendanceDate: scan.Day,
		SessionID:      &sess.ID,
		Status:         r.statusAt(scan.Now, sess),
		ScanType:       model.ScanTimeIn,
		ScanDateTime:   scan.Now,
		UpdatedAt:      scan.Now,
	}
	if err := tx.CreateAttendance(ctx, &rec); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return Outcome{}, ErrAlreadyRecorded
		}
		return Outcome{}, err
	}
	return Outcome{Record: rec}, nil
}

// confirm turns an early arrival into Present. The original scan time is kept.
func (r *Recorder) confirm(ctx context.Context, tx store.Store, rec model.AttendanceRecord, sess model.Session, now time.Time) (Outcome, error) {
	if !CanAdvance(rec.Status, model.StatusPresent) {
		return Outcome{Record: rec}, ErrAlreadyRecorded
	}
	change := store.AttendanceChange{
		Status:    model.StatusPresent,
		ScanType:  model.ScanTimeInConfirmation,
		SessionID: &sess.ID,
		At:        now,
	}
	if err := tx.UpdateAttendance(ctx, rec.ID, rec.Status, change); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return Outcome{Record: rec}, ErrAlreadyRecorded
		}
		return Outcome{}, err
	}
	rec.Status = model.StatusPresent
	rec.ScanType = model.ScanTimeInConfirmation
	rec.SessionID = &sess.ID
	rec.UpdatedAt = now
	return Outcome{Record: rec, Confirmed: true}, nil
}

// statusAt is Late once now passes the session open time by more than the tolerance.
func (r *Recorder) statusAt(now time.Time, sess model.Session) model.AttendanceStatus {
	if now.After(sess.StartTime.Add(r.lateTolerance)) {
		return model.StatusLate
	}
	return model.StatusPresent
}

// EarlyArrival records a student outside scan ahead of class start.
func (r *Recorder) EarlyArrival(ctx context.Context, tx store.Store, scan Scan) (Outcome, error) {
	existing, err := tx.GetAttendance(ctx, scan.UserID, scan.Schedule.ID, scan.Day)
	switch {
	case err == nil:
		return Outcome{Record: existing}, ErrAlreadyRecorded
	case !errors.Is(err, store.ErrNotFound):
		return Outcome{}, fmt.Errorf("failed to load attendance: %w", err)
	}

	rec := model.AttendanceRecord{
		UserID:         scan.UserID,
		ScheduleID:     scan.Schedule.ID,
		AttendanceDate: scan.Day,
		Status:         model.StatusEarlyArrival,
		ScanType:       model.ScanEarlyArrival,
		ScanDateTime:   scan.Now,
		UpdatedAt:      scan.Now,
	}
	if err := tx.CreateAttendance(ctx, &rec); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return Outcome{}, ErrAlreadyRecorded
		}
		return Outcome{}, err
	}
	return Outcome{Record: rec}, nil
}

// Instructor records the instructor's own row for a session. A time-in creates it
// as Present; a time-out stamps the existing row or creates one if none exists.
func (r *Recorder) Instructor(ctx context.Context, tx store.Store, userID int64, sess model.Session, scanType model.ScanType, now time.Time) (model.AttendanceRecord, error) {
	existing, err := tx.GetAttendance(ctx, userID, sess.ScheduleID, sess.SessionDate)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return model.AttendanceRecord{}, fmt.Errorf("failed to load attendance: %w", err)
	}
	found := err == nil

	if found && scanType == model.ScanTimeOut {
		change := store.AttendanceChange{ScanType: model.ScanTimeOut, TimeOutAt: &now, At: now}
		if err := tx.UpdateAttendance(ctx, existing.ID, existing.Status, change); err != nil {
			return model.AttendanceRecord{}, err
		}
		existing.ScanType = model.ScanTimeOut
		existing.TimeOutAt = &now
		existing.UpdatedAt = now
		return existing, nil
	}
	if found {
		return existing, nil
	}

	rec := model.AttendanceRecord{
		UserID:         userID,
		ScheduleID:     sess.ScheduleID,
		AttendanceDate: sess.SessionDate,
		SessionID:      &sess.ID,
		Status:         model.StatusPresent,
		ScanType:       scanType,
		ScanDateTime:   now,
		UpdatedAt:      now,
	}
	if scanType == model.ScanTimeOut {
		rec.TimeOutAt = &now
	}
	if err := tx.CreateAttendance(ctx, &rec); err != nil {
		return model.AttendanceRecord{}, err
	}
	return rec, nil
}

// PromoteEarlyArrivals upgrades the session's early arrivals to Present. It runs when a session opens.
func (r *Recorder) PromoteEarlyArrivals(ctx context.Context, tx store.Store, sess model.Session, now time.Time) error {
	n, err := tx.UpdateAttendanceStatuses(ctx, store.AttendanceFilter{
		ScheduleID: sess.ScheduleID,
		Day:        sess.SessionDate,
		Status:     model.StatusEarlyArrival,
	}, store.AttendanceChange{
		Status:    model.StatusPresent,
		ScanType:  model.ScanEarlyArrivalUpgraded,
		SessionID: &sess.ID,
		At:        now,
	})
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("Promoted %d early arrivals to present for session %d", n, sess.ID)
	}
	return nil
}

// ExpireEarlyArrivals marks the session's unconfirmed early arrivals absent. It runs when a session ends.
func (r *Recorder) ExpireEarlyArrivals(ctx context.Context, tx store.Store, sess model.Session, now time.Time) error {
	n, err := tx.UpdateAttendanceStatuses(ctx, store.AttendanceFilter{
		ScheduleID: sess.ScheduleID,
		Day:        sess.SessionDate,
		Status:     model.StatusEarlyArrival,
	}, store.AttendanceChange{
		Status: model.StatusEarlyAbsent,
		At:     now,
	})
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("Expired %d early arrivals for session %d", n, sess.ID)
	}
	return nil
}

// Cleanup expires early arrivals left behind by ended sessions or previous days. Running it twice changes nothing.
func (r *Recorder) Cleanup(ctx context.Context, st store.Store, now time.Time) (int64, error) {
	return st.ExpireEarlyArrivals(ctx, schedule.DayKey(now), now)
}
