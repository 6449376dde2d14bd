package access

import (
	"context"
	"errors"
	"strings"

	"classroom-access-backend/internal/attendance"
	"classroom-access-backend/internal/metrics"
	"classroom-access-backend/internal/model"
	"classroom-access-backend/internal/schedule"
	"classroom-access-backend/internal/session"
	"classroom-access-backend/internal/store"
)

// Session statuses reported to instructor readers.
const (
	SessionStarted = "started"
	SessionClosed  = "ended"
)

const (
	reasonAlreadyEnded    = "session already ended for today"
	reasonNotOwner        = "session was started by another instructor"
	reasonSessionRace     = "session is being changed by another scan"
	reasonNoActiveSession = "no active session in this room"
	reasonNotStarted      = "no active session for this class yet; wait for the instructor to open the room"
	reasonAlreadyRecorded = "attendance already recorded"
	reasonFingerprintOnly = "inside readers accept fingerprint only"
	reasonDebounced       = "scan already received"
)

// InstructorResult is returned to instructor readers.
type InstructorResult struct {
	SessionStatus string           `json:"session_status"`
	DoorStatus    model.DoorStatus `json:"door_status"`
	SessionID     int64            `json:"session_id"`
	ScheduleID    int64            `json:"schedule_id"`
}

// StudentResult is returned to student readers.
type StudentResult struct {
	Status         string `json:"status"`
	ScheduleID     int64  `json:"schedule_id"`
	ScheduledStart string `json:"scheduled_start,omitempty"`
	RecordID       int64  `json:"record_id"`
}

// Student statuses reported to readers.
const (
	StudentPresent          = "present"
	StudentLate             = "late"
	StudentEarlyArrival     = "early_arrival"
	StudentArrivalConfirmed = "early_arrival_confirmed"
)

// DoorResult is returned by door-access readers.
type DoorResult struct {
	Granted    bool             `json:"granted"`
	DoorStatus model.DoorStatus `json:"door_status"`
	CanRecord  bool             `json:"can_record"`
	Reason     string           `json:"reason"`
}

// InstructorOutsideScan starts the class session on the first scan and ends it, locking the door, on the next.
func (s *Service) InstructorOutsideScan(ctx context.Context, req ScanRequest) (InstructorResult, error) {
	sc := s.newScan(ActionInstructorOutside, req, model.LocationOutside)
	res, err := s.instructorOutside(ctx, sc)
	s.finish(ctx, sc, err, "session "+res.SessionStatus)
	return res, err
}

func (s *Service) instructorOutside(ctx context.Context, sc *scan) (InstructorResult, error) {
	if err := s.resolve(ctx, sc, model.RoleInstructor, model.RoleDean); err != nil {
		return InstructorResult{}, err
	}
	rec, err := s.validate(ctx, sc, model.LocationOutside)
	if err != nil {
		return InstructorResult{}, err
	}
	if !rec.CanRecord || len(rec.Candidates) == 0 {
		return InstructorResult{}, violation(schedule.ReasonNoInstructorClass)
	}
	sched, err := s.toggleTarget(ctx, sc, rec.Candidates)
	if err != nil {
		return InstructorResult{}, err
	}
	if err := s.claim(ctx, sc); err != nil {
		return InstructorResult{}, err
	}

	return s.drive(ctx, sc, session.Input{
		ScheduleID:   sched.ID,
		RoomID:       sched.RoomID,
		InstructorID: sc.user.ID,
		Day:          sc.day,
		Event:        session.EventOutsideScan,
		Now:          sc.now,
	})
}

// toggleTarget picks the schedule an outside scan acts on. Candidates come in tie-break
// order; a schedule with an active session today wins, then one not yet opened today.
// Ended schedules are skipped so back-to-back classes can be opened early. When every
// candidate has ended the first is returned and the transition reports it.
func (s *Service) toggleTarget(ctx context.Context, sc *scan, candidates []model.Schedule) (model.Schedule, error) {
	var fresh *model.Schedule
	for i := range candidates {
		sess, err := s.store.GetSessionForDay(ctx, candidates[i].ID, sc.day)
		switch {
		case errors.Is(err, store.ErrNotFound):
			if fresh == nil {
				fresh = &candidates[i]
			}
		case err != nil:
			return model.Schedule{}, storeFailure(err)
		case sess.Status == model.SessionActive:
			return candidates[i], nil
		}
	}
	if fresh != nil {
		return *fresh, nil
	}
	return candidates[0], nil
}

// InstructorInsideScan ends the instructor's active session in the room. The door stays unlocked.
func (s *Service) InstructorInsideScan(ctx context.Context, req ScanRequest) (InstructorResult, error) {
	sc := s.newScan(ActionInstructorInside, req, model.LocationInside)
	res, err := s.instructorInside(ctx, sc)
	s.finish(ctx, sc, err, "session "+res.SessionStatus)
	return res, err
}

func (s *Service) instructorInside(ctx context.Context, sc *scan) (InstructorResult, error) {
	if err := s.resolve(ctx, sc, model.RoleInstructor, model.RoleDean); err != nil {
		return InstructorResult{}, err
	}
	active, err := s.store.FindActiveSession(ctx, store.SessionFilter{
		RoomID:       sc.req.RoomID,
		Day:          sc.day,
		InstructorID: sc.user.ID,
	})
	if errors.Is(err, store.ErrNotFound) {
		return InstructorResult{}, notFound(reasonNoActiveSession)
	}
	if err != nil {
		return InstructorResult{}, storeFailure(err)
	}
	if err := s.claim(ctx, sc); err != nil {
		return InstructorResult{}, err
	}

	res, err := s.drive(ctx, sc, session.Input{
		ScheduleID:   active.ScheduleID,
		RoomID:       active.RoomID,
		InstructorID: sc.user.ID,
		Day:          active.SessionDate,
		Event:        session.EventInsideScan,
		Now:          sc.now,
	})
	if KindOf(err) == KindScheduleViolation {
		// Closed by a concurrent scan between the lookup and the transaction.
		return InstructorResult{}, notFound(reasonNoActiveSession)
	}
	return res, err
}

// drive applies one session transition and the instructor's own attendance row atomically.
func (s *Service) drive(ctx context.Context, sc *scan, in session.Input) (InstructorResult, error) {
	var res session.Result
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		res, err = s.machine.Transition(ctx, tx, in)
		if err != nil {
			return err
		}
		scanType := model.ScanTimeIn
		if res.To == session.StateEnded {
			scanType = model.ScanTimeOut
		}
		_, err = s.recorder.Instructor(ctx, tx, sc.user.ID, res.Session, scanType, sc.now)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, session.ErrInvalidTransition):
		if res.From == session.StateEnded {
			return InstructorResult{}, violation(reasonAlreadyEnded)
		}
		return InstructorResult{}, notFound(reasonNoActiveSession)
	case errors.Is(err, session.ErrNotSessionOwner):
		return InstructorResult{}, violation(reasonNotOwner)
	case errors.Is(err, store.ErrDuplicate), errors.Is(err, store.ErrConflict):
		return InstructorResult{}, duplicate(reasonSessionRace)
	default:
		return InstructorResult{}, storeFailure(err)
	}

	metrics.SessionTransitions.WithLabelValues(string(res.To)).Inc()
	status := SessionStarted
	if res.To == session.StateEnded {
		status = SessionClosed
	}
	return InstructorResult{
		SessionStatus: status,
		DoorStatus:    res.DoorStatus,
		SessionID:     res.Session.ID,
		ScheduleID:    res.Session.ScheduleID,
	}, nil
}

// StudentInsideScan records a time-in, or confirms an early arrival, against the active session.
func (s *Service) StudentInsideScan(ctx context.Context, req ScanRequest) (StudentResult, error) {
	sc := s.newScan(ActionStudentInside, req, model.LocationInside)
	res, err := s.studentInside(ctx, sc)
	s.finish(ctx, sc, err, "attendance recorded: "+res.Status)
	return res, err
}

func (s *Service) studentInside(ctx context.Context, sc *scan) (StudentResult, error) {
	if sc.req.AuthMethod != model.AuthMethodFingerprint {
		return StudentResult{}, authFailure(reasonFingerprintOnly, nil)
	}
	if err := s.resolve(ctx, sc, model.RoleStudent); err != nil {
		return StudentResult{}, err
	}
	rec, err := s.validate(ctx, sc, model.LocationInside)
	if err != nil {
		return StudentResult{}, err
	}
	if !rec.IsValid {
		return StudentResult{}, violation(rec.Reason)
	}
	if err := s.claim(ctx, sc); err != nil {
		return StudentResult{}, err
	}

	var out attendance.Outcome
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		out, err = s.recorder.TimeIn(ctx, tx, attendance.Scan{
			UserID:   sc.user.ID,
			Schedule: *rec.Schedule,
			Day:      sc.day,
			Now:      sc.now,
		})
		return err
	})
	if err != nil {
		return StudentResult{}, recordingError(err)
	}

	metrics.AttendanceWrites.WithLabelValues(string(out.Record.Status)).Inc()
	status := strings.ToLower(string(out.Record.Status))
	if out.Confirmed {
		status = StudentArrivalConfirmed
	}
	return StudentResult{
		Status:         status,
		ScheduleID:     rec.Schedule.ID,
		ScheduledStart: rec.Schedule.StartTime,
		RecordID:       out.Record.ID,
	}, nil
}

// StudentOutsideScan records an early arrival for a class starting within the early window.
func (s *Service) StudentOutsideScan(ctx context.Context, req ScanRequest) (StudentResult, error) {
	sc := s.newScan(ActionStudentOutside, req, model.LocationOutside)
	res, err := s.studentOutside(ctx, sc)
	s.finish(ctx, sc, err, "early arrival recorded")
	return res, err
}

func (s *Service) studentOutside(ctx context.Context, sc *scan) (StudentResult, error) {
	if err := s.resolve(ctx, sc, model.RoleStudent); err != nil {
		return StudentResult{}, err
	}
	rec, err := s.validate(ctx, sc, model.LocationOutside)
	if err != nil {
		return StudentResult{}, err
	}
	if !rec.IsValid {
		return StudentResult{}, violation(rec.Reason)
	}
	if err := s.claim(ctx, sc); err != nil {
		return StudentResult{}, err
	}

	var out attendance.Outcome
	err = s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		out, err = s.recorder.EarlyArrival(ctx, tx, attendance.Scan{
			UserID:   sc.user.ID,
			Schedule: *rec.Schedule,
			Day:      sc.day,
			Now:      sc.now,
		})
		return err
	})
	if err != nil {
		return StudentResult{}, recordingError(err)
	}

	metrics.AttendanceWrites.WithLabelValues(string(out.Record.Status)).Inc()
	return StudentResult{
		Status:         StudentEarlyArrival,
		ScheduleID:     rec.Schedule.ID,
		ScheduledStart: rec.Schedule.StartTime,
		RecordID:       out.Record.ID,
	}, nil
}

func recordingError(err error) error {
	switch {
	case errors.Is(err, attendance.ErrNoActiveSession):
		return violation(reasonNotStarted)
	case errors.Is(err, attendance.ErrAlreadyRecorded):
		return duplicate(reasonAlreadyRecorded)
	default:
		return storeFailure(err)
	}
}

// AccessScan decides door access for any role without writing session or attendance state.
// Custodians and deans use it for informational and after-hours access.
func (s *Service) AccessScan(ctx context.Context, req ScanRequest, location model.ScanLocation) (DoorResult, error) {
	sc := s.newScan(ActionDoorAccess, req, location)
	res, err := s.accessScan(ctx, sc)
	s.finish(ctx, sc, err, res.Reason)
	return res, err
}

func (s *Service) accessScan(ctx context.Context, sc *scan) (DoorResult, error) {
	if sc.location != model.LocationInside && sc.location != model.LocationOutside {
		return DoorResult{}, violation(schedule.ReasonInvalidLocation)
	}
	if err := s.resolve(ctx, sc); err != nil {
		return DoorResult{}, err
	}
	rec, err := s.validate(ctx, sc, sc.location)
	if err != nil {
		return DoorResult{}, err
	}
	if !rec.IsValid {
		return DoorResult{}, violation(rec.Reason)
	}
	if err := s.claim(ctx, sc); err != nil {
		return DoorResult{}, err
	}
	return DoorResult{
		Granted:    true,
		DoorStatus: sc.room.DoorStatus,
		CanRecord:  rec.CanRecord,
		Reason:     rec.Reason,
	}, nil
}
