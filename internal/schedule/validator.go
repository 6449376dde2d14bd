package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classroom-access-backend/internal/model"
	"classroom-access-backend/internal/store"
)

// Denial reasons surfaced to callers and written to the access log.
const (
	ReasonInvalidUserType    = "invalid user type"
	ReasonCustodianAccess    = "custodian access granted"
	ReasonDeanAccess         = "dean access granted"
	ReasonNoInstructorClass  = "no class assigned to this instructor in this room at this time"
	ReasonNoClassInSession   = "no class in session in this room"
	ReasonNotEnrolled        = "not enrolled in the class scheduled in this room"
	ReasonNoUpcomingClass    = "no class starting within the early arrival window in this room"
	ReasonInvalidLocation    = "invalid scan location"
	ReasonInstructorSchedule = "class schedule is valid"
)

// Catalog is the read-only schedule and roster lookup the validator needs.
type Catalog interface {
	FindForInstructor(ctx context.Context, q store.InstructorQuery) ([]model.Schedule, error)
	FindForStudent(ctx context.Context, term model.Term, roomID int64, day time.Weekday, at string) ([]model.Schedule, error)
	FindEarlyWindow(ctx context.Context, term model.Term, roomID int64, day time.Weekday, after, until string) ([]model.Schedule, error)
	FindEnrollment(ctx context.Context, term model.Term, userID, subjectID int64) (model.Enrollment, error)
}

// Windows holds the allowances around a schedule's start edge.
type Windows struct {
	InstructorEarly time.Duration
	StudentEarly    time.Duration
}

// Verdict is the answer to "is a class in session for this user right now".
type Verdict struct {
	IsValid  bool
	Reason   string
	Schedule *model.Schedule
}

// Recording extends a Verdict with whether the scan may produce attendance.
// For instructors and deans Candidates lists every matching schedule in
// tie-break order; Schedule is the first of them.
type Recording struct {
	Verdict
	Enrollment *model.Enrollment
	CanRecord  bool
	Candidates []model.Schedule
}

// Request identifies who scanned where. Now is read once per scan by the caller.
type Request struct {
	Term     model.Term
	UserID   int64
	RoomID   int64
	Role     model.Role
	Location model.ScanLocation
	Now      time.Time
}

// Validator decides whether a scan falls inside a class window.
type Validator struct {
	catalog Catalog
	windows Windows
}

// NewValidator creates a validator over the given catalog.
func NewValidator(catalog Catalog, windows Windows) *Validator {
	return &Validator{catalog: catalog, windows: windows}
}

// ValidateCurrentSchedule applies the role policy without regard to scan location.
// Students are checked against the ordinary class window.
func (v *Validator) ValidateCurrentSchedule(ctx context.Context, req Request) (Verdict, error) {
	req.Location = model.LocationInside
	rec, err := v.ValidateAttendanceRecording(ctx, req)
	if err != nil {
		return Verdict{}, err
	}
	return rec.Verdict, nil
}

// ValidateAttendanceRecording applies the role policy and reports whether attendance may be recorded.
func (v *Validator) ValidateAttendanceRecording(ctx context.Context, req Request) (Recording, error) {
	switch req.Role {
	case model.RoleCustodian:
		return Recording{Verdict: Verdict{IsValid: true, Reason: ReasonCustodianAccess}}, nil

	case model.RoleDean:
		schedules, err := v.instructorSchedules(ctx, req)
		if err != nil {
			return Recording{}, err
		}
		rec := Recording{Verdict: Verdict{IsValid: true, Reason: ReasonDeanAccess}}
		if len(schedules) > 0 {
			rec.Schedule = &schedules[0]
			rec.Candidates = schedules
			rec.CanRecord = true
		}
		return rec, nil

	case model.RoleInstructor:
		schedules, err := v.instructorSchedules(ctx, req)
		if err != nil {
			return Recording{}, err
		}
		if len(schedules) == 0 {
			return deny(ReasonNoInstructorClass), nil
		}
		return Recording{
			Verdict:    Verdict{IsValid: true, Reason: ReasonInstructorSchedule, Schedule: &schedules[0]},
			CanRecord:  true,
			Candidates: schedules,
		}, nil

	case model.RoleStudent:
		switch req.Location {
		case model.LocationInside:
			return v.studentInSession(ctx, req)
		case model.LocationOutside:
			return v.studentEarlyArrival(ctx, req)
		default:
			return deny(ReasonInvalidLocation), nil
		}

	default:
		return deny(ReasonInvalidUserType), nil
	}
}

// instructorSchedules finds the schedules taught by the user whose window, widened
// on the start edge by the instructor allowance, contains now.
func (v *Validator) instructorSchedules(ctx context.Context, req Request) ([]model.Schedule, error) {
	schedules, err := v.catalog.FindForInstructor(ctx, store.InstructorQuery{
		Term:         req.Term,
		InstructorID: req.UserID,
		RoomID:       req.RoomID,
		Day:          req.Now.Weekday(),
		StartBy:      clockShift(req.Now, v.windows.InstructorEarly),
		EndFrom:      ClockString(req.Now),
	})
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (v *Validator) studentInSession(ctx context.Context, req Request) (Recording, error) {
	schedules, err := v.catalog.FindForStudent(ctx, req.Term, req.RoomID, req.Now.Weekday(), ClockString(req.Now))
	if err != nil {
		return Recording{}, err
	}
	if len(schedules) == 0 {
		return deny(ReasonNoClassInSession), nil
	}
	return v.firstEnrolled(ctx, req, schedules)
}

// studentEarlyArrival looks for a class starting strictly after now and no later than
// now plus the student early window. This is narrower than the instructor allowance.
func (v *Validator) studentEarlyArrival(ctx context.Context, req Request) (Recording, error) {
	schedules, err := v.catalog.FindEarlyWindow(ctx, req.Term, req.RoomID, req.Now.Weekday(),
		ClockString(req.Now), clockShift(req.Now, v.windows.StudentEarly))
	if err != nil {
		return Recording{}, err
	}
	if len(schedules) == 0 {
		return deny(ReasonNoUpcomingClass), nil
	}
	return v.firstEnrolled(ctx, req, schedules)
}

// firstEnrolled walks candidates in start-time, id order and returns the first one the student is enrolled in.
func (v *Validator) firstEnrolled(ctx context.Context, req Request, schedules []model.Schedule) (Recording, error) {
	for i := range schedules {
		enrollment, err := v.catalog.FindEnrollment(ctx, req.Term, req.UserID, schedules[i].SubjectID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return Recording{}, fmt.Errorf("failed to check enrollment: %w", err)
		}
		return Recording{
			Verdict:    Verdict{IsValid: true, Reason: "enrolled in scheduled class", Schedule: &schedules[i]},
			Enrollment: &enrollment,
			CanRecord:  true,
		}, nil
	}
	return deny(ReasonNotEnrolled), nil
}

func deny(reason string) Recording {
	return Recording{Verdict: Verdict{IsValid: false, Reason: reason}}
}
