// Package access turns reader scans into door, session and attendance decisions.
package access

import (
	"context"
	"errors"
	"log"
	"time"

	"classroom-access-backend/internal/attendance"
	"classroom-access-backend/internal/audit"
	"classroom-access-backend/internal/debounce"
	"classroom-access-backend/internal/metrics"
	"classroom-access-backend/internal/model"
	"classroom-access-backend/internal/parse"
	"classroom-access-backend/internal/schedule"
	"classroom-access-backend/internal/session"
	"classroom-access-backend/internal/settings"
	"classroom-access-backend/internal/store"
)

// Audit actions.
const (
	ActionInstructorOutside = "instructor_outside_scan"
	ActionInstructorInside  = "instructor_inside_scan"
	ActionStudentInside     = "student_inside_scan"
	ActionStudentOutside    = "student_outside_scan"
	ActionDoorAccess        = "door_access_scan"
)

// Options configures a Service. Zero values fall back to the campus defaults.
type Options struct {
	Windows       schedule.Windows
	LateTolerance time.Duration
	Location      *time.Location
	Debouncer     debounce.Debouncer
	Clock         func() time.Time
}

// Service handles scan requests end to end.
type Service struct {
	store     store.Store
	terms     *settings.Provider
	validator *schedule.Validator
	machine   *session.Machine
	recorder  *attendance.Recorder
	audit     *audit.Log
	debouncer debounce.Debouncer
	clock     func() time.Time
	loc       *time.Location
}

// NewService wires the validator, session machine and recorder over one store.
func NewService(st store.Store, terms *settings.Provider, opts Options) *Service {
	if opts.Windows.InstructorEarly <= 0 {
		opts.Windows.InstructorEarly = 15 * time.Minute
	}
	if opts.Windows.StudentEarly <= 0 {
		opts.Windows.StudentEarly = 15 * time.Minute
	}
	if opts.LateTolerance <= 0 {
		opts.LateTolerance = 15 * time.Minute
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Debouncer == nil {
		opts.Debouncer = debounce.Noop{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	recorder := attendance.NewRecorder(opts.LateTolerance)
	machine := session.NewMachine()
	machine.OnOpen(recorder.PromoteEarlyArrivals)
	machine.OnClose(recorder.ExpireEarlyArrivals)

	return &Service{
		store:     st,
		terms:     terms,
		validator: schedule.NewValidator(st, opts.Windows),
		machine:   machine,
		recorder:  recorder,
		audit:     audit.NewLog(st),
		debouncer: opts.Debouncer,
		clock:     opts.Clock,
		loc:       opts.Location,
	}
}

// ScanRequest is what a reader sends.
type ScanRequest struct {
	Identifier string
	AuthMethod model.AuthMethodType
	RoomID     int64
	RequestID  string
}

// scan carries per-request state. now is read once and used for every window comparison.
type scan struct {
	action   string
	req      ScanRequest
	location model.ScanLocation
	now      time.Time
	day      string

	identifier string // normalized credential
	user       *model.User
	term       model.Term
	room       model.Room
}

func (s *Service) newScan(action string, req ScanRequest, location model.ScanLocation) *scan {
	now := s.clock().In(s.loc)
	return &scan{
		action:   action,
		req:      req,
		location: location,
		now:      now,
		day:      schedule.DayKey(now),
	}
}

// resolve authenticates the credential and checks the user's role against allowed.
// A nil allowed list accepts every role.
func (s *Service) resolve(ctx context.Context, sc *scan, allowed ...model.Role) error {
	if !sc.req.AuthMethod.Valid() {
		return authFailure("unsupported authentication method", nil)
	}
	identifier, err := parse.Identifier(sc.req.Identifier, sc.req.AuthMethod)
	if err != nil {
		return authFailure("invalid credential", err)
	}
	sc.identifier = identifier

	user, err := s.store.FindUserByCredential(ctx, sc.req.AuthMethod, sc.identifier)
	if errors.Is(err, store.ErrNotFound) {
		return authFailure("unknown or inactive credential", nil)
	}
	if err != nil {
		return storeFailure(err)
	}
	sc.user = &user

	if len(allowed) > 0 && !hasRole(user.Role, allowed) {
		return forbidden("role " + string(user.Role) + " cannot use this reader")
	}

	sc.room, err = s.store.GetRoom(ctx, sc.req.RoomID)
	if errors.Is(err, store.ErrNotFound) {
		return notFound("room not found")
	}
	if err != nil {
		return storeFailure(err)
	}

	sc.term, err = s.terms.CurrentTerm(ctx)
	if err != nil {
		return storeFailure(err)
	}
	return nil
}

// claim suppresses a reader double-fire. It runs once a scan has passed validation,
// so a denied scan never blocks the retry that follows it.
func (s *Service) claim(ctx context.Context, sc *scan) error {
	key := debounce.Key(sc.action, sc.location, sc.req.AuthMethod, sc.identifier, sc.req.RoomID)
	ok, err := s.debouncer.Allow(ctx, key)
	if err != nil {
		log.Printf("Warning: scan debounce unavailable: %v", err)
	}
	if !ok {
		metrics.Debounced.Inc()
		return duplicate(reasonDebounced)
	}
	return nil
}

func hasRole(role model.Role, allowed []model.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func (s *Service) validate(ctx context.Context, sc *scan, location model.ScanLocation) (schedule.Recording, error) {
	rec, err := s.validator.ValidateAttendanceRecording(ctx, schedule.Request{
		Term:     sc.term,
		UserID:   sc.user.ID,
		RoomID:   sc.req.RoomID,
		Role:     sc.user.Role,
		Location: location,
		Now:      sc.now,
	})
	if err != nil {
		return schedule.Recording{}, storeFailure(err)
	}
	return rec, nil
}

// finish writes the access log entry for sc and counts the outcome.
func (s *Service) finish(ctx context.Context, sc *scan, err error, reason string) {
	result := model.AccessSuccess
	if err != nil {
		result = model.AccessDenied
		reason = ReasonOf(err)
		if KindOf(err) == KindStore {
			log.Printf("Error handling %s for room %d: %v", sc.action, sc.req.RoomID, err)
		}
	}
	metrics.Scans.WithLabelValues(sc.action, string(result)).Inc()

	entry := model.AccessLogEntry{
		RoomID:     sc.req.RoomID,
		AuthMethod: sc.req.AuthMethod,
		Location:   sc.location,
		Action:     sc.action,
		Result:     result,
		Reason:     reason,
		RequestID:  sc.req.RequestID,
		Timestamp:  sc.now,
	}
	if sc.user != nil {
		entry.UserID = &sc.user.ID
	}
	s.audit.Append(ctx, entry)
}

// CleanupEarlyArrivals expires every early arrival whose class has closed or whose day has passed.
func (s *Service) CleanupEarlyArrivals(ctx context.Context) (int64, error) {
	n, err := s.recorder.Cleanup(ctx, s.store, s.clock().In(s.loc))
	if err != nil {
		return 0, storeFailure(err)
	}
	if n > 0 {
		metrics.EarlyArrivalsExpired.Add(float64(n))
		log.Printf("Expired %d dangling early arrivals", n)
	}
	return n, nil
}

// ReloadTerm drops the cached current term and reads it again. Run it after the
// term setting changes so scans stop matching the previous term's schedules.
func (s *Service) ReloadTerm(ctx context.Context) (model.Term, error) {
	s.terms.Invalidate()
	term, err := s.terms.CurrentTerm(ctx)
	if err != nil {
		return model.Term{}, storeFailure(err)
	}
	log.Printf("Current term reloaded: %s semester %s", term.AcademicYear, term.Semester)
	return term, nil
}
