package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"classroom-access-backend/internal/model"
	"classroom-access-backend/internal/store"
)

// State is the lifecycle position of a schedule's session on one day.
type State string

const (
	StateNone   State = "none"
	StateActive State = "active"
	StateEnded  State = "ended"
)

// Event is an instructor scan that drives the session.
type Event string

const (
	EventOutsideScan Event = "outside_scan"
	EventInsideScan  Event = "inside_scan"
)

var (
	// ErrInvalidTransition is returned when the event has no edge from the current state.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrNotSessionOwner is returned when an outside scan tries to close another instructor's session.
	ErrNotSessionOwner = errors.New("session was started by another instructor")
)

type edge struct {
	from  State
	event Event
}

// transitions is the complete table; anything absent is rejected. Ended is terminal.
var transitions = map[edge]State{
	{StateNone, EventOutsideScan}:   StateActive,
	{StateActive, EventOutsideScan}: StateEnded,
	{StateActive, EventInsideScan}:  StateEnded,
}

// Next returns the state reached from "from" on event ev.
func Next(from State, ev Event) (State, error) {
	to, ok := transitions[edge{from, ev}]
	if !ok {
		return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, from)
	}
	return to, nil
}

// StateOf maps a persisted session row to its state.
func StateOf(sess *model.Session) State {
	if sess == nil {
		return StateNone
	}
	if sess.Status == model.SessionEnded {
		return StateEnded
	}
	return StateActive
}

// Hook runs after a transition inside the same transaction. An error aborts the whole transition.
type Hook func(ctx context.Context, tx store.Store, sess model.Session, now time.Time) error

// Input names the session to drive and the scan driving it.
type Input struct {
	ScheduleID   int64
	RoomID       int64
	InstructorID int64
	Day          string
	Event        Event
	Now          time.Time
}

// Result reports the edge taken and the room door state afterwards.
type Result struct {
	From       State
	To         State
	Session    model.Session
	DoorStatus model.DoorStatus
}

// Machine applies session transitions and fires open and close hooks.
type Machine struct {
	onOpen  []Hook
	onClose []Hook
}

// NewMachine creates a machine with no hooks.
func NewMachine() *Machine {
	return &Machine{}
}

// OnOpen registers a hook fired on NONE -> ACTIVE.
func (m *Machine) OnOpen(h Hook) {
	m.onOpen = append(m.onOpen, h)
}

// OnClose registers a hook fired on ACTIVE -> ENDED.
func (m *Machine) OnClose(h Hook) {
	m.onClose = append(m.onClose, h)
}

// Transition applies in.Event to the session of in.ScheduleID on in.Day. tx must be a
// transaction-bound store so the session row, room door and hook writes commit together.
func (m *Machine) Transition(ctx context.Context, tx store.Store, in Input) (Result, error) {
	var current *model.Session
	sess, err := tx.GetSessionForDay(ctx, in.ScheduleID, in.Day)
	switch {
	case err == nil:
		current = &sess
	case errors.Is(err, store.ErrNotFound):
	default:
		return Result{}, fmt.Errorf("failed to load session: %w", err)
	}

	from := StateOf(current)
	to, err := Next(from, in.Event)
	if err != nil {
		return Result{From: from, To: from}, err
	}

	res := Result{From: from, To: to}
	switch to {
	case StateActive:
		res.Session, err = m.open(ctx, tx, in)
		res.DoorStatus = model.DoorUnlocked
	case StateEnded:
		res.Session, res.DoorStatus, err = m.close(ctx, tx, *current, in)
	}
	if err != nil {
		return Result{From: from, To: from}, err
	}
	return res, nil
}

func (m *Machine) open(ctx context.Context, tx store.Store, in Input) (model.Session, error) {
	now := in.Now
	sess := model.Session{
		ScheduleID:     in.ScheduleID,
		SessionDate:    in.Day,
		InstructorID:   in.InstructorID,
		RoomID:         in.RoomID,
		StartTime:      now,
		DoorUnlockedAt: &now,
		Status:         model.SessionActive,
	}
	if err := tx.CreateSession(ctx, &sess); err != nil {
		return model.Session{}, err
	}
	if err := tx.SetDoorStatus(ctx, in.RoomID, model.DoorUnlocked); err != nil {
		return model.Session{}, err
	}
	for _, h := range m.onOpen {
		if err := h(ctx, tx, sess, now); err != nil {
			return model.Session{}, err
		}
	}
	return sess, nil
}

// close ends the session. Closing from inside never locks the door so nobody is shut in.
func (m *Machine) close(ctx context.Context, tx store.Store, sess model.Session, in Input) (model.Session, model.DoorStatus, error) {
	if in.Event == EventOutsideScan && sess.InstructorID != in.InstructorID {
		return model.Session{}, "", ErrNotSessionOwner
	}

	now := in.Now
	lockDoor := in.Event == EventOutsideScan
	if err := tx.EndSession(ctx, sess.ID, now, lockDoor); err != nil {
		return model.Session{}, "", err
	}

	door := model.DoorUnlocked
	sess.Status = model.SessionEnded
	sess.EndTime = &now
	if lockDoor {
		if err := tx.SetDoorStatus(ctx, sess.RoomID, model.DoorLocked); err != nil {
			return model.Session{}, "", err
		}
		sess.DoorLockedAt = &now
		door = model.DoorLocked
	}

	for _, h := range m.onClose {
		if err := h(ctx, tx, sess, now); err != nil {
			return model.Session{}, "", err
		}
	}
	return sess, door, nil
}
