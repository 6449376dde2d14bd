package access

import (
	"context"
	"errors"

	"classroom-access-backend/internal/model"
	"classroom-access-backend/internal/schedule"
	"classroom-access-backend/internal/store"
)

// RoomStatus is the door state of a room and its running class, if any.
type RoomStatus struct {
	Room          model.Room     `json:"room"`
	ActiveSession *model.Session `json:"active_session,omitempty"`
}

// ScheduleView is a schedule with its subject, as shown on room displays.
type ScheduleView struct {
	ID          int64  `json:"id"`
	SubjectCode string `json:"subject_code"`
	SubjectName string `json:"subject_name"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsLab       bool   `json:"is_lab"`
}

// RoomStatus returns the room and today's active session.
func (s *Service) RoomStatus(ctx context.Context, roomID int64) (RoomStatus, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return RoomStatus{}, notFound("room not found")
	}
	if err != nil {
		return RoomStatus{}, storeFailure(err)
	}

	status := RoomStatus{Room: room}
	now := s.clock().In(s.loc)
	sess, err := s.store.FindActiveSession(ctx, store.SessionFilter{RoomID: roomID, Day: schedule.DayKey(now)})
	switch {
	case err == nil:
		status.ActiveSession = &sess
	case !errors.Is(err, store.ErrNotFound):
		return RoomStatus{}, storeFailure(err)
	}
	return status, nil
}

// TodaySchedules lists the room's schedules for today in the current term, earliest first.
func (s *Service) TodaySchedules(ctx context.Context, roomID int64) ([]ScheduleView, error) {
	term, err := s.terms.CurrentTerm(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}
	now := s.clock().In(s.loc)
	schedules, err := s.store.ListRoomSchedules(ctx, term, roomID, now.Weekday())
	if err != nil {
		return nil, storeFailure(err)
	}

	views := make([]ScheduleView, 0, len(schedules))
	for _, sch := range schedules {
		views = append(views, ScheduleView{
			ID:          sch.ID,
			SubjectCode: sch.Subject.Code,
			SubjectName: sch.Subject.Name,
			StartTime:   sch.StartTime,
			EndTime:     sch.EndTime,
			IsLab:       sch.IsLab,
		})
	}
	return views, nil
}
