package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classroom-access-backend/internal/model"
	"classroom-access-backend/internal/store/storetest"
)

type failingAppender struct {
	calls int
}

func (f *failingAppender) AppendAccessLog(context.Context, *model.AccessLogEntry) error {
	f.calls++
	return errors.New("disk full")
}

func TestLog_AppendSwallowsErrors(t *testing.T) {
	f := &failingAppender{}
	l := NewLog(f)

	assert.NotPanics(t, func() {
		l.Append(context.Background(), model.AccessLogEntry{RoomID: 1, Action: "student_inside_scan", Result: model.AccessDenied})
	})
	assert.Equal(t, 1, f.calls)
}

func TestLog_AppendWritesEntry(t *testing.T) {
	gdb, st := storetest.Open(t)
	l := NewLog(st)

	uid := int64(7)
	at := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l.Append(ctx, model.AccessLogEntry{
		UserID:     &uid,
		RoomID:     3,
		AuthMethod: model.AuthMethodRFID,
		Location:   model.LocationOutside,
		Action:     "instructor_outside_scan",
		Result:     model.AccessSuccess,
		Reason:     "session started",
		RequestID:  "req-1",
		Timestamp:  at,
	})

	var entries []model.AccessLogEntry
	require.NoError(t, gdb.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].RoomID)
	require.NotNil(t, entries[0].UserID)
	assert.Equal(t, uid, *entries[0].UserID)
	assert.Equal(t, model.AccessSuccess, entries[0].Result)
	assert.Equal(t, "req-1", entries[0].RequestID)
}
