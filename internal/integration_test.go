package internal

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classroom-access-backend/config"
	"classroom-access-backend/internal/access"
	"classroom-access-backend/internal/cleanup"
	"classroom-access-backend/internal/db"
	"classroom-access-backend/internal/debounce"
	"classroom-access-backend/internal/model"
	"classroom-access-backend/internal/schedule"
	"classroom-access-backend/internal/settings"
	"classroom-access-backend/internal/store"
	"classroom-access-backend/internal/store/storetest"
)

const testConfig = `
database:
  driver: sqlite
  dsn: "file::memory:"
  log_level: silent
attendance:
  timezone: UTC
  late_tolerance_minutes: 15
  early_window_minutes: 15
  instructor_early_minutes: 15
debounce:
  backend: none
cleanup:
  enabled: true
  interval_seconds: 60
`

// TestClassDayLifecycle drives one class through a full day: early arrivals,
// the instructor opening the room, inside scans, closing, and the cleanup pass.
func TestClassDayLifecycle(t *testing.T) {
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	cfg, err := config.Load(path)
	require.NoError(t, err)

	gdb, err := db.Init(&cfg.Database)
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	defer sqlDB.Close()
	storetest.Populate(t, gdb)

	st := store.NewGormStore(gdb)
	debouncer, err := debounce.New(cfg.Debounce)
	require.NoError(t, err)

	var mu sync.Mutex
	now := storetest.At(8, 50, 0)
	setClock := func(h, m, s int) {
		mu.Lock()
		defer mu.Unlock()
		now = storetest.At(h, m, s)
	}
	svc := access.NewService(st, settings.NewProvider(st, time.Duration(cfg.Attendance.TermCacheSeconds)*time.Second), access.Options{
		Windows: schedule.Windows{
			InstructorEarly: cfg.Attendance.InstructorEarly(),
			StudentEarly:    cfg.Attendance.EarlyWindow(),
		},
		LateTolerance: cfg.Attendance.LateTolerance(),
		Location:      cfg.Attendance.Location,
		Debouncer:     debouncer,
		Clock: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		},
	})

	instructor := access.ScanRequest{Identifier: storetest.InstructorRFID, AuthMethod: model.AuthMethodRFID, RoomID: storetest.RoomA}
	early := access.ScanRequest{Identifier: storetest.StudentRFID, AuthMethod: model.AuthMethodRFID, RoomID: storetest.RoomA}

	// 1. A student arrives before class and registers an early arrival.
	res, err := svc.StudentOutsideScan(ctx, early)
	require.NoError(t, err)
	assert.Equal(t, access.StudentEarlyArrival, res.Status)
	assert.Equal(t, storetest.MorningSchedule, res.ScheduleID)

	// 2. The instructor opens the room.
	setClock(8, 55, 0)
	opened, err := svc.InstructorOutsideScan(ctx, instructor)
	require.NoError(t, err)
	assert.Equal(t, "started", opened.SessionStatus)
	assert.Equal(t, model.DoorUnlocked, opened.DoorStatus)

	room, err := st.GetRoom(ctx, storetest.RoomA)
	require.NoError(t, err)
	assert.Equal(t, model.DoorUnlocked, room.DoorStatus)

	rec, err := st.GetAttendance(ctx, storetest.StudentID, storetest.MorningSchedule, "2026-10-12")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPresent, rec.Status, "early arrival promoted when the session opens")
	assert.Equal(t, model.ScanEarlyArrivalUpgraded, rec.ScanType)

	// 3. Inside scans: one on time, one already counted.
	setClock(9, 5, 0)
	in, err := svc.StudentInsideScan(ctx, access.ScanRequest{Identifier: storetest.Student2Print, AuthMethod: model.AuthMethodFingerprint, RoomID: storetest.RoomA})
	require.NoError(t, err)
	assert.Equal(t, access.StudentPresent, in.Status)

	_, err = svc.StudentInsideScan(ctx, access.ScanRequest{Identifier: storetest.StudentPrint, AuthMethod: model.AuthMethodFingerprint, RoomID: storetest.RoomA})
	assert.Equal(t, access.KindDuplicate, access.KindOf(err))

	status, err := svc.RoomStatus(ctx, storetest.RoomA)
	require.NoError(t, err)
	require.NotNil(t, status.ActiveSession)
	assert.Equal(t, opened.SessionID, status.ActiveSession.ID)

	// 4. The instructor closes the room.
	setClock(9, 58, 0)
	closed, err := svc.InstructorOutsideScan(ctx, instructor)
	require.NoError(t, err)
	assert.Equal(t, "ended", closed.SessionStatus)
	assert.Equal(t, model.DoorLocked, closed.DoorStatus)

	own, err := st.GetAttendance(ctx, storetest.InstructorID, storetest.MorningSchedule, "2026-10-12")
	require.NoError(t, err)
	assert.Equal(t, model.ScanTimeOut, own.ScanType)
	require.NotNil(t, own.TimeOutAt)

	// 5. The session cannot be reopened the same day.
	setClock(9, 59, 0)
	_, err = svc.InstructorOutsideScan(ctx, instructor)
	assert.Equal(t, access.KindScheduleViolation, access.KindOf(err))

	// 6. Cleanup finds nothing left to expire.
	cleanup.NewWorker(svc, cfg.Cleanup.Interval, cfg.Cleanup.Enabled).RunOnce(ctx)
	var dangling int64
	require.NoError(t, gdb.Model(&model.AttendanceRecord{}).Where("status = ?", model.StatusEarlyArrival).Count(&dangling).Error)
	assert.Zero(t, dangling)

	var sessions []model.Session
	require.NoError(t, gdb.Find(&sessions).Error)
	require.Len(t, sessions, 1)
	assert.Equal(t, model.SessionEnded, sessions[0].Status)
	require.NotNil(t, sessions[0].DoorLockedAt)

	var denied, granted int64
	require.NoError(t, gdb.Model(&model.AccessLogEntry{}).Where("result = ?", model.AccessDenied).Count(&denied).Error)
	require.NoError(t, gdb.Model(&model.AccessLogEntry{}).Where("result = ?", model.AccessSuccess).Count(&granted).Error)
	assert.Equal(t, int64(4), granted)
	assert.Equal(t, int64(2), denied, "duplicate inside scan and the reopen attempt")
}
