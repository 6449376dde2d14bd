// Package storetest provides an in-memory sqlite store seeded with a small campus for tests.
package storetest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"classroom-access-backend/internal/db"
	"classroom-access-backend/internal/model"
	"classroom-access-backend/internal/store"
)

// Seeded identifiers.
const (
	RoomA int64 = 1
	RoomB int64 = 2

	InstructorID  int64 = 10
	Instructor2ID int64 = 11
	StudentID     int64 = 20
	Student2ID    int64 = 21
	DeanID        int64 = 30
	CustodianID   int64 = 40
	InactiveID    int64 = 50

	SubjectMath    int64 = 100
	SubjectPhysics int64 = 200
	SubjectEthics  int64 = 300

	// Monday 09:00-10:00 in RoomA, Math, taught by InstructorID.
	MorningSchedule int64 = 1
	// Monday 13:00-14:00 in RoomA, Physics, taught by Instructor2ID.
	AfternoonSchedule int64 = 2
	// Monday 11:00-12:00 in RoomB, Ethics, taught by DeanID.
	DeanSchedule int64 = 3
)

// Credentials as stored after normalization.
const (
	InstructorRFID  = "04A1B2C3"
	Instructor2RFID = "04A1B2C4"
	StudentRFID     = "0AB1C2D3"
	StudentPrint    = "2001"
	Student2Print   = "2101"
	DeanRFID        = "0DEADBEE"
	CustodianRFID   = "0CAFEBAB"
	InactiveRFID    = "0BADBAD0"
)

var (
	// Term is the current term in the seeded settings.
	Term = model.Term{AcademicYear: "2026-2027", Semester: "1"}
	// Monday is the reference class day; 2026-10-12 falls on a Monday.
	Monday = time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
)

// At returns Monday at the given wall clock.
func At(hour, min, sec int) time.Time {
	return Monday.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute + time.Duration(sec)*time.Second)
}

// Open returns a migrated in-memory database. A single connection keeps the
// memory database alive for the whole test and serializes writers.
func Open(t *testing.T) (*gorm.DB, store.Store) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb, store.NewGormStore(gdb)
}

// Seed opens a database and loads the reference campus into it.
func Seed(t *testing.T) (*gorm.DB, store.Store) {
	t.Helper()
	gdb, st := Open(t)
	Populate(t, gdb)
	return gdb, st
}

// Populate loads the reference campus into an already migrated database.
func Populate(t *testing.T, gdb *gorm.DB) {
	t.Helper()

	created := Monday.AddDate(0, -1, 0)
	users := []model.User{
		{ID: InstructorID, Name: "Ada Instructor", Role: model.RoleInstructor, IsActive: true, CreatedAt: created},
		{ID: Instructor2ID, Name: "Ben Instructor", Role: model.RoleInstructor, IsActive: true, CreatedAt: created},
		{ID: StudentID, Name: "Cy Student", Role: model.RoleStudent, IsActive: true, CreatedAt: created},
		{ID: Student2ID, Name: "Di Student", Role: model.RoleStudent, IsActive: true, CreatedAt: created},
		{ID: DeanID, Name: "Ed Dean", Role: model.RoleDean, IsActive: true, CreatedAt: created},
		{ID: CustodianID, Name: "Flo Custodian", Role: model.RoleCustodian, IsActive: true, CreatedAt: created},
		{ID: InactiveID, Name: "Gus Former", Role: model.RoleStudent, IsActive: false, CreatedAt: created},
	}
	require.NoError(t, gdb.Create(&users).Error)

	methods := []model.AuthMethod{
		{UserID: InstructorID, MethodType: model.AuthMethodRFID, Identifier: InstructorRFID, IsActive: true},
		{UserID: Instructor2ID, MethodType: model.AuthMethodRFID, Identifier: Instructor2RFID, IsActive: true},
		{UserID: StudentID, MethodType: model.AuthMethodRFID, Identifier: StudentRFID, IsActive: true},
		{UserID: StudentID, MethodType: model.AuthMethodFingerprint, Identifier: StudentPrint, IsActive: true},
		{UserID: Student2ID, MethodType: model.AuthMethodFingerprint, Identifier: Student2Print, IsActive: true},
		{UserID: DeanID, MethodType: model.AuthMethodRFID, Identifier: DeanRFID, IsActive: true},
		{UserID: CustodianID, MethodType: model.AuthMethodRFID, Identifier: CustodianRFID, IsActive: true},
		{UserID: InactiveID, MethodType: model.AuthMethodRFID, Identifier: InactiveRFID, IsActive: true},
	}
	require.NoError(t, gdb.Create(&methods).Error)

	require.NoError(t, gdb.Create(&model.TermSetting{ID: 1, AcademicYear: Term.AcademicYear, Semester: Term.Semester}).Error)

	rooms := []model.Room{
		{ID: RoomA, RoomNumber: "A-101", DoorStatus: model.DoorLocked},
		{ID: RoomB, RoomNumber: "B-204", DoorStatus: model.DoorLocked},
	}
	require.NoError(t, gdb.Create(&rooms).Error)

	subjects := []model.Subject{
		{ID: SubjectMath, Code: "MATH101", Name: "Calculus", InstructorID: InstructorID},
		{ID: SubjectPhysics, Code: "PHYS101", Name: "Mechanics", InstructorID: Instructor2ID},
		{ID: SubjectEthics, Code: "ETH201", Name: "Ethics", InstructorID: DeanID},
	}
	require.NoError(t, gdb.Create(&subjects).Error)

	schedules := []model.Schedule{
		{ID: MorningSchedule, SubjectID: SubjectMath, RoomID: RoomA, DayOfWeek: time.Monday,
			StartTime: "09:00:00", EndTime: "10:00:00", AcademicYear: Term.AcademicYear, Semester: Term.Semester},
		{ID: AfternoonSchedule, SubjectID: SubjectPhysics, RoomID: RoomA, DayOfWeek: time.Monday,
			StartTime: "13:00:00", EndTime: "14:00:00", AcademicYear: Term.AcademicYear, Semester: Term.Semester, IsLab: true},
		{ID: DeanSchedule, SubjectID: SubjectEthics, RoomID: RoomB, DayOfWeek: time.Monday,
			StartTime: "11:00:00", EndTime: "12:00:00", AcademicYear: Term.AcademicYear, Semester: Term.Semester},
	}
	require.NoError(t, gdb.Create(&schedules).Error)

	enrollments := []model.Enrollment{
		{UserID: StudentID, SubjectID: SubjectMath, AcademicYear: Term.AcademicYear, Semester: Term.Semester, Status: model.EnrollmentEnrolled},
		{UserID: Student2ID, SubjectID: SubjectMath, AcademicYear: Term.AcademicYear, Semester: Term.Semester, Status: model.EnrollmentEnrolled},
		{UserID: Student2ID, SubjectID: SubjectPhysics, AcademicYear: Term.AcademicYear, Semester: Term.Semester, Status: model.EnrollmentEnrolled},
		{UserID: StudentID, SubjectID: SubjectPhysics, AcademicYear: Term.AcademicYear, Semester: Term.Semester, Status: model.EnrollmentDropped},
	}
	require.NoError(t, gdb.Create(&enrollments).Error)
}
