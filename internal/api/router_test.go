package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classroom-access-backend/internal/access"
	"classroom-access-backend/internal/auth"
	"classroom-access-backend/internal/settings"
	"classroom-access-backend/internal/store/storetest"
)

const (
	testKey    = "router-test-key"
	testIssuer = "classroom-access"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	now    time.Time
}

func newTestServer(t *testing.T, opts RouterOptions) *testServer {
	t.Helper()
	_, st := storetest.Seed(t)
	ts := &testServer{now: storetest.At(9, 0, 0)}
	svc := access.NewService(st, settings.NewProvider(st, time.Minute), access.Options{
		Location: time.UTC,
		Clock:    func() time.Time { return ts.now },
	})
	if opts.RateLimitPerSec == 0 {
		opts.RateLimitPerSec = 1000
		opts.RateLimitBurst = 1000
	}
	ts.router = NewRouter(svc, opts)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func card(id string, room int64) ScanRequest {
	return ScanRequest{Identifier: id, AuthMethod: "rfid", RoomID: room}
}

func finger(id string, room int64) ScanRequest {
	return ScanRequest{Identifier: id, AuthMethod: "fingerprint", RoomID: room}
}

func TestScanRoutes(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})

	w := ts.do(t, http.MethodPost, "/api/scans/student/inside", finger(storetest.StudentPrint, storetest.RoomA), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	body := decode(t, w)
	assert.Equal(t, "schedule_violation", body["kind"])
	assert.Contains(t, body["error"], "no active session")

	w = ts.do(t, http.MethodPost, "/api/scans/instructor/inside", card(storetest.InstructorRFID, storetest.RoomA), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/api/scans/instructor/outside", card(storetest.InstructorRFID, storetest.RoomA), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, "started", body["session_status"])
	assert.Equal(t, "unlocked", body["door_status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	ts.now = storetest.At(9, 20, 0)
	w = ts.do(t, http.MethodPost, "/api/scans/student/inside", finger(storetest.StudentPrint, storetest.RoomA), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "late", decode(t, w)["status"])

	w = ts.do(t, http.MethodPost, "/api/scans/student/inside", finger(storetest.StudentPrint, storetest.RoomA), "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate_submission", decode(t, w)["kind"])

	w = ts.do(t, http.MethodPost, "/api/scans/student/outside", card("DEADBEEF", storetest.RoomA), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/api/scans/student/outside", card(storetest.InstructorRFID, storetest.RoomA), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "authorization_failure", decode(t, w)["kind"])

	w = ts.do(t, http.MethodPost, "/api/scans/access", AccessScanRequest{
		ScanRequest: card(storetest.CustodianRFID, storetest.RoomA),
		Location:    "outside",
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, true, body["granted"])
	assert.Equal(t, false, body["can_record"])

	ts.now = storetest.At(10, 0, 0)
	w = ts.do(t, http.MethodPost, "/api/scans/instructor/outside", card(storetest.InstructorRFID, storetest.RoomA), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, "ended", body["session_status"])
	assert.Equal(t, "locked", body["door_status"])

	w = ts.do(t, http.MethodPost, "/api/maintenance/cleanup-early-arrivals", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"records_updated":0}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/maintenance/reload-term", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"academicYear":"2026-2027","semester":"1"}`, w.Body.String())
}

func TestScanRoutes_BadRequest(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})

	w := ts.do(t, http.MethodPost, "/api/scans/instructor/outside", map[string]any{"identifier": "04A1B2C3"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/scans/access", card(storetest.CustodianRFID, storetest.RoomA), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoomRoutes(t *testing.T) {
	ts := newTestServer(t, RouterOptions{CacheTTL: time.Minute})

	w := ts.do(t, http.MethodGet, "/api/rooms/1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	room := decode(t, w)["room"].(map[string]any)
	assert.Equal(t, "A-101", room["roomNumber"])
	assert.Equal(t, "locked", room["doorStatus"])

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/api/rooms/abc", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/api/rooms/99", nil, "").Code)

	w = ts.do(t, http.MethodGet, "/api/rooms/1/schedules", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	var schedules []access.ScheduleView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &schedules))
	require.Len(t, schedules, 2)
	assert.Equal(t, "09:00:00", schedules[0].StartTime)

	w = ts.do(t, http.MethodGet, "/api/rooms/1/schedules", nil, "")
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
}

func TestDeviceAuthOnScans(t *testing.T) {
	ts := newTestServer(t, RouterOptions{DeviceSigningKey: testKey, Issuer: testIssuer})

	w := ts.do(t, http.MethodPost, "/api/scans/instructor/outside", card(storetest.InstructorRFID, storetest.RoomA), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodPost, "/api/maintenance/cleanup-early-arrivals", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	roomB, _, err := auth.Issue("reader-b204", storetest.RoomB, testIssuer, testKey, time.Hour)
	require.NoError(t, err)
	w = ts.do(t, http.MethodPost, "/api/scans/instructor/outside", card(storetest.InstructorRFID, storetest.RoomA), roomB)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"device mismatch"}`, w.Body.String())

	roomA, _, err := auth.Issue("reader-a101", storetest.RoomA, testIssuer, testKey, time.Hour)
	require.NoError(t, err)
	w = ts.do(t, http.MethodPost, "/api/scans/instructor/outside", card(storetest.InstructorRFID, storetest.RoomA), roomA)
	assert.Equal(t, http.StatusOK, w.Code)

	// Read routes stay open for room displays.
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/rooms/1", nil, "").Code)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, RouterOptions{Health: map[string]HealthCheck{
		"db":    func(context.Context) bool { return true },
		"redis": func(context.Context) bool { return false },
	}})

	w := ts.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded","db":true,"redis":false}`, w.Body.String())

	ts = newTestServer(t, RouterOptions{})
	w = ts.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsRoute(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})
	ts.do(t, http.MethodPost, "/api/scans/instructor/outside", card(storetest.InstructorRFID, storetest.RoomA), "")

	w := ts.do(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "classroom_access_scans_total")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind access.Kind
		want int
	}{
		{access.KindAuthentication, http.StatusUnauthorized},
		{access.KindAuthorization, http.StatusForbidden},
		{access.KindScheduleViolation, http.StatusForbidden},
		{access.KindDuplicate, http.StatusConflict},
		{access.KindNotFound, http.StatusNotFound},
		{access.KindStore, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.kind), tt.kind.String())
	}
}
