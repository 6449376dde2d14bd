package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"classroom-access-backend/internal/access"
	"classroom-access-backend/internal/auth"
	"classroom-access-backend/internal/model"
	"classroom-access-backend/internal/mw"
)

// ScanRequest is the body every reader posts.
type ScanRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	AuthMethod string `json:"auth_method" binding:"required"`
	RoomID     int64  `json:"room_id" binding:"required"`
}

// AccessScanRequest adds the reader side for door-only readers.
type AccessScanRequest struct {
	ScanRequest
	Location string `json:"location" binding:"required"`
}

// bindScan decodes the body and checks the device is allowed to report for the room.
func bindScan(c *gin.Context, body *ScanRequest) (access.ScanRequest, bool) {
	if err := c.ShouldBindJSON(body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return access.ScanRequest{}, false
	}
	return toScan(c, *body)
}

func toScan(c *gin.Context, body ScanRequest) (access.ScanRequest, bool) {
	if claims, ok := auth.DeviceFrom(c); ok && !claims.AllowsRoom(body.RoomID) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "device mismatch"})
		return access.ScanRequest{}, false
	}
	return access.ScanRequest{
		Identifier: body.Identifier,
		AuthMethod: model.AuthMethodType(body.AuthMethod),
		RoomID:     body.RoomID,
		RequestID:  mw.RequestIDFrom(c),
	}, true
}

// InstructorOutsideScan handles POST /api/scans/instructor/outside.
func (h *Handler) InstructorOutsideScan(c *gin.Context) {
	var body ScanRequest
	req, ok := bindScan(c, &body)
	if !ok {
		return
	}
	res, err := h.svc.InstructorOutsideScan(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// InstructorInsideScan handles POST /api/scans/instructor/inside.
func (h *Handler) InstructorInsideScan(c *gin.Context) {
	var body ScanRequest
	req, ok := bindScan(c, &body)
	if !ok {
		return
	}
	res, err := h.svc.InstructorInsideScan(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// StudentInsideScan handles POST /api/scans/student/inside.
func (h *Handler) StudentInsideScan(c *gin.Context) {
	var body ScanRequest
	req, ok := bindScan(c, &body)
	if !ok {
		return
	}
	res, err := h.svc.StudentInsideScan(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// StudentOutsideScan handles POST /api/scans/student/outside.
func (h *Handler) StudentOutsideScan(c *gin.Context) {
	var body ScanRequest
	req, ok := bindScan(c, &body)
	if !ok {
		return
	}
	res, err := h.svc.StudentOutsideScan(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// AccessScan handles POST /api/scans/access.
func (h *Handler) AccessScan(c *gin.Context) {
	var body AccessScanRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	req, ok := toScan(c, body.ScanRequest)
	if !ok {
		return
	}
	res, err := h.svc.AccessScan(c.Request.Context(), req, model.ScanLocation(body.Location))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CleanupEarlyArrivals handles POST /api/maintenance/cleanup-early-arrivals.
func (h *Handler) CleanupEarlyArrivals(c *gin.Context) {
	n, err := h.svc.CleanupEarlyArrivals(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records_updated": n})
}

// ReloadTerm handles POST /api/maintenance/reload-term.
func (h *Handler) ReloadTerm(c *gin.Context) {
	term, err := h.svc.ReloadTerm(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, term)
}
