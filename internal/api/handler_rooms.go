package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func roomID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return 0, false
	}
	return id, true
}

// GetRoom handles GET /api/rooms/{room_id}.
func (h *Handler) GetRoom(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	status, err := h.svc.RoomStatus(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetRoomSchedules handles GET /api/rooms/{room_id}/schedules.
func (h *Handler) GetRoomSchedules(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	schedules, err := h.svc.TodaySchedules(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedules)
}
