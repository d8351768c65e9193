package handlers

import (
	"errors"
	"net/http"

	"climate_scheduler/internal/service"

	"github.com/gin-gonic/gin"
)

const statusOK = "ok"

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// serviceError maps domain errors onto HTTP statuses. Anything unmapped is
// an internal error and gets logged with the given key.
func (h *Handler) serviceError(c *gin.Context, err error, logKey string, kv ...interface{}) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound),
		errors.Is(err, service.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrGroupExists),
		errors.Is(err, service.ErrProfileExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidMode),
		errors.Is(err, service.ErrInvalidDayKey),
		errors.Is(err, service.ErrInvalidTempBounds),
		errors.Is(err, service.ErrInvalidLogWindow),
		errors.Is(err, service.ErrProfileInUse),
		errors.Is(err, service.ErrNoUpcomingNode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, "internal error", logKey, err, kv...)
	}
}

// resolveAfterWrite re-resolves a group right after a model write so the
// change reaches devices without waiting for the tick. Best-effort: the
// write already succeeded, a resolution problem only gets logged.
func (h *Handler) resolveAfterWrite(c *gin.Context, groupName string) {
	if err := h.services.ResolveGroup(c.Request.Context(), groupName); err != nil {
		if h.log != nil {
			h.log.Errorw("post_write_resolve_failed", "group", groupName, "err", err)
		}
	}
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}
