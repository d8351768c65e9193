package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultHistoryWindow = 48 * time.Hour

// @Summary      Advance to the next scheduled node
// @Description  Applies the next node now; the override expires when the schedule catches up.
// @Tags         advance
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/groups/{name}/advance [post]
// @Security     BearerAuth
func (h *Handler) advance(c *gin.Context) {
	name := c.Param("name")
	ov, err := h.services.Advance(c.Request.Context(), name)
	if err != nil {
		h.serviceError(c, err, "advance_failed", "group", name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "override": ov})
}

// @Summary      Cancel an active advance
// @Description  No-op when nothing is active; the natural node re-applies immediately.
// @Tags         advance
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/groups/{name}/advance [delete]
// @Security     BearerAuth
func (h *Handler) cancelAdvance(c *gin.Context) {
	name := c.Param("name")
	if err := h.services.CancelAdvance(c.Request.Context(), name); err != nil {
		h.serviceError(c, err, "advance_cancel_failed", "group", name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Current advance override
// @Tags         advance
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/v1/groups/{name}/advance [get]
// @Security     BearerAuth
func (h *Handler) overrideStatus(c *gin.Context) {
	ov := h.services.OverrideStatus(c.Param("name"))
	c.JSON(http.StatusOK, gin.H{"override": ov})
}

// @Summary      Advance history
// @Tags         advance
// @Produce      json
// @Param        window  query  string  false  "lookback window, e.g. 24h"
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/groups/{name}/history [get]
// @Security     BearerAuth
func (h *Handler) advanceHistory(c *gin.Context) {
	name := c.Param("name")
	window := defaultHistoryWindow
	if s := c.Query("window"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			window = d
		}
	}

	entries, err := h.services.History(c.Request.Context(), name, window)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load history", "advance_history_failed", err, "group", name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// @Summary      Clear advance history
// @Tags         advance
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/groups/{name}/history [delete]
// @Security     BearerAuth
func (h *Handler) clearAdvanceHistory(c *gin.Context) {
	name := c.Param("name")
	if err := h.services.ClearHistory(c.Request.Context(), name); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to clear history", "advance_history_clear_failed", err, "group", name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Schedule summary for a group
// @Description  Scheduler-compatible view: next trigger, next slot, flattened actions.
// @Tags         groups
// @Produce      json
// @Success      200  {object}  models.ScheduleSummary
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/groups/{name}/summary [get]
// @Security     BearerAuth
func (h *Handler) summary(c *gin.Context) {
	name := c.Param("name")
	s, err := h.services.Summary(c.Request.Context(), name)
	if err != nil {
		h.serviceError(c, err, "summary_failed", "group", name)
		return
	}
	c.JSON(http.StatusOK, s)
}
