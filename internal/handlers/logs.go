package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"climate_scheduler/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"

	defaultPerformanceWindow = 7 * 24 * time.Hour
)

// isDateOnly reports whether the query string represents a date without a
// time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// @Summary      List transition events
// @Description  Filter by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD') and group. If 'to' is date-only, it is treated as end-of-day inclusive.
// @Tags         logs
// @Produce      json
// @Param        from   query   string  false  "Start of range"  example(2025-08-01)
// @Param        to     query   string  false  "End of range"    example(2025-08-31)
// @Param        group  query   string  false  "Group name"
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/logs/events [get]
// @Security     BearerAuth
func (h *Handler) listEvents(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		from time.Time
		to   time.Time
		err  error
	)
	if qs := c.Query("from"); qs != "" {
		from, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return
		}
	}
	if qs := c.Query("to"); qs != "" {
		to, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return
		}
		// A date-only "to" means the whole of that day.
		if isDateOnly(qs) {
			to = to.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}

	events, err := h.services.EventLog.List(ctx, service.LogFilter{
		From:      from,
		To:        to,
		GroupName: strings.TrimSpace(c.Query("group")),
	})
	if err != nil {
		h.serviceError(c, err, "events_list_failed", "from", from, "to", to)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// @Summary      Heating/cooling performance sessions for an entity
// @Tags         logs
// @Produce      json
// @Param        window  query  string  false  "lookback window, e.g. 168h"
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/logs/performance/{entity} [get]
// @Security     BearerAuth
func (h *Handler) performanceSessions(c *gin.Context) {
	entityID := c.Param("entity")
	window := defaultPerformanceWindow
	if s := c.Query("window"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			window = d
		}
	}

	sessions, err := h.services.Sessions(c.Request.Context(), entityID, window)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load sessions", "performance_list_failed", err, "entity", entityID)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time format %q", s)
}
