package handlers

import (
	"net/http"

	"climate_scheduler/internal/models"

	"github.com/gin-gonic/gin"
)

type createProfileRequest struct {
	Name string `json:"name" binding:"required"`
	Mode string `json:"mode" binding:"required"`
}

type profileScheduleRequest struct {
	Mode string             `json:"mode" binding:"required"`
	Days models.DaySchedule `json:"days" binding:"required"`
}

type settingsRequest struct {
	MinTemp *float64 `json:"min_temp" binding:"required"`
	MaxTemp *float64 `json:"max_temp" binding:"required"`
}

// @Summary      Create a profile
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/profiles/ [post]
// @Security     BearerAuth
func (h *Handler) createProfile(c *gin.Context) {
	var req createProfileRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if err := h.services.CreateProfile(c.Request.Context(), req.Name, models.ScheduleMode(req.Mode)); err != nil {
		h.serviceError(c, err, "profile_create_failed", "profile", req.Name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Delete a profile
// @Description  Groups using the profile fall back to the first remaining profile.
// @Tags         profiles
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/profiles/{name} [delete]
// @Security     BearerAuth
func (h *Handler) deleteProfile(c *gin.Context) {
	name := c.Param("name")
	if err := h.services.DeleteProfile(c.Request.Context(), name); err != nil {
		h.serviceError(c, err, "profile_delete_failed", "profile", name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Rename a profile
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/profiles/{name}/rename [put]
// @Security     BearerAuth
func (h *Handler) renameProfile(c *gin.Context) {
	var req renameRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	name := c.Param("name")
	if err := h.services.RenameProfile(c.Request.Context(), name, req.NewName); err != nil {
		h.serviceError(c, err, "profile_rename_failed", "profile", name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Replace a profile's schedule
// @Description  Day keys must match the mode; node lists are normalized on write.
// @Tags         profiles
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/profiles/{name}/schedule [put]
// @Security     BearerAuth
func (h *Handler) setProfileSchedule(c *gin.Context) {
	var req profileScheduleRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	name := c.Param("name")
	ctx := c.Request.Context()
	if err := h.services.SetProfileSchedule(ctx, name, models.ScheduleMode(req.Mode), req.Days); err != nil {
		h.serviceError(c, err, "profile_schedule_failed", "profile", name)
		return
	}

	// An edited schedule may change the active node for any group using
	// this profile; re-resolve them all.
	if model, err := h.services.Model(ctx); err == nil {
		for gname, g := range model.Groups {
			if g.ActiveProfile == name {
				h.resolveAfterWrite(c, gname)
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Update temperature bounds
// @Tags         system
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/settings [put]
// @Security     BearerAuth
func (h *Handler) setSettings(c *gin.Context) {
	var req settingsRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	settings := models.Settings{MinTemp: *req.MinTemp, MaxTemp: *req.MaxTemp}
	if err := h.services.SetSettings(c.Request.Context(), settings); err != nil {
		h.serviceError(c, err, "settings_update_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}
