package handlers

import (
	"net/http"
	"sort"

	"climate_scheduler/internal/models"

	"github.com/gin-gonic/gin"
)

type createGroupRequest struct {
	Name     string   `json:"name" binding:"required"`
	Entities []string `json:"entities"`
}

type renameRequest struct {
	NewName string `json:"new_name" binding:"required"`
}

type boolRequest struct {
	Value *bool `json:"value" binding:"required"`
}

type entitiesRequest struct {
	Entities []string `json:"entities" binding:"required"`
}

type activeProfileRequest struct {
	Profile string `json:"profile" binding:"required"`
}

// groupView is the API shape of a group, name included and an override
// snapshot attached.
type groupView struct {
	Name     string                  `json:"name"`
	Group    *models.Group           `json:"group"`
	Override *models.AdvanceOverride `json:"override,omitempty"`
}

// @Summary      List groups with their current state
// @Tags         groups
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/groups/ [get]
// @Security     BearerAuth
func (h *Handler) listGroups(c *gin.Context) {
	model, err := h.services.Model(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load groups", "groups_list_failed", err)
		return
	}

	views := make([]groupView, 0, len(model.Groups))
	for name, g := range model.Groups {
		views = append(views, groupView{
			Name:     name,
			Group:    g,
			Override: h.services.OverrideStatus(name),
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })

	c.JSON(http.StatusOK, gin.H{"groups": views, "settings": model.Settings})
}

// @Summary      Create a group
// @Tags         groups
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/groups/ [post]
// @Security     BearerAuth
func (h *Handler) createGroup(c *gin.Context) {
	var req createGroupRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if err := h.services.CreateGroup(c.Request.Context(), req.Name, req.Entities); err != nil {
		h.serviceError(c, err, "group_create_failed", "group", req.Name)
		return
	}
	h.resolveAfterWrite(c, req.Name)
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Delete a group
// @Tags         groups
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/groups/{name} [delete]
// @Security     BearerAuth
func (h *Handler) deleteGroup(c *gin.Context) {
	name := c.Param("name")
	if err := h.services.DeleteGroup(c.Request.Context(), name); err != nil {
		h.serviceError(c, err, "group_delete_failed", "group", name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Rename a group
// @Tags         groups
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/groups/{name}/rename [put]
// @Security     BearerAuth
func (h *Handler) renameGroup(c *gin.Context) {
	var req renameRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	name := c.Param("name")
	if err := h.services.RenameGroup(c.Request.Context(), name, req.NewName); err != nil {
		h.serviceError(c, err, "group_rename_failed", "group", name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Enable or disable a group
// @Tags         groups
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/groups/{name}/enabled [put]
// @Security     BearerAuth
func (h *Handler) setGroupEnabled(c *gin.Context) {
	var req boolRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	name := c.Param("name")
	if err := h.services.SetGroupEnabled(c.Request.Context(), name, *req.Value); err != nil {
		h.serviceError(c, err, "group_enable_failed", "group", name)
		return
	}
	if *req.Value {
		h.resolveAfterWrite(c, name)
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Mark a group ignored
// @Tags         groups
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/groups/{name}/ignored [put]
// @Security     BearerAuth
func (h *Handler) setGroupIgnored(c *gin.Context) {
	var req boolRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	name := c.Param("name")
	if err := h.services.SetGroupIgnored(c.Request.Context(), name, *req.Value); err != nil {
		h.serviceError(c, err, "group_ignore_failed", "group", name)
		return
	}
	if !*req.Value {
		h.resolveAfterWrite(c, name)
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Replace a group's entity list
// @Tags         groups
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/groups/{name}/entities [put]
// @Security     BearerAuth
func (h *Handler) setGroupEntities(c *gin.Context) {
	var req entitiesRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	name := c.Param("name")
	if err := h.services.SetGroupEntities(c.Request.Context(), name, req.Entities); err != nil {
		h.serviceError(c, err, "group_entities_failed", "group", name)
		return
	}
	h.resolveAfterWrite(c, name)
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Switch a group's active profile
// @Tags         groups
// @Accept       json
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/groups/{name}/profile [put]
// @Security     BearerAuth
func (h *Handler) setActiveProfile(c *gin.Context) {
	var req activeProfileRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	name := c.Param("name")
	if err := h.services.SetActiveProfile(c.Request.Context(), name, req.Profile); err != nil {
		h.serviceError(c, err, "group_set_profile_failed", "group", name)
		return
	}
	h.resolveAfterWrite(c, name)
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Resolve a group now
// @Tags         groups
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/groups/{name}/resolve [post]
// @Security     BearerAuth
func (h *Handler) resolveGroup(c *gin.Context) {
	name := c.Param("name")
	if err := h.services.ResolveGroup(c.Request.Context(), name); err != nil {
		h.serviceError(c, err, "group_resolve_failed", "group", name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

// @Summary      Force re-application for all groups
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /api/v1/sync [post]
// @Security     BearerAuth
func (h *Handler) syncAll(c *gin.Context) {
	h.services.SyncAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}
