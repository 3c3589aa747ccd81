package doctor

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/telehealth-api/internal/handler"
	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/service/doctor"
)

type Handler struct {
	svc *doctor.Service
}

func NewHandler(svc *doctor.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authenticate gin.HandlerFunc) {
	r.GET("/doctors", authenticate, middleware.RequireRole(model.RolePatient), h.Search)

	group := r.Group("/doctor", authenticate, middleware.RequireRole(model.RoleDoctor))
	{
		group.GET("/profile", h.Profile)
		group.POST("/profile/update", h.UpdateProfile)
		group.POST("/availability/set", h.SetAvailability)
	}
}

func (h *Handler) Search(c *gin.Context) {
	var q model.DoctorSearch
	if err := c.ShouldBindQuery(&q); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest,
			handler.NewErrorResponse("city and country are required for search"))
		return
	}

	doctors, err := h.svc.Search(c.Request.Context(), q)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(doctors))
}

func (h *Handler) Profile(c *gin.Context) {
	current, _ := middleware.CurrentUser(c)
	view, err := h.svc.Profile(c.Request.Context(), current)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(view))
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req model.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	current, _ := middleware.CurrentUser(c)
	profile, err := h.svc.UpdateProfile(c.Request.Context(), current.ID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse("profile updated", gin.H{"profile": profile}))
}

func (h *Handler) SetAvailability(c *gin.Context) {
	var req model.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, handler.NewErrorResponse("availability must be an array"))
		return
	}

	current, _ := middleware.CurrentUser(c)
	blocks, err := h.svc.SetAvailability(c.Request.Context(), current.ID, req.Blocks())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse("availability updated", gin.H{"availability": blocks}))
}
