package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/telehealth-api/internal/handler"
	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/service/admin"
)

type Handler struct {
	svc *admin.Service
}

func NewHandler(svc *admin.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authenticate gin.HandlerFunc) {
	group := r.Group("/admin", authenticate, middleware.RequireRole(model.RoleAdmin))
	{
		group.GET("/dashboard", h.Dashboard)
		group.POST("/doctor/verify/:id", h.VerifyDoctor)
		group.DELETE("/user/:id", h.DeleteUser)
		group.GET("/user/appointments/:id", h.UserHistory)
	}
}

func (h *Handler) Dashboard(c *gin.Context) {
	dashboard, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(dashboard))
}

func (h *Handler) VerifyDoctor(c *gin.Context) {
	id, err := handler.ParamUUID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.svc.VerifyDoctor(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse("doctor verified", nil))
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := handler.ParamUUID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	if err := h.svc.DeleteUser(c.Request.Context(), id); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse("user and all associated data deleted", nil))
}

func (h *Handler) UserHistory(c *gin.Context) {
	id, err := handler.ParamUUID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	history, err := h.svc.UserHistory(c.Request.Context(), id)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(history))
}
