package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/telehealth-api/internal/handler"
	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/service/appointment"
)

type Handler struct {
	svc *appointment.Service
}

func NewHandler(svc *appointment.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authenticate gin.HandlerFunc) {
	r.POST("/appointments", authenticate, middleware.RequireRole(model.RolePatient), h.Create)

	group := r.Group("/doctor", authenticate, middleware.RequireRole(model.RoleDoctor))
	{
		group.GET("/appointments", h.ListPending)
		group.POST("/appointment/:id/action", h.Act)
	}
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	patient, _ := middleware.CurrentUser(c)
	apt, err := h.svc.Create(c.Request.Context(), patient.ID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewMessageResponse("appointment request sent", gin.H{"appointment": apt}))
}

func (h *Handler) ListPending(c *gin.Context) {
	doctor, _ := middleware.CurrentUser(c)
	list, err := h.svc.ListPendingForDoctor(c.Request.Context(), doctor.ID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(list))
}

func (h *Handler) Act(c *gin.Context) {
	id, err := handler.ParamUUID(c, "id")
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	var req model.AppointmentActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBindError(c, err)
		return
	}

	doctor, _ := middleware.CurrentUser(c)
	res, err := h.svc.Act(c.Request.Context(), doctor.ID, id, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	var data interface{}
	if res.Appointment != nil {
		data = gin.H{"appointment": res.Appointment}
	}
	c.JSON(http.StatusOK, handler.NewMessageResponse(res.Message, data))
}
