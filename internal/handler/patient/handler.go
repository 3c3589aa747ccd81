package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/telehealth-api/internal/handler"
	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/service/appointment"
)

type Handler struct {
	appointments *appointment.Service
}

func NewHandler(appointments *appointment.Service) *Handler {
	return &Handler{appointments: appointments}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, authenticate gin.HandlerFunc) {
	group := r.Group("/patient", authenticate, middleware.RequireRole(model.RolePatient))
	{
		group.GET("/appointments", h.ListAppointments)
	}
}

func (h *Handler) ListAppointments(c *gin.Context) {
	current, _ := middleware.CurrentUser(c)
	list, err := h.appointments.ListForPatient(c.Request.Context(), current.ID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(list))
}
