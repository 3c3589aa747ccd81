package appointment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/messaging"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
)

const (
	msgDoctorUnavailable = "doctor not found or not verified"
	msgNotPending        = "appointment is not pending"
	msgDateRequired      = "appointment date and time are required for acceptance"
	msgInvalidDate       = "invalid appointment date"
	msgInvalidAction     = "invalid action"
)

// Accepted appointmentDate layouts, tried in order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

type Options struct {
	// AllowDeleteResolved lets doctors delete accepted or rejected rows.
	AllowDeleteResolved bool
	// Channel is the broker channel lifecycle events go to.
	Channel string
}

type Service struct {
	repo      repository.AppointmentRepository
	userRepo  repository.UserRepository
	publisher messaging.Publisher
	metrics   *metrics.Metrics
	opts      Options
	now       func() time.Time
}

func NewService(repo repository.AppointmentRepository, userRepo repository.UserRepository,
	publisher messaging.Publisher, m *metrics.Metrics, opts Options) *Service {
	if m == nil {
		m = metrics.New("telehealth", nil)
	}
	return &Service{
		repo:      repo,
		userRepo:  userRepo,
		publisher: publisher,
		metrics:   m,
		opts:      opts,
		now:       time.Now,
	}
}

// ActionResult describes the outcome of a doctor action. Appointment is nil
// after a delete.
type ActionResult struct {
	Message     string             `json:"message"`
	Appointment *model.Appointment `json:"appointment,omitempty"`
}

// Create books a pending appointment with a verified doctor.
func (s *Service) Create(ctx context.Context, patientID uuid.UUID, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	doctorID, err := uuid.Parse(strings.TrimSpace(req.DoctorID))
	if err != nil {
		return nil, apperrors.BadRequest("invalid doctor id", err)
	}

	doctor, err := s.userRepo.Get(ctx, doctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &apperrors.AppError{Code: apperrors.ErrNotFound, Message: msgDoctorUnavailable, Err: err}
		}
		return nil, apperrors.Internal(err)
	}
	if !doctor.IsVerifiedDoctor() {
		return nil, &apperrors.AppError{Code: apperrors.ErrNotFound, Message: msgDoctorUnavailable}
	}

	message := strings.TrimSpace(req.RequestMessage)
	if message == "" {
		message = model.DefaultRequestMessage
	}

	apt := &model.Appointment{
		PatientID:      patientID,
		DoctorID:       doctorID,
		Status:         model.AppointmentStatusPending,
		RequestMessage: message,
	}
	if err := s.repo.Create(ctx, apt); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.metrics.AppointmentsCreated.Inc()
	s.publish(ctx, model.EventAppointmentRequested, apt)
	return apt, nil
}

// Act applies a doctor's accept, reject or delete to one of their appointments.
func (s *Service) Act(ctx context.Context, doctorID, appointmentID uuid.UUID, req *model.AppointmentActionRequest) (*ActionResult, error) {
	action := model.AppointmentAction(req.Action)
	if !action.Valid() {
		return nil, apperrors.BadRequest(msgInvalidAction, nil)
	}

	res, err := s.act(ctx, doctorID, appointmentID, action, req.AppointmentDate)
	s.metrics.AppointmentTransitions.WithLabelValues(string(action), transitionResult(err)).Inc()
	return res, err
}

func (s *Service) act(ctx context.Context, doctorID, appointmentID uuid.UUID, action model.AppointmentAction, rawDate string) (*ActionResult, error) {
	apt, err := s.repo.Get(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}
	if apt.DoctorID != doctorID {
		return nil, apperrors.Forbidden("access denied")
	}

	if action == model.ActionDelete {
		return s.delete(ctx, apt)
	}

	var date *time.Time
	if action == model.ActionAccept {
		d, err := parseDate(rawDate)
		if err != nil {
			return nil, err
		}
		date = &d
	}

	next, ok := apt.Status.Next(action)
	if !ok {
		return nil, apperrors.BadRequest(msgNotPending, nil)
	}

	changed, err := s.repo.UpdateStatus(ctx, apt.ID, doctorID, apt.Status, next, date)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if !changed {
		// Another request resolved it between the read and the update.
		return nil, apperrors.BadRequest(msgNotPending, nil)
	}

	apt.Status = next
	if date != nil {
		apt.AppointmentDate = date
	}

	if next == model.AppointmentStatusAccepted {
		s.publish(ctx, model.EventAppointmentAccepted, apt)
		return &ActionResult{Message: "appointment accepted and scheduled", Appointment: apt}, nil
	}
	s.publish(ctx, model.EventAppointmentRejected, apt)
	return &ActionResult{Message: "appointment request rejected", Appointment: apt}, nil
}

func (s *Service) delete(ctx context.Context, apt *model.Appointment) (*ActionResult, error) {
	if !apt.Status.CanDelete(s.opts.AllowDeleteResolved) {
		return nil, apperrors.BadRequest(msgNotPending, nil)
	}

	deleted, err := s.repo.Delete(ctx, apt.ID, apt.DoctorID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if !deleted {
		return nil, apperrors.NotFound("appointment", nil)
	}

	s.publish(ctx, model.EventAppointmentDeleted, apt)
	return &ActionResult{Message: "appointment request deleted"}, nil
}

func (s *Service) ListPendingForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.PendingAppointment, error) {
	list, err := s.repo.ListPendingForDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return list, nil
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.PatientAppointment, error) {
	list, err := s.repo.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return list, nil
}

// publish hands a lifecycle event to the broker. Failures are logged only.
func (s *Service) publish(ctx context.Context, eventType string, apt *model.Appointment) {
	if s.publisher == nil {
		return
	}

	event := model.AppointmentEvent{
		ID:              uuid.New(),
		Type:            eventType,
		AppointmentID:   apt.ID,
		PatientID:       apt.PatientID,
		DoctorID:        apt.DoctorID,
		Status:          apt.Status,
		AppointmentDate: apt.AppointmentDate,
		OccurredAt:      s.now().UTC(),
	}
	if eventType == model.EventAppointmentDeleted {
		event.Status = ""
	}

	status := "ok"
	if err := s.publisher.Publish(ctx, s.opts.Channel, event); err != nil {
		status = "error"
		log.Warn().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", apt.ID.String()).
			Msg("failed to publish appointment event")
	}
	s.metrics.EventsPublished.WithLabelValues(eventType, status).Inc()
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apperrors.BadRequest(msgDateRequired, nil)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.BadRequest(msgInvalidDate, nil)
}

func transitionResult(err error) string {
	if err == nil {
		return "applied"
	}
	if appErr, ok := apperrors.As(err); ok && appErr.Code != apperrors.ErrInternal {
		return "denied"
	}
	return "error"
}
