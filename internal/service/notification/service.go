package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/telehealth-api/internal/email"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/pkg/messaging"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
)

type Config struct {
	Channel       string
	RetryAttempts int
	RetryDelay    time.Duration
}

// Notifier turns appointment events into patient emails.
type Notifier struct {
	userRepo repository.UserRepository
	emailSvc email.Service
	broker   messaging.Broker
	config   Config
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

func NewNotifier(userRepo repository.UserRepository, emailSvc email.Service, broker messaging.Broker,
	config Config, logger zerolog.Logger, m *metrics.Metrics) *Notifier {
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 1
	}
	if m == nil {
		m = metrics.New("telehealth_worker", nil)
	}
	return &Notifier{
		userRepo: userRepo,
		emailSvc: emailSvc,
		broker:   broker,
		config:   config,
		logger:   logger.With().Str("component", "notifier").Logger(),
		metrics:  m,
	}
}

// Start consumes events until ctx is cancelled or the subscription closes.
func (n *Notifier) Start(ctx context.Context) error {
	messages, err := n.broker.Subscribe(ctx, n.config.Channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", n.config.Channel, err)
	}

	n.logger.Info().Str("channel", n.config.Channel).Msg("notifier started")
	for {
		select {
		case <-ctx.Done():
			n.logger.Info().Msg("notifier shutting down")
			return nil
		case msg, ok := <-messages:
			if !ok {
				n.logger.Info().Msg("subscription closed")
				return nil
			}
			if err := n.HandleMessage(ctx, msg); err != nil {
				n.logger.Error().Err(err).Msg("failed to handle appointment event")
			}
		}
	}
}

func (n *Notifier) HandleMessage(ctx context.Context, payload []byte) error {
	var event model.AppointmentEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}
	return n.Handle(ctx, &event)
}

// Handle emails the patient about one lifecycle change.
func (n *Notifier) Handle(ctx context.Context, event *model.AppointmentEvent) error {
	patient, err := n.userRepo.Get(ctx, event.PatientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			n.logger.Debug().Str("patient_id", event.PatientID.String()).Msg("patient gone, skipping")
			return nil
		}
		return fmt.Errorf("failed to load patient: %w", err)
	}

	doctorName := "your doctor"
	if doctor, err := n.userRepo.Get(ctx, event.DoctorID); err == nil {
		doctorName = doctor.Name
	}

	subject, body, ok := compose(event, patient.Name, doctorName)
	if !ok {
		return nil
	}

	err = retry(n.config.RetryAttempts, n.config.RetryDelay, func() error {
		return n.emailSvc.SendCustom(ctx, patient.Email, subject, body)
	})
	if err != nil {
		n.metrics.EmailsSent.WithLabelValues("error").Inc()
		return err
	}

	n.metrics.EmailsSent.WithLabelValues("sent").Inc()
	n.logger.Info().
		Str("event_type", event.Type).
		Str("appointment_id", event.AppointmentID.String()).
		Msg("notification sent")
	return nil
}

func compose(event *model.AppointmentEvent, patientName, doctorName string) (string, string, bool) {
	switch event.Type {
	case model.EventAppointmentRequested:
		return "Appointment request sent",
			fmt.Sprintf("Hello %s,\n\nYour appointment request with %s has been sent.", patientName, doctorName), true
	case model.EventAppointmentAccepted:
		when := "a time to be confirmed"
		if event.AppointmentDate != nil {
			when = event.AppointmentDate.Format("Mon 2 Jan 2006 15:04 MST")
		}
		return "Appointment confirmed",
			fmt.Sprintf("Hello %s,\n\n%s accepted your appointment for %s.", patientName, doctorName, when), true
	case model.EventAppointmentRejected:
		return "Appointment declined",
			fmt.Sprintf("Hello %s,\n\n%s could not accept your appointment request.", patientName, doctorName), true
	case model.EventAppointmentDeleted:
		return "Appointment removed",
			fmt.Sprintf("Hello %s,\n\nYour appointment with %s was removed.", patientName, doctorName), true
	}
	return "", "", false
}

func retry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
