package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending  AppointmentStatus = "pending"
	AppointmentStatusAccepted AppointmentStatus = "accepted"
	AppointmentStatusRejected AppointmentStatus = "rejected"
)

// AppointmentAction is a doctor's decision on a request.
type AppointmentAction string

const (
	ActionAccept AppointmentAction = "accept"
	ActionReject AppointmentAction = "reject"
	ActionDelete AppointmentAction = "delete"
)

func (a AppointmentAction) Valid() bool {
	switch a {
	case ActionAccept, ActionReject, ActionDelete:
		return true
	}
	return false
}

// DefaultRequestMessage replaces a blank request message.
const DefaultRequestMessage = "No message provided."

type Appointment struct {
	Base
	PatientID       uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID        uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	Status          AppointmentStatus `db:"status" json:"status"`
	RequestMessage  string            `db:"request_message" json:"request_message"`
	AppointmentDate *time.Time        `db:"appointment_date" json:"appointment_date"`
}

type CreateAppointmentRequest struct {
	DoctorID       string `json:"doctorId" binding:"required"`
	RequestMessage string `json:"requestMessage"`
}

type AppointmentActionRequest struct {
	Action          string `json:"action" binding:"required,appointment_action"`
	AppointmentDate string `json:"appointmentDate"`
}

// PendingAppointment is a row in a doctor's pending queue.
type PendingAppointment struct {
	AppointmentID  uuid.UUID `db:"appointment_id" json:"appointment_id"`
	RequestMessage string    `db:"request_message" json:"request_message"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	PatientName    string    `db:"patient_name" json:"patient_name"`
	PatientEmail   string    `db:"patient_email" json:"patient_email"`
}

// PatientAppointment is a row in a patient's own appointment list.
type PatientAppointment struct {
	AppointmentID   uuid.UUID         `db:"appointment_id" json:"appointment_id"`
	Status          AppointmentStatus `db:"status" json:"status"`
	AppointmentDate *time.Time        `db:"appointment_date" json:"appointment_date"`
	RequestMessage  string            `db:"request_message" json:"request_message"`
	DoctorName      string            `db:"doctor_name" json:"doctor_name"`
	DoctorEmail     string            `db:"doctor_email" json:"doctor_email"`
	DoctorCity      *string           `db:"doctor_city" json:"doctor_city"`
}

// HistoryEntry is a row of the admin's per-user appointment history. Only
// the counterpart's columns are populated.
type HistoryEntry struct {
	AppointmentID   uuid.UUID         `db:"appointment_id" json:"appointment_id"`
	Status          AppointmentStatus `db:"status" json:"status"`
	AppointmentDate *time.Time        `db:"appointment_date" json:"appointment_date"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	PatientName     string            `db:"patient_name" json:"patient_name,omitempty"`
	PatientEmail    string            `db:"patient_email" json:"patient_email,omitempty"`
	DoctorName      string            `db:"doctor_name" json:"doctor_name,omitempty"`
	DoctorEmail     string            `db:"doctor_email" json:"doctor_email,omitempty"`
}

// Appointment event types
const (
	EventAppointmentRequested = "appointment.requested"
	EventAppointmentAccepted  = "appointment.accepted"
	EventAppointmentRejected  = "appointment.rejected"
	EventAppointmentDeleted   = "appointment.deleted"
)

// AppointmentEvent is published after every lifecycle change.
type AppointmentEvent struct {
	ID              uuid.UUID         `json:"id"`
	Type            string            `json:"type"`
	AppointmentID   uuid.UUID         `json:"appointment_id"`
	PatientID       uuid.UUID         `json:"patient_id"`
	DoctorID        uuid.UUID         `json:"doctor_id"`
	Status          AppointmentStatus `json:"status,omitempty"`
	AppointmentDate *time.Time        `json:"appointment_date,omitempty"`
	OccurredAt      time.Time         `json:"occurred_at"`
}

type transition struct {
	from   AppointmentStatus
	action AppointmentAction
}

// Legal status changes. Delete is a row removal and is checked by CanDelete.
var transitions = map[transition]AppointmentStatus{
	{AppointmentStatusPending, ActionAccept}: AppointmentStatusAccepted,
	{AppointmentStatusPending, ActionReject}: AppointmentStatusRejected,
}

// Next returns the status reached by applying action to s.
func (s AppointmentStatus) Next(action AppointmentAction) (AppointmentStatus, bool) {
	next, ok := transitions[transition{s, action}]
	return next, ok
}

// CanDelete reports whether a row in status s may be removed. Pending rows
// always can; resolved rows only when allowResolved is set.
func (s AppointmentStatus) CanDelete(allowResolved bool) bool {
	if s == AppointmentStatusPending {
		return true
	}
	return allowResolved && (s == AppointmentStatusAccepted || s == AppointmentStatusRejected)
}
