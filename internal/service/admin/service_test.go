package admin

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
)

func createUser(t *testing.T, store *memory.Store, name string, role model.Role, verified bool) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com", Role: role, IsDoctorVerified: verified}
	require.NoError(t, store.Users().Create(context.Background(), u))
	return u
}

func createAppointment(t *testing.T, store *memory.Store, patient, doctor *model.User, status model.AppointmentStatus) *model.Appointment {
	t.Helper()
	a := &model.Appointment{PatientID: patient.ID, DoctorID: doctor.ID, Status: model.AppointmentStatusPending, RequestMessage: "hi"}
	require.NoError(t, store.Appointments().Create(context.Background(), a))
	if status != model.AppointmentStatusPending {
		var date *time.Time
		if status == model.AppointmentStatusAccepted {
			d := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
			date = &d
		}
		ok, err := store.Appointments().UpdateStatus(context.Background(), a.ID, doctor.ID, model.AppointmentStatusPending, status, date)
		require.NoError(t, err)
		require.True(t, ok)
	}
	return a
}

func TestDashboard(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Users(), store.Appointments())

	zed := createUser(t, store, "zed", model.RoleDoctor, false)
	amy := createUser(t, store, "amy", model.RoleDoctor, false)
	createUser(t, store, "bob", model.RoleDoctor, true)
	createUser(t, store, "al", model.RoleDoctor, true)
	createUser(t, store, "pam", model.RolePatient, false)
	createUser(t, store, "ann", model.RolePatient, false)
	createUser(t, store, "root", model.RoleAdmin, false)

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	require.Len(t, d.VerificationList, 2)
	assert.Equal(t, zed.ID, d.VerificationList[0].ID, "oldest registration first")
	assert.Equal(t, amy.ID, d.VerificationList[1].ID)

	require.Len(t, d.VerifiedDoctors, 2)
	assert.Equal(t, "al", d.VerifiedDoctors[0].Name)
	require.Len(t, d.AllPatients, 2)
	assert.Equal(t, "ann", d.AllPatients[0].Name)
}

func TestVerifyDoctor(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Users(), store.Appointments())
	ctx := context.Background()

	doc := createUser(t, store, "doc", model.RoleDoctor, false)
	pat := createUser(t, store, "pat", model.RolePatient, false)

	require.NoError(t, svc.VerifyDoctor(ctx, doc.ID))
	got, err := store.Users().Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDoctorVerified)

	require.NoError(t, svc.VerifyDoctor(ctx, pat.ID), "non-doctor is a silent no-op")
	got, err = store.Users().Get(ctx, pat.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDoctorVerified)

	require.NoError(t, svc.VerifyDoctor(ctx, uuid.New()))
}

func TestDeleteUserCascades(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Users(), store.Appointments())
	ctx := context.Background()

	doc := createUser(t, store, "doc", model.RoleDoctor, true)
	pat := createUser(t, store, "pat", model.RolePatient, false)
	apt := createAppointment(t, store, pat, doc, model.AppointmentStatusPending)
	_, err := store.Doctors().UpsertProfile(ctx, doc.ID, "GP", "1 Rue")
	require.NoError(t, err)
	require.NoError(t, store.Doctors().ReplaceAvailability(ctx, doc.ID, []model.AvailabilityBlock{
		{DayOfWeek: "Monday", StartTime: "09:00", EndTime: "10:00"},
	}))

	require.NoError(t, svc.DeleteUser(ctx, doc.ID))

	_, err = store.Users().Get(ctx, doc.ID)
	assert.Error(t, err)
	_, ok := store.Appointment(apt.ID)
	assert.False(t, ok)
	assert.False(t, store.HasProfile(doc.ID))
	assert.Empty(t, store.Availability(doc.ID))

	err = svc.DeleteUser(ctx, doc.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestUserHistory(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store.Users(), store.Appointments())
	ctx := context.Background()

	doc := createUser(t, store, "doc", model.RoleDoctor, true)
	pat := createUser(t, store, "pat", model.RolePatient, false)
	admin := createUser(t, store, "root", model.RoleAdmin, false)

	createAppointment(t, store, pat, doc, model.AppointmentStatusPending)
	createAppointment(t, store, pat, doc, model.AppointmentStatusAccepted)
	createAppointment(t, store, pat, doc, model.AppointmentStatusRejected)

	docHistory, err := svc.UserHistory(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, docHistory, 2, "pending rows are hidden for doctors")
	for _, e := range docHistory {
		assert.NotEqual(t, model.AppointmentStatusPending, e.Status)
		assert.Equal(t, "pat", e.PatientName)
		assert.Empty(t, e.DoctorName)
	}

	patHistory, err := svc.UserHistory(ctx, pat.ID)
	require.NoError(t, err)
	require.Len(t, patHistory, 3)
	assert.Equal(t, "doc", patHistory[0].DoctorName)

	_, err = svc.UserHistory(ctx, admin.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))

	_, err = svc.UserHistory(ctx, uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}
