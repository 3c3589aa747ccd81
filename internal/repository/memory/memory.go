// Package memory is an in-process implementation of the repository
// interfaces used by service and handler tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
)

// Store holds every table behind one lock.
type Store struct {
	mu           sync.Mutex
	users        map[uuid.UUID]*model.User
	profiles     map[uuid.UUID]*model.DoctorProfile
	availability map[uuid.UUID][]model.AvailabilityBlock
	appointments map[uuid.UUID]*model.Appointment
	clock        func() time.Time
	tick         time.Duration

	// FailReplace makes ReplaceAvailability fail without touching stored rows.
	FailReplace error
}

func NewStore() *Store {
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	s := &Store{
		users:        make(map[uuid.UUID]*model.User),
		profiles:     make(map[uuid.UUID]*model.DoctorProfile),
		availability: make(map[uuid.UUID][]model.AvailabilityBlock),
		appointments: make(map[uuid.UUID]*model.Appointment),
	}
	// Strictly increasing timestamps keep ordering deterministic.
	s.clock = func() time.Time {
		s.tick += time.Second
		return base.Add(s.tick)
	}
	return s
}

func (s *Store) Users() repository.UserRepository               { return userRepo{s} }
func (s *Store) Appointments() repository.AppointmentRepository { return appointmentRepo{s} }
func (s *Store) Doctors() repository.DoctorRepository           { return doctorRepo{s} }

// Appointment returns a copy of a stored appointment row.
func (s *Store) Appointment(id uuid.UUID) (*model.Appointment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appointments[id]
	if !ok {
		return nil, false
	}
	cp := *a
	return &cp, true
}

// Availability returns a copy of a doctor's stored blocks.
func (s *Store) Availability(doctorID uuid.UUID) []model.AvailabilityBlock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AvailabilityBlock(nil), s.availability[doctorID]...)
}

// HasProfile reports whether a doctor profile row exists.
func (s *Store) HasProfile(userID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.profiles[userID]
	return ok
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = r.s.clock()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r userRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func containsFold(field *string, sub string) bool {
	return field != nil && strings.Contains(strings.ToLower(*field), strings.ToLower(sub))
}

func (r userRepo) SearchVerifiedDoctors(_ context.Context, city, country string) ([]*model.DoctorSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.DoctorSummary{}
	for _, u := range r.s.users {
		if !u.IsVerifiedDoctor() || !containsFold(u.City, city) || !containsFold(u.Country, country) {
			continue
		}
		out = append(out, &model.DoctorSummary{ID: u.ID, Name: u.Name, City: u.City, Country: u.Country})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r userRepo) ListByRole(_ context.Context, role model.Role, verified *bool, orderBy repository.UserOrder) ([]*model.UserSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.UserSummary{}
	for _, u := range r.s.users {
		if u.Role != role || (verified != nil && u.IsDoctorVerified != *verified) {
			continue
		}
		out = append(out, &model.UserSummary{
			ID: u.ID, Name: u.Name, Email: u.Email,
			City: u.City, Country: u.Country, CreatedAt: u.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if orderBy == repository.OrderByCreatedAt {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r userRepo) SetDoctorVerified(_ context.Context, id uuid.UUID, verified bool) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.Role != model.RoleDoctor {
		return false, nil
	}
	u.IsDoctorVerified = verified
	return true, nil
}

func (r userRepo) DeleteCascade(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	for aid, a := range r.s.appointments {
		if a.PatientID == id || a.DoctorID == id {
			delete(r.s.appointments, aid)
		}
	}
	delete(r.s.profiles, id)
	delete(r.s.availability, id)
	delete(r.s.users, id)
	return nil
}

type appointmentRepo struct{ s *Store }

func (r appointmentRepo) Create(_ context.Context, a *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = r.s.clock()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	r.s.appointments[a.ID] = &cp
	return nil
}

func (r appointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r appointmentRepo) UpdateStatus(_ context.Context, id, doctorID uuid.UUID, from, to model.AppointmentStatus, date *time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok || a.DoctorID != doctorID || a.Status != from {
		return false, nil
	}
	a.Status = to
	if date != nil {
		d := *date
		a.AppointmentDate = &d
	}
	a.UpdatedAt = r.s.clock()
	return true, nil
}

func (r appointmentRepo) Delete(_ context.Context, id, doctorID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok || a.DoctorID != doctorID {
		return false, nil
	}
	delete(r.s.appointments, id)
	return true, nil
}

// sorted returns appointments matching keep, oldest first.
func (s *Store) sorted(keep func(*model.Appointment) bool) []*model.Appointment {
	out := []*model.Appointment{}
	for _, a := range s.appointments {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func reverse[T any](xs []T) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}

func (r appointmentRepo) ListPendingForDoctor(_ context.Context, doctorID uuid.UUID) ([]*model.PendingAppointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.PendingAppointment{}
	for _, a := range r.s.sorted(func(a *model.Appointment) bool {
		return a.DoctorID == doctorID && a.Status == model.AppointmentStatusPending
	}) {
		p := r.s.users[a.PatientID]
		if p == nil {
			continue
		}
		out = append(out, &model.PendingAppointment{
			AppointmentID:  a.ID,
			RequestMessage: a.RequestMessage,
			CreatedAt:      a.CreatedAt,
			PatientID:      p.ID,
			PatientName:    p.Name,
			PatientEmail:   p.Email,
		})
	}
	return out, nil
}

func (r appointmentRepo) ListForPatient(_ context.Context, patientID uuid.UUID) ([]*model.PatientAppointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.PatientAppointment{}
	for _, a := range r.s.sorted(func(a *model.Appointment) bool { return a.PatientID == patientID }) {
		d := r.s.users[a.DoctorID]
		if d == nil {
			continue
		}
		out = append(out, &model.PatientAppointment{
			AppointmentID:   a.ID,
			Status:          a.Status,
			AppointmentDate: a.AppointmentDate,
			RequestMessage:  a.RequestMessage,
			DoctorName:      d.Name,
			DoctorEmail:     d.Email,
			DoctorCity:      d.City,
		})
	}
	reverse(out)
	return out, nil
}

func (r appointmentRepo) HistoryForDoctor(_ context.Context, doctorID uuid.UUID) ([]*model.HistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.HistoryEntry{}
	for _, a := range r.s.sorted(func(a *model.Appointment) bool {
		return a.DoctorID == doctorID && a.Status != model.AppointmentStatusPending
	}) {
		p := r.s.users[a.PatientID]
		if p == nil {
			continue
		}
		out = append(out, &model.HistoryEntry{
			AppointmentID:   a.ID,
			Status:          a.Status,
			AppointmentDate: a.AppointmentDate,
			CreatedAt:       a.CreatedAt,
			PatientName:     p.Name,
			PatientEmail:    p.Email,
		})
	}
	reverse(out)
	return out, nil
}

func (r appointmentRepo) HistoryForPatient(_ context.Context, patientID uuid.UUID) ([]*model.HistoryEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*model.HistoryEntry{}
	for _, a := range r.s.sorted(func(a *model.Appointment) bool { return a.PatientID == patientID }) {
		d := r.s.users[a.DoctorID]
		if d == nil {
			continue
		}
		out = append(out, &model.HistoryEntry{
			AppointmentID:   a.ID,
			Status:          a.Status,
			AppointmentDate: a.AppointmentDate,
			CreatedAt:       a.CreatedAt,
			DoctorName:      d.Name,
			DoctorEmail:     d.Email,
		})
	}
	reverse(out)
	return out, nil
}

type doctorRepo struct{ s *Store }

func (r doctorRepo) GetProfile(_ context.Context, userID uuid.UUID) (*model.DoctorProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r doctorRepo) UpsertProfile(_ context.Context, userID uuid.UUID, profession, clinicAddress string) (*model.DoctorProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.clock()
	p, ok := r.s.profiles[userID]
	if !ok {
		p = &model.DoctorProfile{ID: uuid.New(), UserID: userID, CreatedAt: now}
		r.s.profiles[userID] = p
	}
	p.Profession = profession
	p.ClinicAddress = clinicAddress
	p.UpdatedAt = now
	cp := *p
	return &cp, nil
}

func (r doctorRepo) ListAvailability(_ context.Context, doctorID uuid.UUID) ([]model.AvailabilityBlock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := append([]model.AvailabilityBlock{}, r.s.availability[doctorID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].DayOfWeek < out[j].DayOfWeek })
	return out, nil
}

func (r doctorRepo) ReplaceAvailability(_ context.Context, doctorID uuid.UUID, blocks []model.AvailabilityBlock) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailReplace != nil {
		return r.s.FailReplace
	}
	r.s.availability[doctorID] = append([]model.AvailabilityBlock(nil), blocks...)
	return nil
}
