package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	adminhandler "github.com/jwalitptl/telehealth-api/internal/handler/admin"
	appointmenthandler "github.com/jwalitptl/telehealth-api/internal/handler/appointment"
	authhandler "github.com/jwalitptl/telehealth-api/internal/handler/auth"
	doctorhandler "github.com/jwalitptl/telehealth-api/internal/handler/doctor"
	"github.com/jwalitptl/telehealth-api/internal/handler/health"
	patienthandler "github.com/jwalitptl/telehealth-api/internal/handler/patient"
	"github.com/jwalitptl/telehealth-api/internal/handler/prometheus"
	"github.com/jwalitptl/telehealth-api/internal/middleware"
	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository/memory"
	"github.com/jwalitptl/telehealth-api/internal/service/admin"
	"github.com/jwalitptl/telehealth-api/internal/service/appointment"
	"github.com/jwalitptl/telehealth-api/internal/service/auth"
	"github.com/jwalitptl/telehealth-api/internal/service/doctor"
	jwtauth "github.com/jwalitptl/telehealth-api/pkg/auth"
	"github.com/jwalitptl/telehealth-api/pkg/messaging"
	"github.com/jwalitptl/telehealth-api/pkg/metrics"
	"github.com/jwalitptl/telehealth-api/pkg/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type readyDB struct{}

func (readyDB) PingContext(context.Context) error { return nil }

type testServer struct {
	engine *gin.Engine
	store  *memory.Store
	hasher security.PasswordHasher
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := memory.NewStore()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	jwtSvc := jwtauth.NewJWTService("test-secret", "telehealth", time.Hour)

	promH := prometheus.New()
	m := metrics.New("telehealth", promH.Registerer())

	authSvc := auth.NewService(store.Users(), hasher, jwtSvc)
	appointmentSvc := appointment.NewService(store.Appointments(), store.Users(), messaging.NewNoopBroker(), m,
		appointment.Options{AllowDeleteResolved: true, Channel: "appointments"})
	doctorSvc := doctor.NewService(store.Users(), store.Doctors(), doctor.Options{})
	adminSvc := admin.NewService(store.Users(), store.Appointments())

	r, err := NewRouter(
		middleware.NewAuthMiddleware(authSvc, "token"),
		health.NewHandler(readyDB{}),
		promH,
		RouterConfig{
			CORSConfig:  middleware.DefaultCORSConfig([]string{"http://localhost:5173"}),
			Security:    middleware.DefaultSecurityConfig(false),
			MetricsPath: "/metrics",
			Metrics:     m,
		},
		authhandler.NewHandler(authSvc, authhandler.CookieConfig{Name: "token"}),
		appointmenthandler.NewHandler(appointmentSvc),
		patienthandler.NewHandler(appointmentSvc),
		doctorhandler.NewHandler(doctorSvc),
		adminhandler.NewHandler(adminSvc),
	)
	require.NoError(t, err)
	r.Setup()

	return &testServer{engine: r.Engine(), store: store, hasher: hasher}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

type session struct {
	token string
	user  model.Identity
}

func (s *testServer) register(t *testing.T, body gin.H) session {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		User model.Identity `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return session{token: sessionCookie(t, w).Value, user: data.User}
}

func (s *testServer) admin(t *testing.T) session {
	t.Helper()
	hash, err := s.hasher.Hash("admin-pass")
	require.NoError(t, err)
	require.NoError(t, s.store.Users().Create(context.Background(), &model.User{
		Name: "Root", Email: "root@example.com", PasswordHash: hash, Role: model.RoleAdmin,
	}))

	w, env := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "root@example.com", "password": "admin-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		User model.Identity `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return session{token: sessionCookie(t, w).Value, user: data.User}
}

func (s *testServer) searchDoctors(t *testing.T, token string) []model.DoctorSummary {
	t.Helper()
	w, env := s.do(t, http.MethodGet, "/api/doctors?city=berlin&country=germany", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var doctors []model.DoctorSummary
	require.NoError(t, json.Unmarshal(env.Data, &doctors))
	return doctors
}

func (s *testServer) book(t *testing.T, patientToken string, doctorID string) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/appointments", patientToken, gin.H{
		"doctorId":       doctorID,
		"requestMessage": "persistent cough",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "appointment request sent", env.Message)

	var data struct {
		Appointment model.Appointment `json:"appointment"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, model.AppointmentStatusPending, data.Appointment.Status)
	return data.Appointment.ID.String()
}

func (s *testServer) verifiedDoctor(t *testing.T, adminToken string) session {
	t.Helper()
	doc := s.register(t, gin.H{
		"name": "Dr. Weber", "email": "weber@example.com", "password": "secret",
		"role": "doctor", "city": "Berlin", "country": "Germany",
	})
	w, _ := s.do(t, http.MethodPost, "/api/admin/doctor/verify/"+doc.user.ID.String(), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return doc
}

func TestBookingLifecycle(t *testing.T) {
	s := newTestServer(t)
	root := s.admin(t)

	patient := s.register(t, gin.H{"name": "Pat", "email": "pat@example.com", "password": "secret"})
	assert.Equal(t, model.RolePatient, patient.user.Role)

	doc := s.register(t, gin.H{
		"name": "Dr. Weber", "email": "weber@example.com", "password": "secret",
		"role": "doctor", "city": "Berlin", "country": "Germany",
	})
	assert.Equal(t, model.RoleDoctor, doc.user.Role)
	assert.False(t, doc.user.IsDoctorVerified)

	assert.Empty(t, s.searchDoctors(t, patient.token), "unverified doctors are hidden")

	w, env := s.do(t, http.MethodPost, "/api/admin/doctor/verify/"+doc.user.ID.String(), root.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "doctor verified", env.Message)

	found := s.searchDoctors(t, patient.token)
	require.Len(t, found, 1)
	assert.Equal(t, doc.user.ID, found[0].ID)

	aptID := s.book(t, patient.token, doc.user.ID.String())

	w, env = s.do(t, http.MethodGet, "/api/doctor/appointments", doc.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pending []model.PendingAppointment
	require.NoError(t, json.Unmarshal(env.Data, &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "Pat", pending[0].PatientName)
	assert.Equal(t, "persistent cough", pending[0].RequestMessage)

	w, env = s.do(t, http.MethodPost, "/api/doctor/appointment/"+aptID+"/action", doc.token, gin.H{
		"action":          "accept",
		"appointmentDate": "2025-03-01T10:00",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "appointment accepted and scheduled", env.Message)

	w, env = s.do(t, http.MethodGet, "/api/patient/appointments", patient.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []model.PatientAppointment
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, model.AppointmentStatusAccepted, mine[0].Status)
	require.NotNil(t, mine[0].AppointmentDate)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), mine[0].AppointmentDate.UTC())
	assert.Equal(t, "Dr. Weber", mine[0].DoctorName)

	w, env = s.do(t, http.MethodGet, "/api/doctor/appointments", doc.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pending = nil
	require.NoError(t, json.Unmarshal(env.Data, &pending))
	assert.Empty(t, pending)
}

func TestRejectedAppointmentCannotBeAccepted(t *testing.T) {
	s := newTestServer(t)
	root := s.admin(t)
	doc := s.verifiedDoctor(t, root.token)
	patient := s.register(t, gin.H{"name": "Pat", "email": "pat@example.com", "password": "secret"})
	aptID := s.book(t, patient.token, doc.user.ID.String())

	w, env := s.do(t, http.MethodPost, "/api/doctor/appointment/"+aptID+"/action", doc.token, gin.H{"action": "reject"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "appointment request rejected", env.Message)

	w, env = s.do(t, http.MethodPost, "/api/doctor/appointment/"+aptID+"/action", doc.token, gin.H{
		"action":          "accept",
		"appointmentDate": "2025-03-01T10:00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "appointment is not pending", env.Message)

	w, env = s.do(t, http.MethodPost, "/api/doctor/appointment/"+aptID+"/action", doc.token, gin.H{"action": "cancel"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid action", env.Message)

	w, env = s.do(t, http.MethodPost, "/api/doctor/appointment/"+aptID+"/action", doc.token, gin.H{"action": "delete"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "appointment request deleted", env.Message)
}

func TestBookingUnverifiedDoctor(t *testing.T) {
	s := newTestServer(t)
	doc := s.register(t, gin.H{
		"name": "Dr. New", "email": "new@example.com", "password": "secret",
		"role": "doctor", "city": "Berlin", "country": "Germany",
	})
	patient := s.register(t, gin.H{"name": "Pat", "email": "pat@example.com", "password": "secret"})

	w, env := s.do(t, http.MethodPost, "/api/appointments", patient.token, gin.H{"doctorId": doc.user.ID.String()})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "doctor not found or not verified", env.Message)
}

func TestRoleGuards(t *testing.T) {
	s := newTestServer(t)
	root := s.admin(t)
	doc := s.verifiedDoctor(t, root.token)
	patient := s.register(t, gin.H{"name": "Pat", "email": "pat@example.com", "password": "secret"})

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no session", http.MethodGet, "/api/patient/appointments", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/auth/me", "garbage", http.StatusUnauthorized},
		{"patient on doctor queue", http.MethodGet, "/api/doctor/appointments", patient.token, http.StatusForbidden},
		{"doctor on search", http.MethodGet, "/api/doctors?city=a&country=b", doc.token, http.StatusForbidden},
		{"patient on dashboard", http.MethodGet, "/api/admin/dashboard", patient.token, http.StatusForbidden},
		{"doctor on dashboard", http.MethodGet, "/api/admin/dashboard", doc.token, http.StatusForbidden},
		{"admin on dashboard", http.MethodGet, "/api/admin/dashboard", root.token, http.StatusOK},
		{"doctor profile", http.MethodGet, "/api/doctor/profile", doc.token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := s.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestSearchRequiresCityAndCountry(t *testing.T) {
	s := newTestServer(t)
	patient := s.register(t, gin.H{"name": "Pat", "email": "pat@example.com", "password": "secret"})

	w, env := s.do(t, http.MethodGet, "/api/doctors?city=berlin", patient.token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "city and country are required for search", env.Message)
}

func TestSessionCookie(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": "Pat", "email": "pat@example.com", "password": "secret"})
	require.Equal(t, http.StatusCreated, w.Code)
	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookie)
	me := httptest.NewRecorder()
	s.engine.ServeHTTP(me, req)
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), "pat@example.com")

	w, env := s.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "logged out successfully", env.Message)
	cleared := sessionCookie(t, w)
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestDuplicateRegistration(t *testing.T) {
	s := newTestServer(t)
	s.register(t, gin.H{"name": "Pat", "email": "pat@example.com", "password": "secret"})

	w, env := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"name": "Pat", "email": "pat@example.com", "password": "other"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "user already exists", env.Message)

	w, env = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "pat@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid credentials", env.Message)
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// One API request so the HTTP series exist.
	s.do(t, http.MethodGet, "/api/patient/appointments", "", nil)

	w, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "telehealth_http_requests_total")
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}
