package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"medibook/backend/internal/domain"
	"medibook/backend/internal/service/booking"
	"medibook/backend/internal/store"
	"medibook/backend/internal/verify"
)

type fakeService struct {
	createFn       func(ctx context.Context, caller booking.Caller, in booking.CreateInput) (domain.Appointment, error)
	decideFn       func(ctx context.Context, caller booking.Caller, id uuid.UUID, decision booking.Decision) (domain.Appointment, error)
	cancelFn       func(ctx context.Context, caller booking.Caller, id uuid.UUID) (domain.Appointment, error)
	updateNotesFn  func(ctx context.Context, caller booking.Caller, id uuid.UUID, in booking.NotesInput) (domain.Appointment, error)
	getFn          func(ctx context.Context, caller booking.Caller, id uuid.UUID) (domain.Appointment, error)
	historyFn      func(ctx context.Context, caller booking.Caller, in booking.HistoryInput) ([]domain.Appointment, store.ListPage, error)
	scheduleFn     func(ctx context.Context, caller booking.Caller, in booking.ScheduleInput) (booking.Schedule, error)
	availabilityFn func(ctx context.Context, providerID uuid.UUID, date string) (booking.DayAvailability, error)
	declareFn      func(ctx context.Context, caller booking.Caller, in booking.DeclareInput) ([]domain.AvailabilitySlot, error)
	listOwnFn      func(ctx context.Context, caller booking.Caller, date string) ([]domain.AvailabilitySlot, error)
	toggleFn       func(ctx context.Context, caller booking.Caller, slotID uuid.UUID, available bool) (domain.AvailabilitySlot, error)
	deleteFn       func(ctx context.Context, caller booking.Caller, slotID uuid.UUID) error
}

func (f *fakeService) Create(ctx context.Context, caller booking.Caller, in booking.CreateInput) (domain.Appointment, error) {
	return f.createFn(ctx, caller, in)
}

func (f *fakeService) Decide(ctx context.Context, caller booking.Caller, id uuid.UUID, decision booking.Decision) (domain.Appointment, error) {
	return f.decideFn(ctx, caller, id, decision)
}

func (f *fakeService) Cancel(ctx context.Context, caller booking.Caller, id uuid.UUID) (domain.Appointment, error) {
	return f.cancelFn(ctx, caller, id)
}

func (f *fakeService) UpdateNotes(ctx context.Context, caller booking.Caller, id uuid.UUID, in booking.NotesInput) (domain.Appointment, error) {
	return f.updateNotesFn(ctx, caller, id, in)
}

func (f *fakeService) Get(ctx context.Context, caller booking.Caller, id uuid.UUID) (domain.Appointment, error) {
	return f.getFn(ctx, caller, id)
}

func (f *fakeService) History(ctx context.Context, caller booking.Caller, in booking.HistoryInput) ([]domain.Appointment, store.ListPage, error) {
	return f.historyFn(ctx, caller, in)
}

func (f *fakeService) ProviderSchedule(ctx context.Context, caller booking.Caller, in booking.ScheduleInput) (booking.Schedule, error) {
	return f.scheduleFn(ctx, caller, in)
}

func (f *fakeService) Availability(ctx context.Context, providerID uuid.UUID, date string) (booking.DayAvailability, error) {
	return f.availabilityFn(ctx, providerID, date)
}

func (f *fakeService) DeclareWindow(ctx context.Context, caller booking.Caller, in booking.DeclareInput) ([]domain.AvailabilitySlot, error) {
	return f.declareFn(ctx, caller, in)
}

func (f *fakeService) ListOwnAvailability(ctx context.Context, caller booking.Caller, date string) ([]domain.AvailabilitySlot, error) {
	return f.listOwnFn(ctx, caller, date)
}

func (f *fakeService) ToggleAvailability(ctx context.Context, caller booking.Caller, slotID uuid.UUID, available bool) (domain.AvailabilitySlot, error) {
	return f.toggleFn(ctx, caller, slotID, available)
}

func (f *fakeService) DeleteAvailability(ctx context.Context, caller booking.Caller, slotID uuid.UUID) error {
	return f.deleteFn(ctx, caller, slotID)
}

type fakeSweeper struct {
	sweepFn func(ctx context.Context) (int, error)
}

func (f *fakeSweeper) Sweep(ctx context.Context) (int, error) {
	return f.sweepFn(ctx)
}

const testSecret = "test-secret"

func newTestServer(t *testing.T, svc BookingService, sweeper ReminderRunner) (*Server, *Authenticator) {
	t.Helper()
	auth := NewAuthenticator(testSecret)
	codes := verify.NewMemoryStore(0)
	t.Cleanup(codes.Close)
	return NewServer(svc, sweeper, codes, noopNotifier{}, verify.DefaultTTL, auth, nil), auth
}

type noopNotifier struct{}

func (noopNotifier) Send(ctx context.Context, to, subject, body string) error { return nil }

func bearer(t *testing.T, auth *Authenticator, id uuid.UUID, role domain.Role) string {
	t.Helper()
	token, err := auth.Sign(id, role, time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return "Bearer " + token
}

func doJSON(t *testing.T, handler http.Handler, method, path, authHeader string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t, &fakeService{}, nil)
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/appointments/history", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/appointments/history", "Bearer not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status = %d, want 401", rec.Code)
	}

	other := NewAuthenticator("different-secret")
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/appointments/history", bearer(t, other, uuid.New(), domain.RoleClient), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: status = %d, want 401", rec.Code)
	}
}

func TestCreateAppointment(t *testing.T) {
	callerID := uuid.New()
	providerID := uuid.New()

	svc := &fakeService{
		createFn: func(ctx context.Context, caller booking.Caller, in booking.CreateInput) (domain.Appointment, error) {
			if caller.ID != callerID || caller.Role != domain.RoleClient {
				t.Errorf("caller = %+v, want token identity", caller)
			}
			if in.ProviderID != providerID || in.Date != "2026-03-11" || in.StartTime != "10:00" {
				t.Errorf("input = %+v", in)
			}
			return domain.Appointment{ID: uuid.New(), ClientID: caller.ID, ProviderID: in.ProviderID,
				Date: in.Date, StartTime: in.StartTime, Status: domain.AppointmentRequested}, nil
		},
	}
	srv, auth := newTestServer(t, svc, nil)
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/appointments",
		bearer(t, auth, callerID, domain.RoleClient),
		map[string]any{"provider_id": providerID, "date": "2026-03-11", "start_time": "10:00", "reason": "checkup"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body)
	}

	var appt domain.Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &appt); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if appt.Status != domain.AppointmentRequested {
		t.Errorf("status = %q, want requested", appt.Status)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &booking.ValidationError{}, http.StatusBadRequest},
		{"past time", booking.ErrPastTime, http.StatusBadRequest},
		{"forbidden", booking.ErrForbidden, http.StatusForbidden},
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"conflict", store.ErrConflict, http.StatusConflict},
		{"unknown", context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{
				createFn: func(ctx context.Context, caller booking.Caller, in booking.CreateInput) (domain.Appointment, error) {
					return domain.Appointment{}, tc.err
				},
			}
			srv, auth := newTestServer(t, svc, nil)

			rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/appointments",
				bearer(t, auth, uuid.New(), domain.RoleClient),
				map[string]any{"reason": "x"})
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestDecideRoutesBody(t *testing.T) {
	apptID := uuid.New()
	svc := &fakeService{
		decideFn: func(ctx context.Context, caller booking.Caller, id uuid.UUID, decision booking.Decision) (domain.Appointment, error) {
			if id != apptID || decision != booking.DecisionConfirm {
				t.Errorf("got id=%s decision=%s", id, decision)
			}
			return domain.Appointment{ID: id, Status: domain.AppointmentConfirmed}, nil
		},
	}
	srv, auth := newTestServer(t, svc, nil)

	rec := doJSON(t, srv.Handler(), http.MethodPut, "/api/v1/appointments/"+apptID.String()+"/decision",
		bearer(t, auth, uuid.New(), domain.RoleProvider),
		map[string]string{"decision": "confirm"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
}

func TestHistoryPassesQuery(t *testing.T) {
	svc := &fakeService{
		historyFn: func(ctx context.Context, caller booking.Caller, in booking.HistoryInput) ([]domain.Appointment, store.ListPage, error) {
			if in.Status != domain.AppointmentConfirmed || in.Page != 2 || in.PageSize != 5 {
				t.Errorf("input = %+v", in)
			}
			return nil, store.ListPage{Page: 2, PageSize: 5}, nil
		},
	}
	srv, auth := newTestServer(t, svc, nil)

	rec := doJSON(t, srv.Handler(), http.MethodGet,
		"/api/v1/appointments/history?status=confirmed&page=2&page_size=5",
		bearer(t, auth, uuid.New(), domain.RoleClient), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp listResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Appointments == nil {
		t.Error("appointments should encode as [], not null")
	}
}

func TestProviderAvailabilityRoute(t *testing.T) {
	providerID := uuid.New()
	svc := &fakeService{
		availabilityFn: func(ctx context.Context, gotID uuid.UUID, date string) (booking.DayAvailability, error) {
			if gotID != providerID || date != "2026-03-11" {
				t.Errorf("got %s/%s", gotID, date)
			}
			return booking.DayAvailability{ProviderID: gotID, Date: date, Slots: []string{"09:00"}}, nil
		},
	}
	srv, auth := newTestServer(t, svc, nil)

	rec := doJSON(t, srv.Handler(), http.MethodGet,
		"/api/v1/providers/"+providerID.String()+"/availability?date=2026-03-11",
		bearer(t, auth, uuid.New(), domain.RoleClient), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
}

func TestToggleAvailabilityRequiresFlag(t *testing.T) {
	svc := &fakeService{
		toggleFn: func(ctx context.Context, caller booking.Caller, slotID uuid.UUID, available bool) (domain.AvailabilitySlot, error) {
			return domain.AvailabilitySlot{ID: slotID, IsAvailable: available}, nil
		},
	}
	srv, auth := newTestServer(t, svc, nil)
	token := bearer(t, auth, uuid.New(), domain.RoleProvider)
	slotID := uuid.New().String()

	rec := doJSON(t, srv.Handler(), http.MethodPut, "/api/v1/availability/"+slotID, token,
		map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing flag: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, srv.Handler(), http.MethodPut, "/api/v1/availability/"+slotID, token,
		map[string]bool{"available": false})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
}

func TestRunRemindersAdminOnly(t *testing.T) {
	sweeper := &fakeSweeper{
		sweepFn: func(ctx context.Context) (int, error) { return 3, nil },
	}
	srv, auth := newTestServer(t, &fakeService{}, sweeper)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/reminders/run",
		bearer(t, auth, uuid.New(), domain.RoleProvider), nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("provider: status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, srv.Handler(), http.MethodPost, "/api/v1/reminders/run",
		bearer(t, auth, uuid.New(), domain.RoleAdmin), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["sent"] != 3 {
		t.Errorf("sent = %d, want 3", resp["sent"])
	}
}

func TestVerificationFlow(t *testing.T) {
	srv, _ := newTestServer(t, &fakeService{}, nil)
	handler := srv.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/verification/request", "",
		map[string]string{"email": "not-an-email"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad address: status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/verification/request", "",
		map[string]string{"email": "ada@example.com"})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("request: status = %d, want 202: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/verification/confirm", "",
		map[string]string{"email": "ada@example.com", "code": "000000"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("wrong code: status = %d, want 400", rec.Code)
	}
}
