package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vetdesk/appointment-service/internal/api"
	"github.com/vetdesk/appointment-service/internal/appointment"
	redisclient "github.com/vetdesk/appointment-service/internal/redis"
)

type env struct {
	srv    *httptest.Server
	client uuid.UUID
	animal uuid.UUID
	vet    uuid.UUID
	staff  string
}

func newEnv(t *testing.T, jwtSecret string) *env {
	t.Helper()

	repo := appointment.NewMemoryRepository()
	svc := appointment.NewService(repo, redisclient.NewLocalLocker(), zerolog.Nop())

	e := &env{
		client: uuid.New(),
		animal: uuid.New(),
		vet:    uuid.New(),
		staff:  uuid.NewString(),
	}
	repo.PutClient(appointment.Client{ID: e.client, Name: "Maria Souza"})
	repo.PutAnimal(appointment.Animal{ID: e.animal, ClientID: e.client, Name: "Rex", Species: "dog"})
	repo.PutVeterinarian(appointment.Veterinarian{ID: e.vet, Name: "Dr. Alves"})

	router := api.NewRouter(api.RouterConfig{
		Service:   svc,
		JWTSecret: jwtSecret,
		Env:       "test",
		Version:   "test",
		Logger:    zerolog.Nop(),
	})

	e.srv = httptest.NewServer(router)
	t.Cleanup(e.srv.Close)
	return e
}

// do sends a request with dev-mode actor headers and decodes the JSON body.
func (e *env) do(t *testing.T, method, path, actorID, role string, body any, out any) int {
	t.Helper()

	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if actorID != "" {
		req.Header.Set("X-Actor-ID", actorID)
		req.Header.Set("X-Actor-Role", role)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (e *env) requestBody() map[string]string {
	return map[string]string{
		"client_id":   e.client.String(),
		"animal_id":   e.animal.String(),
		"date":        "2024-03-10",
		"time":        "14:30",
		"description": "check-up",
	}
}

func TestAppointmentLifecycleOverHTTP(t *testing.T) {
	e := newEnv(t, "")

	var appt api.AppointmentResponse
	code := e.do(t, http.MethodPost, "/appointments", e.client.String(), "client", e.requestBody(), &appt)
	if code != http.StatusCreated {
		t.Fatalf("create: status %d", code)
	}
	if appt.Status != "requested" {
		t.Fatalf("status = %s, want requested", appt.Status)
	}
	if appt.CreatedBy != "Cliente" {
		t.Errorf("created_by = %q", appt.CreatedBy)
	}

	id := appt.ID.String()

	var approved api.AppointmentResponse
	code = e.do(t, http.MethodPost, "/appointments/"+id+"/approve", e.staff, "staff", nil, &approved)
	if code != http.StatusOK || approved.Status != "pending" {
		t.Fatalf("approve: status %d, body %+v", code, approved)
	}

	var completed api.AppointmentResponse
	code = e.do(t, http.MethodPost, "/appointments/"+id+"/complete", e.vet.String(), "veterinarian", nil, &completed)
	if code != http.StatusOK || completed.Status != "completed" {
		t.Fatalf("complete: status %d, body %+v", code, completed)
	}
	if completed.VeterinarianID == nil || *completed.VeterinarianID != e.vet {
		t.Errorf("veterinarian_id = %v, want %s", completed.VeterinarianID, e.vet)
	}

	// Terminal state rejects further transitions.
	var errResp api.ErrorResponse
	code = e.do(t, http.MethodPost, "/appointments/"+id+"/cancel", e.staff, "staff", nil, &errResp)
	if code != http.StatusConflict {
		t.Fatalf("cancel after complete: status %d, want 409", code)
	}
	if errResp.Error != "invalid_status_transition" {
		t.Errorf("error = %q", errResp.Error)
	}

	var got api.AppointmentResponse
	code = e.do(t, http.MethodGet, "/appointments/"+id, e.staff, "staff", nil, &got)
	if code != http.StatusOK || got.Status != "completed" {
		t.Errorf("get: status %d, body %+v", code, got)
	}
}

func TestScheduleAndModifyOverHTTP(t *testing.T) {
	e := newEnv(t, "")

	body := e.requestBody()
	body["veterinarian_id"] = e.vet.String()

	var appt api.AppointmentResponse
	code := e.do(t, http.MethodPost, "/appointments/schedule", e.staff, "staff", body, &appt)
	if code != http.StatusCreated || appt.Status != "scheduled" {
		t.Fatalf("schedule: status %d, body %+v", code, appt)
	}
	if appt.CreatedBy != e.staff {
		t.Errorf("created_by = %q, want staff actor id", appt.CreatedBy)
	}

	var updated api.AppointmentResponse
	code = e.do(t, http.MethodPatch, "/appointments/"+appt.ID.String(), e.staff, "staff", map[string]string{
		"date":        "2024-03-12",
		"time":        "16:00",
		"description": "follow-up",
	}, &updated)
	if code != http.StatusOK {
		t.Fatalf("modify: status %d", code)
	}
	if updated.Date != "2024-03-12" || updated.Time != "16:00" || updated.Description != "follow-up" {
		t.Errorf("modify did not apply: %+v", updated)
	}
	if updated.Status != "scheduled" {
		t.Errorf("modify must not touch status, got %s", updated.Status)
	}
}

func TestErrorStatusCodes(t *testing.T) {
	e := newEnv(t, "")

	// Wrong role.
	code := e.do(t, http.MethodPost, "/appointments", e.staff, "staff", e.requestBody(), nil)
	if code != http.StatusForbidden {
		t.Errorf("request as staff: status %d, want 403", code)
	}

	// Validation failure.
	bad := e.requestBody()
	bad["time"] = "25:99"
	var errResp api.ErrorResponse
	code = e.do(t, http.MethodPost, "/appointments", e.client.String(), "client", bad, &errResp)
	if code != http.StatusUnprocessableEntity {
		t.Errorf("bad time: status %d, want 422", code)
	}
	if errResp.Error != "validation_failed" {
		t.Errorf("error = %q", errResp.Error)
	}

	// Unknown appointment.
	code = e.do(t, http.MethodPost, "/appointments/"+uuid.NewString()+"/approve", e.staff, "staff", nil, nil)
	if code != http.StatusNotFound {
		t.Errorf("approve unknown id: status %d, want 404", code)
	}

	// Malformed id.
	code = e.do(t, http.MethodGet, "/appointments/not-a-uuid", e.staff, "staff", nil, nil)
	if code != http.StatusBadRequest {
		t.Errorf("malformed id: status %d, want 400", code)
	}

	// Missing actor headers in dev mode.
	code = e.do(t, http.MethodGet, "/appointments", "", "", nil, nil)
	if code != http.StatusUnauthorized {
		t.Errorf("no actor: status %d, want 401", code)
	}

	// Unknown status filter.
	code = e.do(t, http.MethodGet, "/appointments?status=nope", e.staff, "staff", nil, nil)
	if code != http.StatusUnprocessableEntity {
		t.Errorf("bad status filter: status %d, want 422", code)
	}
}

func TestListFilters(t *testing.T) {
	e := newEnv(t, "")

	var first api.AppointmentResponse
	if code := e.do(t, http.MethodPost, "/appointments", e.client.String(), "client", e.requestBody(), &first); code != http.StatusCreated {
		t.Fatalf("create: status %d", code)
	}

	sched := e.requestBody()
	sched["veterinarian_id"] = e.vet.String()
	sched["date"] = "2024-04-01"
	if code := e.do(t, http.MethodPost, "/appointments/schedule", e.staff, "staff", sched, nil); code != http.StatusCreated {
		t.Fatalf("schedule: status %d", code)
	}

	var byStatus []api.AppointmentResponse
	if code := e.do(t, http.MethodGet, "/appointments?status=requested", e.staff, "staff", nil, &byStatus); code != http.StatusOK {
		t.Fatalf("list by status: %d", code)
	}
	if len(byStatus) != 1 || byStatus[0].ID != first.ID {
		t.Errorf("list by status = %+v", byStatus)
	}

	var byVet []api.AppointmentResponse
	if code := e.do(t, http.MethodGet, "/appointments?veterinarian_id="+e.vet.String(), e.staff, "staff", nil, &byVet); code != http.StatusOK {
		t.Fatalf("list by veterinarian: %d", code)
	}
	if len(byVet) != 1 {
		t.Errorf("list by veterinarian = %d items, want 1", len(byVet))
	}

	var all []api.AppointmentResponse
	if code := e.do(t, http.MethodGet, "/appointments", e.staff, "staff", nil, &all); code != http.StatusOK {
		t.Fatalf("list all: %d", code)
	}
	if len(all) != 2 {
		t.Errorf("list all = %d items, want 2", len(all))
	}
}

func TestJWTAuth(t *testing.T) {
	const secret = "test-secret"
	e := newEnv(t, secret)

	// No token.
	req, _ := http.NewRequest(http.MethodGet, e.srv.URL+"/appointments", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", resp.StatusCode)
	}

	// Valid staff token.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"role": "staff",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req, _ = http.NewRequest(http.MethodGet, e.srv.URL+"/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("valid token: status %d, want 200", resp.StatusCode)
	}

	// Token signed with a different key.
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": uuid.NewString(), "role": "staff"})
	forgedStr, _ := forged.SignedString([]byte("other-key"))

	req, _ = http.NewRequest(http.MethodGet, e.srv.URL+"/appointments", nil)
	req.Header.Set("Authorization", "Bearer "+forgedStr)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("forged token: status %d, want 401", resp.StatusCode)
	}

	// Dev headers are ignored when a secret is configured.
	req, _ = http.NewRequest(http.MethodGet, e.srv.URL+"/appointments", nil)
	req.Header.Set("X-Actor-ID", uuid.NewString())
	req.Header.Set("X-Actor-Role", "staff")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("dev headers with secret set: status %d, want 401", resp.StatusCode)
	}
}

func TestHealthEndpoints(t *testing.T) {
	e := newEnv(t, "")

	for _, path := range []string{"/health/live", "/health/ready"} {
		resp, err := http.Get(e.srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status %d, want 200", path, resp.StatusCode)
		}
	}

	resp, err := http.Get(e.srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /metrics: status %d, want 200", resp.StatusCode)
	}
}
