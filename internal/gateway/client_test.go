package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
)

type recorded struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

// fakeAPI records every request and answers from a per-route handler.
type fakeAPI struct {
	mu       sync.Mutex
	requests []recorded
	routes   map[string]http.HandlerFunc
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{routes: make(map[string]http.HandlerFunc)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, auth: r.Header.Get("Authorization")}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &rec.body)
		}
		f.mu.Lock()
		f.requests = append(f.requests, rec)
		h, ok := f.routes[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) handle(route string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route] = h
}

func jsonReply(status int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
}

func newTestClient(srv *httptest.Server, token string) *Client {
	return New(srv.URL+"/api", WithTokenSource(func() string { return token }))
}

func TestClient_RequiresToken(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(srv, "")

	_, err := c.ListPatients(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if err.Error() != "Authentication token not found." {
		t.Errorf("unexpected message %q", err.Error())
	}
	if len(api.requests) != 0 {
		t.Errorf("expected no request, got %d", len(api.requests))
	}
}

func TestClient_Login(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("POST /api/auth/login", jsonReply(http.StatusOK, map[string]any{
		"token": "tok",
		"user":  map[string]any{"id": "u1", "name": "Dr. Sari", "email": "sari@klinik.id"},
	}))
	c := newTestClient(srv, "")

	resp, err := c.Login(context.Background(), "sari@klinik.id", "rahasia")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Token != "tok" || resp.User.Email != "sari@klinik.id" {
		t.Errorf("unexpected response %+v", resp)
	}
	req := api.requests[0]
	if req.auth != "" {
		t.Errorf("login must not send a token, got %q", req.auth)
	}
	if req.body["email"] != "sari@klinik.id" || req.body["password"] != "rahasia" {
		t.Errorf("unexpected body %v", req.body)
	}
}

func TestClient_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
		want    string
	}{
		{"backend message", jsonReply(http.StatusNotFound, map[string]string{"message": "Patient not found"}), 404, "Patient not found"},
		{"json without message", jsonReply(http.StatusInternalServerError, map[string]string{"error": "boom"}), 500, "API error: 500"},
		{"not json", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>upstream down</html>"))
		}, 502, "Bad Gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, srv := newFakeAPI(t)
			api.handle("GET /api/patients/p1", tt.handler)
			c := newTestClient(srv, "tok")

			_, err := c.GetPatient(context.Background(), "p1")
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Message != tt.want {
				t.Errorf("expected %d %q, got %d %q", tt.status, tt.want, apiErr.StatusCode, apiErr.Message)
			}
		})
	}
}

func TestClient_DeleteNoContent(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("DELETE /api/patients/p1", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(srv, "tok")

	if err := c.DeletePatient(context.Background(), "p1"); err != nil {
		t.Fatalf("DeletePatient: %v", err)
	}
	if api.requests[0].auth != "Bearer tok" {
		t.Errorf("expected bearer token, got %q", api.requests[0].auth)
	}
}

func TestClient_CreateTreatmentOmitsID(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("POST /api/treatments", jsonReply(http.StatusCreated, map[string]any{"id": "server-id"}))
	c := newTestClient(srv, "tok")

	cost := 250000.0
	err := c.CreateTreatment(context.Background(), "p1", dental.Treatment{
		ID:        "client-id",
		Date:      "2025-02-10T00:00:00.000Z",
		ToothIDs:  []int{3, 4},
		Procedure: "Filling",
		Cost:      &cost,
	})
	if err != nil {
		t.Fatalf("CreateTreatment: %v", err)
	}
	body := api.requests[0].body
	if _, ok := body["id"]; ok {
		t.Error("create must not send the client id")
	}
	if body["patient_id"] != "p1" || body["procedure"] != "Filling" {
		t.Errorf("unexpected body %v", body)
	}
	if ids, _ := body["toothIds"].([]any); len(ids) != 2 {
		t.Errorf("expected 2 tooth ids, got %v", body["toothIds"])
	}
}

func TestClient_UpdatePatientTeeth(t *testing.T) {
	api, srv := newFakeAPI(t)
	stored := dental.Patient{ID: "p1", Name: "Rina", Teeth: dental.FullSet(dental.StatusHealthy)}
	api.handle("GET /api/patients/p1", jsonReply(http.StatusOK, stored))
	api.handle("PUT /api/patients/p1", func(w http.ResponseWriter, r *http.Request) {
		var p dental.Patient
		_ = json.NewDecoder(r.Body).Decode(&p)
		jsonReply(http.StatusOK, p)(w, r)
	})
	c := newTestClient(srv, "tok")

	teeth := dental.TreatmentForm{ToothIDs: []int{1}, NewStatus: dental.StatusCrown}.ApplyStatus(stored.Teeth)
	got, err := c.UpdatePatientTeeth(context.Background(), "p1", teeth)
	if err != nil {
		t.Fatalf("UpdatePatientTeeth: %v", err)
	}
	if len(api.requests) != 2 || api.requests[0].method != http.MethodGet || api.requests[1].method != http.MethodPut {
		t.Fatalf("expected GET then PUT, got %+v", api.requests)
	}
	if got.Name != "Rina" {
		t.Errorf("expected demographics preserved, got %q", got.Name)
	}
	if tooth, _ := got.Tooth(1); tooth.Status != dental.StatusCrown {
		t.Errorf("expected tooth 1 Crown, got %s", tooth.Status)
	}
}

func TestClient_ListRecordsQuery(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("GET /api/records", jsonReply(http.StatusOK, []dental.DentalRecord{{ID: "r1", PatientID: "p 1", ToothNumber: 3}}))
	c := newTestClient(srv, "tok")

	recs, err := c.ListRecords(context.Background(), "p 1")
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(recs) != 1 || recs[0].ToothNumber != 3 {
		t.Errorf("unexpected records %+v", recs)
	}
	if !strings.HasPrefix(api.requests[0].query, "patientId=p") {
		t.Errorf("unexpected query %q", api.requests[0].query)
	}
}

func TestClient_CalendarErrors(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.handle("GET /api/appointments", jsonReply(http.StatusInternalServerError, map[string]string{"message": "db down"}))
	c := newTestClient(srv, "tok")

	_, err := c.ListAppointments(context.Background())
	if err == nil || err.Error() != MsgListAppointments {
		t.Fatalf("expected %q, got %v", MsgListAppointments, err)
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status preserved, got %+v", apiErr)
	}

	api.handle("GET /api/queue", jsonReply(http.StatusOK, []map[string]any{{"id": 4, "patient_id": "p1", "number": 1, "status": "waiting"}}))
	queue, err := c.ListQueue(context.Background())
	if err != nil {
		t.Fatalf("ListQueue: %v", err)
	}
	if len(queue) != 1 || queue[0].ID != "4" {
		t.Errorf("unexpected queue %+v", queue)
	}
}
