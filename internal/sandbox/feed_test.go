package sandbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
	"github.com/Multiverse88/Dentalpro/internal/platform/websocket"
)

func TestServer_ChangeFeed(t *testing.T) {
	e, _ := newTestServer(t)
	srv := httptest.NewServer(e)
	defer srv.Close()
	token := login(t, e)
	p := createPatient(t, e, token, "Rina")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?topics=" + TopicQueue

	_, resp, err := gorillawebsocket.DefaultDialer.Dial(url, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %v", resp)
	}

	conn, _, err := gorillawebsocket.DefaultDialer.Dial(url, http.Header{"Authorization": {"Bearer " + token}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	// registration happens just after the upgrade
	time.Sleep(50 * time.Millisecond)

	rec := doJSON(t, e, http.MethodPost, "/api/queue", token, queueRequest{PatientID: p.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("enqueue: %d %s", rec.Code, rec.Body.String())
	}
	entry := decode[QueueEntry](t, rec)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev websocket.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Topic != TopicQueue || ev.Type != websocket.EventCreated {
		t.Fatalf("unexpected event %+v", ev)
	}
	var got QueueEntry
	if err := json.Unmarshal(ev.Data, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.ID != entry.ID || got.PatientName != "Rina" {
		t.Errorf("payload %+v does not match created entry %+v", got, entry)
	}

	rec = doJSON(t, e, http.MethodDelete, "/api/queue/"+ev.ID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete queue entry: %d", rec.Code)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var deleted websocket.Event
	if err := conn.ReadJSON(&deleted); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if deleted.Type != websocket.EventDeleted || deleted.ID != ev.ID {
		t.Errorf("unexpected event %+v", deleted)
	}
}

type recordingPublisher struct {
	events []websocket.Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev websocket.Event) error {
	r.events = append(r.events, ev)
	return nil
}

func TestService_PublishesChanges(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewService(NewMemoryStore(), nil, zerolog.Nop(), WithPublisher(pub))

	p, err := svc.CreatePatient(ctx, patientRequest{Name: "Rina", DateOfBirth: "1990-04-12", Gender: dental.GenderFemale, Contact: "0812"})
	if err != nil {
		t.Fatalf("create patient: %v", err)
	}
	tr, err := svc.CreateTreatment(ctx, treatmentRequest{PatientID: p.ID, Date: "2025-01-10", ToothIDs: []int{3}, Procedure: "Scaling"})
	if err != nil {
		t.Fatalf("create treatment: %v", err)
	}
	if err := svc.DeleteTreatment(ctx, tr.ID); err != nil {
		t.Fatalf("delete treatment: %v", err)
	}
	a, err := svc.CreateAppointment(ctx, appointmentRequest{PatientID: p.ID, Date: "2025-02-01"})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	if err := svc.DeleteAppointment(ctx, a.ID); err != nil {
		t.Fatalf("delete appointment: %v", err)
	}
	if err := svc.DeleteAppointment(ctx, a.ID); err == nil {
		t.Fatal("expected second delete to fail")
	}
	if err := svc.DeletePatient(ctx, p.ID); err != nil {
		t.Fatalf("delete patient: %v", err)
	}

	want := []string{
		"patients/created", "patients/updated", "patients/updated",
		"appointments/created", "appointments/deleted", "patients/deleted",
	}
	var got []string
	for _, ev := range pub.events {
		got = append(got, ev.Topic+"/"+ev.Type)
	}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	if pub.events[1].ID != p.ID {
		t.Errorf("treatment events should carry the patient id, got %q", pub.events[1].ID)
	}
}
