package sandbox

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Multiverse88/Dentalpro/internal/domain/calendar"
	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
	"github.com/Multiverse88/Dentalpro/internal/platform/auth"
)

var seedNow = time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)

func TestDataGenerator_Reproducible(t *testing.T) {
	a := NewDataGenerator(42, seedNow)
	b := NewDataGenerator(42, seedNow)
	for i := 0; i < 10; i++ {
		pa, pb := a.GeneratePatient(), b.GeneratePatient()
		if !reflect.DeepEqual(pa, pb) {
			t.Fatalf("patient %d differs: %+v vs %+v", i, pa, pb)
		}
	}
}

func TestDataGenerator_PatientIsValid(t *testing.T) {
	gen := NewDataGenerator(7, seedNow)
	for i := 0; i < 50; i++ {
		req := gen.GeneratePatient()
		form := dental.PatientForm{Name: req.Name, DateOfBirth: req.DateOfBirth, Gender: req.Gender, Contact: req.Contact}
		if err := form.Validate(); err != nil {
			t.Fatalf("generated patient %+v is invalid: %v", req, err)
		}
		if age, ok := dental.Age(req.DateOfBirth, seedNow); !ok || age < 2 {
			t.Fatalf("unexpected age %d for %s", age, req.DateOfBirth)
		}
	}
}

func TestDataGenerator_TreatmentTeethAreDistinct(t *testing.T) {
	gen := NewDataGenerator(3, seedNow)
	for i := 0; i < 100; i++ {
		req, status := gen.GenerateTreatment("p1")
		seen := map[int]bool{}
		for _, id := range req.ToothIDs {
			if !dental.ValidToothID(id) || seen[id] {
				t.Fatalf("bad tooth ids %v", req.ToothIDs)
			}
			seen[id] = true
		}
		if status != "" && !status.Valid() {
			t.Fatalf("unknown status %q", status)
		}
		if req.Date > seedNow.Format(dental.DateLayout) {
			t.Fatalf("treatment dated in the future: %s", req.Date)
		}
	}
}

func TestDataGenerator_PastAppointmentsAreClosed(t *testing.T) {
	gen := NewDataGenerator(11, seedNow)
	today := seedNow.Format(dental.DateLayout)
	for i := 0; i < 100; i++ {
		a := gen.GenerateAppointment("p1")
		if a.Date < today && a.Status != calendar.AppointmentCompleted && a.Status != calendar.AppointmentCancelled {
			t.Fatalf("past appointment %s left %s", a.Date, a.Status)
		}
		if a.Date >= today && (a.Status == calendar.AppointmentCompleted || a.Status == calendar.AppointmentCancelled) {
			t.Fatalf("future appointment %s already %s", a.Date, a.Status)
		}
	}
}

func TestSeeder_Seed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	cfg := DefaultSeedConfig()
	cfg.PatientCount = 5
	cfg.Seed = 42

	res, err := NewSeeder(store, cfg, WithSeedClock(func() time.Time { return seedNow })).Seed(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if res.Users != 1 || res.Patients != 5 || res.Treatments != 15 || res.Records != 10 {
		t.Fatalf("unexpected counts %+v", res)
	}
	if res.Appointments != cfg.AppointmentCount || res.QueueEntries != 5 {
		t.Fatalf("unexpected schedule counts %+v", res)
	}

	patients, _ := store.ListPatients(ctx)
	if len(patients) != 5 {
		t.Fatalf("expected 5 patients, got %d", len(patients))
	}
	for _, p := range patients {
		if len(p.Teeth) != dental.ToothCount || len(p.Treatments) != cfg.TreatmentsPerPatient {
			t.Fatalf("patient %s has %d teeth and %d treatments", p.Name, len(p.Teeth), len(p.Treatments))
		}
	}

	queue, _ := store.ListQueue(ctx)
	if queue[0].Number != 1 || queue[0].Status != calendar.QueueInProgress {
		t.Fatalf("unexpected head of queue %+v", queue[0])
	}
	if queue[0].CreatedAt[:10] != "2025-02-10" {
		t.Fatalf("queue entry not stamped with the seed clock: %s", queue[0].CreatedAt)
	}

	svc := NewService(store, auth.NewIssuer([]byte("test-signing-key-0123456789"), ""), zerolog.Nop())
	if _, _, err := svc.Login(ctx, cfg.DemoEmail, cfg.DemoPassword); err != nil {
		t.Fatalf("demo user cannot log in: %v", err)
	}
}

func TestSeeder_SeedTwice(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	cfg := DefaultSeedConfig()
	cfg.PatientCount = 2
	cfg.Seed = 1

	if _, err := NewSeeder(store, cfg).Seed(ctx); err != nil {
		t.Fatalf("first seed: %v", err)
	}
	res, err := NewSeeder(store, cfg).Seed(ctx)
	if err != nil {
		t.Fatalf("second seed must tolerate the existing demo user: %v", err)
	}
	if res.Users != 0 {
		t.Fatalf("expected no new users, got %d", res.Users)
	}
	if list, _ := store.ListPatients(ctx); len(list) != 4 {
		t.Fatalf("expected patients to accumulate without reset, got %d", len(list))
	}

	cfg.Reset = true
	res, err = NewSeeder(store, cfg).Seed(ctx)
	if err != nil {
		t.Fatalf("reset seed: %v", err)
	}
	if res.Users != 1 {
		t.Fatalf("expected the demo user to be recreated, got %d", res.Users)
	}
	if list, _ := store.ListPatients(ctx); len(list) != 2 {
		t.Fatalf("expected 2 patients after reset, got %d", len(list))
	}
}
