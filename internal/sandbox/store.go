package sandbox

import (
	"context"

	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
)

type UserRepository interface {
	CreateUser(ctx context.Context, u *UserRecord) error
	UserByEmail(ctx context.Context, email string) (*UserRecord, error)
}

// PatientRepository stores patients with their teeth and treatments.
// Get and List return treatments ordered by date.
type PatientRepository interface {
	ListPatients(ctx context.Context) ([]dental.Patient, error)
	GetPatient(ctx context.Context, id string) (*dental.Patient, error)
	CreatePatient(ctx context.Context, p *dental.Patient) error
	UpdatePatient(ctx context.Context, p *dental.Patient) error
	DeletePatient(ctx context.Context, id string) error
}

type TreatmentRepository interface {
	CreateTreatment(ctx context.Context, patientID string, t *dental.Treatment) error
	GetTreatment(ctx context.Context, id string) (*dental.Treatment, string, error)
	UpdateTreatment(ctx context.Context, t *dental.Treatment) error
	DeleteTreatment(ctx context.Context, id string) error
}

type RecordRepository interface {
	ListRecords(ctx context.Context, patientID string) ([]dental.DentalRecord, error)
	CreateRecord(ctx context.Context, r *dental.DentalRecord) error
}

type ScheduleRepository interface {
	ListAppointments(ctx context.Context) ([]Appointment, error)
	GetAppointment(ctx context.Context, id int64) (*Appointment, error)
	CreateAppointment(ctx context.Context, a *Appointment) error
	UpdateAppointment(ctx context.Context, a *Appointment) error
	DeleteAppointment(ctx context.Context, id int64) error

	ListQueue(ctx context.Context) ([]QueueEntry, error)
	GetQueueEntry(ctx context.Context, id int64) (*QueueEntry, error)
	// CreateQueueEntry assigns the next number of the entry's day.
	CreateQueueEntry(ctx context.Context, e *QueueEntry) error
	UpdateQueueEntry(ctx context.Context, e *QueueEntry) error
	DeleteQueueEntry(ctx context.Context, id int64) error
}

// Store is everything the sandbox persists. Missing rows are ErrNotFound.
type Store interface {
	UserRepository
	PatientRepository
	TreatmentRepository
	RecordRepository
	ScheduleRepository

	Ping(ctx context.Context) error
	// Reset drops every row, used before seeding.
	Reset(ctx context.Context) error
	Kind() string
}
