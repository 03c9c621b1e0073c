// Package sandbox is a reference backend for the DentalPro REST contract. It
// serves /api with an in-memory or PostgreSQL store so the client can be run
// and tested without the production service.
package sandbox

import (
	"errors"
	"time"

	"github.com/Multiverse88/Dentalpro/internal/domain/calendar"
	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// wireTimestamp is how treatment dates and creation times go out.
const wireTimestamp = "2006-01-02T15:04:05.000Z"

type UserRecord struct {
	dental.User
	PasswordHash string
	CreatedAt    time.Time
}

// Appointment and QueueEntry carry numeric ids on the wire.

type Appointment struct {
	ID          int64                      `json:"id"`
	PatientID   string                     `json:"patient_id"`
	PatientName string                     `json:"patient_name,omitempty"`
	Date        string                     `json:"date"`
	Time        string                     `json:"time,omitempty"`
	Notes       string                     `json:"notes,omitempty"`
	Status      calendar.AppointmentStatus `json:"status"`
}

type QueueEntry struct {
	ID          int64                `json:"id"`
	PatientID   string               `json:"patient_id"`
	PatientName string               `json:"patient_name,omitempty"`
	Number      int                  `json:"number"`
	Status      calendar.QueueStatus `json:"status"`
	CreatedAt   string               `json:"created_at"`
}

// -- Request bodies --

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token,omitempty"`
	User  dental.User `json:"user"`
}

// patientRequest serves both create and full update; teeth are ignored on
// create.
type patientRequest struct {
	Name        string         `json:"name"`
	DateOfBirth string         `json:"date_of_birth"`
	Gender      dental.Gender  `json:"gender"`
	Contact     string         `json:"contact"`
	Address     string         `json:"address"`
	Teeth       []dental.Tooth `json:"teeth"`
}

type treatmentRequest struct {
	PatientID   string   `json:"patient_id"`
	Date        string   `json:"date"`
	ToothIDs    []int    `json:"toothIds"`
	Procedure   string   `json:"procedure"`
	Notes       string   `json:"notes"`
	Cost        *float64 `json:"cost"`
	PerformedBy string   `json:"performedBy"`
}

type recordRequest struct {
	dental.RecordForm
	PatientID string `json:"patient_id"`
}

type appointmentRequest struct {
	PatientID   string                     `json:"patient_id"`
	PatientName string                     `json:"patient_name"`
	Date        string                     `json:"date"`
	Time        string                     `json:"time"`
	Notes       string                     `json:"notes"`
	Status      calendar.AppointmentStatus `json:"status"`
}

type queueRequest struct {
	PatientID   string               `json:"patient_id"`
	PatientName string               `json:"patient_name"`
	Status      calendar.QueueStatus `json:"status"`
}
