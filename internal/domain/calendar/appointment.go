package calendar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
)

// FlexID is a resource id that the backend may send as either a JSON number
// or a JSON string.
type FlexID string

func (id *FlexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a number or string: %w", err)
	}
	*id = FlexID(n.String())
	return nil
}

func (id FlexID) String() string { return string(id) }

// -- Appointment --

type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

type Appointment struct {
	ID          FlexID            `json:"id,omitempty"`
	PatientID   string            `json:"patient_id"`
	PatientName string            `json:"patient_name,omitempty"`
	Date        string            `json:"date"`
	Time        string            `json:"time,omitempty"`
	Notes       string            `json:"notes,omitempty"`
	Status      AppointmentStatus `json:"status"`
}

type AppointmentForm struct {
	PatientID   string
	PatientName string
	Date        string
	Time        string
	Notes       string
	Status      AppointmentStatus
}

func (f AppointmentForm) Validate() error {
	if strings.TrimSpace(f.PatientID) == "" {
		return dental.Invalid("patient_id", "is required")
	}
	if _, err := time.Parse(KeyLayout, f.Date); err != nil {
		return dental.Invalid("date", fmt.Sprintf("%q is not a YYYY-MM-DD date", f.Date))
	}
	if f.Time != "" {
		if _, err := time.Parse("15:04", f.Time); err != nil {
			return dental.Invalid("time", fmt.Sprintf("%q is not an HH:MM time", f.Time))
		}
	}
	if f.Status != "" && !f.Status.Valid() {
		return dental.Invalid("status", fmt.Sprintf("unknown appointment status %q", f.Status))
	}
	return nil
}

// Appointment builds the payload; a blank status starts as pending.
func (f AppointmentForm) Appointment() Appointment {
	status := f.Status
	if status == "" {
		status = AppointmentPending
	}
	return Appointment{
		PatientID:   strings.TrimSpace(f.PatientID),
		PatientName: f.PatientName,
		Date:        f.Date,
		Time:        f.Time,
		Notes:       f.Notes,
		Status:      status,
	}
}

// AppointmentsByDate indexes appointments by their date key, each day ordered
// by time.
func AppointmentsByDate(appts []Appointment) map[string][]Appointment {
	sorted := make([]Appointment, len(appts))
	copy(sorted, appts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	byDay := make(map[string][]Appointment)
	for _, a := range sorted {
		key, ok := DayKey(a.Date, time.UTC)
		if !ok {
			continue
		}
		byDay[key] = append(byDay[key], a)
	}
	return byDay
}

// -- Queue --

type QueueStatus string

const (
	QueueWaiting    QueueStatus = "waiting"
	QueueInProgress QueueStatus = "in_progress"
	QueueDone       QueueStatus = "done"
)

func (s QueueStatus) Valid() bool {
	return s == QueueWaiting || s == QueueInProgress || s == QueueDone
}

type QueueEntry struct {
	ID          FlexID      `json:"id,omitempty"`
	PatientID   string      `json:"patient_id"`
	PatientName string      `json:"patient_name,omitempty"`
	Number      int         `json:"number"`
	Status      QueueStatus `json:"status"`
	CreatedAt   string      `json:"created_at,omitempty"`
}

type QueueForm struct {
	PatientID   string
	PatientName string
	Status      QueueStatus
}

func (f QueueForm) Validate() error {
	if strings.TrimSpace(f.PatientID) == "" {
		return dental.Invalid("patient_id", "is required")
	}
	if f.Status != "" && !f.Status.Valid() {
		return dental.Invalid("status", fmt.Sprintf("unknown queue status %q", f.Status))
	}
	return nil
}

// Entry builds the payload; the backend assigns the number.
func (f QueueForm) Entry() QueueEntry {
	status := f.Status
	if status == "" {
		status = QueueWaiting
	}
	return QueueEntry{PatientID: strings.TrimSpace(f.PatientID), PatientName: f.PatientName, Status: status}
}
