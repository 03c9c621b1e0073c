package clinic

import (
	"context"
	"fmt"
	"time"

	"github.com/Multiverse88/Dentalpro/internal/domain/calendar"
	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
	"github.com/Multiverse88/Dentalpro/internal/gateway"
	"github.com/Multiverse88/Dentalpro/internal/platform/websocket"
)

// -- Dental records --

// LoadRecords reads a patient's record list and caches it.
func (w *Workspace) LoadRecords(ctx context.Context, patientID string) ([]dental.DentalRecord, error) {
	recs, err := w.gw.ListRecords(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	w.mu.Lock()
	w.records[patientID] = recs
	w.mu.Unlock()
	return recs, nil
}

// Records returns the cached record list of a patient.
func (w *Workspace) Records(patientID string) []dental.DentalRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]dental.DentalRecord(nil), w.records[patientID]...)
}

// AddRecord creates a record and re-reads the patient's list.
func (w *Workspace) AddRecord(ctx context.Context, patientID string, f dental.RecordForm) ([]dental.DentalRecord, error) {
	if _, ok := w.Patient(patientID); !ok {
		return nil, fmt.Errorf("add record: %w", ErrPatientNotFound)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	done, err := w.begin(ActionAddRecord)
	if err != nil {
		return nil, err
	}
	defer done()

	if _, err := w.gw.CreateRecord(ctx, patientID, f); err != nil {
		return nil, err
	}
	return w.LoadRecords(ctx, patientID)
}

// -- Appointments --

func (w *Workspace) LoadAppointments(ctx context.Context) ([]calendar.Appointment, error) {
	appts, err := w.gw.ListAppointments(ctx)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.appointments = appts
	w.mu.Unlock()
	return appts, nil
}

func (w *Workspace) Appointments() []calendar.Appointment {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]calendar.Appointment(nil), w.appointments...)
}

// withPatientName fills in the display name from the patient list when the
// form leaves it blank.
func (w *Workspace) withPatientName(patientID, name string) string {
	if name != "" {
		return name
	}
	if p, ok := w.Patient(patientID); ok {
		return p.Name
	}
	return ""
}

func (w *Workspace) AddAppointment(ctx context.Context, f calendar.AppointmentForm) ([]calendar.Appointment, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	done, err := w.begin(ActionSaveAppointment)
	if err != nil {
		return nil, err
	}
	defer done()

	a := f.Appointment()
	a.PatientName = w.withPatientName(a.PatientID, a.PatientName)
	if _, err := w.gw.CreateAppointment(ctx, a); err != nil {
		return nil, err
	}
	return w.LoadAppointments(ctx)
}

func (w *Workspace) UpdateAppointment(ctx context.Context, id calendar.FlexID, f calendar.AppointmentForm) ([]calendar.Appointment, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	done, err := w.begin(ActionSaveAppointment)
	if err != nil {
		return nil, err
	}
	defer done()

	a := f.Appointment()
	a.ID = id
	a.PatientName = w.withPatientName(a.PatientID, a.PatientName)
	if _, err := w.gw.UpdateAppointment(ctx, id, a); err != nil {
		return nil, err
	}
	return w.LoadAppointments(ctx)
}

func (w *Workspace) DeleteAppointment(ctx context.Context, id calendar.FlexID) ([]calendar.Appointment, error) {
	done, err := w.begin(ActionDeleteAppointment)
	if err != nil {
		return nil, err
	}
	defer done()

	if err := w.gw.DeleteAppointment(ctx, id); err != nil {
		return nil, err
	}
	return w.LoadAppointments(ctx)
}

// -- Queue --

func (w *Workspace) LoadQueue(ctx context.Context) ([]calendar.QueueEntry, error) {
	q, err := w.gw.ListQueue(ctx)
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	w.queue = q
	w.mu.Unlock()
	return q, nil
}

func (w *Workspace) Queue() []calendar.QueueEntry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]calendar.QueueEntry(nil), w.queue...)
}

// WatchQueue hands fn the current queue, then a fresh copy every time the
// change feed reports a queue event. It returns nil once ctx is done.
func (w *Workspace) WatchQueue(ctx context.Context, fn func([]calendar.QueueEntry)) error {
	q, err := w.LoadQueue(ctx)
	if err != nil {
		return err
	}
	fn(q)
	return w.gw.Watch(ctx, []string{gateway.TopicQueue}, func(ev websocket.Event) error {
		w.logger.Debug().Str("type", ev.Type).Str("id", ev.ID).Msg("queue changed")
		q, err := w.LoadQueue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fn(q)
		return nil
	})
}

func (w *Workspace) Enqueue(ctx context.Context, f calendar.QueueForm) ([]calendar.QueueEntry, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	done, err := w.begin(ActionSaveQueue)
	if err != nil {
		return nil, err
	}
	defer done()

	e := f.Entry()
	e.PatientName = w.withPatientName(e.PatientID, e.PatientName)
	if _, err := w.gw.CreateQueueEntry(ctx, e); err != nil {
		return nil, err
	}
	return w.LoadQueue(ctx)
}

func (w *Workspace) UpdateQueueEntry(ctx context.Context, id calendar.FlexID, f calendar.QueueForm) ([]calendar.QueueEntry, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	done, err := w.begin(ActionSaveQueue)
	if err != nil {
		return nil, err
	}
	defer done()

	e := f.Entry()
	e.ID = id
	e.PatientName = w.withPatientName(e.PatientID, e.PatientName)
	if _, err := w.gw.UpdateQueueEntry(ctx, id, e); err != nil {
		return nil, err
	}
	return w.LoadQueue(ctx)
}

func (w *Workspace) DeleteQueueEntry(ctx context.Context, id calendar.FlexID) ([]calendar.QueueEntry, error) {
	done, err := w.begin(ActionDeleteQueue)
	if err != nil {
		return nil, err
	}
	defer done()

	if err := w.gw.DeleteQueueEntry(ctx, id); err != nil {
		return nil, err
	}
	return w.LoadQueue(ctx)
}

// -- Views --

// DashboardLatest is how many recent treatments the dashboard lists.
const DashboardLatest = 5

type Dashboard struct {
	Patients   int
	Treatments int
	Latest     []dental.PatientTreatment
}

func (w *Workspace) Dashboard() Dashboard {
	patients := w.Patients()
	return Dashboard{
		Patients:   len(patients),
		Treatments: dental.TreatmentCount(patients),
		Latest:     dental.LatestTreatments(patients, DashboardLatest),
	}
}

// Month is one rendered calendar page.
type Month struct {
	Year    int
	Month   time.Month
	Title   string
	Weeks   []calendar.Week
	Entries map[string][]dental.PatientTreatment
	Today   string
}

// CalendarMonth lays out a month with every patient's treatments on it.
func (w *Workspace) CalendarMonth(year int, month time.Month) Month {
	return Month{
		Year:    year,
		Month:   month,
		Title:   calendar.MonthTitle(year, month),
		Weeks:   calendar.BuildMonthMatrix(year, month),
		Entries: calendar.Entries(w.Patients(), w.loc),
		Today:   w.Now().Format(calendar.KeyLayout),
	}
}
