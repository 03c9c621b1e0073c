package sandbox

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
)

// MemoryStore keeps everything in process. Values are copied on the way in
// and out so callers never share slices with the store.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]*UserRecord // by lower-cased email
	patients     map[string]*dental.Patient
	order        []string
	treatmentOf  map[string]string // treatment id -> patient id
	records      []dental.DentalRecord
	appointments []Appointment
	queue        []QueueEntry
	nextApptID   int64
	nextQueueID  int64
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.reset()
	return s
}

func (s *MemoryStore) reset() {
	s.users = make(map[string]*UserRecord)
	s.patients = make(map[string]*dental.Patient)
	s.order = nil
	s.treatmentOf = make(map[string]string)
	s.records = nil
	s.appointments = nil
	s.queue = nil
	s.nextApptID = 0
	s.nextQueueID = 0
}

func (s *MemoryStore) Kind() string { return "memory" }

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

// -- Users --

func (s *MemoryStore) CreateUser(_ context.Context, u *UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Email)
	if _, ok := s.users[key]; ok {
		return ErrEmailTaken
	}
	cp := *u
	s.users[key] = &cp
	return nil
}

func (s *MemoryStore) UserByEmail(_ context.Context, email string) (*UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// -- Patients --

func clonePatient(p *dental.Patient) dental.Patient {
	cp := p.Clone()
	if cp.Treatments == nil {
		cp.Treatments = []dental.Treatment{}
	}
	sortTreatments(cp.Treatments)
	return cp
}

func cloneTreatment(t dental.Treatment) dental.Treatment {
	t.ToothIDs = append([]int(nil), t.ToothIDs...)
	if t.Cost != nil {
		c := *t.Cost
		t.Cost = &c
	}
	return t
}

func sortTreatments(ts []dental.Treatment) {
	sort.SliceStable(ts, func(i, j int) bool { return ts[i].Date < ts[j].Date })
}

func (s *MemoryStore) ListPatients(context.Context) ([]dental.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dental.Patient, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, clonePatient(s.patients[id]))
	}
	return out, nil
}

func (s *MemoryStore) GetPatient(_ context.Context, id string) (*dental.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := clonePatient(p)
	return &cp, nil
}

func (s *MemoryStore) CreatePatient(_ context.Context, p *dental.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[p.ID]; ok {
		return fmt.Errorf("patient %s already exists", p.ID)
	}
	cp := clonePatient(p)
	s.patients[p.ID] = &cp
	s.order = append(s.order, p.ID)
	for _, t := range cp.Treatments {
		s.treatmentOf[t.ID] = p.ID
	}
	return nil
}

// UpdatePatient replaces demographics and teeth; treatments are untouched.
func (s *MemoryStore) UpdatePatient(_ context.Context, p *dental.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.patients[p.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Name = p.Name
	cur.DateOfBirth = p.DateOfBirth
	cur.Gender = p.Gender
	cur.Contact = p.Contact
	cur.Address = p.Address
	cur.Teeth = append([]dental.Tooth(nil), p.Teeth...)
	return nil
}

func (s *MemoryStore) DeletePatient(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return ErrNotFound
	}
	for _, t := range p.Treatments {
		delete(s.treatmentOf, t.ID)
	}
	delete(s.patients, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}

	records := s.records[:0:0]
	for _, r := range s.records {
		if r.PatientID != id {
			records = append(records, r)
		}
	}
	s.records = records

	appts := s.appointments[:0:0]
	for _, a := range s.appointments {
		if a.PatientID != id {
			appts = append(appts, a)
		}
	}
	s.appointments = appts

	queue := s.queue[:0:0]
	for _, e := range s.queue {
		if e.PatientID != id {
			queue = append(queue, e)
		}
	}
	s.queue = queue
	return nil
}

// -- Treatments --

func (s *MemoryStore) CreateTreatment(_ context.Context, patientID string, t *dental.Treatment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[patientID]
	if !ok {
		return ErrNotFound
	}
	p.Treatments = append(p.Treatments, cloneTreatment(*t))
	s.treatmentOf[t.ID] = patientID
	return nil
}

func (s *MemoryStore) GetTreatment(_ context.Context, id string) (*dental.Treatment, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pid, ok := s.treatmentOf[id]
	if !ok {
		return nil, "", ErrNotFound
	}
	for _, t := range s.patients[pid].Treatments {
		if t.ID == id {
			cp := cloneTreatment(t)
			return &cp, pid, nil
		}
	}
	return nil, "", ErrNotFound
}

func (s *MemoryStore) UpdateTreatment(_ context.Context, t *dental.Treatment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pid, ok := s.treatmentOf[t.ID]
	if !ok {
		return ErrNotFound
	}
	p := s.patients[pid]
	for i := range p.Treatments {
		if p.Treatments[i].ID == t.ID {
			p.Treatments[i] = cloneTreatment(*t)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) DeleteTreatment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pid, ok := s.treatmentOf[id]
	if !ok {
		return ErrNotFound
	}
	p := s.patients[pid]
	for i := range p.Treatments {
		if p.Treatments[i].ID == id {
			p.Treatments = append(p.Treatments[:i:i], p.Treatments[i+1:]...)
			break
		}
	}
	delete(s.treatmentOf, id)
	return nil
}

// -- Records --

func (s *MemoryStore) ListRecords(_ context.Context, patientID string) ([]dental.DentalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []dental.DentalRecord{}
	for _, r := range s.records {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TreatmentDate < out[j].TreatmentDate })
	return out, nil
}

func (s *MemoryStore) CreateRecord(_ context.Context, r *dental.DentalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[r.PatientID]; !ok {
		return ErrNotFound
	}
	s.records = append(s.records, *r)
	return nil
}

// -- Appointments --

func (s *MemoryStore) ListAppointments(context.Context) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]Appointment{}, s.appointments...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time < out[j].Time
	})
	return out, nil
}

func (s *MemoryStore) GetAppointment(_ context.Context, id int64) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.appointments {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateAppointment(_ context.Context, a *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextApptID++
	a.ID = s.nextApptID
	s.appointments = append(s.appointments, *a)
	return nil
}

func (s *MemoryStore) UpdateAppointment(_ context.Context, a *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.appointments {
		if s.appointments[i].ID == a.ID {
			s.appointments[i] = *a
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) DeleteAppointment(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.appointments {
		if s.appointments[i].ID == id {
			s.appointments = append(s.appointments[:i:i], s.appointments[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// -- Queue --

func (s *MemoryStore) ListQueue(context.Context) ([]QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]QueueEntry{}, s.queue...)
	sort.SliceStable(out, func(i, j int) bool {
		if di, dj := queueDay(out[i].CreatedAt), queueDay(out[j].CreatedAt); di != dj {
			return di < dj
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

func (s *MemoryStore) GetQueueEntry(_ context.Context, id int64) (*QueueEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.queue {
		if e.ID == id {
			cp := e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateQueueEntry(_ context.Context, e *QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := queueDay(e.CreatedAt)
	number := 0
	for _, q := range s.queue {
		if queueDay(q.CreatedAt) == day && q.Number > number {
			number = q.Number
		}
	}
	s.nextQueueID++
	e.ID = s.nextQueueID
	e.Number = number + 1
	s.queue = append(s.queue, *e)
	return nil
}

func (s *MemoryStore) UpdateQueueEntry(_ context.Context, e *QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.queue {
		if s.queue[i].ID == e.ID {
			s.queue[i] = *e
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) DeleteQueueEntry(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.queue {
		if s.queue[i].ID == id {
			s.queue = append(s.queue[:i:i], s.queue[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// queueDay is the YYYY-MM-DD prefix of a wire timestamp.
func queueDay(ts string) string {
	if len(ts) < 10 {
		return ts
	}
	return ts[:10]
}
