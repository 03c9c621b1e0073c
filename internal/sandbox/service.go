package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Multiverse88/Dentalpro/internal/domain/calendar"
	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
	"github.com/Multiverse88/Dentalpro/internal/platform/auth"
	"github.com/Multiverse88/Dentalpro/internal/platform/websocket"
)

// Topics of the live change feed.
const (
	TopicPatients     = "patients"
	TopicAppointments = "appointments"
	TopicQueue        = "queue"
)

type Service struct {
	store  Store
	tokens *auth.Issuer
	logger zerolog.Logger
	now    func() time.Time
	events websocket.Publisher
}

type ServiceOption func(*Service)

// WithPublisher announces every change on the live feed.
func WithPublisher(p websocket.Publisher) ServiceOption {
	return func(s *Service) { s.events = p }
}

func NewService(store Store, tokens *auth.Issuer, logger zerolog.Logger, opts ...ServiceOption) *Service {
	s := &Service{store: store, tokens: tokens, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) publish(ctx context.Context, topic, kind, id string, data any) {
	if s.events == nil {
		return
	}
	ev := websocket.Event{Type: kind, Topic: topic, ID: id, Timestamp: s.now().UTC()}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			s.logger.Warn().Err(err).Str("topic", topic).Msg("encode event payload")
		}
		ev.Data = raw
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("publish event")
	}
}

// -- Auth --

func (s *Service) Register(ctx context.Context, req registerRequest) (dental.User, error) {
	name, email := strings.TrimSpace(req.Name), strings.TrimSpace(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return dental.User{}, dental.Invalid("", "Name, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return dental.User{}, dental.Invalid("email", "Email is not valid")
	}
	if len(req.Password) < 6 {
		return dental.User{}, dental.Invalid("password", "Password must be at least 6 characters")
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return dental.User{}, err
	}
	u := &UserRecord{
		User:         dental.User{ID: uuid.NewString(), Name: name, Email: email},
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return dental.User{}, err
	}
	s.logger.Info().Str("user_id", u.ID).Msg("user registered")
	return u.User, nil
}

// Login checks the password and issues a session token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, dental.User, error) {
	u, err := s.store.UserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrNotFound) {
		return "", dental.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", dental.User{}, err
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return "", dental.User{}, ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(u.ID, u.Email, u.Name)
	if err != nil {
		return "", dental.User{}, err
	}
	return token, u.User, nil
}

// -- Patients --

func (s *Service) ListPatients(ctx context.Context) ([]dental.Patient, error) {
	return s.store.ListPatients(ctx)
}

func (s *Service) GetPatient(ctx context.Context, id string) (*dental.Patient, error) {
	return s.store.GetPatient(ctx, id)
}

// CreatePatient stores the demographics with a full chart of healthy teeth.
func (s *Service) CreatePatient(ctx context.Context, req patientRequest) (*dental.Patient, error) {
	form := dental.PatientForm{
		Name: req.Name, DateOfBirth: req.DateOfBirth, Gender: req.Gender, Contact: req.Contact, Address: req.Address,
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}
	p := form.Patient()
	p.ID = uuid.NewString()
	p.Teeth = dental.FullSet(dental.StatusHealthy)
	p.Treatments = []dental.Treatment{}
	p.CreatedAt = s.now().UTC().Format(wireTimestamp)
	if err := s.store.CreatePatient(ctx, &p); err != nil {
		return nil, err
	}
	s.logger.Info().Str("patient_id", p.ID).Str("by", auth.UserIDFromContext(ctx)).Msg("patient created")
	s.publish(ctx, TopicPatients, websocket.EventCreated, p.ID, p)
	return &p, nil
}

// UpdatePatient replaces demographics and teeth. Fields left empty keep
// their stored value; teeth, when sent, must be a complete chart.
func (s *Service) UpdatePatient(ctx context.Context, id string, req patientRequest) (*dental.Patient, error) {
	cur, err := s.store.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		cur.Name = strings.TrimSpace(req.Name)
	}
	if req.DateOfBirth != "" {
		if _, err := time.Parse(dental.DateLayout, req.DateOfBirth); err != nil {
			return nil, dental.Invalid("date_of_birth", "date_of_birth must be YYYY-MM-DD")
		}
		cur.DateOfBirth = req.DateOfBirth
	}
	if req.Gender != "" {
		if !req.Gender.Valid() {
			return nil, dental.Invalid("gender", fmt.Sprintf("unknown gender %q", req.Gender))
		}
		cur.Gender = req.Gender
	}
	if req.Contact != "" {
		cur.Contact = req.Contact
	}
	if req.Address != "" {
		cur.Address = req.Address
	}
	if req.Teeth != nil {
		teeth, err := validChart(req.Teeth)
		if err != nil {
			return nil, err
		}
		cur.Teeth = teeth
	}
	if err := s.store.UpdatePatient(ctx, cur); err != nil {
		return nil, err
	}
	s.publish(ctx, TopicPatients, websocket.EventUpdated, id, nil)
	return s.store.GetPatient(ctx, id)
}

// validChart checks that teeth hold each id 1-32 once with a known status,
// and rebuilds names and quadrants from the ids.
func validChart(teeth []dental.Tooth) ([]dental.Tooth, error) {
	if len(teeth) != dental.ToothCount {
		return nil, dental.Invalid("teeth", fmt.Sprintf("expected %d teeth, got %d", dental.ToothCount, len(teeth)))
	}
	seen := make(map[int]bool, len(teeth))
	out := make([]dental.Tooth, 0, len(teeth))
	for _, t := range teeth {
		if seen[t.ID] {
			return nil, dental.Invalid("teeth", fmt.Sprintf("tooth %d appears twice", t.ID))
		}
		seen[t.ID] = true
		if !t.Status.Valid() {
			return nil, dental.Invalid("teeth", fmt.Sprintf("tooth %d has unknown status %q", t.ID, t.Status))
		}
		fresh, err := dental.NewTooth(t.ID, t.Status)
		if err != nil {
			return nil, err
		}
		out = append(out, fresh)
	}
	return out, nil
}

func (s *Service) DeletePatient(ctx context.Context, id string) error {
	if err := s.store.DeletePatient(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("patient_id", id).Str("by", auth.UserIDFromContext(ctx)).Msg("patient deleted")
	s.publish(ctx, TopicPatients, websocket.EventDeleted, id, nil)
	return nil
}

// -- Treatments --

// treatmentDate accepts a calendar date or an RFC 3339 timestamp and returns
// the stored form, a UTC timestamp with milliseconds.
func treatmentDate(v string) (string, error) {
	if t, err := time.Parse(dental.DateLayout, v); err == nil {
		return t.UTC().Format(wireTimestamp), nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return "", dental.Invalid("date", fmt.Sprintf("%q is not a date", v))
	}
	return t.UTC().Format(wireTimestamp), nil
}

func (s *Service) buildTreatment(req treatmentRequest) (dental.Treatment, error) {
	if len(req.ToothIDs) == 0 || strings.TrimSpace(req.Procedure) == "" {
		return dental.Treatment{}, dental.Invalid("", dental.MsgTreatmentIncomplete)
	}
	for _, id := range req.ToothIDs {
		if !dental.ValidToothID(id) {
			return dental.Treatment{}, dental.Invalid("toothIds", fmt.Sprintf("tooth %d is outside 1-32", id))
		}
	}
	if req.Cost != nil && *req.Cost < 0 {
		return dental.Treatment{}, dental.Invalid("cost", "cost must not be negative")
	}
	date, err := treatmentDate(req.Date)
	if err != nil {
		return dental.Treatment{}, err
	}
	return dental.Treatment{
		Date:        date,
		ToothIDs:    append([]int(nil), req.ToothIDs...),
		Procedure:   strings.TrimSpace(req.Procedure),
		Notes:       req.Notes,
		Cost:        req.Cost,
		PerformedBy: req.PerformedBy,
	}, nil
}

// CreateTreatment always assigns a fresh id; a client-sent id is ignored.
func (s *Service) CreateTreatment(ctx context.Context, req treatmentRequest) (*dental.Treatment, error) {
	if req.PatientID == "" {
		return nil, dental.Invalid("patient_id", "patient_id is required")
	}
	t, err := s.buildTreatment(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetPatient(ctx, req.PatientID); err != nil {
		return nil, err
	}
	t.ID = uuid.NewString()
	if err := s.store.CreateTreatment(ctx, req.PatientID, &t); err != nil {
		return nil, err
	}
	s.logger.Info().Str("patient_id", req.PatientID).Str("treatment_id", t.ID).Msg("treatment created")
	s.publish(ctx, TopicPatients, websocket.EventUpdated, req.PatientID, nil)
	return &t, nil
}

func (s *Service) UpdateTreatment(ctx context.Context, id string, req treatmentRequest) (*dental.Treatment, error) {
	_, patientID, err := s.store.GetTreatment(ctx, id)
	if err != nil {
		return nil, err
	}
	t, err := s.buildTreatment(req)
	if err != nil {
		return nil, err
	}
	t.ID = id
	if err := s.store.UpdateTreatment(ctx, &t); err != nil {
		return nil, err
	}
	s.publish(ctx, TopicPatients, websocket.EventUpdated, patientID, nil)
	return &t, nil
}

func (s *Service) DeleteTreatment(ctx context.Context, id string) error {
	_, patientID, err := s.store.GetTreatment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTreatment(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, TopicPatients, websocket.EventUpdated, patientID, nil)
	return nil
}

// -- Records --

func (s *Service) ListRecords(ctx context.Context, patientID string) ([]dental.DentalRecord, error) {
	if patientID == "" {
		return nil, dental.Invalid("patientId", "patientId is required")
	}
	return s.store.ListRecords(ctx, patientID)
}

func (s *Service) CreateRecord(ctx context.Context, req recordRequest) (*dental.DentalRecord, error) {
	if req.PatientID == "" {
		return nil, dental.Invalid("patient_id", "patient_id is required")
	}
	if err := req.RecordForm.Validate(); err != nil {
		return nil, err
	}
	r := &dental.DentalRecord{
		ID:            uuid.NewString(),
		PatientID:     req.PatientID,
		ToothNumber:   req.ToothNumber,
		TreatmentDate: req.TreatmentDate,
		Description:   strings.TrimSpace(req.Description),
		TreatmentType: req.TreatmentType,
	}
	if err := s.store.CreateRecord(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// -- Appointments --

func (s *Service) appointmentFrom(ctx context.Context, req appointmentRequest) (Appointment, error) {
	form := calendar.AppointmentForm{
		PatientID: req.PatientID, PatientName: req.PatientName, Date: req.Date,
		Time: req.Time, Notes: req.Notes, Status: req.Status,
	}
	if err := form.Validate(); err != nil {
		return Appointment{}, err
	}
	p, err := s.store.GetPatient(ctx, req.PatientID)
	if err != nil {
		return Appointment{}, err
	}
	a := form.Appointment()
	name := a.PatientName
	if name == "" {
		name = p.Name
	}
	return Appointment{
		PatientID: a.PatientID, PatientName: name, Date: a.Date, Time: a.Time, Notes: a.Notes, Status: a.Status,
	}, nil
}

func (s *Service) ListAppointments(ctx context.Context) ([]Appointment, error) {
	return s.store.ListAppointments(ctx)
}

func (s *Service) CreateAppointment(ctx context.Context, req appointmentRequest) (*Appointment, error) {
	a, err := s.appointmentFrom(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateAppointment(ctx, &a); err != nil {
		return nil, err
	}
	s.publish(ctx, TopicAppointments, websocket.EventCreated, strconv.FormatInt(a.ID, 10), a)
	return &a, nil
}

func (s *Service) UpdateAppointment(ctx context.Context, id int64, req appointmentRequest) (*Appointment, error) {
	if _, err := s.store.GetAppointment(ctx, id); err != nil {
		return nil, err
	}
	a, err := s.appointmentFrom(ctx, req)
	if err != nil {
		return nil, err
	}
	a.ID = id
	if err := s.store.UpdateAppointment(ctx, &a); err != nil {
		return nil, err
	}
	s.publish(ctx, TopicAppointments, websocket.EventUpdated, strconv.FormatInt(id, 10), a)
	return &a, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id int64) error {
	if err := s.store.DeleteAppointment(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, TopicAppointments, websocket.EventDeleted, strconv.FormatInt(id, 10), nil)
	return nil
}

// -- Queue --

func (s *Service) ListQueue(ctx context.Context) ([]QueueEntry, error) {
	return s.store.ListQueue(ctx)
}

// Enqueue adds a patient to today's queue with the next number.
func (s *Service) Enqueue(ctx context.Context, req queueRequest) (*QueueEntry, error) {
	form := calendar.QueueForm{PatientID: req.PatientID, PatientName: req.PatientName, Status: req.Status}
	if err := form.Validate(); err != nil {
		return nil, err
	}
	p, err := s.store.GetPatient(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	entry := form.Entry()
	e := &QueueEntry{
		PatientID:   entry.PatientID,
		PatientName: entry.PatientName,
		Status:      entry.Status,
		CreatedAt:   s.now().UTC().Format(wireTimestamp),
	}
	if e.PatientName == "" {
		e.PatientName = p.Name
	}
	if err := s.store.CreateQueueEntry(ctx, e); err != nil {
		return nil, err
	}
	s.publish(ctx, TopicQueue, websocket.EventCreated, strconv.FormatInt(e.ID, 10), e)
	return e, nil
}

// UpdateQueueEntry changes status and patient; number and creation time stay.
func (s *Service) UpdateQueueEntry(ctx context.Context, id int64, req queueRequest) (*QueueEntry, error) {
	cur, err := s.store.GetQueueEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != "" {
		if !req.Status.Valid() {
			return nil, dental.Invalid("status", fmt.Sprintf("unknown queue status %q", req.Status))
		}
		cur.Status = req.Status
	}
	if req.PatientID != "" && req.PatientID != cur.PatientID {
		p, err := s.store.GetPatient(ctx, req.PatientID)
		if err != nil {
			return nil, err
		}
		cur.PatientID, cur.PatientName = p.ID, p.Name
	}
	if req.PatientName != "" {
		cur.PatientName = req.PatientName
	}
	if err := s.store.UpdateQueueEntry(ctx, cur); err != nil {
		return nil, err
	}
	s.publish(ctx, TopicQueue, websocket.EventUpdated, strconv.FormatInt(id, 10), cur)
	return cur, nil
}

func (s *Service) DeleteQueueEntry(ctx context.Context, id int64) error {
	if err := s.store.DeleteQueueEntry(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, TopicQueue, websocket.EventDeleted, strconv.FormatInt(id, 10), nil)
	return nil
}
