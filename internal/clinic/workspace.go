// Package clinic holds the state of one logged-in operator: the session, the
// patient list with its filter, and the per-action submission flags.
//
// Every mutation is a blocking sequence of backend calls followed by a re-read
// of the affected records; local state is only ever replaced by what the
// backend returns.
package clinic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/Multiverse88/Dentalpro/internal/domain/calendar"
	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
	"github.com/Multiverse88/Dentalpro/internal/gateway"
	"github.com/Multiverse88/Dentalpro/internal/platform/websocket"
	"github.com/Multiverse88/Dentalpro/internal/session"
)

var (
	ErrActionInFlight    = errors.New("action already in progress")
	ErrPatientNotFound   = errors.New("patient not found")
	ErrTreatmentNotFound = errors.New("treatment not found")
)

// Gateway is the subset of the REST client the workspace drives.
type Gateway interface {
	Register(ctx context.Context, name, email, password string) (dental.User, error)
	Login(ctx context.Context, email, password string) (gateway.AuthResponse, error)

	ListPatients(ctx context.Context) ([]dental.Patient, error)
	GetPatient(ctx context.Context, id string) (dental.Patient, error)
	CreatePatient(ctx context.Context, p dental.Patient) (dental.Patient, error)
	DeletePatient(ctx context.Context, id string) error
	UpdatePatientTeeth(ctx context.Context, patientID string, teeth []dental.Tooth) (dental.Patient, error)

	CreateTreatment(ctx context.Context, patientID string, t dental.Treatment) error
	UpdateTreatment(ctx context.Context, t dental.Treatment) error
	DeleteTreatment(ctx context.Context, id string) error

	ListRecords(ctx context.Context, patientID string) ([]dental.DentalRecord, error)
	CreateRecord(ctx context.Context, patientID string, f dental.RecordForm) (dental.DentalRecord, error)

	ListAppointments(ctx context.Context) ([]calendar.Appointment, error)
	CreateAppointment(ctx context.Context, a calendar.Appointment) (calendar.Appointment, error)
	UpdateAppointment(ctx context.Context, id calendar.FlexID, a calendar.Appointment) (calendar.Appointment, error)
	DeleteAppointment(ctx context.Context, id calendar.FlexID) error

	ListQueue(ctx context.Context) ([]calendar.QueueEntry, error)
	CreateQueueEntry(ctx context.Context, e calendar.QueueEntry) (calendar.QueueEntry, error)
	UpdateQueueEntry(ctx context.Context, id calendar.FlexID, e calendar.QueueEntry) (calendar.QueueEntry, error)
	DeleteQueueEntry(ctx context.Context, id calendar.FlexID) error

	Watch(ctx context.Context, topics []string, fn func(websocket.Event) error) error
}

// Action names a user-triggered operation that carries a submitting flag.
type Action string

const (
	ActionLogin             Action = "login"
	ActionRegister          Action = "register"
	ActionLoadPatients      Action = "load_patients"
	ActionAddPatient        Action = "add_patient"
	ActionDeletePatient     Action = "delete_patient"
	ActionSaveTreatment     Action = "save_treatment"
	ActionDeleteTreatment   Action = "delete_treatment"
	ActionAddRecord         Action = "add_record"
	ActionSaveAppointment   Action = "save_appointment"
	ActionDeleteAppointment Action = "delete_appointment"
	ActionSaveQueue         Action = "save_queue"
	ActionDeleteQueue       Action = "delete_queue"
)

var allActions = []Action{
	ActionLogin, ActionRegister, ActionLoadPatients, ActionAddPatient, ActionDeletePatient,
	ActionSaveTreatment, ActionDeleteTreatment, ActionAddRecord,
	ActionSaveAppointment, ActionDeleteAppointment, ActionSaveQueue, ActionDeleteQueue,
}

// Option configures a Workspace.
type Option func(*Workspace)

func WithLogger(logger zerolog.Logger) Option {
	return func(w *Workspace) { w.logger = logger }
}

// WithClock sets the time used for ages and "today".
func WithClock(now func() time.Time) Option {
	return func(w *Workspace) { w.now = now }
}

// WithLocale sets the collation used for name ordering.
func WithLocale(tag language.Tag) Option {
	return func(w *Workspace) { w.locale = tag }
}

// WithPhoneRegion sets the default region for contact normalisation.
func WithPhoneRegion(region string) Option {
	return func(w *Workspace) { w.region = region }
}

// WithLocation sets the zone calendar days are computed in.
func WithLocation(loc *time.Location) Option {
	return func(w *Workspace) { w.loc = loc }
}

type Workspace struct {
	gw       Gateway
	sessions *session.Manager
	logger   zerolog.Logger
	now      func() time.Time
	locale   language.Tag
	region   string
	loc      *time.Location

	// fixed at construction, so the map itself needs no lock
	flags map[Action]*atomic.Bool

	mu           sync.RWMutex
	patients     []dental.Patient
	patientsErr  error
	criteria     dental.Criteria
	records      map[string][]dental.DentalRecord
	appointments []calendar.Appointment
	queue        []calendar.QueueEntry
}

func New(gw Gateway, sessions *session.Manager, opts ...Option) *Workspace {
	w := &Workspace{
		gw:       gw,
		sessions: sessions,
		logger:   zerolog.Nop(),
		now:      time.Now,
		locale:   language.Indonesian,
		region:   dental.DefaultPhoneRegion,
		loc:      time.Local,
		flags:    make(map[Action]*atomic.Bool, len(allActions)),
		records:  make(map[string][]dental.DentalRecord),
	}
	for _, a := range allActions {
		w.flags[a] = new(atomic.Bool)
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// begin raises the flag for a; the returned func lowers it.
func (w *Workspace) begin(a Action) (func(), error) {
	flag := w.flags[a]
	if !flag.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%s: %w", a, ErrActionInFlight)
	}
	return func() { flag.Store(false) }, nil
}

// Submitting reports whether a is in flight.
func (w *Workspace) Submitting(a Action) bool {
	if f, ok := w.flags[a]; ok {
		return f.Load()
	}
	return false
}

// Now returns the workspace clock.
func (w *Workspace) Now() time.Time { return w.now().In(w.loc) }

// Location returns the zone calendar days are computed in.
func (w *Workspace) Location() *time.Location { return w.loc }

// -- Session --

// Start restores a stored session and, if there is one, loads the patient
// list. A failed load leaves the session in place.
func (w *Workspace) Start(ctx context.Context) (dental.User, bool) {
	s, ok := w.sessions.Restore(ctx)
	if !ok {
		return dental.User{}, false
	}
	if err := w.LoadPatients(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("initial patient load failed")
	}
	return s.User, true
}

// CurrentUser returns the logged-in operator.
func (w *Workspace) CurrentUser() (dental.User, bool) {
	s, ok := w.sessions.Current()
	return s.User, ok
}

func (w *Workspace) Login(ctx context.Context, f dental.LoginForm) (dental.User, error) {
	if err := f.Validate(); err != nil {
		return dental.User{}, err
	}
	done, err := w.begin(ActionLogin)
	if err != nil {
		return dental.User{}, err
	}
	defer done()

	resp, err := w.gw.Login(ctx, f.Email, f.Password)
	if err != nil {
		return dental.User{}, err
	}
	if resp.Token == "" {
		return dental.User{}, fmt.Errorf("login: backend returned no token")
	}
	if err := w.sessions.Save(ctx, session.Session{Token: resp.Token, User: resp.User}); err != nil {
		return dental.User{}, err
	}
	w.logger.Info().Str("user", resp.User.Email).Msg("logged in")

	if err := w.LoadPatients(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("patient load after login failed")
	}
	return resp.User, nil
}

// Register creates an account without logging in.
func (w *Workspace) Register(ctx context.Context, f dental.RegisterForm) (dental.User, error) {
	if err := f.Validate(); err != nil {
		return dental.User{}, err
	}
	done, err := w.begin(ActionRegister)
	if err != nil {
		return dental.User{}, err
	}
	defer done()

	u, err := w.gw.Register(ctx, f.Name, f.Email, f.Password)
	if err != nil {
		return dental.User{}, err
	}
	w.logger.Info().Str("user", u.Email).Msg("registered")
	return u, nil
}

// Logout clears the stored session and drops every piece of per-operator
// state, filters included.
func (w *Workspace) Logout(ctx context.Context) error {
	err := w.sessions.Clear(ctx)

	w.mu.Lock()
	w.patients = nil
	w.patientsErr = nil
	w.criteria = dental.Criteria{}
	w.records = make(map[string][]dental.DentalRecord)
	w.appointments = nil
	w.queue = nil
	w.mu.Unlock()

	w.logger.Info().Msg("logged out")
	return err
}
