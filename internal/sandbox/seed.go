package sandbox

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/Multiverse88/Dentalpro/internal/domain/calendar"
	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
)

// -- Configuration --

// SeedConfig controls the volume and shape of generated demo data.
type SeedConfig struct {
	PatientCount         int
	TreatmentsPerPatient int
	RecordsPerPatient    int
	AppointmentCount     int
	QueueSize            int
	DemoName             string
	DemoEmail            string
	DemoPassword         string
	// Reset empties the store first.
	Reset bool
	Seed  int64
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		PatientCount:         20,
		TreatmentsPerPatient: 3,
		RecordsPerPatient:    2,
		AppointmentCount:     15,
		QueueSize:            5,
		DemoName:             "Admin Klinik",
		DemoEmail:            "admin@dentalpro.test",
		DemoPassword:         "rahasia123",
	}
}

type SeedResult struct {
	Users        int           `json:"users"`
	Patients     int           `json:"patients"`
	Treatments   int           `json:"treatments"`
	Records      int           `json:"records"`
	Appointments int           `json:"appointments"`
	QueueEntries int           `json:"queueEntries"`
	Duration     time.Duration `json:"duration"`
}

// -- Pools --

type procedureDef struct {
	Name   string
	Status dental.ToothStatus // "" leaves the chart alone
	Low    int                // cost bounds in thousands of rupiah
	High   int
}

var (
	firstNamesMale = []string{
		"Budi", "Agus", "Andi", "Dedi", "Eko", "Fajar", "Hendra", "Irfan",
		"Joko", "Rizky", "Wahyu", "Yusuf", "Arif", "Bayu", "Dimas", "Rudi",
	}
	firstNamesFemale = []string{
		"Siti", "Dewi", "Sri", "Ayu", "Putri", "Rina", "Wulan", "Indah",
		"Fitri", "Lestari", "Nur", "Maya", "Ratna", "Yuni", "Intan", "Dian",
	}
	lastNames = []string{
		"Santoso", "Wijaya", "Saputra", "Hidayat", "Kusuma", "Pratama",
		"Nugroho", "Siregar", "Lubis", "Hasibuan", "Setiawan", "Gunawan",
		"Halim", "Wibowo", "Susanto", "Rahmawati",
	}
	streets = []string{
		"Jl. Merdeka No. 12", "Jl. Sudirman No. 45", "Jl. Diponegoro No. 7",
		"Jl. Gajah Mada No. 88", "Jl. Ahmad Yani No. 21", "Jl. Pahlawan No. 3",
		"Jl. Kartini No. 19", "Jl. Imam Bonjol No. 56",
	}
	cities = []string{
		"Jakarta", "Bandung", "Surabaya", "Yogyakarta", "Semarang", "Medan",
		"Makassar", "Denpasar", "Malang", "Bogor",
	}
	dentists = []string{
		"drg. Ananda Putri", "drg. Bima Prasetyo", "drg. Citra Maharani", "drg. Reza Mahendra",
	}
	procedures = []procedureDef{
		{"Tambal gigi komposit", dental.StatusFilled, 200, 600},
		{"Perawatan saluran akar", dental.StatusRootCanal, 1000, 3000},
		{"Pencabutan gigi", dental.StatusExtracted, 150, 800},
		{"Pemasangan mahkota porselen", dental.StatusCrown, 2000, 5000},
		{"Scaling dan polishing", "", 300, 700},
		{"Pemeriksaan rutin", "", 100, 200},
	}
	recordTypes = []string{"Pemeriksaan", "Penambalan", "Pencabutan", "Perawatan Saluran Akar", "Pembersihan Karang Gigi"}
	recordNotes = []string{
		"Karies superfisial pada permukaan oklusal",
		"Sensitif terhadap dingin, tidak ada nyeri spontan",
		"Gigi goyang derajat 1",
		"Tambalan lama aus, perlu diganti",
		"Kondisi baik, kontrol 6 bulan lagi",
	}
	appointmentTimes = []string{"09:00", "09:30", "10:00", "10:30", "11:00", "13:00", "13:30", "14:00", "15:00", "16:00"}
)

// -- DataGenerator --

// DataGenerator produces reproducible patients and clinical entries from a
// seed. It does not touch any store.
type DataGenerator struct {
	rng *rand.Rand
	now time.Time
}

// NewDataGenerator seeds from the clock when seed is 0. Dates are laid out
// around now.
func NewDataGenerator(seed int64, now time.Time) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{rng: rand.New(rand.NewSource(seed)), now: now}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) randomDate(minYear, maxYear int) string {
	y := minYear + g.rng.Intn(maxYear-minYear+1)
	m := 1 + g.rng.Intn(12)
	d := 1 + g.rng.Intn(28)
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

// dayOffset is now shifted by days, as a calendar date.
func (g *DataGenerator) dayOffset(days int) string {
	return g.now.AddDate(0, 0, days).Format(dental.DateLayout)
}

func (g *DataGenerator) randomPhone() string {
	return fmt.Sprintf("08%02d%04d%04d", 11+g.rng.Intn(89), g.rng.Intn(10000), g.rng.Intn(10000))
}

func (g *DataGenerator) toothIDs(n int) []int {
	seen := make(map[int]bool, n)
	ids := make([]int, 0, n)
	for len(ids) < n {
		id := dental.MinToothID + g.rng.Intn(dental.ToothCount)
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func (g *DataGenerator) GeneratePatient() patientRequest {
	gender := dental.GenderFemale
	first := g.pick(firstNamesFemale)
	if g.rng.Intn(2) == 0 {
		gender = dental.GenderMale
		first = g.pick(firstNamesMale)
	}
	maxYear := g.now.Year() - 3
	return patientRequest{
		Name:        first + " " + g.pick(lastNames),
		DateOfBirth: g.randomDate(maxYear-75, maxYear),
		Gender:      gender,
		Contact:     g.randomPhone(),
		Address:     g.pick(streets) + ", " + g.pick(cities),
	}
}

// GenerateTreatment returns a treatment from the past year and the status it
// leaves on its teeth.
func (g *DataGenerator) GenerateTreatment(patientID string) (treatmentRequest, dental.ToothStatus) {
	proc := procedures[g.rng.Intn(len(procedures))]
	cost := float64((proc.Low + g.rng.Intn(proc.High-proc.Low+1)) / 50 * 50 * 1000)
	req := treatmentRequest{
		PatientID:   patientID,
		Date:        g.dayOffset(-g.rng.Intn(365)),
		ToothIDs:    g.toothIDs(1 + g.rng.Intn(2)),
		Procedure:   proc.Name,
		Cost:        &cost,
		PerformedBy: g.pick(dentists),
	}
	if g.rng.Intn(3) == 0 {
		req.Notes = g.pick(recordNotes)
	}
	return req, proc.Status
}

func (g *DataGenerator) GenerateRecord(patientID string) recordRequest {
	return recordRequest{
		PatientID: patientID,
		RecordForm: dental.RecordForm{
			ToothNumber:   dental.MinToothID + g.rng.Intn(dental.ToothCount),
			TreatmentDate: g.dayOffset(-g.rng.Intn(365)),
			Description:   g.pick(recordNotes),
			TreatmentType: g.pick(recordTypes),
		},
	}
}

// GenerateAppointment books within a week back and three weeks ahead. Past
// visits are completed or cancelled.
func (g *DataGenerator) GenerateAppointment(patientID string) appointmentRequest {
	offset := g.rng.Intn(29) - 7
	status := calendar.AppointmentPending
	switch {
	case offset < 0 && g.rng.Intn(5) == 0:
		status = calendar.AppointmentCancelled
	case offset < 0:
		status = calendar.AppointmentCompleted
	case g.rng.Intn(2) == 0:
		status = calendar.AppointmentConfirmed
	}
	return appointmentRequest{
		PatientID: patientID,
		Date:      g.dayOffset(offset),
		Time:      g.pick(appointmentTimes),
		Status:    status,
	}
}

// -- Seeder --

type SeederOption func(*Seeder)

func WithSeedClock(now func() time.Time) SeederOption {
	return func(s *Seeder) { s.now = now }
}

func WithSeedLogger(logger zerolog.Logger) SeederOption {
	return func(s *Seeder) { s.logger = logger }
}

// Seeder fills a store through the service layer, so seeded data passes the
// same validation as API writes.
type Seeder struct {
	store  Store
	config SeedConfig
	now    func() time.Time
	logger zerolog.Logger
}

func NewSeeder(store Store, config SeedConfig, opts ...SeederOption) *Seeder {
	s := &Seeder{store: store, config: config, now: time.Now, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Seeder) Seed(ctx context.Context) (*SeedResult, error) {
	start := time.Now()
	now := s.now()
	svc := NewService(s.store, nil, s.logger)
	svc.now = s.now
	gen := NewDataGenerator(s.config.Seed, now)
	result := &SeedResult{}

	if s.config.Reset {
		if err := s.store.Reset(ctx); err != nil {
			return nil, fmt.Errorf("reset store: %w", err)
		}
	}

	if s.config.DemoEmail != "" {
		_, err := svc.Register(ctx, registerRequest{Name: s.config.DemoName, Email: s.config.DemoEmail, Password: s.config.DemoPassword})
		switch {
		case err == nil:
			result.Users++
		case errors.Is(err, ErrEmailTaken):
			s.logger.Info().Str("email", s.config.DemoEmail).Msg("demo user already exists")
		default:
			return nil, fmt.Errorf("seed demo user: %w", err)
		}
	}

	var patients []*dental.Patient
	for i := 0; i < s.config.PatientCount; i++ {
		p, err := svc.CreatePatient(ctx, gen.GeneratePatient())
		if err != nil {
			return nil, fmt.Errorf("seed patient %d: %w", i, err)
		}
		patients = append(patients, p)

		teeth := p.Teeth
		for j := 0; j < s.config.TreatmentsPerPatient; j++ {
			req, status := gen.GenerateTreatment(p.ID)
			if _, err := svc.CreateTreatment(ctx, req); err != nil {
				return nil, fmt.Errorf("seed treatment for %s: %w", p.ID, err)
			}
			if status != "" {
				teeth = dental.TreatmentForm{ToothIDs: req.ToothIDs, NewStatus: status}.ApplyStatus(teeth)
			}
			result.Treatments++
		}
		// an untreated cavity now and then
		if gen.rng.Intn(3) == 0 {
			teeth = dental.TreatmentForm{ToothIDs: gen.toothIDs(1), NewStatus: dental.StatusDecay}.ApplyStatus(teeth)
		}
		if _, err := svc.UpdatePatient(ctx, p.ID, patientRequest{Teeth: teeth}); err != nil {
			return nil, fmt.Errorf("seed chart for %s: %w", p.ID, err)
		}

		for j := 0; j < s.config.RecordsPerPatient; j++ {
			if _, err := svc.CreateRecord(ctx, gen.GenerateRecord(p.ID)); err != nil {
				return nil, fmt.Errorf("seed record for %s: %w", p.ID, err)
			}
			result.Records++
		}
	}
	result.Patients = len(patients)

	if len(patients) > 0 {
		for i := 0; i < s.config.AppointmentCount; i++ {
			p := patients[gen.rng.Intn(len(patients))]
			if _, err := svc.CreateAppointment(ctx, gen.GenerateAppointment(p.ID)); err != nil {
				return nil, fmt.Errorf("seed appointment: %w", err)
			}
			result.Appointments++
		}
		for i := 0; i < s.config.QueueSize && i < len(patients); i++ {
			status := calendar.QueueWaiting
			if i == 0 {
				status = calendar.QueueInProgress
			}
			if _, err := svc.Enqueue(ctx, queueRequest{PatientID: patients[i].ID, Status: status}); err != nil {
				return nil, fmt.Errorf("seed queue: %w", err)
			}
			result.QueueEntries++
		}
	}

	result.Duration = time.Since(start)
	s.logger.Info().
		Int("patients", result.Patients).
		Int("treatments", result.Treatments).
		Int("appointments", result.Appointments).
		Dur("duration", result.Duration).
		Msg("sandbox seeded")
	return result, nil
}
