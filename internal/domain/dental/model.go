package dental

import (
	"time"
)

// ToothStatus is the charted condition of a single tooth.
type ToothStatus string

const (
	StatusHealthy   ToothStatus = "Healthy"
	StatusDecay     ToothStatus = "Decay"
	StatusFilled    ToothStatus = "Filled"
	StatusExtracted ToothStatus = "Extracted"
	StatusRootCanal ToothStatus = "RootCanal"
	StatusCrown     ToothStatus = "Crown"
	StatusMissing   ToothStatus = "Missing" // congenitally missing or lost before the first record
)

// AllStatuses lists the statuses in chart legend order.
var AllStatuses = []ToothStatus{
	StatusHealthy, StatusDecay, StatusFilled, StatusExtracted, StatusRootCanal, StatusCrown, StatusMissing,
}

// Valid reports whether s is one of AllStatuses.
func (s ToothStatus) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns the clinic's display label for the status.
func (s ToothStatus) Label() string {
	switch s {
	case StatusHealthy:
		return "Sehat"
	case StatusDecay:
		return "Karies"
	case StatusFilled:
		return "Tambalan"
	case StatusExtracted:
		return "Dicabut"
	case StatusRootCanal:
		return "Perawatan Saluran Akar"
	case StatusCrown:
		return "Mahkota"
	case StatusMissing:
		return "Gigi Hilang"
	}
	return string(s)
}

// Selectable reports whether a tooth in this status can be picked for a new treatment.
func (s ToothStatus) Selectable() bool {
	return s != StatusMissing && s != StatusExtracted
}

// Quadrant is one of the four jaw sections.
type Quadrant string

const (
	UpperRight Quadrant = "UR"
	UpperLeft  Quadrant = "UL"
	LowerRight Quadrant = "LR"
	LowerLeft  Quadrant = "LL"
)

// Gender as recorded at registration.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Valid reports whether g is Male, Female or Other.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale || g == GenderOther
}

// Label is the Indonesian display name of the gender.
func (g Gender) Label() string {
	switch g {
	case GenderMale:
		return "Laki-laki"
	case GenderFemale:
		return "Perempuan"
	case GenderOther:
		return "Lainnya"
	}
	return string(g)
}

// Tooth is one permanent tooth in the Universal Numbering System.
type Tooth struct {
	ID       int         `json:"id"`
	Name     string      `json:"name"`
	Status   ToothStatus `json:"status"`
	Quadrant Quadrant    `json:"quadrant"`
}

// Treatment is one procedure performed on one or more teeth of a patient.
type Treatment struct {
	ID          string   `json:"id"`
	Date        string   `json:"date"`
	ToothIDs    []int    `json:"toothIds"`
	Procedure   string   `json:"procedure"`
	Notes       string   `json:"notes,omitempty"`
	Cost        *float64 `json:"cost,omitempty"`
	PerformedBy string   `json:"performedBy,omitempty"`
}

// Patient is the aggregate root: demographics plus the owned teeth and treatments.
type Patient struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	DateOfBirth string      `json:"date_of_birth"`
	Gender      Gender      `json:"gender"`
	Contact     string      `json:"contact"`
	Address     string      `json:"address,omitempty"`
	Teeth       []Tooth     `json:"teeth"`
	Treatments  []Treatment `json:"treatments"`
	CreatedAt   string      `json:"created_at,omitempty"`
}

// Clone returns a copy that shares no slices or pointers with p.
func (p *Patient) Clone() Patient {
	cp := *p
	if p.Teeth != nil {
		cp.Teeth = append([]Tooth(nil), p.Teeth...)
	}
	if p.Treatments != nil {
		cp.Treatments = make([]Treatment, len(p.Treatments))
		for i, t := range p.Treatments {
			t.ToothIDs = append([]int(nil), t.ToothIDs...)
			if t.Cost != nil {
				c := *t.Cost
				t.Cost = &c
			}
			cp.Treatments[i] = t
		}
	}
	return cp
}

// Tooth returns the patient's tooth with the given id.
func (p *Patient) Tooth(id int) (Tooth, bool) {
	for _, t := range p.Teeth {
		if t.ID == id {
			return t, true
		}
	}
	return Tooth{}, false
}

// Treatment returns the patient's treatment with the given id.
func (p *Patient) Treatment(id string) (Treatment, bool) {
	for _, t := range p.Treatments {
		if t.ID == id {
			return t, true
		}
	}
	return Treatment{}, false
}

// User is an authenticated clinic operator. Passwords never live here.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// DentalRecord is a single per-tooth entry in the clinical record list.
type DentalRecord struct {
	ID            string `json:"id"`
	PatientID     string `json:"patient_id"`
	ToothNumber   int    `json:"tooth_number"`
	TreatmentDate string `json:"treatment_date"`
	Description   string `json:"description"`
	TreatmentType string `json:"treatment_type"`
}

// PatientTreatment is a treatment annotated with the owning patient, used by
// dashboard and calendar views that span all patients.
type PatientTreatment struct {
	Treatment
	PatientID   string `json:"patient_id"`
	PatientName string `json:"patientName"`
}

// When parses the treatment date. Both full timestamps and bare calendar dates
// are accepted.
func (t Treatment) When() (time.Time, bool) {
	return parseDate(t.Date)
}
