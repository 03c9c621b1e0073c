package dental

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-date layout used by date inputs.
const DateLayout = "2006-01-02"

// outbound treatment timestamps carry milliseconds, matching what the backend stores.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// -- Patient --

type PatientForm struct {
	Name        string
	DateOfBirth string
	Gender      Gender
	Contact     string
	Address     string
}

func (f PatientForm) Validate() error {
	if strings.TrimSpace(f.Name) == "" || f.DateOfBirth == "" || f.Gender == "" || strings.TrimSpace(f.Contact) == "" {
		return &ValidationError{Message: MsgPatientIncomplete}
	}
	if _, err := time.Parse(DateLayout, f.DateOfBirth); err != nil {
		return Invalid("date_of_birth", fmt.Sprintf("%q is not a YYYY-MM-DD date", f.DateOfBirth))
	}
	if !f.Gender.Valid() {
		return Invalid("gender", fmt.Sprintf("unknown gender %q", f.Gender))
	}
	return nil
}

// Patient returns the demographic part of a new patient. Teeth and treatments
// are assigned by the backend.
func (f PatientForm) Patient() Patient {
	return Patient{
		Name:        strings.TrimSpace(f.Name),
		DateOfBirth: f.DateOfBirth,
		Gender:      f.Gender,
		Contact:     strings.TrimSpace(f.Contact),
		Address:     strings.TrimSpace(f.Address),
	}
}

// -- Treatment --

// TreatmentForm holds the values entered for a new or edited treatment.
// NewStatus, when set, is applied to every selected tooth.
type TreatmentForm struct {
	Date        string
	ToothIDs    []int
	Procedure   string
	Notes       string
	Cost        *float64
	PerformedBy string
	NewStatus   ToothStatus
}

// Validate checks the form against the patient it is recorded for. initial is
// the treatment being edited, or nil for a new one; teeth it already names stay
// selectable even when they are now Missing or Extracted.
func (f TreatmentForm) Validate(p *Patient, initial *Treatment) error {
	if len(f.ToothIDs) == 0 || strings.TrimSpace(f.Procedure) == "" {
		return &ValidationError{Message: MsgTreatmentIncomplete}
	}
	if _, err := time.Parse(DateLayout, f.Date); err != nil {
		return Invalid("date", fmt.Sprintf("%q is not a YYYY-MM-DD date", f.Date))
	}
	var kept map[int]bool
	if initial != nil {
		kept = make(map[int]bool, len(initial.ToothIDs))
		for _, id := range initial.ToothIDs {
			kept[id] = true
		}
	}
	for _, id := range f.ToothIDs {
		if !ValidToothID(id) {
			return Invalid("toothIds", fmt.Sprintf("tooth id %d is outside %d-%d", id, MinToothID, MaxToothID))
		}
		tooth, ok := p.Tooth(id)
		if !ok {
			return Invalid("toothIds", fmt.Sprintf("tooth %d is not on the chart of patient %s", id, p.ID))
		}
		if !tooth.Status.Selectable() && !kept[id] {
			return Invalid("toothIds", fmt.Sprintf("tooth %d is %s and cannot be treated", id, tooth.Status.Label()))
		}
	}
	if f.NewStatus != "" && !f.NewStatus.Valid() {
		return Invalid("status", fmt.Sprintf("unknown tooth status %q", f.NewStatus))
	}
	if f.Cost != nil && *f.Cost < 0 {
		return Invalid("cost", "must not be negative")
	}
	return nil
}

// Treatment builds the treatment record. An edited treatment keeps its id; a
// new one gets a random UUID that is local only. The create request never
// carries it, and the id in the re-fetched patient replaces it.
func (f TreatmentForm) Treatment(initial *Treatment) (Treatment, error) {
	day, err := time.Parse(DateLayout, f.Date)
	if err != nil {
		return Treatment{}, Invalid("date", fmt.Sprintf("%q is not a YYYY-MM-DD date", f.Date))
	}
	id := uuid.NewString()
	if initial != nil {
		id = initial.ID
	}
	return Treatment{
		ID:          id,
		Date:        day.UTC().Format(timestampLayout),
		ToothIDs:    uniqueIDs(f.ToothIDs),
		Procedure:   strings.TrimSpace(f.Procedure),
		Notes:       f.Notes,
		Cost:        f.Cost,
		PerformedBy: f.PerformedBy,
	}, nil
}

// ApplyStatus returns a copy of teeth with NewStatus set on the selected ids.
// Without a NewStatus the copy is unchanged.
func (f TreatmentForm) ApplyStatus(teeth []Tooth) []Tooth {
	out := make([]Tooth, len(teeth))
	copy(out, teeth)
	if f.NewStatus == "" {
		return out
	}
	selected := make(map[int]bool, len(f.ToothIDs))
	for _, id := range f.ToothIDs {
		selected[id] = true
	}
	for i := range out {
		if selected[out[i].ID] {
			out[i].Status = f.NewStatus
		}
	}
	return out
}

// FormFromTreatment pre-fills a form for editing t.
func FormFromTreatment(t Treatment) TreatmentForm {
	date := t.Date
	if i := strings.IndexByte(date, 'T'); i >= 0 {
		date = date[:i]
	}
	return TreatmentForm{
		Date:        date,
		ToothIDs:    append([]int(nil), t.ToothIDs...),
		Procedure:   t.Procedure,
		Notes:       t.Notes,
		Cost:        t.Cost,
		PerformedBy: t.PerformedBy,
	}
}

func uniqueIDs(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// -- Auth --

type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (f LoginForm) Validate() error {
	if strings.TrimSpace(f.Email) == "" || f.Password == "" {
		return &ValidationError{Message: MsgLoginIncomplete}
	}
	return nil
}

type RegisterForm struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

func (f RegisterForm) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return Invalid("name", "is required")
	}
	if strings.TrimSpace(f.Email) == "" || f.Password == "" {
		return &ValidationError{Message: MsgLoginIncomplete}
	}
	if !strings.Contains(f.Email, "@") {
		return Invalid("email", fmt.Sprintf("%q is not an email address", f.Email))
	}
	if f.Password != f.ConfirmPassword {
		return &ValidationError{Message: MsgPasswordMismatch}
	}
	return nil
}

// -- Dental record --

type RecordForm struct {
	ToothNumber   int    `json:"tooth_number"`
	TreatmentDate string `json:"treatment_date"`
	Description   string `json:"description"`
	TreatmentType string `json:"treatment_type"`
}

func (f RecordForm) Validate() error {
	if !ValidToothID(f.ToothNumber) {
		return Invalid("tooth_number", fmt.Sprintf("tooth id %d is outside %d-%d", f.ToothNumber, MinToothID, MaxToothID))
	}
	if _, ok := parseDate(f.TreatmentDate); !ok {
		return Invalid("treatment_date", fmt.Sprintf("%q is not a date", f.TreatmentDate))
	}
	if strings.TrimSpace(f.Description) == "" {
		return Invalid("description", "is required")
	}
	if strings.TrimSpace(f.TreatmentType) == "" {
		return Invalid("treatment_type", "is required")
	}
	return nil
}
