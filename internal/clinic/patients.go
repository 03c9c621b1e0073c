package clinic

import (
	"context"
	"fmt"

	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
)

// LoadPatients replaces the patient list with the backend's. On failure the
// previous list is kept and the error is remembered for PatientsError.
func (w *Workspace) LoadPatients(ctx context.Context) error {
	done, err := w.begin(ActionLoadPatients)
	if err != nil {
		return err
	}
	defer done()
	return w.refreshPatients(ctx)
}

func (w *Workspace) refreshPatients(ctx context.Context) error {
	patients, err := w.gw.ListPatients(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.patientsErr = err
		return fmt.Errorf("load patients: %w", err)
	}
	w.patients = patients
	w.patientsErr = nil
	return nil
}

// PatientsError is the error of the last failed patient list load, if the
// list has not loaded since.
func (w *Workspace) PatientsError() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.patientsErr
}

// Patients returns a deep copy of the current list; callers may edit it freely.
func (w *Workspace) Patients() []dental.Patient {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]dental.Patient, len(w.patients))
	for i := range w.patients {
		out[i] = w.patients[i].Clone()
	}
	return out
}

// Patient looks a patient up in the current list.
func (w *Workspace) Patient(id string) (dental.Patient, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for i := range w.patients {
		if w.patients[i].ID == id {
			return w.patients[i].Clone(), true
		}
	}
	return dental.Patient{}, false
}

// replacePatient swaps in a freshly read patient. The list is rebuilt rather
// than edited so earlier copies stay unchanged.
func (w *Workspace) replacePatient(fresh dental.Patient) {
	w.mu.Lock()
	defer w.mu.Unlock()
	next := make([]dental.Patient, 0, len(w.patients)+1)
	found := false
	for _, p := range w.patients {
		if p.ID == fresh.ID {
			next = append(next, fresh)
			found = true
			continue
		}
		next = append(next, p)
	}
	if !found {
		next = append(next, fresh)
	}
	w.patients = next
}

// -- Filters --

func (w *Workspace) SetCriteria(c dental.Criteria) {
	w.mu.Lock()
	w.criteria = c
	w.mu.Unlock()
}

func (w *Workspace) Criteria() dental.Criteria {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.criteria
}

func (w *Workspace) ResetCriteria() { w.SetCriteria(dental.Criteria{}) }

// FilteredPatients applies the current criteria to the current list.
func (w *Workspace) FilteredPatients() []dental.Patient {
	return dental.FilterPatients(w.Patients(), w.Criteria(), w.Now())
}

// ListView is the patient list as shown: filtered, searched, then sorted.
func (w *Workspace) ListView(query, gender string, key dental.SortKey) []dental.Patient {
	now := w.Now()
	found := dental.SearchPatients(w.FilteredPatients(), query, gender, now)
	return dental.SortPatients(found, key, now, w.locale)
}

// -- Mutations --

// AddPatient creates a patient and re-reads the whole list.
func (w *Workspace) AddPatient(ctx context.Context, f dental.PatientForm) (dental.Patient, error) {
	if err := f.Validate(); err != nil {
		return dental.Patient{}, err
	}
	done, err := w.begin(ActionAddPatient)
	if err != nil {
		return dental.Patient{}, err
	}
	defer done()

	p := f.Patient()
	p.Contact = dental.NormalizeContact(p.Contact, w.region)
	created, err := w.gw.CreatePatient(ctx, p)
	if err != nil {
		return dental.Patient{}, err
	}
	w.logger.Info().Str("patient_id", created.ID).Msg("patient added")

	if err := w.refreshPatients(ctx); err != nil {
		return created, err
	}
	return created, nil
}

// DeletePatient removes a patient and re-reads the whole list.
func (w *Workspace) DeletePatient(ctx context.Context, id string) error {
	if _, ok := w.Patient(id); !ok {
		return fmt.Errorf("delete patient %s: %w", id, ErrPatientNotFound)
	}
	done, err := w.begin(ActionDeletePatient)
	if err != nil {
		return err
	}
	defer done()

	if err := w.gw.DeletePatient(ctx, id); err != nil {
		return err
	}
	w.logger.Info().Str("patient_id", id).Msg("patient deleted")
	return w.refreshPatients(ctx)
}

// AddTreatment records a new treatment: create it, write the updated chart,
// then re-read the patient. The calls run strictly in that order and the
// first failure stops the sequence.
func (w *Workspace) AddTreatment(ctx context.Context, patientID string, f dental.TreatmentForm) (dental.Patient, error) {
	p, ok := w.Patient(patientID)
	if !ok {
		return dental.Patient{}, fmt.Errorf("add treatment: %w", ErrPatientNotFound)
	}
	if err := f.Validate(&p, nil); err != nil {
		return dental.Patient{}, err
	}
	t, err := f.Treatment(nil)
	if err != nil {
		return dental.Patient{}, err
	}
	teeth := f.ApplyStatus(p.Teeth)

	done, err := w.begin(ActionSaveTreatment)
	if err != nil {
		return dental.Patient{}, err
	}
	defer done()

	w.logger.Debug().Str("patient_id", patientID).Str("local_id", t.ID).Msg("creating treatment")
	if err := w.gw.CreateTreatment(ctx, patientID, t); err != nil {
		return dental.Patient{}, err
	}
	return w.syncTeeth(ctx, patientID, teeth, "treatment added")
}

// UpdateTreatment edits an existing treatment with the same three-step
// sequence as AddTreatment.
func (w *Workspace) UpdateTreatment(ctx context.Context, patientID, treatmentID string, f dental.TreatmentForm) (dental.Patient, error) {
	p, ok := w.Patient(patientID)
	if !ok {
		return dental.Patient{}, fmt.Errorf("update treatment: %w", ErrPatientNotFound)
	}
	initial, ok := p.Treatment(treatmentID)
	if !ok {
		return dental.Patient{}, fmt.Errorf("update treatment %s: %w", treatmentID, ErrTreatmentNotFound)
	}
	if err := f.Validate(&p, &initial); err != nil {
		return dental.Patient{}, err
	}
	t, err := f.Treatment(&initial)
	if err != nil {
		return dental.Patient{}, err
	}
	teeth := f.ApplyStatus(p.Teeth)

	done, err := w.begin(ActionSaveTreatment)
	if err != nil {
		return dental.Patient{}, err
	}
	defer done()

	if err := w.gw.UpdateTreatment(ctx, t); err != nil {
		return dental.Patient{}, err
	}
	return w.syncTeeth(ctx, patientID, teeth, "treatment updated")
}

// DeleteTreatment removes a treatment and re-reads the patient. Tooth
// statuses set by the treatment stay as they are.
func (w *Workspace) DeleteTreatment(ctx context.Context, patientID, treatmentID string) (dental.Patient, error) {
	p, ok := w.Patient(patientID)
	if !ok {
		return dental.Patient{}, fmt.Errorf("delete treatment: %w", ErrPatientNotFound)
	}
	if _, ok := p.Treatment(treatmentID); !ok {
		return dental.Patient{}, fmt.Errorf("delete treatment %s: %w", treatmentID, ErrTreatmentNotFound)
	}
	done, err := w.begin(ActionDeleteTreatment)
	if err != nil {
		return dental.Patient{}, err
	}
	defer done()

	if err := w.gw.DeleteTreatment(ctx, treatmentID); err != nil {
		return dental.Patient{}, err
	}
	fresh, err := w.gw.GetPatient(ctx, patientID)
	if err != nil {
		return dental.Patient{}, err
	}
	w.replacePatient(fresh)
	w.logger.Info().Str("patient_id", patientID).Str("treatment_id", treatmentID).Msg("treatment deleted")
	return fresh, nil
}

// syncTeeth writes the chart and re-reads the patient.
func (w *Workspace) syncTeeth(ctx context.Context, patientID string, teeth []dental.Tooth, msg string) (dental.Patient, error) {
	if _, err := w.gw.UpdatePatientTeeth(ctx, patientID, teeth); err != nil {
		return dental.Patient{}, err
	}
	fresh, err := w.gw.GetPatient(ctx, patientID)
	if err != nil {
		return dental.Patient{}, err
	}
	w.replacePatient(fresh)
	w.logger.Info().Str("patient_id", patientID).Msg(msg)
	return fresh, nil
}
