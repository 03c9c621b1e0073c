package calendar

import (
	"sort"
	"time"

	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
)

// DayKey returns the YYYY-MM-DD key for a stored date. Timestamps are keyed by
// their calendar day in loc; bare dates are already a calendar day.
func DayKey(date string, loc *time.Location) (string, bool) {
	if len(date) == len(KeyLayout) {
		if _, err := time.Parse(KeyLayout, date); err == nil {
			return date, true
		}
		return "", false
	}
	t, err := time.Parse(time.RFC3339Nano, date)
	if err != nil {
		return "", false
	}
	return t.In(loc).Format(KeyLayout), true
}

// GroupTreatmentsByDate indexes treatments by calendar day in loc. Each day's
// entries are ascending by date; treatments with an unreadable date are left out.
func GroupTreatmentsByDate(treatments []dental.Treatment, loc *time.Location) map[string][]dental.Treatment {
	sorted := make([]dental.Treatment, len(treatments))
	copy(sorted, treatments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return before(sorted[i].Date, sorted[j].Date)
	})

	byDay := make(map[string][]dental.Treatment)
	for _, t := range sorted {
		key, ok := DayKey(t.Date, loc)
		if !ok {
			continue
		}
		byDay[key] = append(byDay[key], t)
	}
	return byDay
}

// Entries is GroupTreatmentsByDate across all patients, keeping who each
// treatment belongs to.
func Entries(patients []dental.Patient, loc *time.Location) map[string][]dental.PatientTreatment {
	var all []dental.PatientTreatment
	for _, p := range patients {
		for _, t := range p.Treatments {
			all = append(all, dental.PatientTreatment{Treatment: t, PatientID: p.ID, PatientName: p.Name})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return before(all[i].Date, all[j].Date)
	})

	byDay := make(map[string][]dental.PatientTreatment)
	for _, e := range all {
		key, ok := DayKey(e.Date, loc)
		if !ok {
			continue
		}
		byDay[key] = append(byDay[key], e)
	}
	return byDay
}

func before(a, b string) bool {
	ta, aok := dental.Treatment{Date: a}.When()
	tb, bok := dental.Treatment{Date: b}.When()
	if !aok || !bok {
		return aok && !bok
	}
	return ta.Before(tb)
}
