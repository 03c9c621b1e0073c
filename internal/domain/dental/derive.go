package dental

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Age returns whole years between dob and asOf. The second result is false
// when dob is empty or does not parse. A bare YYYY-MM-DD is read as a calendar
// date; a full timestamp is first moved into asOf's location.
func Age(dob string, asOf time.Time) (int, bool) {
	birth, ok := parseDate(dob)
	if !ok {
		return 0, false
	}
	if len(dob) > len(DateLayout) {
		birth = birth.In(asOf.Location())
	}
	age := asOf.Year() - birth.Year()
	if asOf.Month() < birth.Month() || (asOf.Month() == birth.Month() && asOf.Day() < birth.Day()) {
		age--
	}
	return age, true
}

// -- Filtering --

// Criteria narrows the patient list. Zero values match everything; age bounds
// are inclusive and only applied when set.
type Criteria struct {
	Name     string
	Location string
	MinAge   *int
	MaxAge   *int
}

// IsZero reports whether no filter is set.
func (c Criteria) IsZero() bool {
	return c.Name == "" && c.Location == "" && c.MinAge == nil && c.MaxAge == nil
}

// ParseAgeBound reads an age bound typed into a filter box. Blank means unset.
func ParseAgeBound(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, Invalid("age", fmt.Sprintf("%q is not a whole number", s))
	}
	return &n, nil
}

// FilterPatients keeps the patients matching c, preserving input order. A
// patient whose age cannot be computed fails any set age bound.
func FilterPatients(patients []Patient, c Criteria, asOf time.Time) []Patient {
	name := strings.ToLower(c.Name)
	location := strings.ToLower(c.Location)
	out := make([]Patient, 0, len(patients))
	for _, p := range patients {
		if !strings.Contains(strings.ToLower(p.Name), name) {
			continue
		}
		if !strings.Contains(strings.ToLower(p.Address), location) {
			continue
		}
		if c.MinAge != nil || c.MaxAge != nil {
			age, ok := Age(p.DateOfBirth, asOf)
			if !ok {
				continue
			}
			if c.MinAge != nil && age < *c.MinAge {
				continue
			}
			if c.MaxAge != nil && age > *c.MaxAge {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// GenderAll disables the gender filter of SearchPatients.
const GenderAll = "all"

// SearchPatients is the patient list search box: gender narrows first, then
// query matches name, address or contact by substring, or the exact age.
func SearchPatients(patients []Patient, query, gender string, asOf time.Time) []Patient {
	q := strings.ToLower(strings.TrimSpace(query))
	gender = strings.ToLower(gender)
	out := make([]Patient, 0, len(patients))
	for _, p := range patients {
		if gender != "" && gender != GenderAll && strings.ToLower(string(p.Gender)) != gender {
			continue
		}
		if q != "" && !matchesQuery(p, q, asOf) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesQuery(p Patient, q string, asOf time.Time) bool {
	if strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Address), q) ||
		strings.Contains(strings.ToLower(p.Contact), q) {
		return true
	}
	age, ok := Age(p.DateOfBirth, asOf)
	return ok && strconv.Itoa(age) == q
}

// -- Sorting --

type SortKey string

const (
	SortNameAsc  SortKey = "name-asc"
	SortNameDesc SortKey = "name-desc"
	SortAgeAsc   SortKey = "age-asc"
	SortAgeDesc  SortKey = "age-desc"
)

// Valid reports whether k is one of the four list orderings.
func (k SortKey) Valid() bool {
	switch k {
	case SortNameAsc, SortNameDesc, SortAgeAsc, SortAgeDesc:
		return true
	}
	return false
}

// SortPatients returns a sorted copy. Names compare through a collator for
// locale; an unknown age sorts as 0. Ties keep their input order.
func SortPatients(patients []Patient, key SortKey, asOf time.Time, locale language.Tag) []Patient {
	out := make([]Patient, len(patients))
	copy(out, patients)

	switch key {
	case SortNameAsc, SortNameDesc:
		col := collate.New(locale)
		sort.SliceStable(out, func(i, j int) bool {
			if key == SortNameDesc {
				return col.CompareString(out[j].Name, out[i].Name) < 0
			}
			return col.CompareString(out[i].Name, out[j].Name) < 0
		})
	case SortAgeAsc, SortAgeDesc:
		type aged struct {
			p   Patient
			age int
		}
		rows := make([]aged, len(out))
		for i, p := range out {
			age, _ := Age(p.DateOfBirth, asOf)
			rows[i] = aged{p: p, age: age}
		}
		sort.SliceStable(rows, func(i, j int) bool {
			if key == SortAgeDesc {
				return rows[j].age < rows[i].age
			}
			return rows[i].age < rows[j].age
		})
		for i := range rows {
			out[i] = rows[i].p
		}
	}
	return out
}

// -- Dashboard --

// TreatmentCount is the number of treatments across all patients.
func TreatmentCount(patients []Patient) int {
	n := 0
	for _, p := range patients {
		n += len(p.Treatments)
	}
	return n
}

// LatestTreatments returns up to n treatments across all patients, newest
// first. Treatments with an unreadable date come last.
func LatestTreatments(patients []Patient, n int) []PatientTreatment {
	var all []PatientTreatment
	for _, p := range patients {
		for _, t := range p.Treatments {
			all = append(all, PatientTreatment{Treatment: t, PatientID: p.ID, PatientName: p.Name})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		ti, iok := all[i].When()
		tj, jok := all[j].When()
		if iok != jok {
			return iok
		}
		return ti.After(tj)
	})
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}
