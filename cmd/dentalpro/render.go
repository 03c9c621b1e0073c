package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/Multiverse88/Dentalpro/internal/clinic"
	"github.com/Multiverse88/Dentalpro/internal/domain/calendar"
	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	return t
}

func ageText(dob string, now time.Time) string {
	if age, ok := dental.Age(dob, now); ok {
		return strconv.Itoa(age)
	}
	return "-"
}

func costText(c *float64) string {
	if c == nil {
		return "-"
	}
	return "Rp " + strconv.FormatFloat(*c, 'f', 0, 64)
}

func dateText(s string) string {
	if i := strings.IndexByte(s, 'T'); i >= 0 {
		return s[:i]
	}
	return s
}

func toothList(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func renderPatients(w io.Writer, patients []dental.Patient, now time.Time) {
	t := newTable(w, "ID", "Name", "Age", "Gender", "Contact", "Address", "Treatments")
	for _, p := range patients {
		t.Append([]string{
			p.ID, p.Name, ageText(p.DateOfBirth, now), p.Gender.Label(), p.Contact, p.Address,
			strconv.Itoa(len(p.Treatments)),
		})
	}
	t.Render()
}

func renderPatient(w io.Writer, p dental.Patient, now time.Time) {
	fmt.Fprintf(w, "%s (%s)\n", p.Name, p.ID)
	fmt.Fprintf(w, "  Born     %s (age %s)\n", p.DateOfBirth, ageText(p.DateOfBirth, now))
	fmt.Fprintf(w, "  Gender   %s\n", p.Gender.Label())
	fmt.Fprintf(w, "  Contact  %s\n", p.Contact)
	if p.Address != "" {
		fmt.Fprintf(w, "  Address  %s\n", p.Address)
	}
	fmt.Fprintln(w)
	renderTreatments(w, p.Treatments)
}

func renderTreatments(w io.Writer, treatments []dental.Treatment) {
	t := newTable(w, "ID", "Date", "Teeth", "Procedure", "Cost", "Dentist", "Notes")
	for _, tr := range treatments {
		t.Append([]string{
			tr.ID, dateText(tr.Date), toothList(tr.ToothIDs), tr.Procedure, costText(tr.Cost), tr.PerformedBy, tr.Notes,
		})
	}
	t.Render()
}

// statusMark is the one-letter code shown in the chart grid.
var statusMark = map[dental.ToothStatus]string{
	dental.StatusHealthy:   ".",
	dental.StatusDecay:     "D",
	dental.StatusFilled:    "F",
	dental.StatusExtracted: "X",
	dental.StatusRootCanal: "R",
	dental.StatusCrown:     "C",
	dental.StatusMissing:   "-",
}

// renderChart draws the two arches as the upper row 1-16 over the lower row
// 32-17, so each column holds opposing teeth.
func renderChart(w io.Writer, p dental.Patient) {
	upper, lower := dental.PartitionChart(p.Teeth)
	for i, j := 0, len(lower)-1; i < j; i, j = i+1, j-1 {
		lower[i], lower[j] = lower[j], lower[i]
	}

	row := func(teeth []dental.Tooth) (ids, marks []string) {
		for _, t := range teeth {
			ids = append(ids, strconv.Itoa(t.ID))
			m := statusMark[t.Status]
			if m == "" {
				m = "?"
			}
			marks = append(marks, m)
		}
		return ids, marks
	}

	t := tablewriter.NewWriter(w)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_CENTER)
	upIDs, upMarks := row(upper)
	loIDs, loMarks := row(lower)
	t.Append(upIDs)
	t.Append(upMarks)
	t.Append(loMarks)
	t.Append(loIDs)
	t.Render()

	counts := dental.StatusCounts(p.Teeth)
	var legend []string
	for _, s := range dental.AllStatuses {
		legend = append(legend, fmt.Sprintf("%s %s: %d", statusMark[s], s.Label(), counts[s]))
	}
	fmt.Fprintln(w, strings.Join(legend, "  "))
	if missing := dental.MissingTeeth(p.Teeth); len(missing) > 0 {
		fmt.Fprintf(w, "Chart incomplete, no entry for teeth %s\n", toothList(missing))
	}
}

// renderToothHistory lists what was done to one tooth.
func renderToothHistory(w io.Writer, p dental.Patient, toothID int) {
	tooth, ok := p.Tooth(toothID)
	if !ok {
		fmt.Fprintf(w, "Tooth %d is not on the chart\n", toothID)
		return
	}
	fmt.Fprintf(w, "Tooth %d, %s: %s\n", tooth.ID, tooth.Name, tooth.Status.Label())
	renderTreatments(w, dental.TreatmentsForTooth(p.Treatments, toothID))
}

func renderRecords(w io.Writer, recs []dental.DentalRecord) {
	t := newTable(w, "ID", "Date", "Tooth", "Type", "Description")
	for _, r := range recs {
		t.Append([]string{r.ID, r.TreatmentDate, strconv.Itoa(r.ToothNumber), r.TreatmentType, r.Description})
	}
	t.Render()
}

func renderAppointments(w io.Writer, appts []calendar.Appointment) {
	t := newTable(w, "ID", "Date", "Time", "Patient", "Status", "Notes")
	for _, a := range appts {
		t.Append([]string{a.ID.String(), a.Date, a.Time, a.PatientName, string(a.Status), a.Notes})
	}
	t.Render()
}

func renderQueue(w io.Writer, q []calendar.QueueEntry) {
	t := newTable(w, "ID", "No", "Patient", "Status", "Since")
	for _, e := range q {
		t.Append([]string{e.ID.String(), strconv.Itoa(e.Number), e.PatientName, string(e.Status), e.CreatedAt})
	}
	t.Render()
}

func renderDashboard(w io.Writer, d clinic.Dashboard) {
	fmt.Fprintf(w, "Patients:   %d\n", d.Patients)
	fmt.Fprintf(w, "Treatments: %d\n\n", d.Treatments)
	t := newTable(w, "Date", "Patient", "Teeth", "Procedure")
	for _, pt := range d.Latest {
		t.Append([]string{dateText(pt.Date), pt.PatientName, toothList(pt.ToothIDs), pt.Procedure})
	}
	t.Render()
}

// renderMonth draws the grid with a treatment count per day, "*" marking
// today, then lists the month's treatments.
func renderMonth(w io.Writer, m clinic.Month) {
	fmt.Fprintln(w, m.Title)
	t := tablewriter.NewWriter(w)
	t.SetHeader(calendar.WeekdayLabels[:])
	t.SetAutoWrapText(false)
	for _, week := range m.Weeks {
		row := make([]string, len(week))
		for i, c := range week {
			if c.Empty() {
				continue
			}
			cell := strconv.Itoa(c.Day)
			if n := len(m.Entries[c.Key()]); n > 0 {
				cell += fmt.Sprintf(" (%d)", n)
			}
			if c.Key() == m.Today {
				cell += "*"
			}
			row[i] = cell
		}
		t.Append(row)
	}
	t.Render()

	list := newTable(w, "Date", "Patient", "Teeth", "Procedure")
	for _, week := range m.Weeks {
		for _, c := range week {
			for _, pt := range m.Entries[c.Key()] {
				list.Append([]string{c.Key(), pt.PatientName, toothList(pt.ToothIDs), pt.Procedure})
			}
		}
	}
	list.Render()
}
