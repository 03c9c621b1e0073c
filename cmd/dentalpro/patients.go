package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Multiverse88/Dentalpro/internal/clinic"
	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
)

// parseToothIDs accepts a comma-separated list of tooth numbers and ranges,
// e.g. "3,14,17-19".
func parseToothIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("invalid tooth number %q", part)
		}
		to := from
		if isRange {
			if to, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || to < from {
				return nil, fmt.Errorf("invalid tooth range %q", part)
			}
		}
		for id := from; id <= to; id++ {
			if !dental.ValidToothID(id) {
				return nil, fmt.Errorf("tooth %d is outside 1-%d", id, dental.ToothCount)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no teeth given")
	}
	return ids, nil
}

func parseStatus(s string) (dental.ToothStatus, error) {
	if s == "" {
		return "", nil
	}
	for _, st := range dental.AllStatuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown tooth status %q", s)
}

func parseGender(s string) dental.Gender {
	for _, g := range []dental.Gender{dental.GenderMale, dental.GenderFemale, dental.GenderOther} {
		if strings.EqualFold(s, string(g)) {
			return g
		}
	}
	return dental.Gender(s)
}

// patient looks a patient up in the loaded list.
func patient(ws *clinic.Workspace, id string) (dental.Patient, error) {
	p, ok := ws.Patient(id)
	if !ok {
		return dental.Patient{}, fmt.Errorf("%w: %s", clinic.ErrPatientNotFound, id)
	}
	return p, nil
}

func patientsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "patients",
		Aliases: []string{"p"},
		Short:   "List and manage patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			c := dental.Criteria{}
			c.Name, _ = flags.GetString("name")
			c.Location, _ = flags.GetString("location")
			minAge, _ := flags.GetString("min-age")
			maxAge, _ := flags.GetString("max-age")
			if c.MinAge, err = dental.ParseAgeBound(minAge); err != nil {
				return fmt.Errorf("--min-age: %w", err)
			}
			if c.MaxAge, err = dental.ParseAgeBound(maxAge); err != nil {
				return fmt.Errorf("--max-age: %w", err)
			}
			if c.IsZero() {
				ws.ResetCriteria()
			} else {
				ws.SetCriteria(c)
			}

			query, _ := flags.GetString("search")
			gender, _ := flags.GetString("gender")
			sortKey, _ := flags.GetString("sort")
			key := dental.SortKey(sortKey)
			if !key.Valid() {
				return fmt.Errorf("--sort must be one of %s, %s, %s, %s",
					dental.SortNameAsc, dental.SortNameDesc, dental.SortAgeAsc, dental.SortAgeDesc)
			}

			list := ws.ListView(query, gender, key)
			renderPatients(a.out, list, ws.Now())
			fmt.Fprintf(a.out, "%d of %d patients\n", len(list), len(ws.Patients()))
			return nil
		},
	}
	f := cmd.Flags()
	f.String("search", "", "match name, contact or age")
	f.String("gender", dental.GenderAll, "male, female, other or all")
	f.String("sort", string(dental.SortNameAsc), "name-asc, name-desc, age-asc or age-desc")
	f.String("name", "", "name contains")
	f.String("location", "", "address contains")
	f.String("min-age", "", "minimum age")
	f.String("max-age", "", "maximum age")

	cmd.AddCommand(patientShowCmd(a), patientAddCmd(a), patientDeleteCmd(a))
	return cmd
}

func patientShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <patient-id>",
		Short: "Show a patient with their treatment history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			p, err := patient(ws, args[0])
			if err != nil {
				return err
			}
			renderPatient(a.out, p, ws.Now())
			return nil
		},
	}
}

func patientAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			f := dental.PatientForm{}
			f.Name, _ = flags.GetString("name")
			f.DateOfBirth, _ = flags.GetString("dob")
			gender, _ := flags.GetString("gender")
			f.Gender = parseGender(gender)
			f.Contact, _ = flags.GetString("contact")
			f.Address, _ = flags.GetString("address")

			p, err := ws.AddPatient(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added %s (%s), contact %s\n", p.Name, p.ID, p.Contact)
			return nil
		},
	}
	f := cmd.Flags()
	f.String("name", "", "full name")
	f.String("dob", "", "date of birth, YYYY-MM-DD")
	f.String("gender", "", "male, female or other")
	f.String("contact", "", "phone number")
	f.String("address", "", "address")
	return cmd
}

func patientDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <patient-id>",
		Short: "Delete a patient and their history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := ws.DeletePatient(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted patient %s\n", args[0])
			return nil
		},
	}
}

func chartCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart <patient-id>",
		Short: "Show a patient's dental chart",
		Long:  "Show a patient's dental chart. Tooth statuses change only through treatments add|edit --status.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			p, err := patient(ws, args[0])
			if err != nil {
				return err
			}

			tooth, _ := cmd.Flags().GetInt("tooth")

			fmt.Fprintf(a.out, "%s (%s)\n", p.Name, p.ID)
			renderChart(a.out, p)
			if tooth != 0 {
				fmt.Fprintln(a.out)
				renderToothHistory(a.out, p, tooth)
			}
			return nil
		},
	}
	cmd.Flags().Int("tooth", 0, "also list treatments for this tooth")
	return cmd
}
