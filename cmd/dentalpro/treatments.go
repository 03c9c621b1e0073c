package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Multiverse88/Dentalpro/internal/clinic"
	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
)

func treatmentFlags(f *pflag.FlagSet) {
	f.String("date", "", "treatment date, YYYY-MM-DD (default today)")
	f.String("teeth", "", "treated teeth, e.g. 3,14,17-19")
	f.String("procedure", "", "procedure performed")
	f.String("notes", "", "notes")
	f.Float64("cost", 0, "cost in rupiah")
	f.String("dentist", "", "performed by")
	f.String("status", "", "set the treated teeth to this status")
}

// applyTreatmentFlags overwrites the form with every flag the user set.
func applyTreatmentFlags(f *pflag.FlagSet, form *dental.TreatmentForm) error {
	if f.Changed("date") {
		form.Date, _ = f.GetString("date")
	}
	if f.Changed("teeth") {
		s, _ := f.GetString("teeth")
		ids, err := parseToothIDs(s)
		if err != nil {
			return fmt.Errorf("--teeth: %w", err)
		}
		form.ToothIDs = ids
	}
	if f.Changed("procedure") {
		form.Procedure, _ = f.GetString("procedure")
	}
	if f.Changed("notes") {
		form.Notes, _ = f.GetString("notes")
	}
	if f.Changed("cost") {
		c, _ := f.GetFloat64("cost")
		form.Cost = &c
	}
	if f.Changed("dentist") {
		form.PerformedBy, _ = f.GetString("dentist")
	}
	s, _ := f.GetString("status")
	status, err := parseStatus(s)
	if err != nil {
		return err
	}
	form.NewStatus = status
	return nil
}

func treatmentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "treatments",
		Aliases: []string{"t"},
		Short:   "Record and edit treatments",
	}
	cmd.AddCommand(treatmentAddCmd(a), treatmentEditCmd(a), treatmentDeleteCmd(a))
	return cmd
}

func treatmentAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <patient-id>",
		Short: "Record a treatment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			form := dental.TreatmentForm{Date: ws.Now().Format(dental.DateLayout)}
			if err := applyTreatmentFlags(cmd.Flags(), &form); err != nil {
				return err
			}
			p, err := ws.AddTreatment(cmd.Context(), args[0], form)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Recorded %s on teeth %s for %s\n", form.Procedure, toothList(form.ToothIDs), p.Name)
			renderChart(a.out, p)
			return nil
		},
	}
	treatmentFlags(cmd.Flags())
	return cmd
}

func treatmentEditCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <patient-id> <treatment-id>",
		Short: "Edit a treatment; unset flags keep their value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			p, err := patient(ws, args[0])
			if err != nil {
				return err
			}
			t, ok := p.Treatment(args[1])
			if !ok {
				return fmt.Errorf("%w: %s", clinic.ErrTreatmentNotFound, args[1])
			}
			form := dental.FormFromTreatment(t)
			if err := applyTreatmentFlags(cmd.Flags(), &form); err != nil {
				return err
			}
			if p, err = ws.UpdateTreatment(cmd.Context(), p.ID, t.ID, form); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Updated treatment %s\n", t.ID)
			renderTreatments(a.out, p.Treatments)
			return nil
		},
	}
	treatmentFlags(cmd.Flags())
	return cmd
}

func treatmentDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <patient-id> <treatment-id>",
		Short: "Delete a treatment; the chart keeps its statuses",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			p, err := ws.DeleteTreatment(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted treatment %s\n", args[1])
			renderTreatments(a.out, p.Treatments)
			return nil
		},
	}
}

func recordsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records <patient-id>",
		Short: "List a patient's dental records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			recs, err := ws.LoadRecords(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderRecords(a.out, recs)
			return nil
		},
	}
	cmd.AddCommand(recordAddCmd(a))
	return cmd
}

func recordAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <patient-id>",
		Short: "Add a dental record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			f := dental.RecordForm{}
			f.ToothNumber, _ = flags.GetInt("tooth")
			f.TreatmentDate, _ = flags.GetString("date")
			if f.TreatmentDate == "" {
				f.TreatmentDate = ws.Now().Format(dental.DateLayout)
			}
			f.TreatmentType, _ = flags.GetString("type")
			f.Description, _ = flags.GetString("description")

			recs, err := ws.AddRecord(cmd.Context(), args[0], f)
			if err != nil {
				return err
			}
			renderRecords(a.out, recs)
			return nil
		},
	}
	f := cmd.Flags()
	f.Int("tooth", 0, "tooth number")
	f.String("date", "", "treatment date, YYYY-MM-DD (default today)")
	f.String("type", "", "treatment type")
	f.String("description", "", "description")
	return cmd
}
