package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Multiverse88/Dentalpro/internal/domain/calendar"
)

func dashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show clinic totals and the latest treatments",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			renderDashboard(a.out, ws.Dashboard())
			return nil
		},
	}
}

// parseMonth reads YYYY-MM, defaulting to the month of now.
func parseMonth(s string, now time.Time) (int, time.Month, error) {
	if s == "" {
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("--month must be YYYY-MM, got %q", s)
	}
	return t.Year(), t.Month(), nil
}

func calendarCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show treatments on a month calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			m, _ := flags.GetString("month")
			year, month, err := parseMonth(m, ws.Now())
			if err != nil {
				return err
			}
			if prev, _ := flags.GetBool("prev"); prev {
				year, month = calendar.PrevMonth(year, month)
			}
			if next, _ := flags.GetBool("next"); next {
				year, month = calendar.NextMonth(year, month)
			}
			renderMonth(a.out, ws.CalendarMonth(year, month))
			return nil
		},
	}
	f := cmd.Flags()
	f.String("month", "", "month to show, YYYY-MM (default current)")
	f.Bool("prev", false, "show the month before")
	f.Bool("next", false, "show the month after")
	cmd.MarkFlagsMutuallyExclusive("prev", "next")
	return cmd
}

// -- Appointments --

func appointmentFlags(f *pflag.FlagSet) {
	f.String("patient", "", "patient id")
	f.String("date", "", "date, YYYY-MM-DD")
	f.String("time", "", "time, HH:MM")
	f.String("notes", "", "notes")
	f.String("status", "", "pending, confirmed, completed or cancelled")
}

func applyAppointmentFlags(f *pflag.FlagSet, form *calendar.AppointmentForm) {
	if f.Changed("patient") {
		form.PatientID, _ = f.GetString("patient")
		form.PatientName = ""
	}
	if f.Changed("date") {
		form.Date, _ = f.GetString("date")
	}
	if f.Changed("time") {
		form.Time, _ = f.GetString("time")
	}
	if f.Changed("notes") {
		form.Notes, _ = f.GetString("notes")
	}
	if f.Changed("status") {
		s, _ := f.GetString("status")
		form.Status = calendar.AppointmentStatus(s)
	}
}

func appointmentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "appointments",
		Aliases: []string{"appt"},
		Short:   "List and manage appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			appts, err := ws.LoadAppointments(cmd.Context())
			if err != nil {
				return err
			}
			if date, _ := cmd.Flags().GetString("date"); date != "" {
				appts = calendar.AppointmentsByDate(appts)[date]
			}
			renderAppointments(a.out, appts)
			return nil
		},
	}
	cmd.Flags().String("date", "", "only this day, YYYY-MM-DD")

	add := &cobra.Command{
		Use:   "add",
		Short: "Book an appointment",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			form := calendar.AppointmentForm{}
			applyAppointmentFlags(cmd.Flags(), &form)
			appts, err := ws.AddAppointment(cmd.Context(), form)
			if err != nil {
				return err
			}
			renderAppointments(a.out, appts)
			return nil
		},
	}
	appointmentFlags(add.Flags())

	update := &cobra.Command{
		Use:   "update <appointment-id>",
		Short: "Change an appointment; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			appts, err := ws.LoadAppointments(cmd.Context())
			if err != nil {
				return err
			}
			id := calendar.FlexID(args[0])
			var cur *calendar.Appointment
			for i := range appts {
				if appts[i].ID == id {
					cur = &appts[i]
					break
				}
			}
			if cur == nil {
				return fmt.Errorf("appointment %s not found", id)
			}
			form := calendar.AppointmentForm{
				PatientID:   cur.PatientID,
				PatientName: cur.PatientName,
				Date:        cur.Date,
				Time:        cur.Time,
				Notes:       cur.Notes,
				Status:      cur.Status,
			}
			applyAppointmentFlags(cmd.Flags(), &form)
			if appts, err = ws.UpdateAppointment(cmd.Context(), id, form); err != nil {
				return err
			}
			renderAppointments(a.out, appts)
			return nil
		},
	}
	appointmentFlags(update.Flags())

	del := &cobra.Command{
		Use:   "delete <appointment-id>",
		Short: "Cancel and remove an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			appts, err := ws.DeleteAppointment(cmd.Context(), calendar.FlexID(args[0]))
			if err != nil {
				return err
			}
			renderAppointments(a.out, appts)
			return nil
		},
	}

	cmd.AddCommand(add, update, del)
	return cmd
}

// -- Queue --

func queueCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "queue",
		Aliases: []string{"q"},
		Short:   "Show and manage the waiting-room queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			q, err := ws.LoadQueue(cmd.Context())
			if err != nil {
				return err
			}
			renderQueue(a.out, q)
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <patient-id>",
		Short: "Put a patient in the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			q, err := ws.Enqueue(cmd.Context(), calendar.QueueForm{PatientID: args[0], Status: calendar.QueueWaiting})
			if err != nil {
				return err
			}
			renderQueue(a.out, q)
			return nil
		},
	}

	update := &cobra.Command{
		Use:   "update <entry-id> <waiting|in_progress|done>",
		Short: "Move a queue entry to another status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			q, err := ws.LoadQueue(cmd.Context())
			if err != nil {
				return err
			}
			id := calendar.FlexID(args[0])
			var cur *calendar.QueueEntry
			for i := range q {
				if q[i].ID == id {
					cur = &q[i]
					break
				}
			}
			if cur == nil {
				return fmt.Errorf("queue entry %s not found", id)
			}
			form := calendar.QueueForm{
				PatientID:   cur.PatientID,
				PatientName: cur.PatientName,
				Status:      calendar.QueueStatus(args[1]),
			}
			if q, err = ws.UpdateQueueEntry(cmd.Context(), id, form); err != nil {
				return err
			}
			renderQueue(a.out, q)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <entry-id>",
		Short: "Remove a queue entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			q, err := ws.DeleteQueueEntry(cmd.Context(), calendar.FlexID(args[0]))
			if err != nil {
				return err
			}
			renderQueue(a.out, q)
			return nil
		},
	}

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Keep the queue on screen, redrawn on every change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.loggedIn(cmd.Context())
			if err != nil {
				return err
			}
			return ws.WatchQueue(cmd.Context(), func(q []calendar.QueueEntry) {
				fmt.Fprintf(a.out, "Antrian %s\n", ws.Now().Format("15:04:05"))
				renderQueue(a.out, q)
			})
		},
	}

	cmd.AddCommand(add, update, del, watch)
	return cmd
}
