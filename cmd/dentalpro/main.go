package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Multiverse88/Dentalpro/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "dentalpro",
		Short:         "DentalPro clinic client: patients, dental charts and schedule",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if url, _ := cmd.Flags().GetString("api-url"); url != "" {
				cfg.APIBaseURL = url
			}
			*a = *newApp(cfg, out, errOut)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().String("api-url", "", "API base URL (overrides API_BASE_URL)")

	root.AddCommand(
		loginCmd(a),
		registerCmd(a),
		logoutCmd(a),
		whoamiCmd(a),
		patientsCmd(a),
		chartCmd(a),
		treatmentsCmd(a),
		recordsCmd(a),
		dashboardCmd(a),
		calendarCmd(a),
		appointmentsCmd(a),
		queueCmd(a),
		sandboxCmd(a),
	)
	return root
}
