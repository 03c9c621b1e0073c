package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Multiverse88/Dentalpro/internal/domain/dental"
)

// readSecret reads one line of stdin when the flag was left empty.
func (a *app) readSecret(cmd *cobra.Command, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	if a.in == nil {
		a.in = bufio.NewReader(cmd.InOrStdin())
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func loginCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			password, err := a.readSecret(cmd, password, "Password: ")
			if err != nil {
				return err
			}

			ws, err := a.workspace(cmd.Context())
			if err != nil {
				return err
			}
			u, err := ws.Login(cmd.Context(), dental.LoginForm{Email: email, Password: password})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s <%s>\n", u.Name, u.Email)
			if err := ws.PatientsError(); err != nil {
				fmt.Fprintf(a.out, "Patient list could not be loaded: %v\n", err)
				return nil
			}
			fmt.Fprintf(a.out, "%d patients loaded\n", len(ws.Patients()))
			return nil
		},
	}
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "password (prompted when empty)")
	return cmd
}

func registerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an operator account",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := dental.RegisterForm{}
			f.Name, _ = cmd.Flags().GetString("name")
			f.Email, _ = cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			confirm, _ := cmd.Flags().GetString("confirm")

			var err error
			if f.Password, err = a.readSecret(cmd, password, "Password: "); err != nil {
				return err
			}
			if f.ConfirmPassword, err = a.readSecret(cmd, confirm, "Confirm password: "); err != nil {
				return err
			}

			ws, err := a.workspace(cmd.Context())
			if err != nil {
				return err
			}
			u, err := ws.Register(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Registered %s <%s>. Log in with `dentalpro login --email %s`.\n", u.Name, u.Email, u.Email)
			return nil
		},
	}
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "password (prompted when empty)")
	cmd.Flags().String("confirm", "", "password confirmation (prompted when empty)")
	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.workspace(cmd.Context())
			if err != nil {
				return err
			}
			if err := ws.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in operator",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := a.workspace(cmd.Context())
			if err != nil {
				return err
			}
			u, ok := ws.Start(cmd.Context())
			if !ok {
				return errNotLoggedIn
			}
			fmt.Fprintf(a.out, "%s <%s>\n", u.Name, u.Email)
			return nil
		},
	}
}
