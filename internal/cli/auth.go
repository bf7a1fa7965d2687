package cli

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/eshaffer321/tablebook-go/pkg/booking"
)

func (a *app) loginCommand() *cobra.Command {
	var creds booking.Credentials
	var role string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.bookingClient(cmd.Context())
			if err != nil {
				return err
			}

			creds.UserType = booking.UserType(role)
			sess, err := client.Auth.Login(cmd.Context(), &creds)
			if err != nil {
				return err
			}

			a.printer.Success("Signed in as %s (%s)", sess.Email, sess.UserType)
			return nil
		},
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password")
	cmd.Flags().StringVar(&role, "role", string(booking.UserTypeCustomer), "customer or restaurant")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func (a *app) registerCommand() *cobra.Command {
	var params booking.RegisterParams
	var role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Long: `Create an account and sign in.

Customers give --first-name and --surname, restaurants give --name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.bookingClient(cmd.Context())
			if err != nil {
				return err
			}

			params.UserType = booking.UserType(role)
			sess, err := client.Auth.Register(cmd.Context(), &params)
			if err != nil {
				return err
			}

			a.printer.Success("Registered and signed in as %s (%s)", sess.Email, sess.UserType)
			return nil
		},
	}

	cmd.Flags().StringVar(&params.Email, "email", "", "account email")
	cmd.Flags().StringVar(&params.Password, "password", "", "account password")
	cmd.Flags().StringVar(&role, "role", string(booking.UserTypeCustomer), "customer or restaurant")
	cmd.Flags().StringVar(&params.FirstName, "first-name", "", "first name (customers)")
	cmd.Flags().StringVar(&params.Surname, "surname", "", "surname (customers)")
	cmd.Flags().StringVar(&params.Name, "name", "", "restaurant name (restaurants)")

	return cmd
}

func (a *app) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.bookingClient(cmd.Context())
			if err != nil {
				return err
			}

			client.Auth.Logout(cmd.Context())
			a.printer.Success("Signed out")
			return nil
		},
	}
}

func (a *app) whoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.bookingClient(cmd.Context())
			if err != nil {
				return err
			}

			sess := client.Auth.CurrentSession()
			if !sess.Authenticated() {
				a.printer.Warning("Not signed in")
				return nil
			}

			profile, err := client.Auth.Me(cmd.Context())
			switch {
			case err == nil:
			case booking.IsNotFound(err) || booking.StatusCode(err) == http.StatusNotImplemented:
				// Older API versions have no /auth/me
				a.logger.Debug("Profile endpoint unavailable, using stored session", "error", err)
				profile = &booking.Profile{Email: sess.Email, UserType: sess.UserType}
			default:
				return err
			}

			a.printer.Header("Account")
			a.printer.Field("Email", profile.Email)
			a.printer.Field("Role", string(profile.UserType))
			switch {
			case profile.Name != "":
				a.printer.Field("Name", profile.Name)
			case profile.FirstName != "" || profile.Surname != "":
				a.printer.Field("Name", profile.FirstName+" "+profile.Surname)
			}
			if !sess.ExpiresAt.IsZero() {
				a.printer.Field("Token expires", sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}
