package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/educloud/educloud-cli/internal/session"
)

// minPasswordLen matches the registration rule enforced client-side.
const minPasswordLen = 6

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	Password string
	Tenant   string
	Remember bool
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in and cache the session locally",
		Long: `Sign in against the auth service and cache the session token.

Without --remember the session lives only as long as the terminal session;
with it the session survives across terminals until logout.

Example:
  educloud login maria --remember`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Password, "password", "", "password (read from stdin if omitted)")
	cmd.Flags().StringVar(&opts.Tenant, "tenant", "", "tenant id (defaults to config)")
	cmd.Flags().BoolVar(&opts.Remember, "remember", false, "keep the session across terminal sessions")

	return cmd
}

func runLogin(opts *LoginOptions, username string, cmd *cobra.Command) error {
	app, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer app.Close()

	tenant := opts.Tenant
	if tenant == "" {
		tenant = app.Config.TenantID
	}
	if tenant == "" {
		return NewExitError(ExitCommandError, "tenant id required: pass --tenant or set tenant_id in config")
	}

	password := opts.Password
	if password == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		password, err = readLine(cmd)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read password", err)
		}
	}

	token, err := app.API.Login(cmd.Context(), tenant, username, password)
	if err != nil {
		return apiExitError("sign-in failed", err)
	}

	sess := session.Session{Token: token, Username: username, TenantID: tenant}
	if err := app.Sessions.Login(sess, opts.Remember); err != nil {
		return WrapExitError(ExitCommandError, "failed to cache session", err)
	}

	f := newFormatter(opts.RootOptions, cmd)
	if f.JSON() {
		return f.Success(map[string]any{"username": username, "tenant_id": tenant, "remembered": opts.Remember})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", username)
	return nil
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "logout",
		Short:         "Clear the cached session",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Sessions.Logout(); err != nil {
				return WrapExitError(ExitCommandError, "failed to clear session", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
	return cmd
}

// RegisterOptions holds flags for the register command.
type RegisterOptions struct {
	*RootOptions
	Password string
	Confirm  string
	Tenant   string
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegisterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "register <username>",
		Short:         "Create an account on the auth service",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Password, "password", "", "password (min 6 characters)")
	cmd.Flags().StringVar(&opts.Confirm, "confirm", "", "password confirmation")
	cmd.Flags().StringVar(&opts.Tenant, "tenant", "", "tenant id (defaults to config)")

	return cmd
}

func runRegister(opts *RegisterOptions, username string, cmd *cobra.Command) error {
	app, err := openApp(opts.RootOptions)
	if err != nil {
		return err
	}
	defer app.Close()

	tenant := opts.Tenant
	if tenant == "" {
		tenant = app.Config.TenantID
	}

	// Local validation before any network call, mirroring the signup form.
	switch {
	case tenant == "":
		return NewExitError(ExitCommandError, "tenant id required: pass --tenant or set tenant_id in config")
	case strings.TrimSpace(username) == "":
		return NewExitError(ExitCommandError, "username required")
	case len(opts.Password) < minPasswordLen:
		return NewExitError(ExitCommandError, fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	case opts.Password != opts.Confirm:
		return NewExitError(ExitCommandError, "passwords do not match")
	}

	if err := app.API.Register(cmd.Context(), tenant, username, opts.Password); err != nil {
		return apiExitError("registration failed", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Account %s created. Sign in with: educloud login %s\n", username, username)
	return nil
}

// NewWhoamiCommand reports the cached session, if any.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "whoami",
		Short:         "Show the cached session identity",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(rootOpts)
			if err != nil {
				return err
			}
			defer app.Close()

			user, ok := app.Sessions.User()
			if !ok {
				return NewExitError(ExitCommandError, "not signed in")
			}

			f := newFormatter(rootOpts, cmd)
			if f.JSON() {
				return f.Success(map[string]any{
					"username":  user.Username,
					"tenant_id": user.TenantID,
					"expired":   app.Sessions.TokenExpired(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (tenant %s)\n", user.Username, user.TenantID)
			if app.Sessions.TokenExpired() {
				fmt.Fprintln(cmd.OutOrStdout(), "Session token has expired; sign in again.")
			}
			return nil
		},
	}
	return cmd
}

func readLine(cmd *cobra.Command) (string, error) {
	r := bufio.NewReader(cmd.InOrStdin())
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
