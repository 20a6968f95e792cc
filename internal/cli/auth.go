package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk/pkg/helpdesk"
)

func (a *app) loginCmd() *cobra.Command {
	var email, password, role string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			var res *helpdesk.LoginResult
			if role != "" {
				res, err = a.client.LoginAs(cmd.Context(), helpdesk.Role(role), email, pw)
			} else {
				res, err = a.client.Login(cmd.Context(), email, pw)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Logged in as %s (%s)\n", res.Name, res.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password (HELPDESK_PASSWORD, or read from stdin)")
	cmd.Flags().StringVar(&role, "as", "", "dashboard to enter: admin, agent or customer")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the token and clear the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account behind the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.client.Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s <%s> (%s)\n", user.Name, user.Email, user.Role)
			return nil
		},
	}
}

func (a *app) registerCmd() *cobra.Command {
	var reg helpdesk.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a customer account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pw, err := readPassword(cmd, reg.Password)
			if err != nil {
				return err
			}
			reg.Password = pw
			user, err := a.client.RegisterCustomer(cmd.Context(), reg)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Registered %s <%s>; log in with `helpdesk login --email %s`\n", user.Name, user.Email, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&reg.Name, "name", "", "display name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "account email")
	cmd.Flags().StringVar(&reg.Password, "password", "", "password (HELPDESK_PASSWORD, or read from stdin)")
	return cmd
}

// readPassword takes the flag, then HELPDESK_PASSWORD, then one line of stdin.
func readPassword(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if env := os.Getenv("HELPDESK_PASSWORD"); env != "" {
		return env, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", &helpdesk.ValidationError{Field: "password", Reason: "required"}
	}
	return strings.TrimRight(line, "\r\n"), nil
}
