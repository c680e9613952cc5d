package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/schemacat/schemacat/internal/client"
	"github.com/schemacat/schemacat/internal/session"
)

var registerName string

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Create an account on the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]

		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return errors.New("passwords do not match")
		}

		ctx := cmd.Context()
		if err := apiClient.Register(ctx, email, registerName, password); err != nil {
			return fmt.Errorf("register: %w", err)
		}

		fmt.Printf("Account created for %s. Run 'schemacat login %s' to sign in.\n", email, email)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in and store the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		email := args[0]

		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		token, err := apiClient.Login(ctx, email, password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}

		sess := session.Session{
			Token:     token,
			Email:     email,
			ServerURL: serverURL,
			CreatedAt: time.Now(),
		}
		if err := sessions.Save(sess); err != nil {
			return fmt.Errorf("save session: %w", err)
		}

		fmt.Printf("Logged in as %s\n", email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sessions.Clear(); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		fmt.Println("Logged out")
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerName, "name", "", "display name for the account")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

// promptPassword reads a password without echoing it.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(password), nil
}

// requireAuth gives a friendly error when a command needs a session and the
// server rejects the credential.
func requireAuth(err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		return errors.New("not logged in (or session expired); run 'schemacat login <email>'")
	}
	return err
}

// commandContext is a convenience for commands that should not hang forever.
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
