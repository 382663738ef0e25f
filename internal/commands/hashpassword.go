package commands

import (
	"bufio"
	"fmt"
	"os"
	"syscall"

	"github.com/klabast/wb-services/daily-tracker/internal/app"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newHashPasswordCommand(rt *runtime) *cobra.Command {
	var (
		overwrite      bool
		insecureUnmask bool
	)

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Create the auth file protecting the API (Argon2id)",
		Long: "Creates an auth.secret file with a hashed password (Argon2id).\n\n" +
			"Environment Variables:\n" +
			"  AUTH_FILE    Path to auth file (default: auth.secret next to the binary)",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			fmt.Fprint(out, "Enter username: ")
			var username string
			if _, err := fmt.Fscanln(cmd.InOrStdin(), &username); err != nil {
				return fmt.Errorf("error reading username: %w", err)
			}
			if username == "" {
				return fmt.Errorf("username cannot be empty")
			}

			var password, passwordConfirm string
			if insecureUnmask {
				fmt.Fprintln(cmd.ErrOrStderr(), "⚠️  WARNING: Password will be visible on screen!")
				fmt.Fprint(out, "Enter password:   ")
				if _, err := fmt.Fscanln(cmd.InOrStdin(), &password); err != nil {
					return fmt.Errorf("error reading password: %w", err)
				}
				fmt.Fprint(out, "Confirm password: ")
				if _, err := fmt.Fscanln(cmd.InOrStdin(), &passwordConfirm); err != nil {
					return fmt.Errorf("error reading password confirmation: %w", err)
				}
			} else {
				password = readPasswordWithMask("Enter password:   ")
				passwordConfirm = readPasswordWithMask("Confirm password: ")
			}

			if password == "" {
				return fmt.Errorf("password cannot be empty")
			}
			if password != passwordConfirm {
				return fmt.Errorf("passwords do not match")
			}

			authFile, err := app.ResolveAuthFile(rt.cfg.AuthFile)
			if err != nil {
				return err
			}
			return app.CreateAuthFile(authFile, username, password, overwrite, cmd.InOrStdin(), out)
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing auth file without asking")
	cmd.Flags().BoolVar(&insecureUnmask, "insecure-unmask-password", false, "Show password as plain text (INSECURE!)")
	return cmd
}

// readPasswordWithMask reads password input and displays asterisks
func readPasswordWithMask(prompt string) string {
	fmt.Print(prompt)

	fd := int(syscall.Stdin)
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		// Fallback to hidden input if we can't set raw mode
		password, _ := term.ReadPassword(fd)
		fmt.Println()
		return string(password)
	}
	defer term.Restore(fd, oldState)

	var password []byte
	reader := bufio.NewReader(os.Stdin)

	for {
		char, _, err := reader.ReadRune()
		if err != nil {
			break
		}

		switch char {
		case '\n', '\r': // Enter key
			fmt.Print("\r\n")
			return string(password)
		case 127, 8: // Backspace or Delete
			if len(password) > 0 {
				password = password[:len(password)-1]
				// Clear the asterisk: backspace, space, backspace
				fmt.Print("\b \b")
			}
		case 3: // Ctrl+C
			term.Restore(fd, oldState)
			fmt.Println()
			os.Exit(1)
		default:
			// Only accept printable characters
			if char >= 32 && char <= 126 {
				password = append(password, byte(char))
				fmt.Print("*")
			}
		}
	}

	fmt.Println()
	return string(password)
}
