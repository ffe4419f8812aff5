package main

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/TheMichaelB/nextsync/internal/creds"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store WebDAV credentials for future sync operations",
	Long: `Login writes a credentials file consulted on every engine start.
The file is created with owner-only permissions.`,
	Example: `  nextsync login --username alice
  nextsync login --username alice --password-stdin < secret.txt`,
	RunE: runLogin,
}

var (
	loginUsername      string
	loginPasswordStdin bool
)

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "",
		"WebDAV username (required)")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false,
		"Read the password from stdin instead of prompting")

	_ = loginCmd.MarkFlagRequired("username")
}

func runLogin(cmd *cobra.Command, args []string) error {
	var (
		password string
		err      error
	)

	if loginPasswordStdin {
		var buf [512]byte
		n, readErr := os.Stdin.Read(buf[:])
		if readErr != nil && n == 0 {
			return fmt.Errorf("read password from stdin: %w", readErr)
		}
		password = trimNewline(string(buf[:n]))
	} else {
		password, err = promptPassword("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
	}

	path := cfg.Remote.CredentialsFile
	if path == "" {
		path = filepath.Join(cfg.Storage.DataDir, "credentials.json")
	}

	if err := creds.SaveToFile(path, &creds.Credentials{
		Username: loginUsername,
		Password: password,
	}); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success":  true,
			"username": loginUsername,
			"path":     creds.ExpandPath(path),
		})
	} else {
		printSuccess("Credentials saved for %s", loginUsername)
	}

	return nil
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	// Read password without echo.
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)

	if err != nil {
		return "", err
	}
	return string(password), nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
