package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/pendergraft/berarelay/internal/explorer"
)

// Credentials stores API keys per verification endpoint
type Credentials struct {
	Verifiers map[string]VerifierCredential `yaml:"verifiers"`
}

// VerifierCredential stores credentials for a single verification endpoint
type VerifierCredential struct {
	APIKey string `yaml:"api_key"`
	Name   string `yaml:"name,omitempty"` // Optional name/description
}

func createAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication commands",
	}

	cmd.AddCommand(createAuthLoginCmd())
	cmd.AddCommand(createAuthLogoutCmd())
	cmd.AddCommand(createAuthStatusCmd())

	return cmd
}

func createAuthLoginCmd() *cobra.Command {
	var verifierFlag string
	var apiKeyFlag string
	var skipCheck bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a BeraScan API key",
		Long: `Save an API key for a verification endpoint.

The API key is stored in ~/.berarelay/credentials with secure file permissions
and used whenever BERASCAN_API_KEY and --api-key are not set.

EXAMPLES:
  # Interactive login (prompts for API key)
  berarelay auth login

  # Login to a specific endpoint
  berarelay auth login --verifier https://api-testnet.berascan.com/api

  # Non-interactive login (for CI)
  berarelay auth login --api-key $BERASCAN_API_KEY
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			verifierURL, err := resolveVerifierURL(cmd, verifierFlag)
			if err != nil {
				return err
			}
			return runAuthLogin(cmd.Context(), cmd.OutOrStdout(), verifierURL, apiKeyFlag, !skipCheck)
		},
	}

	cmd.Flags().StringVar(&verifierFlag, "verifier", "", "verification API URL (default from config)")
	cmd.Flags().StringVar(&apiKeyFlag, "api-key", "", "API key (prompts if not provided)")
	cmd.Flags().BoolVar(&skipCheck, "skip-check", false, "store the key without checking it against the explorer")

	return cmd
}

func createAuthLogoutCmd() *cobra.Command {
	var verifierFlag string
	var allFlag bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Clear credentials",
		Long: `Remove saved credentials for a verification endpoint.

EXAMPLES:
  # Logout from the configured endpoint
  berarelay auth logout

  # Clear all credentials
  berarelay auth logout --all
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if allFlag {
				return runAuthLogout(cmd.OutOrStdout(), "", true)
			}
			verifierURL, err := resolveVerifierURL(cmd, verifierFlag)
			if err != nil {
				return err
			}
			return runAuthLogout(cmd.OutOrStdout(), verifierURL, false)
		},
	}

	cmd.Flags().StringVar(&verifierFlag, "verifier", "", "verification API URL (default from config)")
	cmd.Flags().BoolVar(&allFlag, "all", false, "clear all credentials")

	return cmd
}

func createAuthStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show authentication status",
		Long: `Show stored credentials for all verification endpoints.

EXAMPLES:
  berarelay auth status
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(cmd.OutOrStdout())
		},
	}

	return cmd
}

// resolveVerifierURL returns the flag value or the configured verification URL
func resolveVerifierURL(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	return cfg.Verifier.APIURL, nil
}

func runAuthLogin(ctx context.Context, w io.Writer, verifierURL, apiKeyInput string, check bool) error {
	key := apiKeyInput
	if key == "" {
		fmt.Fprintf(w, "Enter API key for %s: ", verifierURL)

		// Try to read the key without echo
		stdinFd := int(os.Stdin.Fd())
		if term.IsTerminal(stdinFd) {
			byteKey, err := term.ReadPassword(stdinFd)
			fmt.Fprintln(w) // New line after password input
			if err != nil {
				return fmt.Errorf("failed to read API key: %w", err)
			}
			key = string(byteKey)
		} else {
			// Non-terminal, read from stdin
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil && err != io.EOF {
				return fmt.Errorf("failed to read API key: %w", err)
			}
			key = line
		}
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	if check {
		fmt.Fprintf(w, "Validating API key with %s...\n", verifierURL)
		client := explorer.NewVerifyClient(verifierURL, "", explorer.WithTimeout(15*time.Second))
		valid, err := client.CheckAPIKey(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to validate API key: %w", err)
		}
		if !valid {
			return fmt.Errorf("invalid API key")
		}
	}

	if err := saveCredential(verifierURL, key); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	printSuccess(w, "Stored API key for %s (key: %s)", verifierURL, maskAPIKey(key))
	fmt.Fprintf(w, "   Credentials saved to %s\n", credentialsFilePath())

	return nil
}

func runAuthLogout(w io.Writer, verifierURL string, all bool) error {
	if all {
		path := credentialsFilePath()
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove credentials: %w", err)
		}
		printSuccess(w, "All credentials cleared")
		return nil
	}

	creds, err := loadCredentials()
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintf(w, "No credentials found for %s\n", verifierURL)
			return nil
		}
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	if _, exists := creds.Verifiers[verifierURL]; !exists {
		fmt.Fprintf(w, "No credentials found for %s\n", verifierURL)
		return nil
	}

	delete(creds.Verifiers, verifierURL)

	if err := writeCredentials(creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	printSuccess(w, "Logged out from %s", verifierURL)
	return nil
}

func runAuthStatus(w io.Writer) error {
	creds, err := loadCredentials()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	if creds == nil || len(creds.Verifiers) == 0 {
		fmt.Fprintln(w, "No API keys stored")
		fmt.Fprintln(w, "\nRun 'berarelay auth login' to store one")
		return nil
	}

	urls := make([]string, 0, len(creds.Verifiers))
	for u := range creds.Verifiers {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	fmt.Fprintln(w, "Stored API keys:")
	for _, u := range urls {
		cred := creds.Verifiers[u]
		masked := maskAPIKey(cred.APIKey)
		if cred.Name != "" {
			fmt.Fprintf(w, "  • %s (%s, key: %s)\n", u, cred.Name, masked)
		} else {
			fmt.Fprintf(w, "  • %s (key: %s)\n", u, masked)
		}
	}

	return nil
}

// Credential file helpers

func credentialsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".berarelay"
	}
	return filepath.Join(home, ".berarelay")
}

func credentialsFilePath() string {
	return filepath.Join(credentialsDir(), "credentials")
}

func loadCredentials() (*Credentials, error) {
	path := credentialsFilePath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, err
	}

	if creds.Verifiers == nil {
		creds.Verifiers = make(map[string]VerifierCredential)
	}

	return &creds, nil
}

func writeCredentials(creds *Credentials) error {
	dir := credentialsDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}

	path := credentialsFilePath()
	return os.WriteFile(path, data, 0600) // Secure permissions
}

func saveCredential(verifierURL, key string) error {
	creds, err := loadCredentials()
	if err != nil {
		if os.IsNotExist(err) {
			creds = &Credentials{Verifiers: make(map[string]VerifierCredential)}
		} else {
			return err
		}
	}

	creds.Verifiers[verifierURL] = VerifierCredential{APIKey: key}
	return writeCredentials(creds)
}

func getCredential(verifierURL string) string {
	creds, err := loadCredentials()
	if err != nil {
		return ""
	}
	if cred, ok := creds.Verifiers[verifierURL]; ok {
		return cred.APIKey
	}
	return ""
}
