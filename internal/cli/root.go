package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pendergraft/berarelay/internal/config"
)

var (
	cfgFile   string
	apiKey    string
	workDir   string
	strategy  string
	strict    bool
	logLevel  string
	logFormat string
)

// errMissingAddress is returned when the root command runs without an address
var errMissingAddress = errors.New("missing contract address")

// Execute runs the CLI
func Execute(ctx context.Context, version string) error {
	return newRootCmd(version).ExecuteContext(ctx)
}

func newRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "berarelay <contract-address>",
		Short: "Re-verify a contract's source on BeraScan",
		Long: `berarelay fetches the verified source of a contract from RouteScan and
submits it for verification to BeraScan.

The lookup result is saved to <work-dir>/<address>.json and then replaced by
the normalized source that is submitted.

EXAMPLES:
  # Relay a contract using defaults (./bera, chain 80094)
  berarelay 0x6969696969696969696969696969696969696969

  # Pick the first source file instead of matching the contract name
  berarelay --strategy first-key 0x6969696969696969696969696969696969696969

  # Fail when BeraScan rejects the submission
  berarelay --strict 0x6969696969696969696969696969696969696969
`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
				return errMissingAddress
			}
			return runRelay(cmd, args[0])
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: berarelay.toml or .berarelay.toml)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "BeraScan API key")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")

	// Relay flags
	rootCmd.Flags().StringVar(&workDir, "work-dir", "", "directory for per-address files (default ./bera)")
	rootCmd.Flags().StringVar(&strategy, "strategy", "", "contract name strategy: by-hint or first-key")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when BeraScan rejects the submission")

	// Add subcommands
	rootCmd.AddCommand(createConfigCmd())
	rootCmd.AddCommand(createAuthCmd())
	rootCmd.AddCommand(createHistoryCmd())

	return rootCmd
}

// loadConfig builds the effective configuration: defaults, project file,
// .env and environment, then command line flags. A stored credential fills
// in the API key when none of those set it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cfg.Override("verifier.api_key", &cfg.Verifier.APIKey, apiKey)
	cfg.Override("work_dir", &cfg.Work.Dir, workDir)
	cfg.Override("strategy", &cfg.Resolve.Strategy, strategy)
	cfg.Override("logging.level", &cfg.Logging.Level, logLevel)
	cfg.Override("logging.format", &cfg.Logging.Format, logFormat)
	if f := cmd.Flags().Lookup("strict"); f != nil && f.Changed {
		cfg.OverrideBool("strict", &cfg.Verifier.Strict, strict)
	}

	if cfg.Verifier.APIKey == "" {
		if key := getCredential(cfg.Verifier.APIURL); key != "" {
			cfg.Verifier.APIKey = key
			cfg.Sources["verifier.api_key"] = "credentials"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
