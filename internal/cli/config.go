package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pendergraft/berarelay/internal/config"
)

const configTemplate = `# berarelay project configuration
# Environment variables and command line flags override these values.

chain_id = %d
work_dir = "%s"

# Contract name strategy: "by-hint" matches the explorer's ContractName
# against source paths, "first-key" takes the first source file.
strategy = "%s"

# Exit non-zero when BeraScan rejects a submission
strict = false

[lookup]
base_url = "%s"
network = "%s"

[verifier]
api_url = "%s"
site_url = "%s"
# The API key is read from BERASCAN_API_KEY or 'berarelay auth login',
# never from this file.

[http]
timeout = %d
rate_limit = %.1f

[logging]
level = "info"
format = "text"

[history]
# "none", "sqlite" or "postgres" (postgres reads DATABASE_URL)
type = "none"
sqlite_path = "%s"

# [metrics]
# textfile = "/var/lib/node_exporter/textfile/berarelay.prom"
`

func createConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd())
	cmd.AddCommand(createConfigShowCmd())

	return cmd
}

func createConfigInitCmd() *cobra.Command {
	var chainID int
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create config file",
		Long: `Create a berarelay.toml configuration file in the current directory.

EXAMPLES:
  # Create config for Berachain mainnet
  berarelay config init

  # Create config for another chain
  berarelay config init --chain-id 80069

  # Overwrite existing config
  berarelay config init --force
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd.OutOrStdout(), chainID, force)
		},
	}

	cmd.Flags().IntVar(&chainID, "chain-id", 80094, "chain ID to look up sources on")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")

	return cmd
}

func createConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current config",
		Long: `Display the effective configuration and where each value came from.

Sources, in order of precedence: command line flags, environment
(including .env), stored credentials, project file, defaults.

EXAMPLES:
  berarelay config show
  berarelay --config ./ci.toml config show
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runConfigShow(cmd.OutOrStdout(), cfg)
		},
	}

	return cmd
}

func runConfigInit(w io.Writer, chainID int, force bool) error {
	configPath := config.ProjectFiles[0]

	// Check if any config file already exists
	for _, name := range config.ProjectFiles {
		if _, err := os.Stat(name); err == nil && !force {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", name)
		}
	}

	d := config.Default()
	content := fmt.Sprintf(configTemplate,
		chainID,
		d.Work.Dir,
		d.Resolve.Strategy,
		d.Lookup.BaseURL,
		d.Lookup.Network,
		d.Verifier.APIURL,
		d.Verifier.SiteURL,
		d.HTTP.Timeout,
		d.HTTP.RateLimit,
		d.History.SQLitePath,
	)

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(w, "Created %s\n", configPath)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintf(w, "  1. Edit %s to customize settings\n", configPath)
	fmt.Fprintln(w, "  2. Run 'berarelay auth login' to store your BeraScan API key")
	fmt.Fprintln(w, "  3. Run 'berarelay <contract-address>' to relay a contract")

	return nil
}

func runConfigShow(w io.Writer, cfg *config.Config) error {
	key := "(not set)"
	if cfg.Verifier.APIKey != "" {
		key = maskAPIKey(cfg.Verifier.APIKey)
	}

	postgres := "(not set)"
	if cfg.History.PostgresURL != "" {
		postgres = "(set)"
	}

	rows := []struct {
		key   string
		value string
	}{
		{"lookup.base_url", cfg.Lookup.BaseURL},
		{"lookup.network", cfg.Lookup.Network},
		{"chain_id", fmt.Sprint(cfg.Lookup.ChainID)},
		{"verifier.api_url", cfg.Verifier.APIURL},
		{"verifier.site_url", cfg.Verifier.SiteURL},
		{"verifier.api_key", key},
		{"strict", fmt.Sprint(cfg.Verifier.Strict)},
		{"work_dir", cfg.Work.Dir},
		{"strategy", cfg.Resolve.Strategy},
		{"http.timeout", fmt.Sprintf("%ds", cfg.HTTP.Timeout)},
		{"http.rate_limit", fmt.Sprintf("%g/s", cfg.HTTP.RateLimit)},
		{"logging.level", cfg.Logging.Level},
		{"logging.format", cfg.Logging.Format},
		{"history.type", cfg.History.Type},
		{"history.sqlite_path", cfg.History.SQLitePath},
		{"history.postgres_url", postgres},
		{"metrics.textfile", cfg.Metrics.TextfilePath},
	}

	fmt.Fprintln(w, "Effective configuration:")
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
	for _, r := range rows {
		value := r.value
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.key, value, cfg.SourceOf(r.key))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Credentials file: %s\n", credentialsFilePath())
	return nil
}
