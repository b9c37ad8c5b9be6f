package cli

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/pendergraft/berarelay/internal/config"
	"github.com/pendergraft/berarelay/internal/explorer"
	"github.com/pendergraft/berarelay/internal/observability/metrics"
	"github.com/pendergraft/berarelay/internal/relay"
	"github.com/pendergraft/berarelay/internal/resolver"
	"github.com/pendergraft/berarelay/internal/storage"
	"github.com/pendergraft/berarelay/internal/workspace"
)

func runRelay(cmd *cobra.Command, address string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging, cmd.ErrOrStderr())
	if cfg.Verifier.APIKey == "" {
		logger.Warn("no BeraScan API key configured; the submission will most likely be rejected")
	}

	metrics.Init(cfg.Metrics.TextfilePath != "")
	defer func() {
		if err := metrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
			logger.Warn("failed to write metrics", "error", err)
		}
	}()

	history, err := storage.Open(ctx, cfg.History, logger)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer history.Close()

	pipeline, err := newPipeline(cfg, history, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "🔍 Fetching source for %s on chain %d...\n", address, cfg.Lookup.ChainID)

	res, err := pipeline.Run(ctx, address)
	if res != nil {
		printResult(out, res)
	}
	return err
}

// newPipeline wires the explorer clients, workspace and resolver described
// by cfg. Both clients share one rate limiter.
func newPipeline(cfg *config.Config, history relay.HistoryRecorder, logger *slog.Logger) (*relay.Pipeline, error) {
	strat, err := resolver.ParseStrategy(cfg.Resolve.Strategy)
	if err != nil {
		return nil, err
	}

	opts := []explorer.Option{
		explorer.WithLimiter(explorer.NewLimiter(cfg.HTTP.RateLimit)),
		explorer.WithLogger(logger),
		explorer.WithTimeout(time.Duration(cfg.HTTP.Timeout) * time.Second),
	}
	lookup := explorer.NewLookupClient(cfg.Lookup.BaseURL, cfg.Lookup.Network, cfg.Lookup.ChainID, opts...)
	verify := explorer.NewVerifyClient(cfg.Verifier.APIURL, cfg.Verifier.SiteURL, opts...)

	return relay.New(
		lookup,
		verify,
		workspace.New(cfg.Work.Dir),
		resolver.New(strat, logger),
		history,
		relay.Options{
			APIKey:  cfg.Verifier.APIKey,
			ChainID: cfg.Lookup.ChainID,
			Strict:  cfg.Verifier.Strict,
		},
		logger,
	), nil
}

func printResult(w io.Writer, res *relay.Result) {
	fmt.Fprintf(w, "📄 Source written to %s\n", res.Path)
	fmt.Fprintf(w, "📛 Contract name: %s (from %s)\n", res.ContractName, res.NameSource)

	if res.Response == nil {
		return
	}
	fmt.Fprintf(w, "Verification response: %s\n", res.Response.Body)

	if res.Response.Accepted() {
		printSuccess(w, "Verification submitted (GUID: %s)", res.Response.Result)
		fmt.Fprintf(w, "   Check status: %s\n", res.StatusURL)
	} else {
		printWarning(w, "Verification not accepted: %s", describeRejection(res.Response))
	}
	fmt.Fprintf(w, "View verification at: %s\n", res.CodeURL)
}

func describeRejection(resp *explorer.SubmitResponse) string {
	switch {
	case resp.Message != "" && resp.Result != "":
		return resp.Message + ": " + resp.Result
	case resp.Result != "":
		return resp.Result
	case resp.Message != "":
		return resp.Message
	default:
		return "unexpected response"
	}
}
