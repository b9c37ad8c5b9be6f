package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pendergraft/berarelay/internal/config"
	"github.com/pendergraft/berarelay/internal/storage"
)

// historyEntry is the JSON form of a stored submission
type historyEntry struct {
	ID              string    `json:"id"`
	RunID           string    `json:"run_id"`
	Address         string    `json:"address"`
	ChainID         int       `json:"chain_id"`
	ContractName    string    `json:"contract_name"`
	NameSource      string    `json:"name_source,omitempty"`
	CompilerVersion string    `json:"compiler_version,omitempty"`
	Status          string    `json:"status"`
	Message         string    `json:"message,omitempty"`
	Result          string    `json:"result,omitempty"`
	Accepted        bool      `json:"accepted"`
	CreatedAt       time.Time `json:"created_at"`
}

func createHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Submission history commands",
	}

	cmd.AddCommand(createHistoryListCmd())
	cmd.AddCommand(createHistoryShowCmd())

	return cmd
}

func createHistoryListCmd() *cobra.Command {
	var address string
	var chainID int
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded submissions",
		Long: `List verification submissions recorded by previous runs, newest first.

Requires a history store (HISTORY_STORE=sqlite or postgres).

EXAMPLES:
  berarelay history list
  berarelay history list --address 0x6969696969696969696969696969696969696969
  berarelay history list --limit 5 --json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			filter := storage.SubmissionFilter{Address: address, ChainID: chainID}
			return runHistoryList(cmd.Context(), cmd.OutOrStdout(), cfg, filter, limit, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "only show submissions for this address")
	cmd.Flags().IntVar(&chainID, "chain-id", 0, "only show submissions for this chain")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of submissions")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runHistoryList(ctx context.Context, w io.Writer, cfg *config.Config, filter storage.SubmissionFilter, limit int, jsonOutput bool) error {
	store, err := storage.Open(ctx, cfg.History, setupLogger(config.LoggingConfig{Level: "error"}, io.Discard))
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer store.Close()

	result, err := store.ListSubmissions(ctx, filter, storage.PaginationParams{Limit: limit})
	if err != nil {
		if errors.Is(err, storage.ErrDisabled) {
			fmt.Fprintln(w, "Submission history is disabled")
			fmt.Fprintln(w, "\nSet HISTORY_STORE=sqlite (or postgres with DATABASE_URL) to record submissions")
			return nil
		}
		return fmt.Errorf("listing submissions: %w", err)
	}

	if jsonOutput {
		entries := make([]historyEntry, 0, len(result.Data))
		for _, s := range result.Data {
			entries = append(entries, toHistoryEntry(s))
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(result.Data) == 0 {
		fmt.Fprintln(w, "No submissions recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tADDRESS\tCHAIN\tCONTRACT\tSTATUS\tRESULT")
	for _, s := range result.Data {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			s.ID,
			s.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			truncateAddress(s.Address),
			s.ChainID,
			s.ContractName,
			outcome(s.Accepted),
			s.Result,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if result.HasMore {
		fmt.Fprintf(w, "\n(showing %d most recent, use --limit for more)\n", len(result.Data))
	}
	return nil
}

func createHistoryShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded submission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runHistoryShow(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runHistoryShow(ctx context.Context, w io.Writer, cfg *config.Config, id string, jsonOutput bool) error {
	store, err := storage.Open(ctx, cfg.History, setupLogger(config.LoggingConfig{Level: "error"}, io.Discard))
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer store.Close()

	s, err := store.GetSubmission(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrDisabled):
			fmt.Fprintln(w, "Submission history is disabled")
			return nil
		case errors.Is(err, storage.ErrNotFound):
			return fmt.Errorf("submission %s not found", id)
		}
		return fmt.Errorf("getting submission: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toHistoryEntry(*s))
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", s.ID)
	fmt.Fprintf(tw, "Run\t%s\n", s.RunID)
	fmt.Fprintf(tw, "Created\t%s\n", s.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(tw, "Address\t%s\n", s.Address)
	fmt.Fprintf(tw, "Chain\t%d\n", s.ChainID)
	fmt.Fprintf(tw, "Contract\t%s (from %s)\n", s.ContractName, s.NameSource)
	fmt.Fprintf(tw, "Compiler\t%s\n", s.CompilerVersion)
	fmt.Fprintf(tw, "Outcome\t%s\n", outcome(s.Accepted))
	fmt.Fprintf(tw, "Response\t%s %s %s\n", s.Status, s.Message, s.Result)
	return tw.Flush()
}

func outcome(accepted bool) string {
	if accepted {
		return "accepted"
	}
	return "rejected"
}

func toHistoryEntry(s storage.Submission) historyEntry {
	return historyEntry{
		ID:              s.ID,
		RunID:           s.RunID,
		Address:         s.Address,
		ChainID:         s.ChainID,
		ContractName:    s.ContractName,
		NameSource:      s.NameSource,
		CompilerVersion: s.CompilerVersion,
		Status:          s.Status,
		Message:         s.Message,
		Result:          s.Result,
		Accepted:        s.Accepted,
		CreatedAt:       s.CreatedAt,
	}
}
