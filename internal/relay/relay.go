// Package relay runs the fetch, normalize, resolve and submit pipeline that
// copies a contract's verified source from one explorer to another.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pendergraft/berarelay/internal/explorer"
	"github.com/pendergraft/berarelay/internal/observability/metrics"
	"github.com/pendergraft/berarelay/internal/resolver"
	"github.com/pendergraft/berarelay/internal/source"
	"github.com/pendergraft/berarelay/internal/storage"
	"github.com/pendergraft/berarelay/internal/validation"
	"github.com/pendergraft/berarelay/internal/workspace"
)

// SourceFetcher defines the lookup operation the pipeline needs
type SourceFetcher interface {
	GetSourceCode(ctx context.Context, address string) (*explorer.SourceResult, error)
}

// Submitter defines the verification operations the pipeline needs
type Submitter interface {
	Submit(ctx context.Context, vr explorer.VerifyRequest) (*explorer.SubmitResponse, error)
	StatusURL(guid string) string
	CodeURL(address string) string
}

// HistoryRecorder persists submissions. storage.NoopStore satisfies it when
// history is disabled.
type HistoryRecorder interface {
	RecordSubmission(ctx context.Context, s *storage.Submission) error
}

// Options are the per-run settings that are not dependencies
type Options struct {
	APIKey  string
	ChainID int
	// Strict turns a business-level rejection into explorer.ErrRejected
	Strict bool
}

// Result describes a completed run
type Result struct {
	RunID        string
	Address      string
	Path         string
	ContractName string
	NameSource   string
	Response     *explorer.SubmitResponse
	// StatusURL is set only when the submission was accepted
	StatusURL string
	CodeURL   string
}

// Pipeline wires the four steps together. It is safe to reuse across runs
// but runs are not meant to overlap on the same workspace.
type Pipeline struct {
	fetcher   SourceFetcher
	submitter Submitter
	workspace *workspace.Workspace
	resolver  *resolver.Resolver
	history   HistoryRecorder
	opts      Options
	logger    *slog.Logger
}

// New creates a pipeline. A nil history disables recording.
func New(fetcher SourceFetcher, submitter Submitter, ws *workspace.Workspace, res *resolver.Resolver, history HistoryRecorder, opts Options, logger *slog.Logger) *Pipeline {
	if history == nil {
		history = storage.NoopStore{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher:   fetcher,
		submitter: submitter,
		workspace: ws,
		resolver:  res,
		history:   history,
		opts:      opts,
		logger:    logger,
	}
}

// Run relays one contract. Steps run strictly in order and the first failure
// aborts the run. Under Options.Strict a rejected submission returns the
// populated Result together with an error wrapping explorer.ErrRejected.
func (p *Pipeline) Run(ctx context.Context, address string) (*Result, error) {
	res := &Result{
		RunID:   uuid.New().String(),
		Address: address,
	}
	logger := p.logger.With("run_id", res.RunID, "address", address)

	if err := validation.ValidateAddress(address); err != nil {
		// The address is passed through verbatim; explorers decide what they accept.
		logger.Warn("address does not look like an EVM address", "error", err)
	}

	lookup, err := p.fetch(ctx, logger, res, address)
	if err != nil {
		metrics.RunFinished("failed")
		return nil, err
	}

	normalized, err := p.normalize(logger, res, address, lookup)
	if err != nil {
		metrics.RunFinished("failed")
		return nil, err
	}

	p.resolve(logger, res, normalized, lookup.ContractName)

	if err := p.submit(ctx, logger, res, address, normalized, lookup); err != nil {
		metrics.RunFinished("failed")
		return nil, err
	}

	if !res.Response.Accepted() {
		metrics.RunFinished("rejected")
		if p.opts.Strict {
			return res, fmt.Errorf("%w: %s", explorer.ErrRejected, rejectionReason(res.Response))
		}
		return res, nil
	}

	metrics.RunFinished("accepted")
	return res, nil
}

func (p *Pipeline) fetch(ctx context.Context, logger *slog.Logger, res *Result, address string) (*explorer.SourceResult, error) {
	defer observeStep("fetch", time.Now())

	lookup, err := p.fetcher.GetSourceCode(ctx, address)
	if err != nil {
		if errors.Is(err, explorer.ErrEmptyResult) {
			return nil, fmt.Errorf("no verified source for %s: %w", address, err)
		}
		return nil, fmt.Errorf("fetching source for %s: %w", address, err)
	}

	if err := p.workspace.Ensure(); err != nil {
		return nil, err
	}
	path, err := p.workspace.WriteMetadata(address, lookup.Raw)
	if err != nil {
		return nil, err
	}
	res.Path = path

	if lookup.CompilerVersion != "" {
		if err := validation.ValidateCompilerVersion(lookup.CompilerVersion); err != nil {
			logger.Warn("unexpected compiler version", "error", err)
		} else if validation.IsNightly(lookup.CompilerVersion) {
			logger.Warn("source was compiled with a nightly compiler", "compiler", lookup.CompilerVersion)
		}
	}

	logger.Info("fetched source",
		"work_dir", p.workspace.Dir(),
		"path", path,
		"contract", lookup.ContractName,
		"compiler", lookup.CompilerVersion,
		"compiler_release", validation.CompilerRelease(lookup.CompilerVersion),
	)
	return lookup, nil
}

func (p *Pipeline) normalize(logger *slog.Logger, res *Result, address string, lookup *explorer.SourceResult) (string, error) {
	defer observeStep("normalize", time.Now())

	normalized := source.Normalize(lookup.SourceCode)
	path, err := p.workspace.WriteSource(address, normalized)
	if err != nil {
		return "", err
	}
	res.Path = path

	logger.Info("normalized source",
		"path", path,
		"unwrapped", source.IsWrapped(lookup.SourceCode),
		"bytes", len(normalized),
	)
	return normalized, nil
}

func (p *Pipeline) resolve(logger *slog.Logger, res *Result, normalized, hint string) {
	defer observeStep("resolve", time.Now())

	choice := p.resolver.Name(normalized, hint)
	res.ContractName = choice.Name
	res.NameSource = choice.Source
	metrics.NameResolved(string(p.resolver.Strategy()), choice.Source)

	logger.Info("resolved contract name", "name", choice.Name, "source", choice.Source)
}

func (p *Pipeline) submit(ctx context.Context, logger *slog.Logger, res *Result, address, normalized string, lookup *explorer.SourceResult) error {
	defer observeStep("submit", time.Now())

	args := source.ConstructorArgs(lookup.ConstructorArguments)
	if args != "" {
		logger.Debug("constructor arguments", "args", args)
	}

	resp, err := p.submitter.Submit(ctx, explorer.VerifyRequest{
		APIKey:               p.opts.APIKey,
		ContractAddress:      address,
		ContractName:         res.ContractName,
		CompilerVersion:      lookup.CompilerVersion,
		OptimizationUsed:     lookup.OptimizationUsed.String(),
		Runs:                 lookup.Runs.String(),
		ConstructorArguments: args,
		SourceCode:           normalized,
		EVMVersion:           lookup.EVMVersion,
	})
	if err != nil {
		return err
	}
	res.Response = resp
	res.CodeURL = p.submitter.CodeURL(address)
	metrics.VerificationSubmitted(statusLabel(resp.Status))

	logger.Info("verification response", "body", string(resp.Body))

	if resp.Accepted() {
		res.StatusURL = p.submitter.StatusURL(resp.Result)
		logger.Info("verification submitted", "guid", resp.Result, "status_url", res.StatusURL)
	} else {
		logger.Warn("verification rejected",
			"status", resp.Status,
			"message", resp.Message,
			"result", resp.Result,
		)
	}

	p.record(ctx, logger, res, lookup)
	return nil
}

// record stores the submission. History is best effort and never fails a run.
func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, res *Result, lookup *explorer.SourceResult) {
	sub := &storage.Submission{
		RunID:           res.RunID,
		Address:         res.Address,
		ChainID:         p.opts.ChainID,
		ContractName:    res.ContractName,
		NameSource:      res.NameSource,
		CompilerVersion: lookup.CompilerVersion,
		Status:          res.Response.Status,
		Message:         res.Response.Message,
		Result:          res.Response.Result,
		Accepted:        res.Response.Accepted(),
	}
	if err := p.history.RecordSubmission(ctx, sub); err != nil {
		logger.Warn("failed to record submission history", "error", err)
	}
}

func rejectionReason(resp *explorer.SubmitResponse) string {
	switch {
	case resp.Result != "":
		return resp.Result
	case resp.Message != "":
		return resp.Message
	default:
		return string(resp.Body)
	}
}

func statusLabel(status string) string {
	if status == "" {
		return "unknown"
	}
	return status
}

func observeStep(step string, start time.Time) {
	metrics.StepDuration(step, time.Since(start))
}
