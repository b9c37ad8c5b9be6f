package resolver

import (
	"context"
	"errors"
	"log/slog"
)

// DefaultName is used when no other candidate yields a name
const DefaultName = "Contract"

// Candidate is one provider in an ordered name fallback chain
type Candidate struct {
	Source string
	Value  func() string
}

// Choice is the outcome of a fallback chain
type Choice struct {
	Name   string
	Source string
}

// FirstNonEmpty evaluates candidates in order and returns the first non-empty
// value. Later candidates are not evaluated.
func FirstNonEmpty(candidates ...Candidate) (Choice, bool) {
	for _, c := range candidates {
		if v := c.Value(); v != "" {
			return Choice{Name: v, Source: c.Source}, true
		}
	}
	return Choice{}, false
}

// Chain builds the standard fallback chain: resolved identifier, then the
// lookup service's ContractName hint, then DefaultName. Resolution failures
// are logged and skipped.
func (r *Resolver) Chain(source, hint string) []Candidate {
	return []Candidate{
		{
			Source: "resolver",
			Value: func() string {
				name, err := r.Resolve(source, hint)
				if err != nil {
					level := slog.LevelWarn
					if errors.Is(err, ErrNotJSON) {
						// expected for single-file sources
						level = slog.LevelInfo
					}
					r.logger.Log(context.Background(), level, "contract name resolution failed", "strategy", r.strategy, "error", err)
					return ""
				}
				return name
			},
		},
		{Source: "hint", Value: func() string { return hint }},
		{Source: "default", Value: func() string { return DefaultName }},
	}
}

// Name runs the standard fallback chain. It always yields a name.
func (r *Resolver) Name(source, hint string) Choice {
	choice, _ := FirstNonEmpty(r.Chain(source, hint)...)
	return choice
}
