// Package resolver derives the "path:Name" contract identifier that
// verification APIs need to pick the target contract out of a multi-file
// standard JSON input.
package resolver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/samber/lo"
)

// Strategy selects which source file key identifies the main contract.
type Strategy string

const (
	// ByHint picks the first source key containing the hint as a substring.
	ByHint Strategy = "by-hint"
	// FirstKey picks the first source key in document order and ignores the
	// hint. It assumes the lookup service lists the main contract first.
	FirstKey Strategy = "first-key"
)

// Resolution errors. None of them abort a run; callers fall back to other
// name candidates.
var (
	ErrNotJSON   = errors.New("source is not a JSON object")
	ErrNoSources = errors.New("source has no sources mapping")
	ErrNotFound  = errors.New("contract name not found in sources")
)

// ParseStrategy parses a strategy name
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case ByHint, FirstKey:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown strategy %q (want %s or %s)", s, ByHint, FirstKey)
	}
}

// Resolver resolves contract identifiers with a fixed strategy
type Resolver struct {
	strategy Strategy
	logger   *slog.Logger
}

// New creates a resolver
func New(strategy Strategy, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{strategy: strategy, logger: logger}
}

// Strategy returns the configured strategy
func (r *Resolver) Strategy() Strategy {
	return r.strategy
}

// standardInput is the subset of standard JSON input the resolver reads
type standardInput struct {
	Sources      json.RawMessage `json:"sources"`
	ContractName string          `json:"ContractName"`
}

// Resolve returns "key:ContractName" for the selected source key.
func (r *Resolver) Resolve(source, hint string) (string, error) {
	var input standardInput
	if err := json.Unmarshal([]byte(source), &input); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotJSON, err)
	}

	keys, err := objectKeys(input.Sources)
	if err != nil {
		return "", err
	}

	key, err := r.selectKey(keys, hint)
	if err != nil {
		return "", err
	}

	name := lo.CoalesceOrEmpty(input.ContractName, nameFromPath(key))
	r.logger.Debug("resolved contract name",
		"strategy", r.strategy,
		"key", key,
		"name", name,
		"candidates", len(keys),
	)
	return key + ":" + name, nil
}

func (r *Resolver) selectKey(keys []string, hint string) (string, error) {
	switch r.strategy {
	case FirstKey:
		return keys[0], nil
	case ByHint:
		key, ok := lo.Find(keys, func(k string) bool {
			return strings.Contains(k, hint)
		})
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrNotFound, hint)
		}
		return key, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", r.strategy)
	}
}

// objectKeys returns the keys of a JSON object in document order.
// encoding/json maps do not keep insertion order, so the object is walked
// token by token.
func objectKeys(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, ErrNoSources
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSources, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: sources is not an object", ErrNoSources)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoSources, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected token %v", ErrNoSources, tok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoSources, err)
		}
		keys = append(keys, key)
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: sources is empty", ErrNoSources)
	}
	return keys, nil
}

// nameFromPath takes the last path segment and drops its extension:
// "contracts/token/Foo.sol" -> "Foo".
func nameFromPath(key string) string {
	base := key
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[:i]
	}
	return base
}
