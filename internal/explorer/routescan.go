package explorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// LookupClient fetches verified source code from RouteScan's
// Etherscan-compatible API
type LookupClient struct {
	baseURL    string
	network    string
	chainID    int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewLookupClient creates a lookup client for one network and chain
func NewLookupClient(baseURL, network string, chainID int, opts ...Option) *LookupClient {
	httpClient, logger := newHTTPClient("routescan", opts)
	return &LookupClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		network:    network,
		chainID:    chainID,
		httpClient: httpClient,
		logger:     logger,
	}
}

// SourceURL returns the getsourcecode URL for an address
func (c *LookupClient) SourceURL(address string) string {
	return fmt.Sprintf("%s/v2/network/%s/evm/%d/etherscan/contract/getsourcecode?address=%s",
		c.baseURL, url.PathEscape(c.network), c.chainID, url.QueryEscape(address))
}

// GetSourceCode returns the first lookup result for address. A missing or
// empty result array is ErrEmptyResult.
func (c *LookupClient) GetSourceCode(ctx context.Context, address string) (*SourceResult, error) {
	if address == "" {
		return nil, fmt.Errorf("address is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SourceURL(address), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching source code: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("fetching source code: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding lookup response: %w", err)
	}

	var results []json.RawMessage
	if err := json.Unmarshal(env.Result, &results); err != nil || len(results) == 0 {
		// Errors come back as {"status":"0","message":"NOTOK","result":"<reason>"}
		var reason string
		if json.Unmarshal(env.Result, &reason) == nil && reason != "" {
			return nil, fmt.Errorf("%w: %s", ErrEmptyResult, reason)
		}
		return nil, ErrEmptyResult
	}

	element := bytes.TrimSpace(results[0])
	if bytes.Equal(element, []byte("null")) {
		return nil, ErrEmptyResult
	}
	if len(element) == 0 || element[0] != '{' {
		return nil, fmt.Errorf("decoding lookup result: expected an object, got %.32s", element)
	}

	var result SourceResult
	if err := json.Unmarshal(results[0], &result); err != nil {
		return nil, fmt.Errorf("decoding lookup result: %w", err)
	}
	result.Raw = results[0]

	c.logger.Debug("fetched source code",
		"address", address,
		"contract", result.ContractName,
		"compiler", result.CompilerVersion,
		"source_bytes", len(result.SourceCode),
	)

	return &result, nil
}
