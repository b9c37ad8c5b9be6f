package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// VerifyClient submits source code to BeraScan's Etherscan-compatible
// verification endpoint
type VerifyClient struct {
	apiURL     string
	siteURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewVerifyClient creates a verification client. siteURL is the explorer's
// web front end, used only to build links.
func NewVerifyClient(apiURL, siteURL string, opts ...Option) *VerifyClient {
	httpClient, logger := newHTTPClient("berascan", opts)
	return &VerifyClient{
		apiURL:     apiURL,
		siteURL:    strings.TrimRight(siteURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Submit posts a verifysourcecode request. Only transport failures and
// non-2xx responses are errors; a business-level rejection comes back as a
// response whose Accepted() is false.
func (c *VerifyClient) Submit(ctx context.Context, vr VerifyRequest) (*SubmitResponse, error) {
	form := vr.Form()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submitting verification: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("submitting verification: %w", err)
	}

	out := &SubmitResponse{Body: body}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		// Not an envelope; the caller still sees the raw body.
		c.logger.Warn("verification response is not JSON", "error", err)
		return out, nil
	}
	out.Status = env.Status.String()
	out.Message = env.Message
	if err := json.Unmarshal(env.Result, &out.Result); err != nil {
		out.Result = string(env.Result)
	}

	return out, nil
}

// StatusURL returns the checkverifystatus URL for a submission GUID. The
// API key is left out so the URL is safe to print.
func (c *VerifyClient) StatusURL(guid string) string {
	q := url.Values{}
	q.Set("module", ModuleContract)
	q.Set("action", ActionCheck)
	q.Set("guid", guid)
	return c.apiURL + "?" + q.Encode()
}

// CodeURL returns the explorer page showing the contract's code tab
func (c *VerifyClient) CodeURL(address string) string {
	return fmt.Sprintf("%s/address/%s#code", c.siteURL, address)
}

// CheckAPIKey reports whether the explorer accepts key. It issues a
// status check for an empty GUID, which costs one request and is answered
// with "Invalid API Key" when the key is unknown.
func (c *VerifyClient) CheckAPIKey(ctx context.Context, key string) (bool, error) {
	q := url.Values{}
	q.Set("module", ModuleContract)
	q.Set("action", ActionCheck)
	q.Set("guid", "")
	q.Set("apikey", key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("checking API key: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return false, fmt.Errorf("checking API key: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return false, fmt.Errorf("decoding API key check: %w", err)
	}
	var result string
	_ = json.Unmarshal(env.Result, &result)
	if strings.Contains(strings.ToLower(result), "invalid api key") {
		return false, nil
	}
	return true, nil
}
