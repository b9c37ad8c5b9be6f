package explorer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/berarelay/internal/explorer/explorertest"
)

const testAddress = "0x1234567890123456789012345678901234567890"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestLookupClient_SourceURL(t *testing.T) {
	c := NewLookupClient("https://api.routescan.io/", "mainnet", 80094)
	assert.Equal(t,
		"https://api.routescan.io/v2/network/mainnet/evm/80094/etherscan/contract/getsourcecode?address="+testAddress,
		c.SourceURL(testAddress))
}

func TestLookupClient_GetSourceCode(t *testing.T) {
	srv := explorertest.New()
	defer srv.Close()

	srv.SetSource(testAddress, map[string]any{
		"SourceCode":           "contract Foo {}",
		"ContractName":         "Foo",
		"CompilerVersion":      "v0.8.24+commit.e11b9ed9",
		"OptimizationUsed":     "0",
		"Runs":                 "200",
		"ConstructorArguments": "",
		"EVMVersion":           "Default",
		"SwarmSource":          "ipfs://x",
	})

	c := NewLookupClient(srv.LookupURL(), "mainnet", 80094, WithLogger(quietLogger()))
	result, err := c.GetSourceCode(context.Background(), testAddress)
	require.NoError(t, err)

	assert.Equal(t, "Foo", result.ContractName)
	assert.Equal(t, "contract Foo {}", result.SourceCode)
	assert.Equal(t, "200", result.Runs.String())
	// fields not modelled survive in Raw
	assert.Contains(t, string(result.Raw), "SwarmSource")

	lookups := srv.Lookups()
	require.Len(t, lookups, 1)
	assert.Equal(t, explorertest.Lookup{Network: "mainnet", ChainID: "80094", Address: testAddress}, lookups[0])
}

func TestLookupClient_EmptyResult(t *testing.T) {
	srv := explorertest.New()
	defer srv.Close()

	c := NewLookupClient(srv.LookupURL(), "mainnet", 80094, WithLogger(quietLogger()))
	_, err := c.GetSourceCode(context.Background(), testAddress)
	assert.True(t, errors.Is(err, ErrEmptyResult))
}

func TestLookupClient_NonObjectResult(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantEmpty bool
	}{
		{"null element", `{"status":"1","message":"OK","result":[null]}`, true},
		{"string element", `{"status":"1","message":"OK","result":["oops"]}`, false},
		{"number element", `{"status":"1","message":"OK","result":[42]}`, false},
		{"nested array", `{"status":"1","message":"OK","result":[[]]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := explorertest.New()
			defer srv.Close()
			srv.SetLookupResponse(http.StatusOK, tt.body)

			c := NewLookupClient(srv.LookupURL(), "mainnet", 80094, WithLogger(quietLogger()))
			got, err := c.GetSourceCode(context.Background(), testAddress)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.Equal(t, tt.wantEmpty, errors.Is(err, ErrEmptyResult))
		})
	}
}

func TestLookupClient_ErrorEnvelope(t *testing.T) {
	srv := explorertest.New()
	defer srv.Close()
	srv.SetLookupResponse(http.StatusOK, `{"status":"0","message":"NOTOK","result":"Invalid address format"}`)

	c := NewLookupClient(srv.LookupURL(), "mainnet", 80094, WithLogger(quietLogger()))
	_, err := c.GetSourceCode(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyResult))
	assert.Contains(t, err.Error(), "Invalid address format")
}

func TestLookupClient_HTTPError(t *testing.T) {
	srv := explorertest.New()
	defer srv.Close()
	srv.SetLookupResponse(http.StatusBadGateway, "upstream down")

	c := NewLookupClient(srv.LookupURL(), "mainnet", 80094, WithLogger(quietLogger()))
	_, err := c.GetSourceCode(context.Background(), testAddress)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.Equal(t, "upstream down", httpErr.Body)
}

func TestLookupClient_MalformedBody(t *testing.T) {
	srv := explorertest.New()
	defer srv.Close()
	srv.SetLookupResponse(http.StatusOK, "<html>")

	c := NewLookupClient(srv.LookupURL(), "mainnet", 80094, WithLogger(quietLogger()))
	_, err := c.GetSourceCode(context.Background(), testAddress)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrEmptyResult))
}

func TestLookupClient_NetworkError(t *testing.T) {
	srv := explorertest.New()
	url := srv.LookupURL()
	srv.Close()

	c := NewLookupClient(url, "mainnet", 80094, WithLogger(quietLogger()), WithTimeout(2*time.Second))
	_, err := c.GetSourceCode(context.Background(), testAddress)
	assert.Error(t, err)
}

func TestVerifyClient_Submit(t *testing.T) {
	srv := explorertest.New()
	defer srv.Close()
	srv.SetSubmitResponse(http.StatusOK, `{"status":"1","message":"OK","result":"abc-guid"}`)

	c := NewVerifyClient(srv.VerifyURL(), "https://berascan.com", WithLogger(quietLogger()))
	resp, err := c.Submit(context.Background(), VerifyRequest{
		APIKey:          "key",
		ContractAddress: testAddress,
		ContractName:    "contracts/Foo.sol:Foo",
		SourceCode:      "{}",
	})
	require.NoError(t, err)

	assert.True(t, resp.Accepted())
	assert.Equal(t, "abc-guid", resp.Result)
	assert.Equal(t, `{"status":"1","message":"OK","result":"abc-guid"}`, string(resp.Body))

	subs := srv.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "verifysourcecode", subs[0].Get("action"))
	assert.Equal(t, testAddress, subs[0].Get("contractaddress"))
	assert.Equal(t, "contracts/Foo.sol:Foo", subs[0].Get("contractname"))
}

func TestVerifyClient_BusinessRejectionIsNotAnError(t *testing.T) {
	srv := explorertest.New()
	defer srv.Close()
	srv.SetSubmitResponse(http.StatusOK, `{"status":"0","message":"NOTOK","result":"Contract source code already verified"}`)

	c := NewVerifyClient(srv.VerifyURL(), "https://berascan.com", WithLogger(quietLogger()))
	resp, err := c.Submit(context.Background(), VerifyRequest{ContractAddress: testAddress})
	require.NoError(t, err)
	assert.False(t, resp.Accepted())
	assert.Equal(t, "NOTOK", resp.Message)
	assert.Equal(t, "Contract source code already verified", resp.Result)
}

func TestVerifyClient_NonJSONBody(t *testing.T) {
	srv := explorertest.New()
	defer srv.Close()
	srv.SetSubmitResponse(http.StatusOK, "maintenance")

	c := NewVerifyClient(srv.VerifyURL(), "https://berascan.com", WithLogger(quietLogger()))
	resp, err := c.Submit(context.Background(), VerifyRequest{})
	require.NoError(t, err)
	assert.False(t, resp.Accepted())
	assert.Equal(t, "maintenance", string(resp.Body))
}

func TestVerifyClient_HTTPError(t *testing.T) {
	srv := explorertest.New()
	defer srv.Close()
	srv.SetSubmitResponse(http.StatusInternalServerError, strings.Repeat("x", 2000))

	c := NewVerifyClient(srv.VerifyURL(), "https://berascan.com", WithLogger(quietLogger()))
	_, err := c.Submit(context.Background(), VerifyRequest{})

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
	assert.Len(t, httpErr.Body, maxErrorBody)
}

func TestVerifyClient_URLs(t *testing.T) {
	c := NewVerifyClient("https://api.berascan.com/api", "https://berascan.com/")

	assert.Equal(t,
		"https://api.berascan.com/api?action=checkverifystatus&guid=abc-guid&module=contract",
		c.StatusURL("abc-guid"))
	assert.Contains(t, c.StatusURL("abc-guid"), "guid=abc-guid")
	assert.Equal(t, "https://berascan.com/address/0xAAA#code", c.CodeURL("0xAAA"))
}

func TestLimiter_SharedAcrossClients(t *testing.T) {
	srv := explorertest.New()
	defer srv.Close()
	srv.SetSource(testAddress, map[string]any{"SourceCode": "x"})

	limiter := NewLimiter(20) // one request every 50ms
	lookup := NewLookupClient(srv.LookupURL(), "mainnet", 80094, WithLimiter(limiter), WithLogger(quietLogger()))
	verify := NewVerifyClient(srv.VerifyURL(), "", WithLimiter(limiter), WithLogger(quietLogger()))

	start := time.Now()
	_, err := lookup.GetSourceCode(context.Background(), testAddress)
	require.NoError(t, err)
	_, err = verify.Submit(context.Background(), VerifyRequest{})
	require.NoError(t, err)
	_, err = lookup.GetSourceCode(context.Background(), testAddress)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestLimiter_CancelledContext(t *testing.T) {
	srv := explorertest.New()
	defer srv.Close()

	limiter := NewLimiter(0.001)
	require.True(t, limiter.Allow()) // drain the single token

	c := NewLookupClient(srv.LookupURL(), "mainnet", 80094, WithLimiter(limiter), WithLogger(quietLogger()))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.GetSourceCode(ctx, testAddress)
	assert.Error(t, err)
	assert.Empty(t, srv.Lookups())
}

func TestNewLimiter_Disabled(t *testing.T) {
	limiter := NewLimiter(0)
	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow())
	}
}

func TestVerifyClient_CheckAPIKey(t *testing.T) {
	srv := explorertest.New()
	defer srv.Close()
	srv.SetValidKey("good-key")

	c := NewVerifyClient(srv.VerifyURL(), "", WithLogger(quietLogger()))

	ok, err := c.CheckAPIKey(context.Background(), "good-key")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.CheckAPIKey(context.Background(), "bad-key")
	require.NoError(t, err)
	assert.False(t, ok)
}
