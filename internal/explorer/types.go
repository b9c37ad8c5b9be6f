package explorer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// FlexString decodes a JSON string or number into a string. Etherscan-style
// APIs are inconsistent about quoting numeric fields such as Runs.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		var b bool
		if berr := json.Unmarshal(data, &b); berr != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		// explorers that send booleans mean 1/0 for flags like OptimizationUsed
		*f = FlexString(strconv.Itoa(boolToInt(b)))
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// String returns the plain string value
func (f FlexString) String() string {
	return string(f)
}

// SourceResult is the first element of a getsourcecode result array
type SourceResult struct {
	SourceCode           string     `json:"SourceCode"`
	ABI                  string     `json:"ABI,omitempty"`
	ContractName         string     `json:"ContractName"`
	CompilerVersion      string     `json:"CompilerVersion"`
	OptimizationUsed     FlexString `json:"OptimizationUsed"`
	Runs                 FlexString `json:"Runs"`
	ConstructorArguments string     `json:"ConstructorArguments"`
	EVMVersion           string     `json:"EVMVersion"`
	LicenseType          string     `json:"LicenseType,omitempty"`
	Proxy                FlexString `json:"Proxy,omitempty"`
	Implementation       string     `json:"Implementation,omitempty"`

	// Raw is the element exactly as returned, including fields not modelled above
	Raw json.RawMessage `json:"-"`
}

// envelope is the standard Etherscan-compatible response wrapper
type envelope struct {
	Status  FlexString      `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Verification form constants
const (
	ModuleContract  = "contract"
	ActionVerify    = "verifysourcecode"
	ActionCheck     = "checkverifystatus"
	CodeFormatStdIn = "solidity-standard-json-input"
	StatusAccepted  = "1"
)

// VerifyRequest is a verifysourcecode submission
type VerifyRequest struct {
	APIKey               string
	ContractAddress      string
	ContractName         string
	CompilerVersion      string
	OptimizationUsed     string
	Runs                 string
	ConstructorArguments string // without 0x prefix
	SourceCode           string
	EVMVersion           string
}

// Form encodes the request as verification form fields. The misspelled
// "constructorArguements" is the field name explorers expect.
func (r VerifyRequest) Form() url.Values {
	form := url.Values{}
	form.Set("apikey", r.APIKey)
	form.Set("module", ModuleContract)
	form.Set("action", ActionVerify)
	form.Set("contractaddress", r.ContractAddress)
	form.Set("codeformat", CodeFormatStdIn)
	form.Set("contractname", r.ContractName)
	form.Set("compilerversion", r.CompilerVersion)
	form.Set("optimizationUsed", r.OptimizationUsed)
	form.Set("runs", r.Runs)
	form.Set("constructorArguements", r.ConstructorArguments)
	form.Set("sourceCode", r.SourceCode)
	form.Set("evmversion", r.EVMVersion)
	return form
}

// SubmitResponse is the verification service's reply
type SubmitResponse struct {
	Status  string
	Message string
	Result  string

	// Body is the raw response body
	Body []byte
}

// Accepted reports whether the submission was queued. Result then holds the GUID.
func (r *SubmitResponse) Accepted() bool {
	return r.Status == StatusAccepted
}
