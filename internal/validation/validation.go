// Package validation provides input checks for relay runs.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/mod/semver"
)

var (
	// ErrInvalidAddress means the argument is not a 20-byte hex address
	ErrInvalidAddress = errors.New("invalid contract address")
	// ErrInvalidCompilerVersion means the compiler version is not semver-shaped
	ErrInvalidCompilerVersion = errors.New("invalid compiler version")
)

// ValidateAddress checks that addr is a 0x-prefixed 20-byte hex address.
// Checksum casing is not enforced.
func ValidateAddress(addr string) error {
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return fmt.Errorf("%w: %q must start with 0x", ErrInvalidAddress, addr)
	}
	if !common.IsHexAddress(addr) {
		return fmt.Errorf("%w: %q must be 0x followed by 40 hex characters", ErrInvalidAddress, addr)
	}
	return nil
}

// ValidateCompilerVersion checks a solc version string such as
// "v0.8.24+commit.e11b9ed9"
func ValidateCompilerVersion(v string) error {
	if v == "" {
		return fmt.Errorf("%w: empty", ErrInvalidCompilerVersion)
	}
	canonical := "v" + strings.TrimPrefix(v, "v")
	if !semver.IsValid(canonical) {
		return fmt.Errorf("%w: %q", ErrInvalidCompilerVersion, v)
	}
	// semver accepts "v0" and "v0.8"; solc always reports major.minor.patch
	release, _, _ := strings.Cut(strings.TrimPrefix(v, "v"), "+")
	release, _, _ = strings.Cut(release, "-")
	if strings.Count(release, ".") < 2 {
		return fmt.Errorf("%w: %q must be major.minor.patch", ErrInvalidCompilerVersion, v)
	}
	return nil
}

// CompilerRelease returns the release part of a compiler version
// ("v0.8.24+commit.e11b9ed9" -> "v0.8.24"), or "" when it is not valid
func CompilerRelease(v string) string {
	if ValidateCompilerVersion(v) != nil {
		return ""
	}
	canonical := semver.Canonical("v" + strings.TrimPrefix(v, "v"))
	if pre := semver.Prerelease(canonical); pre != "" {
		return strings.TrimSuffix(canonical, pre)
	}
	return canonical
}

// IsNightly reports whether the compiler version is a nightly build
func IsNightly(v string) bool {
	return strings.Contains(v, "nightly")
}

// ValidateChainID validates a chain ID
func ValidateChainID(chainID int) error {
	if chainID <= 0 {
		return errors.New("chain ID must be positive")
	}
	return nil
}
