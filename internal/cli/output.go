package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	failColor    = color.New(color.FgRed, color.Bold)
)

// PrintError writes the failure marker line used for every fatal error
func PrintError(w io.Writer, err error) {
	failColor.Fprintf(w, "❌ %v\n", err)
}

func printSuccess(w io.Writer, format string, args ...any) {
	successColor.Fprintf(w, "✅ "+format+"\n", args...)
}

func printWarning(w io.Writer, format string, args ...any) {
	warnColor.Fprintf(w, "⚠️  "+format+"\n", args...)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// truncateAddress shortens an address for table output
func truncateAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return fmt.Sprintf("%s...%s", addr[:8], addr[len(addr)-4:])
}
