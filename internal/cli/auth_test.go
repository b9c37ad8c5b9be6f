package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/term"
)

// TestStdinFdCrossplatform verifies that os.Stdin.Fd() can be cast to int
// for golang.org/x/term on every platform.
func TestStdinFdCrossplatform(t *testing.T) {
	stdinFd := int(os.Stdin.Fd())
	assert.GreaterOrEqual(t, stdinFd, 0, "stdin file descriptor should be non-negative")

	isTerminal := term.IsTerminal(stdinFd)
	t.Logf("stdin fd=%d, isTerminal=%v", stdinFd, isTerminal)
}

func TestAuthLoginWithFlags(t *testing.T) {
	srv, _ := setupCLI(t)
	srv.SetValidKey("valid-key")

	t.Run("successful login with valid key", func(t *testing.T) {
		var out bytes.Buffer
		err := runAuthLogin(context.Background(), &out, srv.VerifyURL(), "valid-key", true)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Stored API key")

		assert.Equal(t, "valid-key", getCredential(srv.VerifyURL()))
	})

	t.Run("failed login with invalid key", func(t *testing.T) {
		err := runAuthLogin(context.Background(), &bytes.Buffer{}, srv.VerifyURL(), "invalid-key", true)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid API key")
		// previous key untouched
		assert.Equal(t, "valid-key", getCredential(srv.VerifyURL()))
	})

	t.Run("skip check stores any key", func(t *testing.T) {
		err := runAuthLogin(context.Background(), &bytes.Buffer{}, "https://api-testnet.berascan.com/api", "unchecked-key", false)
		require.NoError(t, err)
		assert.Equal(t, "unchecked-key", getCredential("https://api-testnet.berascan.com/api"))
	})

	t.Run("empty API key rejected", func(t *testing.T) {
		origStdin := os.Stdin
		defer func() { os.Stdin = origStdin }()

		r, w, err := os.Pipe()
		require.NoError(t, err)
		w.Close() // empty input
		os.Stdin = r

		err = runAuthLogin(context.Background(), &bytes.Buffer{}, srv.VerifyURL(), "", false)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "API key cannot be empty")
	})
}

func TestAuthLoginFromStdin(t *testing.T) {
	srv, _ := setupCLI(t)

	origStdin := os.Stdin
	defer func() { os.Stdin = origStdin }()

	r, w, err := os.Pipe()
	require.NoError(t, err)
	_, err = w.WriteString("  piped-key  \n")
	require.NoError(t, err)
	w.Close()
	os.Stdin = r

	err = runAuthLogin(context.Background(), &bytes.Buffer{}, srv.VerifyURL(), "", false)
	require.NoError(t, err)
	assert.Equal(t, "piped-key", getCredential(srv.VerifyURL()))
}

func TestAuthLoginCommandUsesConfiguredVerifier(t *testing.T) {
	srv, _ := setupCLI(t)

	_, _, err := execute(t, "auth", "login", "--api-key", "cmd-key", "--skip-check")
	require.NoError(t, err)
	assert.Equal(t, "cmd-key", getCredential(srv.VerifyURL()))
}

func TestAuthLogout(t *testing.T) {
	setupCLI(t)

	require.NoError(t, saveCredential("https://a.example/api", "key-a"))
	require.NoError(t, saveCredential("https://b.example/api", "key-b"))

	t.Run("logout one verifier", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runAuthLogout(&out, "https://a.example/api", false))
		assert.Contains(t, out.String(), "Logged out from https://a.example/api")
		assert.Equal(t, "", getCredential("https://a.example/api"))
		assert.Equal(t, "key-b", getCredential("https://b.example/api"))
	})

	t.Run("logout unknown verifier", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runAuthLogout(&out, "https://c.example/api", false))
		assert.Contains(t, out.String(), "No credentials found")
	})

	t.Run("logout all", func(t *testing.T) {
		require.NoError(t, runAuthLogout(&bytes.Buffer{}, "", true))
		_, err := os.Stat(credentialsFilePath())
		assert.True(t, os.IsNotExist(err))
	})
}

func TestAuthStatus(t *testing.T) {
	setupCLI(t)

	t.Run("no credentials", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runAuthStatus(&out))
		assert.Contains(t, out.String(), "No API keys stored")
	})

	t.Run("with credentials", func(t *testing.T) {
		require.NoError(t, saveCredential("https://b.example/api", "BBBBBBBBBBBBBBBB"))
		require.NoError(t, saveCredential("https://a.example/api", "AAAAAAAAAAAAAAAA"))

		var out bytes.Buffer
		require.NoError(t, runAuthStatus(&out))
		s := out.String()
		assert.Contains(t, s, "https://a.example/api (key: AAAA...AAAA)")
		assert.NotContains(t, s, "AAAAAAAAAAAAAAAA")
		// sorted by URL
		assert.Less(t, bytes.Index(out.Bytes(), []byte("a.example")), bytes.Index(out.Bytes(), []byte("b.example")))
	})
}

func TestCredentialFilePermissions(t *testing.T) {
	_, dir := setupCLI(t)

	require.NoError(t, saveCredential("https://a.example/api", "key"))

	info, err := os.Stat(filepath.Join(dir, ".berarelay", "credentials"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	dirInfo, err := os.Stat(filepath.Join(dir, ".berarelay"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), dirInfo.Mode().Perm())
}

func TestCredentialOverwrite(t *testing.T) {
	setupCLI(t)

	require.NoError(t, saveCredential("https://a.example/api", "old"))
	require.NoError(t, saveCredential("https://a.example/api", "new"))

	creds, err := loadCredentials()
	require.NoError(t, err)
	assert.Len(t, creds.Verifiers, 1)
	assert.Equal(t, "new", getCredential("https://a.example/api"))
}

func TestAuthCommandStructure(t *testing.T) {
	cmd := createAuthCmd()

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["login"])
	assert.True(t, names["logout"])
	assert.True(t, names["status"])

	login, _, err := cmd.Find([]string{"login"})
	require.NoError(t, err)
	assert.NotNil(t, login.Flags().Lookup("verifier"))
	assert.NotNil(t, login.Flags().Lookup("api-key"))
	assert.NotNil(t, login.Flags().Lookup("skip-check"))
}
