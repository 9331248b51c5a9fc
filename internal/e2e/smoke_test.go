package e2e

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	require.NoError(t, writeRatesFixture(home))

	stdout, stderr, err := runQuotebot(t, binaryPath, home, "rates", "Москва", "2.5")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Destination: Москва")
	assert.Contains(t, stdout, "Bracket: up to 3 m3")
	assert.Contains(t, stdout, "Price: 80.00 USD")
	assert.Contains(t, stdout, "Valid until: 2026-12-31")

	stdout, stderr, err = runQuotebot(t, binaryPath, home, "rates", "Норильск", "4")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "priced to the hub")
	assert.Contains(t, stdout, "Price: 75.00 USD")

	stdout, stderr, err = runQuotebot(t, binaryPath, home, "version")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.NotEmpty(t, stdout)
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "quotebot-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/quotebot")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build quotebot binary: %s", string(output))
	return binaryPath
}

func runQuotebot(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func writeRatesFixture(home string) error {
	dataDir := filepath.Join(home, ".quotebot", "data")
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return err
	}

	direct := `version = 1
valid_until = "2026-12-31"
currency = "USD"

[[locations]]
location = "Москва"

[locations.rates]
1 = 50.0
3 = 80.0
5 = 120.0

[[locations]]
location = "Казань"

[locations.rates]
1 = 60.0
3 = 95.0
`

	hub := `version = 1
valid_until = "2026-12-31"
currency = "USD"

[[locations]]
location = "default"

[locations.rates]
1 = 30.0
3 = 55.0
5 = 75.0
`

	if err := os.WriteFile(filepath.Join(dataDir, "direct_rates.toml"), []byte(direct), 0o600); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dataDir, "hub_rates.toml"), []byte(hub), 0o600)
}
