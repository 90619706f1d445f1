package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFilesDefaults(t *testing.T) {
	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "http", config.Engine.Type)
	assert.Equal(t, "de", config.Amazon.Region)
	assert.Equal(t, 5*time.Minute, config.Import.PollInterval)
	assert.True(t, config.Import.ClearAfterImport)
}

func TestLoadFromFilesOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "importo.toml")
	content := `
[amazon]
email = "user@example.test"
password = "secret"
region = "com"

[engine]
type = "chromedp"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "com", config.Amazon.Region)
	assert.Equal(t, "chromedp", config.Engine.Type)
	assert.Equal(t, "https://www.amazon.com/", config.Amazon.SiteRoot())
	// untouched defaults survive the merge
	assert.True(t, config.Import.ClearAfterImport)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("IMPORTO_AMAZON_REGION", "co.uk")
	t.Setenv("IMPORTO_POLL_INTERVAL", "90s")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "co.uk", config.Amazon.Region)
	assert.Equal(t, 90*time.Second, config.Import.PollInterval)
}

func TestSanitizedMasksSecrets(t *testing.T) {
	config := NewDefaultConfig()
	config.Amazon.Email = "user@example.test"
	config.Amazon.Password = "hunter2hunter2"
	config.Amazon.MFASeed = "JBSWY3DPEHPK3PXP"

	safe := config.Sanitized()

	assert.Equal(t, "****", safe.Amazon.Password)
	assert.Equal(t, "JB****", safe.Amazon.MFASeed)
	assert.NotContains(t, safe.Amazon.MFASeed, "Y3DP")
	// the original is untouched
	assert.Equal(t, "hunter2hunter2", config.Amazon.Password)
}

func TestValidate(t *testing.T) {
	config := NewDefaultConfig()
	config.Amazon.Email = "not-an-email"
	config.Amazon.Password = "x"
	err := config.Validate()
	assert.Error(t, err)

	config.Amazon.Email = "user@example.test"
	assert.NoError(t, config.Validate())
}
