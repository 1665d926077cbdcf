package logging_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nesterrors "infranest/internal/errors"
	"infranest/internal/logging"
)

func TestParseLevel(t *testing.T) {
	lvl, err := logging.ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = logging.ParseLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	_, err = logging.ParseLevel("loud")
	require.ErrorIs(t, err, nesterrors.ErrConfigInvalid)
}

func TestNew_JSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := logging.New(logging.Options{Level: "warn", Out: &buf})
	require.NoError(t, err)
	defer closer.Close() //nolint:errcheck // test

	logger.Info().Msg("hidden")
	logger.Warn().Str("component", "test").Msg("shown")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["event"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "test", entry["component"])
	assert.Contains(t, entry, "ts")
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "infranest.log")
	var buf bytes.Buffer
	logger, closer, err := logging.New(logging.Options{File: path, Out: &buf})
	require.NoError(t, err)

	logger.Info().Msg("to both")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event":"to both"`)
	assert.Contains(t, buf.String(), `"event":"to both"`)
}

func TestRedactURL(t *testing.T) {
	got := logging.RedactURL("postgres://app:s3cret@db:5432/infranest")
	assert.NotContains(t, got, "s3cret")
	assert.Contains(t, got, "postgres://app:")
	assert.Contains(t, got, "@db:5432/infranest")
	assert.Equal(t, "postgres://db/infranest", logging.RedactURL("postgres://db/infranest"))
	assert.Equal(t,
		"host=db user=app password=[REDACTED] dbname=x",
		logging.RedactURL("host=db user=app password=s3cret dbname=x"))
}
