package creds

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth", "credentials.json")

	in := &Credentials{Username: "alice", Password: "s3cret"}
	require.NoError(t, SaveToFile(path, in))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	out, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestParseRejectsMissingUsername(t *testing.T) {
	_, err := Parse([]byte(`{"password": "only"}`))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
