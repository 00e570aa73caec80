package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekeeper/pkg/config"
)

type overrides struct {
	Name    string        `yaml:"name"`
	Lockout time.Duration `yaml:"lockout"`
	Windows []struct {
		Duration time.Duration `yaml:"duration"`
		Max      int           `yaml:"max"`
	} `yaml:"windows"`
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	t.Run("decodes file", func(t *testing.T) {
		t.Parallel()
		path := writeFile(t, `
name: api
lockout: 10m
windows:
  - duration: 1m
    max: 30
`)
		var o overrides
		require.NoError(t, config.LoadYAML(path, &o))
		assert.Equal(t, "api", o.Name)
		assert.Equal(t, 10*time.Minute, o.Lockout)
		require.Len(t, o.Windows, 1)
		assert.Equal(t, time.Minute, o.Windows[0].Duration)
		assert.Equal(t, 30, o.Windows[0].Max)
	})

	t.Run("empty path is a no-op", func(t *testing.T) {
		t.Parallel()
		o := overrides{Name: "kept"}
		require.NoError(t, config.LoadYAML("", &o))
		assert.Equal(t, "kept", o.Name)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		var o overrides
		err := config.LoadYAML(filepath.Join(t.TempDir(), "nope.yaml"), &o)
		assert.ErrorIs(t, err, config.ErrReadingFile)
	})

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()
		var o overrides
		err := config.LoadYAML(writeFile(t, "lokcout: 1m\n"), &o)
		assert.ErrorIs(t, err, config.ErrParsingYAML)
	})

	t.Run("nil pointer", func(t *testing.T) {
		t.Parallel()
		var o *overrides
		assert.ErrorIs(t, config.LoadYAML("x.yaml", o), config.ErrNilPointer)
	})
}

func TestDecodeYAML_EmptyDocument(t *testing.T) {
	t.Parallel()

	o := overrides{Name: "kept"}
	require.NoError(t, config.DecodeYAML(strings.NewReader(""), &o))
	assert.Equal(t, "kept", o.Name)
}
