package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValid(t *testing.T) {
	data := []byte(`
minVersion: "0.9.0"
knownTools: [xml2ly, xml2brl, mytool]
launchDelay: 250ms
shell: bash
color: never
selects:
  - layout:part
`)
	cfg, err := Parse(data, "1.0.0")
	require.NoError(t, err)

	want := &Config{
		MinVersion:  "0.9.0",
		KnownTools:  []string{"xml2ly", "xml2brl", "mytool"},
		LaunchDelay: Duration(250 * time.Millisecond),
		Shell:       "bash",
		Color:       ColorNever,
		Selects:     []string{"layout:part"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseEmptyGivesDefaults(t *testing.T) {
	for _, data := range []string{"", "# nothing\n", "{}"} {
		cfg, err := Parse([]byte(data), "1.0.0")
		require.NoError(t, err, "%q", data)
		assert.Equal(t, Default(), cfg)
	}
}

func TestParsePartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("shell: sh\n"), "dev")
	require.NoError(t, err)
	assert.Equal(t, "sh", cfg.Shell)
	assert.Equal(t, DefaultKnownTools, cfg.KnownTools)
	assert.Equal(t, Duration(100*time.Millisecond), cfg.LaunchDelay)
	assert.Equal(t, ColorAuto, cfg.Color)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"unknown key", "colour: never\n", "invalid config"},
		{"bad color", "color: sometimes\n", "/color"},
		{"bad semver", "minVersion: \"one.two\"\n", "/minVersion"},
		{"number as version", "minVersion: 1.2\n", "/minVersion"},
		{"bad duration", "launchDelay: soon\n", "/launchDelay"},
		{"duplicate tools", "knownTools: [a, a]\n", "/knownTools"},
		{"numbers as tools", "knownTools: [1, 2]\n", "/knownTools/0"},
		{"empty tool name", "knownTools: ['']\n", "/knownTools/0"},
		{"malformed select", "selects: [layout]\n", "/selects/0"},
		{"not a mapping", "- a\n- b\n", "invalid config"},
		{"bad yaml", "color: [never\n", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), "1.0.0")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateDecodedDocument(t *testing.T) {
	tests := []struct {
		name string
		doc  interface{}
		want string
	}{
		{"valid", map[string]interface{}{"shell": "sh", "knownTools": []interface{}{"xml2ly"}}, ""},
		{"integer delay", map[string]interface{}{"launchDelay": 5}, "/launchDelay"},
		{"float version", map[string]interface{}{"minVersion": 1.5}, "/minVersion"},
		{"boolean color", map[string]interface{}{"color": true}, "/color"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(tt.doc)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMinVersion(t *testing.T) {
	data := []byte("minVersion: \"1.2.0\"\n")

	tests := []struct {
		version string
		ok      bool
	}{
		{"1.2.0", true},
		{"v1.3.0", true},
		{"1.1.9", false},
		{"dev", true},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			_, err := Parse(data, tt.version)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "requires iScheme 1.2.0 or later")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("color: always\n"), 0o644))

	cfg, err := Load(path, "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, ColorAlways, cfg.Color)

	require.NoError(t, os.WriteFile(path, []byte("color: 3\n"), 0o644))
	_, err = Load(path, "1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestLoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Load(path, "1.0.0")
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	cfg, err := LoadOptional(path, "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDurationMarshal(t *testing.T) {
	v, err := Duration(1500 * time.Millisecond).MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, "1.5s", v)
}
