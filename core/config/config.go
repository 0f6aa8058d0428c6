// Package config loads the optional iScheme settings file.
//
// The file is YAML. It is checked against an embedded JSON Schema before
// being decoded, so unknown keys and malformed values are reported with
// their location in the document.
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no file is named.
const DefaultFile = ".ischeme.yaml"

// DefaultKnownTools are the translators shipped with the music formats
// library.
var DefaultKnownTools = []string{"xml2ly", "xml2brl", "xml2xml", "xml2gmn", "msdl"}

// Color modes
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config holds the settings.
type Config struct {
	MinVersion  string   `yaml:"minVersion"`
	KnownTools  []string `yaml:"knownTools"`
	LaunchDelay Duration `yaml:"launchDelay"`
	Shell       string   `yaml:"shell"`
	Color       string   `yaml:"color"`
	Selects     []string `yaml:"selects"`
}

// Duration is a time.Duration written as a Go duration string ("250ms").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Default returns the settings used when no file exists.
func Default() *Config {
	return &Config{
		KnownTools:  append([]string{}, DefaultKnownTools...),
		LaunchDelay: Duration(100 * time.Millisecond),
		Color:       ColorAuto,
	}
}

//go:embed schema.json
var schemaJSON string

const schemaURL = "ischeme://config.schema.json"

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	if compiler.Formats == nil {
		compiler.Formats = make(map[string]func(interface{}) bool)
	}
	compiler.Formats["semver"] = func(v interface{}) bool {
		s, ok := v.(string)
		if !ok {
			return true // Type validation happens separately
		}
		return semver.IsValid(canonicalVersion(s))
	}
	compiler.Formats["go-duration"] = func(v interface{}) bool {
		s, ok := v.(string)
		if !ok {
			return true
		}
		_, err := time.ParseDuration(s)
		return err == nil
	}

	if err := compiler.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(schemaURL)
})

// Load reads and validates the settings file at path. version is the
// running program version, checked against minVersion; a version that is
// not a valid semver (such as "dev") skips the check. A missing file yields
// an error matching fs.ErrNotExist.
func Load(path, version string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data, version)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load, except that a missing file yields Default.
func LoadOptional(path, version string) (*Config, error) {
	cfg, err := Load(path, version)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse validates and decodes settings from YAML.
func Parse(data []byte, version string) (*Config, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	if err := validate(doc); err != nil {
		return nil, err
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.MinVersion != "" && semver.IsValid(canonicalVersion(version)) {
		if semver.Compare(canonicalVersion(version), canonicalVersion(cfg.MinVersion)) < 0 {
			return nil, fmt.Errorf("config requires iScheme %s or later, this is %s", cfg.MinVersion, version)
		}
	}
	return cfg, nil
}

// validate checks the decoded YAML document against the schema. The
// document goes through JSON so that the validator sees JSON types only.
func validate(doc interface{}) error {
	schema, err := compileSchema()
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config is not representable as JSON: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("config is not representable as JSON: %w", err)
	}

	if err := schema.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("invalid config: %s", describe(ve))
		}
		return err
	}
	return nil
}

// describe flattens a validation error tree to its leaf messages.
func describe(ve *jsonschema.ValidationError) string {
	var msgs []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, fmt.Sprintf("at '%s': %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(msgs, "; ")
}

// canonicalVersion adds the "v" prefix semver.IsValid requires.
func canonicalVersion(s string) string {
	if !strings.HasPrefix(s, "v") {
		return "v" + s
	}
	return s
}
