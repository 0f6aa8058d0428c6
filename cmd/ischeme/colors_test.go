package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"

	"github.com/opal-lang/ischeme/core/config"
)

func TestShouldUseColor(t *testing.T) {
	var buf bytes.Buffer

	tests := []struct {
		name    string
		noColor bool
		env     string
		mode    string
		want    bool
	}{
		{"always", false, "", config.ColorAlways, true},
		{"never", false, "", config.ColorNever, false},
		{"auto on a buffer", false, "", config.ColorAuto, false},
		{"flag wins", true, "", config.ColorAlways, false},
		{"NO_COLOR wins", false, "1", config.ColorAlways, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.env)
			assert.Equal(t, tt.want, ShouldUseColor(tt.noColor, tt.mode, &buf))
		})
	}
}

func TestStylesWithoutColor(t *testing.T) {
	var buf bytes.Buffer
	st := newStyles(&buf, false)
	assert.Equal(t, "Error: ", st.err.Render("Error: "))
	assert.Equal(t, "xml2ly a.xml", st.command.Render("xml2ly a.xml"))
}

func TestIsChangeOf(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "piece.ischeme")

	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"write", fsnotify.Event{Name: target, Op: fsnotify.Write}, true},
		{"replaced", fsnotify.Event{Name: target, Op: fsnotify.Create}, true},
		{"renamed", fsnotify.Event{Name: target, Op: fsnotify.Rename}, true},
		{"chmod", fsnotify.Event{Name: target, Op: fsnotify.Chmod}, false},
		{"other file", fsnotify.Event{Name: filepath.Join(dir, "other.ischeme"), Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isChangeOf(tt.ev, target))
		})
	}
}
