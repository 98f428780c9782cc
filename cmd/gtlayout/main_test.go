package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    options
		wantErr bool
	}{
		{
			name: "up with config",
			args: []string{"-config", "conf/gtlayout.toml", "up"},
			want: options{configPath: "conf/gtlayout.toml", outputDir: "output_layouts", command: "up"},
		},
		{
			name: "resolve with output",
			args: []string{"-verbose", "-output", "out", "resolve"},
			want: options{outputDir: "out", verbose: true, command: "resolve"},
		},
		{
			name: "version needs no command",
			args: []string{"-version"},
			want: options{outputDir: "output_layouts", showVersion: true},
		},
		{name: "missing command", args: []string{}, wantErr: true},
		{name: "unknown command", args: []string{"sideways"}, wantErr: true},
		{name: "extra arguments", args: []string{"up", "down"}, wantErr: true},
		{name: "unknown flag", args: []string{"-fast", "up"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			got, err := parseArgs(tt.args, &stderr)
			if tt.wantErr {
				assert.ErrorIs(t, err, errUsage)
				assert.Contains(t, stderr.String(), "Usage: gtlayout")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-version"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Equal(t, "gtlayout v"+version+"\n", stdout.String())
}

func TestRun_UsageError(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), []string{"sideways"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "sideways"`)
}

func TestRun_MissingConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	missing := filepath.Join(t.TempDir(), "nope.toml")
	code := run(context.Background(), []string{"-config", missing, "up"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "config file not found")
}

func TestNewLogger_TagsRunID(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, 0).Info("hello")
	assert.Contains(t, buf.String(), "run_id=")
	assert.Contains(t, buf.String(), "hello")
}
