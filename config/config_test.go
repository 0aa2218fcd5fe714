package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/asklar/McpExtract/errors"
)

func TestParseBool(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{" yes ", true},
		{"On", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"", false},
		{"enabled", false},
	}
	for _, tt := range tests {
		if got := ParseBool(tt.in); got != tt.want {
			t.Errorf("ParseBool(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromLookup(t *testing.T) {
	env := map[string]string{
		EnvDotnetRoot: " /opt/dotnet ",
		EnvVerbose:    "yes",
	}
	cfg := FromLookup(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	want := Config{DotnetRoot: "/opt/dotnet", OutputDir: ".", Verbose: true}
	if *cfg != want {
		t.Errorf("FromLookup() = %+v, want %+v", *cfg, want)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	data := "MCPEXTRACT_TEST_ONLY=1\n" + EnvOutputDir + "=from-file\n" + EnvVerbose + "=on\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvVerbose, "0")
	t.Setenv(EnvDotnetRoot, "/usr/share/dotnet")

	// Unset for the duration of the test so the file value shows through.
	old, had := os.LookupEnv(EnvOutputDir)
	os.Unsetenv(EnvOutputDir)
	t.Cleanup(func() {
		if had {
			os.Setenv(EnvOutputDir, old)
		}
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputDir != "from-file" {
		t.Errorf("OutputDir = %q, want from-file", cfg.OutputDir)
	}
	if cfg.Verbose {
		t.Error("Verbose = true, the environment should win over the file")
	}
	if cfg.DotnetRoot != "/usr/share/dotnet" {
		t.Errorf("DotnetRoot = %q", cfg.DotnetRoot)
	}
	if _, ok := os.LookupEnv("MCPEXTRACT_TEST_ONLY"); ok {
		t.Error("Load modified the process environment")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if !errors.Is(err, &errors.Error{Kind: errors.KindInvalidInput}) {
		t.Errorf("err = %v, want invalid input", err)
	}
}

func TestLoad_DefaultMissing(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load(); err != nil {
		t.Errorf("Load() without .env: %v", err)
	}
}
