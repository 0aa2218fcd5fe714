// Package config reads the tool's environment once at startup.
//
// Values come from the process environment, then from a .env file in the
// working directory. The process environment wins.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/asklar/McpExtract/errors"
)

// Environment variables.
const (
	EnvDotnetRoot = "DOTNET_ROOT"
	EnvVerbose    = "MCPEXTRACT_VERBOSE"
	EnvOutputDir  = "MCPEXTRACT_OUTPUT_DIR"
)

const defaultDotenv = ".env"

// Config is the startup configuration. It is never modified after Load.
type Config struct {
	// DotnetRoot overrides the .NET install root searched for reference packs.
	DotnetRoot string
	// OutputDir is the default directory of generated files.
	OutputDir string
	Verbose   bool
}

// Load reads files as dotenv sources, or .env when none are given. A
// missing .env is ignored; a missing explicit file is an error.
func Load(files ...string) (*Config, error) {
	explicit := len(files) > 0
	if !explicit {
		files = []string{defaultDotenv}
	}
	env := make(map[string]string)
	for _, f := range files {
		m, err := godotenv.Read(f)
		if err != nil {
			if !explicit && os.IsNotExist(err) {
				continue
			}
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Path(f).
				Detail("cannot read dotenv file").
				Cause(err).
				Build()
		}
		for k, v := range m {
			if _, ok := env[k]; !ok {
				env[k] = v
			}
		}
	}
	return FromLookup(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := env[key]
		return v, ok
	}), nil
}

// FromLookup builds a Config from a variable source.
func FromLookup(lookup func(key string) (string, bool)) *Config {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	outputDir := get(EnvOutputDir)
	if outputDir == "" {
		outputDir = "."
	}
	return &Config{
		DotnetRoot: get(EnvDotnetRoot),
		OutputDir:  outputDir,
		Verbose:    ParseBool(get(EnvVerbose)),
	}
}

// ParseBool accepts 1, true, yes and on, in any case. Everything else is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
