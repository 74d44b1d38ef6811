// Package env provides environment variable loading from .env files.
// This allows an RPC endpoint carrying an API key to live in a gitignored
// .env file instead of the YAML config or the shell history.
package env

import (
	"os"
	"strings"

	"github.com/dmagro/sol-explorer/internal/logger"
)

// Load reads KEY=VALUE lines from path and sets them with os.Setenv.
// It runs before config loading so ${VAR} references and SOLANA_RPC_URL see
// the values.
//
// File format:
//   - Each line contains KEY=VALUE, optionally prefixed with "export "
//   - Empty lines and lines starting with # are ignored
//   - Values can be quoted with single or double quotes (quotes are stripped)
//
// Examples:
//
//	SOLANA_RPC_URL=https://mainnet.helius-rpc.com/?api-key=YOUR_KEY
//	export HELIUS_URL="https://mainnet.helius-rpc.com/?api-key=YOUR_KEY"
//
// A missing file is silently ignored. Variables already set in the process
// environment win over the file, so a shell export always has the last word.
func Load(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			logger.Debugf("%s:%d: ignoring line without '='", path, n+1)
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key == "" {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		os.Setenv(key, value)
	}
}
