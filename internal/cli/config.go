package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/jsonstore/pkg/docstore"
)

// fileConfig is the on-disk shape of a docstore config file, written in
// JWCC (JSON-with-comments) so an operator can annotate a saved store
// configuration the same way the teacher's own ticket config does.
type fileConfig struct {
	Root              string              `json:"root"`
	Indent            int                 `json:"indent,omitempty"`
	KeyOrder          []string            `json:"key_order,omitempty"` //nolint:tagliatelle // snake_case config file
	Indexes           map[string][]string `json:"indexes,omitempty"`
	FormatConcurrency int                 `json:"format_concurrency,omitempty"` //nolint:tagliatelle
	Sidecar           bool                `json:"sidecar,omitempty"`
}

// defaultConfigName is the project-local config file docstore looks for
// when --config is not given.
const defaultConfigName = ".docstore.jsonc"

// loadFileConfig reads and parses a JWCC config file. A missing path (when
// it was not explicitly requested) is not an error; it returns a zero
// value. An explicitly named path that does not exist is an error.
func loadFileConfig(path string, explicit bool) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return fileConfig{}, nil
		}

		return fileConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("parse config %s: invalid JWCC: %w", path, err)
	}

	var cfg fileConfig

	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// resolveConfig loads the explicit config file, or else the one discovered in
// cwd. CLI flag overrides (--root) are applied by the caller after this
// returns.
func resolveConfig(configPath, cwd string) (fileConfig, error) {
	explicit := configPath != ""
	if !explicit {
		configPath = filepath.Join(cwd, defaultConfigName)
	}

	return loadFileConfig(configPath, explicit)
}

// openStore opens a [docstore.Store] from the merged configuration.
func openStore(cfg fileConfig) (*docstore.Store, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("store root is required: pass --root or set \"root\" in %s", defaultConfigName)
	}

	opts := []docstore.Option{
		docstore.WithSidecar(cfg.Sidecar),
	}

	if cfg.Indent > 0 {
		opts = append(opts, docstore.WithIndent(cfg.Indent))
	}

	if len(cfg.KeyOrder) > 0 {
		opts = append(opts, docstore.WithKeyOrder(docstore.KeyOrder(cfg.KeyOrder)))
	}

	if len(cfg.Indexes) > 0 {
		opts = append(opts, docstore.WithIndexes(cfg.Indexes))
	}

	if cfg.FormatConcurrency > 0 {
		opts = append(opts, docstore.WithFormatConcurrency(cfg.FormatConcurrency))
	}

	return docstore.Open(cfg.Root, opts...)
}
