package docstore

import (
	"fmt"
)

const (
	defaultExt               = ".json"
	defaultIndent            = 2
	defaultFormatConcurrency = 16
	minFormatConcurrency     = 1
	maxFormatConcurrency     = 64
	defaultCacheEntries      = 1024
)

// Config configures [Open]. Root is the only required field; every other
// field has the default noted on it. Unlike an open dictionary, unknown
// fields cannot be expressed — construction goes through [Open] plus
// functional [Option]s, matching spec.md §9's "explicit configuration
// record, not a dynamic parameter bag" design note.
type Config struct {
	// Root is the store's filesystem root. Created if missing.
	Root string

	// Ext is the file extension for primary records and index files.
	// Default ".json".
	Ext string

	// Indent is spaces per nesting level in canonical output. Default 2.
	Indent int

	// KeyOrder lists keys that sort first in canonical output; remaining
	// keys sort alphabetically. Nil means pure alphabetical order.
	KeyOrder KeyOrder

	// Indexes declares the equality indexes to maintain automatically on
	// every put/remove, keyed by type then field name.
	Indexes map[string][]string

	// FormatConcurrency bounds the number of files [Store.Format] rewrites
	// concurrently. Default 16, clamped to [1, 64].
	FormatConcurrency int

	// EnableSidecar switches every type in the store to the sidecar
	// document-directory layout (§6 of the expanded spec; see DESIGN.md for
	// the store-level-vs-type-level decision).
	EnableSidecar bool

	// CacheEntries bounds the document cache's entry count. 0 disables
	// caching. Default 1024.
	CacheEntries int

	// CacheBytes optionally bounds the cache's aggregate estimated byte
	// size. 0 means unbounded (entry count is still enforced).
	CacheBytes int64
}

// Option mutates a [Config] during [Open].
type Option func(*Config)

// WithExt overrides the default ".json" file extension.
func WithExt(ext string) Option {
	return func(c *Config) { c.Ext = ext }
}

// WithIndent sets the canonical serializer's indent width.
func WithIndent(n int) Option {
	return func(c *Config) { c.Indent = n }
}

// WithKeyOrder sets the explicit key-order prefix for canonical output.
func WithKeyOrder(order KeyOrder) Option {
	return func(c *Config) { c.KeyOrder = order }
}

// WithIndexes declares the equality indexes to maintain per type.
func WithIndexes(indexes map[string][]string) Option {
	return func(c *Config) { c.Indexes = indexes }
}

// WithFormatConcurrency overrides [Store.Format]'s worker count.
func WithFormatConcurrency(n int) Option {
	return func(c *Config) { c.FormatConcurrency = n }
}

// WithSidecar enables the sidecar document-directory layout store-wide.
func WithSidecar(enabled bool) Option {
	return func(c *Config) { c.EnableSidecar = enabled }
}

// WithCache overrides the document cache's entry and byte caps. entries <=
// 0 disables caching; bytes <= 0 means unbounded.
func WithCache(entries int, bytes int64) Option {
	return func(c *Config) {
		c.CacheEntries = entries
		c.CacheBytes = bytes
	}
}

func newConfig(root string, opts ...Option) (Config, error) {
	if root == "" {
		return Config{}, wrap(ErrValidation, withReason("root is empty"))
	}

	cfg := Config{
		Root:              root,
		Ext:               defaultExt,
		Indent:            defaultIndent,
		FormatConcurrency: defaultFormatConcurrency,
		CacheEntries:      defaultCacheEntries,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.Indent < 0 {
		return Config{}, wrap(ErrBadOption, withReason("indent must be >= 0"))
	}

	if cfg.FormatConcurrency < minFormatConcurrency {
		cfg.FormatConcurrency = minFormatConcurrency
	}

	if cfg.FormatConcurrency > maxFormatConcurrency {
		cfg.FormatConcurrency = maxFormatConcurrency
	}

	if cfg.Ext == "" {
		cfg.Ext = defaultExt
	}

	return cfg, nil
}

func (c Config) serializerOptions() Options {
	return Options{Indent: c.Indent, KeyOrder: c.KeyOrder}
}

func (c Config) String() string {
	return fmt.Sprintf("Config{Root: %q, Ext: %q, Indent: %d, Sidecar: %v}",
		c.Root, c.Ext, c.Indent, c.EnableSidecar)
}
