// Package config provides permissive configuration handling for bot
// construction.
//
// Config wraps a map[string]any with type-safe accessors that never fail:
// missing keys and type mismatches fall back to caller-supplied defaults.
// Files load from YAML or JSON; nested sections (dispatcher, adapters,
// journal) are reached with Sub. botkit.FromConfig maps a Config onto
// dispatcher and supervisor options.
package config
