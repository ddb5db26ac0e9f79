package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// ValidationResult separates problems that must stop startup from ones
// that were corrected or can be ignored.
type ValidationResult struct {
	Fatals   []error
	Warnings []error
}

func (r ValidationResult) HasFatals() bool { return len(r.Fatals) > 0 }

// Err joins every fatal problem, or returns nil.
func (r ValidationResult) Err() error { return errors.Join(r.Fatals...) }

func (r *ValidationResult) fatal(format string, args ...any) {
	r.Fatals = append(r.Fatals, fmt.Errorf(format, args...))
}

func (r *ValidationResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Errorf(format, args...))
}

// clamp pulls *v into [lo, hi], warning when it had to.
func (r *ValidationResult) clamp(key string, v *int, lo, hi int) {
	switch {
	case *v < lo:
		r.warn("%s %d is below minimum %d, clamping", key, *v, lo)
		*v = lo
	case *v > hi:
		r.warn("%s %d exceeds maximum %d, clamping", key, *v, hi)
		*v = hi
	}
}

// ValidateTiered checks the config. Out-of-range numbers are clamped and
// reported as warnings; values that would make the bridge unreachable or
// the profile store unwritable are fatal.
func (c *Config) ValidateTiered() ValidationResult {
	var r ValidationResult

	switch pipe := strings.TrimSpace(c.PipePath); {
	case pipe == "":
		r.fatal("pipe_path must not be empty")
	case runtime.GOOS == "windows" && !strings.HasPrefix(pipe, `\\.\pipe\`):
		r.fatal(`pipe_path %q must start with \\.\pipe\`, c.PipePath)
	}

	switch ext := strings.ToLower(filepath.Ext(c.ProfilesFile)); {
	case strings.TrimSpace(c.ProfilesFile) == "":
		r.fatal("profiles_file must not be empty")
	case ext != ".yaml" && ext != ".yml":
		r.warn("profiles_file %q does not have a .yaml extension", c.ProfilesFile)
	}

	r.clamp("poll_interval_seconds", &c.PollIntervalSeconds, 1, 300)
	r.clamp("max_connections", &c.MaxConnections, 1, 64)
	r.clamp("log_max_size_mb", &c.LogMaxSizeMB, 1, 500)
	r.clamp("log_max_backups", &c.LogMaxBackups, 0, 20)

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		r.warn("log_level %q is not valid (use debug, info, warn or error)", c.LogLevel)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		r.warn("log_format %q is not valid (use text or json)", c.LogFormat)
	}

	if c.FallbackToFirstDisplay {
		r.warn("fallback_to_first_display is enabled: unknown display ids will act on the first enumerated display")
	}
	return r
}
