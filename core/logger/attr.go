package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Attribute helpers return an empty Attr for zero values, so callers can pass
// them unconditionally: log.Warn("cleanup failed", logger.Error(err)).

// Group creates a group of attributes under a single key.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// ============================================================================
// Error Handling
// ============================================================================

// Errors groups multiple non-nil errors under the key "errors".
// Uses index-based keys to preserve error order. Returns empty Attr for all nil errors.
func Errors(errs ...error) slog.Attr {
	count := 0
	for _, err := range errs {
		if err != nil {
			count++
		}
	}
	if count == 0 {
		return slog.Attr{}
	}

	as := make([]slog.Attr, 0, count)
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// ============================================================================
// Timing
// ============================================================================

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Elapsed calculates the duration since start.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// ============================================================================
// Certificates and ACME
// ============================================================================

// Domains creates an attribute for an ordered domain list.
func Domains(domains []string) slog.Attr {
	if len(domains) == 0 {
		return slog.Attr{}
	}
	return slog.Any("domains", domains)
}

// Domain creates an attribute for a single domain.
func Domain(domain string) slog.Attr {
	if domain == "" {
		return slog.Attr{}
	}
	return slog.String("domain", domain)
}

// Certificate creates an attribute for a certificate canonical name.
func Certificate(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("certificate", name)
}

// Authenticator creates an attribute for an authenticator name.
func Authenticator(name string) slog.Attr {
	return slog.String("authenticator", name)
}

// Challenge creates an attribute for a challenge type.
func Challenge(kind string) slog.Attr {
	if kind == "" {
		return slog.Attr{}
	}
	return slog.String("challenge", kind)
}

// ============================================================================
// Cloud Resources
// ============================================================================

// Zone creates an attribute for a hosted zone ID.
func Zone(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("zone_id", id)
}

// ChangeID creates an attribute for a DNS change ID.
func ChangeID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("change_id", id)
}

// ARN creates an attribute for an AWS resource name.
func ARN(arn string) slog.Attr {
	if arn == "" {
		return slog.Attr{}
	}
	return slog.String("arn", arn)
}

// Key creates an attribute for an object storage key.
func Key(key string) slog.Attr {
	if key == "" {
		return slog.Attr{}
	}
	return slog.String("key", key)
}

// ============================================================================
// Generic Metadata
// ============================================================================

// RunID creates an attribute for a batch run identifier.
func RunID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("run_id", id)
}

// Component creates an attribute for component names.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Action creates an attribute for action names.
func Action(action string) slog.Attr {
	return slog.String("action", action)
}

// Result creates an attribute for operation results (success/failure).
func Result(result string) slog.Attr {
	return slog.String("result", result)
}

// Count creates a generic counter attribute.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// RetryCount creates an attribute for retry attempts.
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}
