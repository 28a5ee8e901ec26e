// Package storage keeps a local, expiring history of probe outcomes.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Record is one completed hello or shapes call.
type Record struct {
	RequestID  string    `json:"request_id"`
	Endpoint   string    `json:"endpoint"`
	Outcome    string    `json:"outcome"`
	Kind       string    `json:"kind"`
	StatusCode int       `json:"status_code"`
	RecordedAt time.Time `json:"recorded_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Store persists outcome records.
type Store interface {
	Close() error
	Record(rec Record) error
	// Recent returns up to limit unexpired records, newest first. limit <= 0 means all.
	Recent(limit int) ([]Record, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	RecordTTL       time.Duration
	CleanupInterval time.Duration
}

const (
	defaultRecordTTL       = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.RecordTTL <= 0 {
		opts.RecordTTL = defaultRecordTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                 { return nil }
func (noopStore) Record(Record) error          { return nil }
func (noopStore) Recent(int) ([]Record, error) { return nil, nil }
