package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	BackendFirestore = "firestore"
	BackendSQLite    = "sqlite"
	BackendRedis     = "redis"
	BackendMemory    = "memory"
)

var (
	ErrInvalidPriority = errors.New("invalid priority")
	ErrUnknownBackend  = errors.New("unknown backend")
)

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Priorities lists every priority in selector order.
func Priorities() []Priority {
	return []Priority{PriorityHigh, PriorityMedium, PriorityLow}
}

// ParsePriority accepts any casing; an empty value is Medium.
func ParsePriority(v string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPriority, v)
}

// Normalize maps stored values that don't parse to Medium.
func (p Priority) Normalize() Priority {
	parsed, err := ParsePriority(string(p))
	if err != nil {
		return PriorityMedium
	}
	return parsed
}

func (p Priority) Next() Priority {
	return p.step(1)
}

func (p Priority) Prev() Priority {
	return p.step(-1)
}

func (p Priority) step(delta int) Priority {
	all := Priorities()
	cur := 0
	for i, q := range all {
		if q == p.Normalize() {
			cur = i
			break
		}
	}
	n := len(all)
	return all[((cur+delta)%n+n)%n]
}

func (p Priority) String() string {
	return string(p.Normalize())
}

// Task mirrors one document in the task collection. ID is empty until the
// store has assigned one on first save.
type Task struct {
	ID       string
	Text     string
	Done     bool
	Priority Priority
}

// Store is one document collection of tasks. Every call is a single round
// trip; there is no batching and no retry.
type Store interface {
	// LoadAll returns every document in the collection.
	LoadAll(ctx context.Context) ([]Task, error)
	// Save overwrites the document at t.ID, or creates one and writes the
	// generated identifier back into t.ID.
	Save(ctx context.Context, t *Task) error
	// Delete removes the document at t.ID. Tasks without an ID are ignored.
	Delete(ctx context.Context, t Task) error
	Close() error
}

// Options selects and configures a backend for Open.
type Options struct {
	Backend string

	CredentialsFile string
	ProjectID       string
	Collection      string

	DBPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Logger *slog.Logger
}

// Open connects to the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("backend", opts.Backend)

	switch opts.Backend {
	case BackendFirestore:
		return OpenFirestore(ctx, opts.CredentialsFile, opts.ProjectID, opts.Collection, logger)
	case BackendSQLite:
		return OpenSQLite(opts.DBPath, logger)
	case BackendRedis:
		return OpenRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.Collection, logger)
	case BackendMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
}
