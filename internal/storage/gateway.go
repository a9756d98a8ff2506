package storage

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"strings"

	"github.com/conorfennell/notetaker/internal/domain"
)

const (
	// DefaultName is the name of the notes database.
	DefaultName = "notes"
	// SchemaVersion is the current version of the notes table layout.
	SchemaVersion = 4

	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"

	scanPageSize = 64
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrConstraint  = errors.New("constraint violation")
	ErrStorage     = errors.New("storage error")
	ErrUnavailable = errors.New("local storage unavailable")
	ErrVersion     = errors.New("stored schema version is newer than requested")
)

// Gateway is the single-table note store. Every call returns exactly one
// result or one error.
type Gateway interface {
	Get(ctx context.Context, id int64) (domain.Note, error)
	Add(ctx context.Context, note domain.Note) (int64, error)
	Put(ctx context.Context, note domain.Note) error
	Delete(ctx context.Context, id int64) error
	// Scan yields every record in table order. Each call starts a fresh pass.
	Scan(ctx context.Context) iter.Seq2[domain.Note, error]
	// Drop closes the gateway and removes the database from disk.
	Drop(ctx context.Context) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend string
	Dir     string
	Name    string
	Version int
	// UniqueTitles enables the title-keyed mode: Add and Put reject a
	// title that another record already uses.
	UniqueTitles bool
}

func (o Options) withDefaults() Options {
	if o.Backend == "" {
		o.Backend = BackendSQLite
	}
	if o.Dir == "" {
		o.Dir = "."
	}
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Version <= 0 {
		o.Version = SchemaVersion
	}
	return o
}

// Open opens (creating or upgrading as needed) the database described by opts.
func Open(ctx context.Context, opts Options) (Gateway, error) {
	opts = opts.withDefaults()
	if strings.ContainsAny(opts.Name, `/\`) {
		return nil, fmt.Errorf("invalid database name %q: %w", opts.Name, ErrUnavailable)
	}
	if err := os.MkdirAll(opts.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("create database directory %s: %w: %v", opts.Dir, ErrUnavailable, err)
	}

	var (
		gw  Gateway
		err error
	)
	switch opts.Backend {
	case BackendSQLite:
		gw, err = openSQLite(ctx, opts)
	case BackendBolt:
		gw, err = openBolt(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return gw, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStorage, err)
}

// pagedScan turns a keyset page fetcher into a lazy sequence. No read
// transaction stays open while the consumer runs.
func pagedScan(ctx context.Context, fetch func(ctx context.Context, after int64, limit int) ([]domain.Note, error)) iter.Seq2[domain.Note, error] {
	return func(yield func(domain.Note, error) bool) {
		var after int64
		for {
			if err := ctx.Err(); err != nil {
				yield(domain.Note{}, err)
				return
			}
			page, err := fetch(ctx, after, scanPageSize)
			if err != nil {
				yield(domain.Note{}, err)
				return
			}
			for _, n := range page {
				if !yield(n, nil) {
					return
				}
				after = n.ID
			}
			if len(page) < scanPageSize {
				return
			}
		}
	}
}
