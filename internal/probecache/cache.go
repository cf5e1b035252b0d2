// Package probecache remembers bootstrap and last-page probe results per
// file so repeated inspections skip the backward scan.
package probecache

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/llehouerou/vorbisdemux/internal/db"
)

// Entry is the cached probe result for one file.
type Entry struct {
	Path       string
	Size       int64
	ModTime    time.Time
	SampleRate uint32
	Channels   uint8
	BlockSmall int
	BlockLarge int
	Vendor     string

	// Optional: nil when the probe did not find them.
	AudioStart    *int64
	LastPageStart *int64
	LastPageEnd   *int64
	TotalSamples  *int64

	ProbedAt time.Time
}

// Cache is a SQLite-backed probe cache.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection keeps :memory: databases shared and writes serialized
	sqlDB.SetMaxOpenConns(1)

	if err := initSchema(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &Cache{db: sqlDB}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the entry for path if it was stored for the same size and
// modification time. A missing or stale entry returns nil without error.
func (c *Cache) Get(ctx context.Context, path string, size int64, modTime time.Time) (*Entry, error) {
	var (
		e                     Entry
		mtime, probedAt       int64
		channels              int64
		vendor                sql.NullString
		audioStart, lastStart sql.NullInt64
		lastEnd, totalSamples sql.NullInt64
	)
	err := c.db.QueryRowContext(ctx, `
		SELECT path, size, mtime, sample_rate, channels, block_small, block_large,
			vendor, audio_start, last_page_start, last_page_end, total_samples, probed_at
		FROM probes WHERE path = ?
	`, path).Scan(
		&e.Path, &e.Size, &mtime, &e.SampleRate, &channels, &e.BlockSmall, &e.BlockLarge,
		&vendor, &audioStart, &lastStart, &lastEnd, &totalSamples, &probedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if e.Size != size || mtime != modTime.UnixNano() {
		return nil, nil
	}

	e.ModTime = time.Unix(0, mtime)
	e.Channels = uint8(channels)
	e.Vendor = db.NullStringValue(vendor)
	e.AudioStart = db.NullInt64ToPtr(audioStart)
	e.LastPageStart = db.NullInt64ToPtr(lastStart)
	e.LastPageEnd = db.NullInt64ToPtr(lastEnd)
	e.TotalSamples = db.NullInt64ToPtr(totalSamples)
	e.ProbedAt = time.Unix(0, probedAt)
	return &e, nil
}

// Put stores e, replacing any earlier entry for the same path.
func (c *Cache) Put(ctx context.Context, e Entry) error {
	if e.ProbedAt.IsZero() {
		e.ProbedAt = time.Now()
	}
	return db.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM probes WHERE path = ?`, e.Path); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO probes (path, size, mtime, sample_rate, channels, block_small, block_large,
				vendor, audio_start, last_page_start, last_page_end, total_samples, probed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			e.Path, e.Size, e.ModTime.UnixNano(), e.SampleRate, int64(e.Channels), e.BlockSmall, e.BlockLarge,
			db.NullStringFrom(e.Vendor), db.NullInt64From(e.AudioStart),
			db.NullInt64From(e.LastPageStart), db.NullInt64From(e.LastPageEnd),
			db.NullInt64From(e.TotalSamples), e.ProbedAt.UnixNano(),
		)
		return err
	})
}

// Delete removes the entry for path.
func (c *Cache) Delete(ctx context.Context, path string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM probes WHERE path = ?`, path)
	return err
}

// Prune removes entries probed before cutoff and returns how many were removed.
func (c *Cache) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM probes WHERE probed_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
