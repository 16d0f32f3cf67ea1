// Package filecache provides a metadata cache that keeps one small record file per
// object in a local directory.
//
// Each record is named after the MD5 hex digest of the object name and holds three
// lines: the name, the size in bytes and the modification time in Unix seconds. An
// mtime of 0 marks an upload placeholder. Records are replaced atomically through a
// temp file and rename, so concurrent readers never observe a partial record.
package filecache

import (
	"context"
	"crypto/md5" //nolint:gosec // G501: record file names only, not a security control
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/bucketfs"
)

// Cache is a bucketfs.MetadataCache backed by a directory.
type Cache struct {
	root *os.Root
}

var _ bucketfs.MetadataCache = (*Cache)(nil)

// New creates a Cache on an already opened root.
// The root provides sandboxed file operations preventing path traversal.
func New(root *os.Root) *Cache {
	return &Cache{root: root}
}

// Open creates dir if needed and returns a Cache rooted there.
func Open(dir string) (*Cache, error) {
	if dir == "" {
		return nil, fmt.Errorf("open file cache: %w: directory is empty", bucketfs.ErrConfiguration)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("open file cache: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open file cache: %w", err)
	}
	return New(root), nil
}

// Close releases the underlying root.
func (c *Cache) Close() error {
	return c.root.Close()
}

type record struct {
	name  string
	size  int64
	mtime time.Time
}

// Exists reports Present when a record for name exists. A directory of records
// cannot prove absence, so everything else is Unknown.
func (c *Cache) Exists(ctx context.Context, name string) bucketfs.Existence {
	if _, ok := c.load(ctx, name); ok {
		return bucketfs.Present
	}
	return bucketfs.Unknown
}

// Size returns the recorded size. Placeholders have no size.
func (c *Cache) Size(ctx context.Context, name string) (int64, bool) {
	rec, ok := c.load(ctx, name)
	if !ok || rec.mtime.IsZero() {
		return 0, false
	}
	return rec.size, true
}

// ModifiedTime returns the recorded modification time. Placeholders have none.
func (c *Cache) ModifiedTime(ctx context.Context, name string) (time.Time, bool) {
	rec, ok := c.load(ctx, name)
	if !ok || rec.mtime.IsZero() {
		return time.Time{}, false
	}
	return rec.mtime, true
}

// Save atomically replaces the record for name.
func (c *Cache) Save(ctx context.Context, name string, size int64, mtime time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmpFile := tmpFileName()
	t, err := c.root.Create(tmpFile)
	if err != nil {
		return fmt.Errorf("save cache record: could not open temp file: %w", err)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := c.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	if _, err := fmt.Fprintf(t, "%s\n%d\n%s", name, size, formatMTime(mtime)); err != nil {
		return fmt.Errorf("save cache record: %w", err)
	}
	if err := t.Sync(); err != nil {
		return fmt.Errorf("save cache record: could not sync: %w", err)
	}
	if err := t.Close(); err != nil {
		return fmt.Errorf("save cache record: could not close: %w", err)
	}

	if err := c.root.Rename(tmpFile, recordFileName(name)); err != nil {
		return fmt.Errorf("save cache record: failed to rename: %w", err)
	}

	success = true
	return nil
}

// Remove deletes the record for name. A missing record is not an error.
func (c *Cache) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := c.root.Remove(recordFileName(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache record: %w", err)
	}
	return nil
}

// Forget is Remove: a record file cannot express a deletion.
func (c *Cache) Forget(ctx context.Context, name string) error {
	return c.Remove(ctx, name)
}

// load reads the record for name. Unreadable or malformed records count as missing.
func (c *Cache) load(ctx context.Context, name string) (record, bool) {
	if ctx.Err() != nil {
		return record{}, false
	}

	data, err := c.root.ReadFile(recordFileName(name))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Debug("unreadable cache record", "name", name, "err", err)
		}
		return record{}, false
	}

	lines := strings.Split(string(data), "\n")
	if len(lines) < 3 || lines[0] != name {
		return record{}, false
	}

	size, err := strconv.ParseInt(strings.TrimSpace(lines[1]), 10, 64)
	if err != nil {
		return record{}, false
	}
	mtime, err := parseMTime(strings.TrimSpace(lines[2]))
	if err != nil {
		return record{}, false
	}

	return record{name: name, size: size, mtime: mtime}, true
}

func recordFileName(name string) string {
	sum := md5.Sum([]byte(name)) //nolint:gosec // G401: see import
	return hex.EncodeToString(sum[:])
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}

func formatMTime(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	if t.Nanosecond() == 0 {
		return strconv.FormatInt(t.Unix(), 10)
	}
	frac := strings.TrimRight(fmt.Sprintf("%09d", t.Nanosecond()), "0")
	return strconv.FormatInt(t.Unix(), 10) + "." + frac
}

// parseMTime accepts integer or fractional Unix seconds. "0" is the placeholder.
func parseMTime(s string) (time.Time, error) {
	secRaw, fracRaw, _ := strings.Cut(s, ".")
	sec, err := strconv.ParseInt(secRaw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}

	var nsec int64
	if fracRaw != "" {
		if len(fracRaw) > 9 {
			fracRaw = fracRaw[:9]
		}
		nsec, err = strconv.ParseInt(fracRaw+strings.Repeat("0", 9-len(fracRaw)), 10, 64)
		if err != nil {
			return time.Time{}, err
		}
	}

	if sec == 0 && nsec == 0 {
		return time.Time{}, nil
	}
	return time.Unix(sec, nsec).UTC(), nil
}
