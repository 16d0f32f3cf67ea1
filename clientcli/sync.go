package clientcli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sagarc03/bucketfs"
	"golang.org/x/sync/errgroup"
)

// localFile is a file found by the directory walk.
type localFile struct {
	path    string
	rel     string
	size    int64
	modTime time.Time
}

// Sync uploads every file under opts.Dir whose remote copy is missing or older.
//
// A failure to read the remote modified time, of any kind, counts as "not uploaded".
// Per-file failures are reported in the results and do not stop the run; the returned
// error is set only when the walk fails or ctx is cancelled.
func (c *Client) Sync(ctx context.Context, opts SyncOptions) ([]SyncResult, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("sync: %w", ErrEmptyPath)
	}

	excludes, err := compileExcludes(opts.Exclude)
	if err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}

	files, err := walk(opts.Dir, excludes)
	if err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}

	workers := c.workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}

	prefix := strings.Trim(bucketfs.NormalizeName(opts.Prefix), "/")
	results := make([]SyncResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range files {
		if gctx.Err() != nil {
			break
		}
		f := files[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = c.syncFile(gctx, f, path.Join(prefix, f.rel), opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("sync: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("sync: %w", err)
	}

	return results, nil
}

func (c *Client) syncFile(ctx context.Context, f localFile, key string, opts SyncOptions) SyncResult {
	result := SyncResult{LocalPath: f.path, Key: key, Size: f.size}

	if !opts.Force {
		remote, err := c.storage.ModifiedTime(ctx, key, !opts.UseCache)
		switch {
		case err != nil:
			if !errors.Is(err, bucketfs.ErrNotFound) {
				slog.Debug("remote modified time unavailable", "key", key, "err", err)
			}
		case !remote.Before(f.modTime.Truncate(time.Second)):
			result.Action = SyncSkipped
			return result
		}
	}

	if err := c.upload(ctx, f.path, key); err != nil {
		result.Action = SyncFailed
		result.Err = err
		return result
	}

	result.Action = SyncUploaded
	return result
}

func (c *Client) upload(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath) //#nosec G304 -- localPath comes from the walked directory
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := c.storage.Save(ctx, key, file); err != nil {
		return err
	}
	return nil
}

func compileExcludes(patterns []string) ([]*regexp.Regexp, error) {
	if patterns == nil {
		patterns = DefaultExcludes
	}

	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidExclude, p, err)
		}
		res = append(res, re)
	}
	return res, nil
}

// excluded matches rel, the slash-separated path below the sync root. The root's own
// name is not part of it, so patterns are independent of where the tree lives.
func excluded(rel string, excludes []*regexp.Regexp) bool {
	for _, re := range excludes {
		if re.MatchString(rel) {
			return true
		}
	}
	return false
}

// walk lists regular files under root in lexical order. Excluded directories are not
// descended into. Symlinked directories are followed, each real directory at most once.
func walk(root string, excludes []*regexp.Regexp) ([]localFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotADirectory, root)
	}

	var files []localFile
	visited := make(map[string]bool)

	var visit func(dir, rel string) error
	visit = func(dir, rel string) error {
		resolved, err := filepath.EvalSymlinks(dir)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", dir, err)
		}
		if visited[resolved] {
			return nil
		}
		visited[resolved] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("read dir %s: %w", dir, err)
		}

		for _, e := range entries {
			full := filepath.Join(dir, e.Name())
			childRel := path.Join(rel, e.Name())
			if excluded(childRel, excludes) {
				continue
			}

			// os.Stat follows symlinks.
			fi, err := os.Stat(full)
			if err != nil {
				slog.Warn("skipping unreadable path", "path", full, "err", err)
				continue
			}

			switch {
			case fi.IsDir():
				if err := visit(full, childRel); err != nil {
					return err
				}
			case fi.Mode().IsRegular():
				files = append(files, localFile{
					path:    full,
					rel:     childRel,
					size:    fi.Size(),
					modTime: fi.ModTime(),
				})
			}
		}
		return nil
	}

	if err := visit(root, ""); err != nil {
		return nil, err
	}
	return files, nil
}
