package metrics

import (
	"context"
	"time"

	"github.com/sagarc03/bucketfs"
)

type instrumentedCache struct {
	next    bucketfs.MetadataCache
	metrics *Metrics
}

// InstrumentCache returns cache with every operation counted on m.
func InstrumentCache(cache bucketfs.MetadataCache, m *Metrics) bucketfs.MetadataCache {
	return &instrumentedCache{next: cache, metrics: m}
}

func (c *instrumentedCache) Exists(ctx context.Context, name string) bucketfs.Existence {
	e := c.next.Exists(ctx, name)
	c.metrics.observeCache("exists", e.String())
	return e
}

func (c *instrumentedCache) Size(ctx context.Context, name string) (int64, bool) {
	size, ok := c.next.Size(ctx, name)
	c.metrics.observeCache("size", hitOrMiss(ok))
	return size, ok
}

func (c *instrumentedCache) ModifiedTime(ctx context.Context, name string) (time.Time, bool) {
	mtime, ok := c.next.ModifiedTime(ctx, name)
	c.metrics.observeCache("modified_time", hitOrMiss(ok))
	return mtime, ok
}

func (c *instrumentedCache) Save(ctx context.Context, name string, size int64, mtime time.Time) error {
	err := c.next.Save(ctx, name, size, mtime)
	c.metrics.observeCache("save", okOrError(err))
	return err
}

func (c *instrumentedCache) Remove(ctx context.Context, name string) error {
	err := c.next.Remove(ctx, name)
	c.metrics.observeCache("remove", okOrError(err))
	return err
}

func (c *instrumentedCache) Forget(ctx context.Context, name string) error {
	err := c.next.Forget(ctx, name)
	c.metrics.observeCache("forget", okOrError(err))
	return err
}

func hitOrMiss(ok bool) string {
	if ok {
		return "hit"
	}
	return "miss"
}

func okOrError(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
