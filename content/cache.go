package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"recital/logger"
)

// Backing is the persistent layer under the in-memory cache.
type Backing interface {
	ChapterList() ([]byte, bool, error)
	PutChapterList(payload []byte) error
	ChapterDetails(chapter int, narrator string) ([]byte, bool, error)
	PutChapterDetails(chapter int, narrator string, payload []byte) error
	DeleteChapterDetails(chapter int, narrator string) error
	PurgeChapterDetails() error
}

type detailsKey struct {
	chapter  int
	narrator string
}

// FallbackTTL bounds how long an untimed chapter fetched for a narrator that
// publishes timings is served from memory before timings are tried again.
const FallbackTTL = 10 * time.Minute

type cachedDetails struct {
	details *Details
	// expires is zero for entries that never expire.
	expires time.Time
}

// Cache serves chapter data from memory, then the backing store, then the
// wrapped source. Entries are keyed by chapter and narrator.
type Cache struct {
	src     Source
	backing Backing
	timings TimingCatalog
	logger  *slog.Logger

	now func() time.Time

	mu      sync.RWMutex
	list    []Chapter
	details map[detailsKey]cachedDetails
}

var _ Source = (*Cache)(nil)

// NewCache wraps src. backing may be nil for a memory-only cache.
func NewCache(src Source, backing Backing, timings TimingCatalog) *Cache {
	return &Cache{
		src:     src,
		backing: backing,
		timings: timings,
		logger:  logger.WithComponent("content-cache"),
		now:     time.Now,
		details: make(map[detailsKey]cachedDetails),
	}
}

// ChapterList returns the table of contents
func (c *Cache) ChapterList(ctx context.Context) ([]Chapter, error) {
	c.mu.RLock()
	list := c.list
	c.mu.RUnlock()
	if list != nil {
		return list, nil
	}

	if c.backing != nil {
		payload, ok, err := c.backing.ChapterList()
		if err != nil {
			c.logger.Warn("Failed to read cached chapter list", slog.Any("error", err))
		} else if ok {
			var stored []Chapter
			if err := json.Unmarshal(payload, &stored); err == nil && len(stored) > 0 {
				c.setList(stored)
				return stored, nil
			}
		}
	}

	fetched, err := c.src.ChapterList(ctx)
	if err != nil {
		return nil, err
	}
	c.setList(fetched)
	if c.backing != nil {
		if payload, err := json.Marshal(fetched); err == nil {
			if err := c.backing.PutChapterList(payload); err != nil {
				c.logger.Warn("Failed to persist chapter list", slog.Any("error", err))
			}
		}
	}
	return fetched, nil
}

func (c *Cache) setList(list []Chapter) {
	c.mu.Lock()
	c.list = list
	c.mu.Unlock()
}

// ChapterDetails returns one chapter as seen by narrator. A stored entry
// that lacks chapter-level audio while the narrator publishes it was written
// before timing support existed; it is discarded and fetched again. A fresh
// fetch that fell back to per-verse audio is kept in memory for FallbackTTL
// and never persisted.
func (c *Cache) ChapterDetails(ctx context.Context, number int, narrator string) (*Details, error) {
	key := detailsKey{chapter: number, narrator: narrator}

	c.mu.RLock()
	entry, ok := c.details[key]
	c.mu.RUnlock()
	if ok {
		if entry.expires.IsZero() || c.now().Before(entry.expires) {
			return entry.details, nil
		}
		c.forget(key)
	}

	if d := c.fromBacking(key); d != nil {
		return d, nil
	}

	fetched, err := c.src.ChapterDetails(ctx, number, narrator)
	if err != nil {
		return nil, err
	}

	if c.stale(fetched, narrator) {
		c.logger.Debug("Keeping untimed chapter in memory only",
			slog.Int("chapter", number), slog.String("narrator", narrator))
		c.mu.Lock()
		c.details[key] = cachedDetails{details: fetched, expires: c.now().Add(FallbackTTL)}
		c.mu.Unlock()
		return fetched, nil
	}

	c.mu.Lock()
	c.details[key] = cachedDetails{details: fetched}
	c.mu.Unlock()

	if c.backing != nil {
		payload, err := json.Marshal(fetched)
		if err == nil {
			err = c.backing.PutChapterDetails(number, narrator, payload)
		}
		if err != nil {
			c.logger.Warn("Failed to persist chapter",
				slog.Int("chapter", number), slog.Any("error", err))
		}
	}
	return fetched, nil
}

func (c *Cache) fromBacking(key detailsKey) *Details {
	if c.backing == nil {
		return nil
	}

	payload, ok, err := c.backing.ChapterDetails(key.chapter, key.narrator)
	if err != nil {
		c.logger.Warn("Failed to read cached chapter",
			slog.Int("chapter", key.chapter), slog.Any("error", err))
		return nil
	}
	if !ok {
		return nil
	}

	var d Details
	if err := json.Unmarshal(payload, &d); err != nil || d.Validate() != nil || c.stale(&d, key.narrator) {
		c.logger.Info("Discarding cached chapter",
			slog.Int("chapter", key.chapter), slog.String("narrator", key.narrator))
		c.drop(key)
		return nil
	}

	c.mu.Lock()
	c.details[key] = cachedDetails{details: &d}
	c.mu.Unlock()
	return &d
}

func (c *Cache) stale(d *Details, narrator string) bool {
	if d.Timed() || c.timings == nil {
		return false
	}
	_, supported := c.timings.TimingID(narrator)
	return supported
}

func (c *Cache) forget(key detailsKey) {
	c.mu.Lock()
	delete(c.details, key)
	c.mu.Unlock()
}

func (c *Cache) drop(key detailsKey) {
	c.forget(key)

	if c.backing != nil {
		if err := c.backing.DeleteChapterDetails(key.chapter, key.narrator); err != nil {
			c.logger.Warn("Failed to delete cached chapter",
				slog.Int("chapter", key.chapter), slog.Any("error", err))
		}
	}
}

// Purge drops every cached chapter for every narrator. The chapter list is
// narrator independent and survives.
func (c *Cache) Purge() error {
	c.mu.Lock()
	c.details = make(map[detailsKey]cachedDetails)
	c.mu.Unlock()

	if c.backing != nil {
		if err := c.backing.PurgeChapterDetails(); err != nil {
			return fmt.Errorf("purge chapter cache: %w", err)
		}
	}
	c.logger.Debug("Chapter cache purged")
	return nil
}
