package sandbox

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"ptoj-judger/pkg/logger"
)

// entry pairs a cached PreparedFile id with its last access time.
type entry struct {
	fileID     string
	lastAccess time.Time
}

// FileCache is a time-expiring mapping from a logical identifier
// (content hash, well-known name) to a sandbox file id, used to avoid
// re-uploading stable artifacts across test cases and submissions.
type FileCache struct {
	mu      sync.Mutex
	entries map[string]entry
	expire  time.Duration
	gap     time.Duration
	baseURL string
	log     *logger.Logger

	evictOnce sync.Once
	stopCh    chan struct{}
	deletes   sync.WaitGroup

	deleteFn func(ctx context.Context, fileID string) error
}

// NewFileCache builds a File Cache. Deletes are issued through the
// function installed with SetDeleter (NewClient installs its own
// DeleteFile); until one is installed, scheduled deletes are dropped.
func NewFileCache(expire, recycleGap time.Duration, baseURL string, log *logger.Logger) *FileCache {
	if expire <= 0 {
		expire = 30 * time.Minute
	}
	if recycleGap <= 0 {
		recycleGap = time.Minute
	}
	if log == nil {
		log = logger.Get()
	}
	fc := &FileCache{
		entries: make(map[string]entry),
		expire:  expire,
		gap:     recycleGap,
		baseURL: baseURL,
		log:     log,
		stopCh:  make(chan struct{}),
	}
	return fc
}

// SetDeleter sets how the cache deletes sandbox-side files. NewClient
// uses it to route deletes through the client; tests use it to spy on
// eviction without a real HTTP round trip.
func (c *FileCache) SetDeleter(fn func(ctx context.Context, fileID string) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteFn = fn
}

// Get refreshes lastAccess and returns the cached file id, if present.
func (c *FileCache) Get(id string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return "", false
	}
	e.lastAccess = time.Now()
	c.entries[id] = e
	return e.fileID, true
}

// Set stores fileID under id. If id was already present, the old
// sandbox file is scheduled for deletion. The background evictor is
// started on first use.
func (c *FileCache) Set(id, fileID string) {
	c.evictOnce.Do(c.startEvictor)

	c.mu.Lock()
	old, had := c.entries[id]
	c.entries[id] = entry{fileID: fileID, lastAccess: time.Now()}
	c.mu.Unlock()

	if had && old.fileID != fileID {
		c.scheduleDelete(old.fileID)
	}
}

// Close stops the evictor, deletes every remaining entry concurrently,
// and joins all outstanding deletes before returning.
func (c *FileCache) Close() {
	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}

	c.mu.Lock()
	ids := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		ids = append(ids, e.fileID)
	}
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	for _, id := range ids {
		c.scheduleDelete(id)
	}
	c.deletes.Wait()
}

func (c *FileCache) startEvictor() {
	go func() {
		ticker := time.NewTicker(c.gap)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.evictExpired()
			}
		}
	}()
}

func (c *FileCache) evictExpired() {
	now := time.Now()
	c.mu.Lock()
	var expired []string
	for id, e := range c.entries {
		if now.Sub(e.lastAccess) > c.expire {
			expired = append(expired, e.fileID)
			delete(c.entries, id)
		}
	}
	c.mu.Unlock()

	for _, fileID := range expired {
		c.scheduleDelete(fileID)
	}
}

// scheduleDelete fires a best-effort background delete; failures are
// logged and dropped since a failed delete is a sandbox-side resource
// leak, not a correctness failure here.
func (c *FileCache) scheduleDelete(fileID string) {
	c.deletes.Add(1)
	go func() {
		defer c.deletes.Done()
		c.mu.Lock()
		fn := c.deleteFn
		c.mu.Unlock()
		if fn == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := fn(ctx, fileID); err != nil {
			c.log.Warn(ctx, "file cache: evict delete failed", zap.String("fileId", fileID), zap.Error(err))
		}
	}()
}
