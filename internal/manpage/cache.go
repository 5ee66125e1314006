package manpage

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/wildcard/caro/internal/logging"
	"github.com/wildcard/caro/internal/model"
	"github.com/wildcard/caro/internal/platform"
)

const defaultTTL = 30 * 24 * time.Hour

// Cache is the process-wide ManPageCache: a platform-fingerprinted,
// TTL-refreshed map of tool name to model.ToolInfo. Reads are lock-free
// where possible; writes (build, refresh, lazy insert) are serialized.
type Cache struct {
	mu          sync.RWMutex
	tools       map[string]model.ToolInfo
	fingerprint platform.Fingerprint
	builtAt     time.Time
	ttl         time.Duration

	watcher *fsnotify.Watcher
	watchWg sync.WaitGroup
	stopCh  chan struct{}
}

// New constructs an empty Cache for the given platform fingerprint. Call
// Build to populate it.
func New(fp platform.Fingerprint) *Cache {
	return &Cache{
		tools:       make(map[string]model.ToolInfo),
		fingerprint: fp,
		ttl:         defaultTTL,
	}
}

// Lookup implements internal/validator.ToolLookup.
func (c *Cache) Lookup(tool string) (model.ToolInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.tools[tool]
	return info, ok
}

// Stale reports whether the cache needs a rebuild: either it has never
// been built, its TTL has elapsed, or the platform fingerprint it was
// built for no longer matches fp.
func (c *Cache) Stale(fp platform.Fingerprint) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.builtAt.IsZero() {
		return true
	}
	if c.fingerprint != fp {
		return true
	}
	return time.Since(c.builtAt) > c.ttl
}

// Build enumerates CommonTools and parses each in parallel, replacing the
// cache's contents atomically once all parses complete.
func (c *Cache) Build(ctx context.Context, tools []string) {
	if tools == nil {
		tools = CommonTools
	}
	log := logging.Get(logging.CategoryManPage)
	timer := logging.StartTimer(logging.CategoryManPage, "build")
	defer timer.Stop()

	results := make(chan model.ToolInfo, len(tools))
	var wg sync.WaitGroup
	for _, tool := range tools {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			results <- parseTool(ctx, name)
		}(tool)
	}
	wg.Wait()
	close(results)

	fresh := make(map[string]model.ToolInfo, len(tools))
	for info := range results {
		fresh[info.Name] = info
	}

	c.mu.Lock()
	c.tools = fresh
	c.builtAt = time.Now()
	c.mu.Unlock()

	log.Info("man-page cache built: %d tools for %s/%s", len(fresh), c.fingerprint.OS, c.fingerprint.Flavor)
}

// EnsureTool performs a lazy single-tool parse and cache insert when an
// unknown tool is encountered at validation time.
func (c *Cache) EnsureTool(ctx context.Context, tool string) model.ToolInfo {
	if info, ok := c.Lookup(tool); ok {
		return info
	}
	info := parseTool(ctx, tool)
	c.mu.Lock()
	c.tools[tool] = info
	c.mu.Unlock()
	return info
}

// RefreshIfStale rebuilds the cache when Stale(fp) is true, returning
// whether a rebuild happened.
func (c *Cache) RefreshIfStale(ctx context.Context, fp platform.Fingerprint) bool {
	if !c.Stale(fp) {
		return false
	}
	c.fingerprint = fp
	c.Build(ctx, nil)
	return true
}

// WatchForChanges starts an fsnotify watcher over paths (the resolved
// binary locations of cached tools) so that a replaced binary triggers a
// lazy re-parse instead of waiting out the full TTL. Debounces rapid
// successive write events into a single re-parse.
func (c *Cache) WatchForChanges(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	c.watcher = watcher
	c.stopCh = make(chan struct{})

	c.mu.RLock()
	paths := make(map[string]string, len(c.tools))
	for name, info := range c.tools {
		if info.Path != "" {
			paths[info.Path] = name
			_ = watcher.Add(info.Path)
		}
	}
	c.mu.RUnlock()

	c.watchWg.Add(1)
	go c.watchLoop(ctx, paths)
	return nil
}

func (c *Cache) watchLoop(ctx context.Context, paths map[string]string) {
	defer c.watchWg.Done()
	log := logging.Get(logging.CategoryManPage)

	debounce := make(map[string]time.Time)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			debounce[event.Name] = time.Now()
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("man-page watcher error: %v", err)
		case <-ticker.C:
			now := time.Now()
			for path, seen := range debounce {
				if now.Sub(seen) < 500*time.Millisecond {
					continue
				}
				delete(debounce, path)
				if tool, ok := paths[path]; ok {
					log.Info("binary changed for %s, re-parsing", tool)
					info := parseTool(ctx, tool)
					c.mu.Lock()
					c.tools[tool] = info
					c.mu.Unlock()
				}
			}
		}
	}
}

// Stop tears down the fsnotify watcher, if running.
func (c *Cache) Stop() {
	if c.watcher == nil {
		return
	}
	close(c.stopCh)
	c.watchWg.Wait()
	_ = c.watcher.Close()
}
