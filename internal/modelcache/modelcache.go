// Package modelcache fetches, verifies, and evicts on-device model
// artifacts under a byte quota, using a content-addressed, digest-verified,
// LRU-evicted cache shape.
package modelcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wildcard/caro/internal/logging"
	"github.com/wildcard/caro/internal/model"
)

// ErrDigestMismatch is returned when a downloaded or cached file's SHA-256
// does not match the pinned digest; the file is quarantined.
var ErrDigestMismatch = fmt.Errorf("model artifact digest mismatch")

// ErrNetworkUnavailable wraps a download failure that engines should treat
// as a transient Unavailable condition rather than a hard error.
var ErrNetworkUnavailable = fmt.Errorf("model registry unreachable")

// RegistryEntry pins the expected digest and download URL for one
// (model, variant) pair.
type RegistryEntry struct {
	ModelID string
	Variant string
	URL     string
	SHA256  string
	Size    int64
}

// Cache is a content-addressed, LRU-evicted store of model artifacts.
type Cache struct {
	root      string
	maxBytes  int64
	registry  map[string]RegistryEntry
	client    *http.Client
	group     singleflight.Group
	mu        sync.Mutex
	inUse     map[string]int // refcount keyed by cache key; never evicted while >0
}

// New constructs a Cache rooted at root (created if missing), bounded to
// maxBytes, aware of the given registry entries.
func New(root string, maxBytes int64, registry []RegistryEntry) (*Cache, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create model cache root: %w", err)
	}
	reg := make(map[string]RegistryEntry, len(registry))
	for _, e := range registry {
		reg[key(e.ModelID, e.Variant)] = e
	}
	return &Cache{
		root:     root,
		maxBytes: maxBytes,
		registry: reg,
		client:   &http.Client{Timeout: 60 * time.Second},
		inUse:    make(map[string]int),
	}, nil
}

func key(modelID, variant string) string { return modelID + "@" + variant }

func (c *Cache) pathFor(modelID, variant string) string {
	return filepath.Join(c.root, modelID, variant+".bin")
}

// Get returns the cached, verified artifact for (modelID, variant),
// downloading it if absent. At most one download is ever in flight for a
// given key (golang.org/x/sync/singleflight).
func (c *Cache) Get(ctx context.Context, modelID, variant string) (*model.ModelArtifact, error) {
	k := key(modelID, variant)
	entry, ok := c.registry[k]
	if !ok {
		return nil, fmt.Errorf("no registry entry for %s", k)
	}

	path := c.pathFor(modelID, variant)
	if artifact, err := c.verifyOnDisk(path, entry); err == nil {
		c.touch(path)
		return artifact, nil
	}

	result, err, _ := c.group.Do(k, func() (interface{}, error) {
		return c.download(ctx, entry, path)
	})
	if err != nil {
		return nil, err
	}
	return result.(*model.ModelArtifact), nil
}

// Acquire increments the in-use refcount for a cache key so evictIfNeeded
// skips it.
func (c *Cache) Acquire(modelID, variant string) func() {
	k := key(modelID, variant)
	c.mu.Lock()
	c.inUse[k]++
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.inUse[k]--
		if c.inUse[k] <= 0 {
			delete(c.inUse, k)
		}
		c.mu.Unlock()
	}
}

func (c *Cache) verifyOnDisk(path string, entry RegistryEntry) (*model.ModelArtifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	sum, err := sha256File(path)
	if err != nil {
		return nil, err
	}
	if sum != entry.SHA256 {
		c.quarantine(path)
		return nil, ErrDigestMismatch
	}
	return &model.ModelArtifact{
		ModelID: entry.ModelID,
		Variant: entry.Variant,
		Size:    info.Size(),
		SHA256:  sum,
		Path:    path,
	}, nil
}

func (c *Cache) quarantine(path string) {
	quarantined := path + ".quarantined"
	_ = os.Rename(path, quarantined)
	logging.Get(logging.CategoryModelCache).Warn("quarantined %s: digest mismatch", path)
}

func (c *Cache) download(ctx context.Context, entry RegistryEntry, path string) (*model.ModelArtifact, error) {
	log := logging.Get(logging.CategoryModelCache)
	timer := logging.StartTimer(logging.CategoryModelCache, fmt.Sprintf("download %s@%s", entry.ModelID, entry.Variant))
	defer timer.Stop()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}

	tmpPath := path + ".partial"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrNetworkUnavailable, resp.StatusCode)
	}

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create partial file: %w", err)
	}
	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(f, hasher), resp.Body); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	f.Close()

	sum := hex.EncodeToString(hasher.Sum(nil))
	if sum != entry.SHA256 {
		os.Rename(tmpPath, tmpPath+".quarantined")
		log.Error("digest mismatch downloading %s@%s", entry.ModelID, entry.Variant)
		return nil, ErrDigestMismatch
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return nil, fmt.Errorf("promote downloaded artifact: %w", err)
	}

	if err := c.evictIfNeeded(); err != nil {
		log.Warn("eviction after download failed: %v", err)
	}

	info, _ := os.Stat(path)
	size := entry.Size
	if info != nil {
		size = info.Size()
	}
	return &model.ModelArtifact{ModelID: entry.ModelID, Variant: entry.Variant, Size: size, SHA256: sum, Path: path}, nil
}

func (c *Cache) touch(path string) {
	now := time.Now()
	_ = os.Chtimes(path, now, now)
}

type artifactFile struct {
	path    string
	size    int64
	modTime time.Time
}

// evictIfNeeded removes least-recently-used artifacts until the cache fits
// within maxBytes. Artifacts with a live in-use refcount are never removed.
func (c *Cache) evictIfNeeded() error {
	if c.maxBytes <= 0 {
		return nil
	}

	var files []artifactFile
	var total int64
	err := filepath.Walk(c.root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || filepath.Ext(path) != ".bin" {
			return nil
		}
		files = append(files, artifactFile{path: path, size: info.Size(), modTime: info.ModTime()})
		total += info.Size()
		return nil
	})
	if err != nil {
		return err
	}
	if total <= c.maxBytes {
		return nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range files {
		if total <= c.maxBytes {
			break
		}
		if c.inUse[cacheKeyFromPath(c.root, f.path)] > 0 {
			continue
		}
		if err := os.Remove(f.path); err == nil {
			total -= f.size
			logging.Get(logging.CategoryModelCache).Info("evicted %s (%d bytes)", f.path, f.size)
		}
	}
	return nil
}

func cacheKeyFromPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	dir := filepath.Dir(rel)
	variant := baseNameNoExt(rel)
	return key(dir, variant)
}

func baseNameNoExt(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
