package cache

import (
	"crypto/md5"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tristendillon/dtsbundle/core/logger"
)

// Entry is a cached rewrite: the body and the import statements it handed
// to the accumulator, replayed on a hit.
type Entry struct {
	Body       string
	Statements []string
}

type Metrics struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Entries   int     `json:"entries"`
	HitRate   float64 `json:"hit_rate"`
}

func (m *Metrics) CalculateHitRate() {
	total := m.Hits + m.Misses
	if total > 0 {
		m.HitRate = float64(m.Hits) / float64(total) * 100
	} else {
		m.HitRate = 0
	}
}

// RewriteCache maps content hashes to rewrite results. It survives across
// runs (watch cycles) while accumulators do not.
type RewriteCache struct {
	entries *lru.Cache[string, *Entry]
	mutex   sync.Mutex
	metrics Metrics
}

func NewRewriteCache(maxEntries int) (*RewriteCache, error) {
	rc := &RewriteCache{}
	entries, err := lru.NewWithEvict[string, *Entry](maxEntries, func(key string, _ *Entry) {
		rc.mutex.Lock()
		rc.metrics.Evictions++
		rc.mutex.Unlock()
		logger.Debug("Evicted rewrite cache entry %s", key[:8])
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rewrite cache: %w", err)
	}
	rc.entries = entries

	logger.Debug("Created rewrite cache with MaxEntries=%d", maxEntries)
	return rc, nil
}

// Key hashes the rewrite configuration fingerprint together with the file
// content.
func Key(fingerprint string, content []byte) string {
	hash := md5.New()
	hash.Write([]byte(fingerprint))
	hash.Write([]byte{0})
	hash.Write(content)
	return fmt.Sprintf("%x", hash.Sum(nil))
}

func (rc *RewriteCache) Get(key string) (*Entry, bool) {
	entry, ok := rc.entries.Get(key)

	rc.mutex.Lock()
	if ok {
		rc.metrics.Hits++
	} else {
		rc.metrics.Misses++
	}
	rc.mutex.Unlock()

	return entry, ok
}

func (rc *RewriteCache) Set(key string, entry *Entry) {
	rc.entries.Add(key, entry)
}

func (rc *RewriteCache) GetMetrics() Metrics {
	rc.mutex.Lock()
	metrics := rc.metrics
	rc.mutex.Unlock()

	metrics.Entries = rc.entries.Len()
	metrics.CalculateHitRate()
	return metrics
}

func (rc *RewriteCache) LogStats() {
	m := rc.GetMetrics()
	logger.Debug("Rewrite cache stats: Hits=%d, Misses=%d, Hit Rate=%.1f%%, Entries=%d, Evictions=%d",
		m.Hits, m.Misses, m.HitRate, m.Entries, m.Evictions)
}
