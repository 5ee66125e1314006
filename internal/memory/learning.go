package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wildcard/caro/internal/history"
	"github.com/wildcard/caro/internal/logging"
	"github.com/wildcard/caro/internal/model"
)

const (
	minerWorkerInterval   = 45 * time.Second
	minerScanBatchSize    = 64
	minerPromotionDefault = 0.8
)

// Miner mines recent corrections (a HistoryEntry whose UserEdit differs
// from its Generated.Command) into staged LearningCandidates, per
//pattern-mining process. It never promotes a candidate on
// its own — Confirm requires an explicit caller action, never the ticking
// worker itself.
type Miner struct {
	store *Store

	mu          sync.Mutex
	stop        chan struct{}
	done        chan struct{}
	promoteFrom int // candidate count at which a pending candidate is surfaced as worth confirming
}

// NewMiner constructs a Miner over an already-open Store. A nil store
// makes every method a no-op, matching Store's own nil-safety.
func NewMiner(store *Store) *Miner {
	return &Miner{store: store, promoteFrom: 3}
}

// ScanOnce walks the most recent history entries once, looking for
// corrections, and stages or increments a LearningCandidate for each. It
// returns how many entries were examined.
func (m *Miner) ScanOnce(ctx context.Context) (int, error) {
	if m == nil || m.store == nil || !m.store.Enabled() {
		return 0, nil
	}

	entries, err := m.store.List(ctx, minerScanBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list history for mining: %w", err)
	}

	examined := 0
	for _, idx := range entries {
		entry, ok, err := m.store.Get(ctx, idx.ID)
		if err != nil || !ok {
			continue
		}
		examined++

		if entry.UserEdit == "" || entry.UserEdit == entry.Generated.Command {
			continue
		}

		if err := m.store.backing.RecordLearningCandidate(ctx, uuid.NewString(),
			entry.Request.OriginalText, entry.Generated.Command, entry.UserEdit); err != nil {
			logging.Get(logging.CategoryMemory).Warn("record learning candidate: %v", err)
		}
	}
	return examined, nil
}

// Candidates lists staged candidates by status ("pending", "confirmed",
// "rejected", or "" for all).
func (m *Miner) Candidates(ctx context.Context, status string) ([]history.LearningCandidate, error) {
	if m == nil || m.store == nil || !m.store.Enabled() {
		return nil, nil
	}
	return m.store.backing.ListLearningCandidates(ctx, status, 0)
}

// Confirm marks a candidate confirmed and returns the LearnedPattern ready
// for promotion into the private rules engine. The caller — not this
// package — owns turning that into an enginerouter.CommandRule, since
// that conversion is a router concern.
func (m *Miner) Confirm(ctx context.Context, candidate history.LearningCandidate) (model.LearnedPattern, error) {
	if m == nil || m.store == nil {
		return model.LearnedPattern{}, fmt.Errorf("memory: history disabled, nothing to confirm")
	}
	if err := m.store.backing.SetLearningCandidateStatus(ctx, candidate.ID, "confirmed"); err != nil {
		return model.LearnedPattern{}, err
	}
	return model.LearnedPattern{
		ID:         candidate.ID,
		Pattern:    candidate.Phrase,
		Template:   candidate.CorrectedCommand,
		Confidence: confidenceFromCount(candidate.Count),
		Examples:   []string{candidate.RejectedCommand, candidate.CorrectedCommand},
	}, nil
}

// Reject marks a candidate rejected; it is never surfaced for
// confirmation again.
func (m *Miner) Reject(ctx context.Context, id string) error {
	if m == nil || m.store == nil {
		return nil
	}
	return m.store.backing.SetLearningCandidateStatus(ctx, id, "rejected")
}

// confidenceFromCount maps how many times a correction recurred to a
// confidence score, saturating at minerPromotionDefault once a pattern
// has repeated often enough to be clearly intentional.
func confidenceFromCount(count int) float64 {
	c := float64(count) / 5.0
	if c > minerPromotionDefault {
		c = minerPromotionDefault
	}
	return c
}

// Start launches the background scan ticker. Stop must be called to clean
// it up; a nil Miner or disabled Store makes Start a no-op.
func (m *Miner) Start(ctx context.Context) {
	if m == nil || m.store == nil || !m.store.Enabled() {
		return
	}
	m.mu.Lock()
	if m.stop != nil {
		m.mu.Unlock()
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.run(ctx)
}

// Stop halts the background scan ticker, waiting briefly for the current
// cycle to finish.
func (m *Miner) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	stop := m.stop
	done := m.done
	m.stop, m.done = nil, nil
	m.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

func (m *Miner) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(minerWorkerInterval)
	defer ticker.Stop()

	log := logging.Get(logging.CategoryMemory)
	for {
		select {
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := m.ScanOnce(ctx); err != nil {
				log.Warn("learning scan failed: %v", err)
			} else if n > 0 {
				log.Debug("learning scan examined %d history entries", n)
			}
		}
	}
}
