// Package repository defines the verdict store interface and errors.
package repository

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Akhil3111/VoiceGuard-API/internal/domain/types"
	"github.com/Akhil3111/VoiceGuard-API/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: authenticity risk DESC, then job ID ASC (deterministic).
// "Less" means ranks earlier, so in-order traversal produces the review
// queue from most to least suspicious.

// scoreScale controls fixed-point scaling from float64. Risk scores live in
// [0,1], so twelve decimal places fit comfortably in int64.
const scoreScale = 1_000_000_000_000

type scoreFP int64

func toFixedPoint(x float64) scoreFP {
	if math.IsNaN(x) {
		return 0
	}
	if x < 0 {
		x = 0
	}
	if x > 1 {
		x = 1
	}
	return scoreFP(math.Round(x * scoreScale))
}

func toFloat(x scoreFP) float64 {
	return float64(x) / scoreScale
}

// Snapshot is an immutable view of the review queue published periodically
// so dashboard reads never touch the treap lock.
type Snapshot struct {
	TopCache []types.Entry // sorted by risk desc, ranks assigned
	Total    int
}

// treap node
type node struct {
	id    string
	score scoreFP
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aScore, aID) should appear before (bScore, bID)
// in the review queue (more suspicious first).
func less(aScore scoreFP, aID string, bScore scoreFP, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID // tie-breaker by job id asc
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// scoreToPriority keeps higher-risk nodes near the treap root so review
// queries touch fewer nodes.
func scoreToPriority(score scoreFP) uint64 {
	const offset = uint64(1) << 63
	return uint64(score) + offset
}

func insert(n *node, id string, score scoreFP) *node {
	if n == nil {
		return &node{id: id, score: score, prio: scoreToPriority(score), size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score scoreFP) *node {
	if n == nil {
		return nil
	}
	if score == n.score && id == n.id {
		// Merge children by rotating highest priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	} else if less(score, id, n.score, n.id) {
		n.left = deleteNode(n.left, id, score)
	} else {
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit entries in rank order via in-order
// traversal; the BST ordering already encodes risk desc, job ID asc.
func collectTopN(n *node, limit int, outcomes map[string]Outcome, out *[]types.Entry) {
	if n == nil || len(*out) >= limit {
		return
	}

	collectTopN(n.left, limit, outcomes, out)

	if len(*out) < limit {
		if o, exists := outcomes[n.id]; exists {
			*out = append(*out, entryFromOutcome(o))
		}
	}

	if len(*out) < limit {
		collectTopN(n.right, limit, outcomes, out)
	}
}

func entryFromOutcome(o Outcome) types.Entry {
	return types.Entry{
		JobID:      o.JobID,
		Score:      o.Verdict.AuthenticityScore,
		Label:      string(o.Verdict.Label),
		Backend:    o.Verdict.Backend,
		RecordedAt: o.RecordedAt,
	}
}

// TreapStore is the in-memory Store implementation backing the review queue.
type TreapStore struct {
	mu               sync.RWMutex
	root             *node
	byID             map[string]Outcome
	snapshotInterval time.Duration
	topCacheSize     int

	snapshot atomic.Pointer[Snapshot]

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		snapshotInterval: 1 * time.Second, // default snapshot interval
		topCacheSize:     500,             // default top cache size
		byID:             make(map[string]Outcome),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	s.stopChan = make(chan struct{})
	s.startPeriodicSnapshots(ctx)

	return s
}

// startPeriodicSnapshots publishes a fresh snapshot at the configured interval.
func (s *TreapStore) startPeriodicSnapshots(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.snapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.publishSnapshot()
			}
		}
	}()
}

func (s *TreapStore) publishSnapshot() {
	s.mu.RLock()
	top := make([]types.Entry, 0, s.topCacheSize)
	collectTopN(s.root, s.topCacheSize, s.byID, &top)
	total := len(s.byID)
	s.mu.RUnlock()

	assignRanksWithTies(top)
	s.snapshot.Store(&Snapshot{TopCache: top, Total: total})
}

// LatestSnapshot returns the most recently published snapshot, or nil before
// the first interval elapses.
func (s *TreapStore) LatestSnapshot() *Snapshot {
	return s.snapshot.Load()
}

// Close gracefully shuts down the snapshot goroutine.
func (s *TreapStore) Close() error {
	select {
	case <-s.stopChan:
		// Channel already closed
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

// Record implements Store.Record with O(log n) expected time. Only
// successful outcomes enter the suspicion ranking; failures are retrievable
// by ID only.
func (s *TreapStore) Record(ctx context.Context, outcome Outcome) error {
	start := time.Now()
	defer func() {
		metrics.RecordReviewUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	ns := toFixedPoint(outcome.Verdict.AuthenticityScore)

	s.mu.Lock()
	if old, ok := s.byID[outcome.JobID]; ok && old.Failure == "" {
		s.root = deleteNode(s.root, outcome.JobID, toFixedPoint(old.Verdict.AuthenticityScore))
	}
	s.byID[outcome.JobID] = outcome
	if outcome.Failure == "" {
		s.root = insert(s.root, outcome.JobID, ns)
	}
	total := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateReviewRecordsTotal(total)
	return nil
}

// Get returns the outcome for a job in O(1).
func (s *TreapStore) Get(ctx context.Context, jobID string) (Outcome, error) {
	start := time.Now()
	defer func() {
		metrics.RecordReviewQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.byID[jobID]
	if !ok {
		return Outcome{}, ErrNotFound
	}
	return o, nil
}

// MostSuspicious returns the top N entries ordered by risk desc.
func (s *TreapStore) MostSuspicious(ctx context.Context, n int) ([]types.Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordReviewQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	out := make([]types.Entry, 0, n)
	collectTopN(s.root, n, s.byID, &out)
	s.mu.RUnlock()

	assignRanksWithTies(out)
	return out, nil
}

// Count returns the total number of recorded outcomes.
func (s *TreapStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// assignRanksWithTies assigns ranks over entries already in rank order.
// Jobs with the same score share a rank; the next distinct score gets the
// next consecutive rank.
func assignRanksWithTies(entries []types.Entry) {
	if len(entries) == 0 {
		return
	}

	currentRank := 1
	for i := 0; i < len(entries); i++ {
		entries[i].Rank = currentRank

		sameScoreCount := 1
		for j := i + 1; j < len(entries) && entries[j].Score == entries[i].Score; j++ {
			entries[j].Rank = currentRank
			sameScoreCount++
		}

		currentRank++
		i += sameScoreCount - 1
	}
}
