package storage

import (
	"github.com/freesoil/sky-monitor-edge/logging"
)

// Policy is the storage policy the eviction manager enforces.
type Policy struct {
	MaxReservedBytes int64 // Bytes segments may occupy before cleanup starts
	MinFreeBytes     int64 // Free-space floor; the hard constraint
	Enabled          bool
}

// QueueReconciler is the slice of the upload pipeline the eviction manager is
// allowed to touch: removing the entry for a segment it just deleted.
type QueueReconciler interface {
	Remove(path string) bool
}

// EvictionManager keeps storage usage within policy by deleting the
// least-recently-modified segments. It always retains at least one segment so
// the newest recording survives even when thresholds cannot be met.
type EvictionManager struct {
	logger logging.Logger
	store  SegmentStore
	policy Policy
}

// NewEvictionManager creates an eviction manager over the given store.
func NewEvictionManager(logger logging.Logger, store SegmentStore, policy Policy) *EvictionManager {
	if logger == nil {
		logger = logging.NopLogger
	}
	return &EvictionManager{
		logger: logger,
		store:  store,
		policy: policy,
	}
}

// SetPolicy replaces the storage policy; takes effect on the next check.
func (m *EvictionManager) SetPolicy(policy Policy) {
	m.policy = policy
}

// Policy returns the current storage policy.
func (m *EvictionManager) Policy() Policy {
	return m.policy
}

// CheckAndManageStorage measures usage and deletes oldest segments until the
// policy is satisfied or only one segment remains. If queue is non-nil, a
// deleted segment is also removed from it so the pipeline never opens a
// dangling path. Returns whether free space ends at or above MinFreeBytes;
// reserved-size overflow alone does not fail the call.
func (m *EvictionManager) CheckAndManageStorage(queue QueueReconciler) bool {
	if !m.policy.Enabled {
		return true
	}

	if err := m.store.Refresh(); err != nil {
		m.logger.Error("failed to scan storage", "error", err)
		return false
	}

	freeBytes, segmentBytes, segments, ok := m.measure()
	if !ok {
		return false
	}

	m.logger.Debug("storage check", "free_bytes", freeBytes, "segment_bytes", segmentBytes, "segments", len(segments))

	needCleanup := freeBytes < m.policy.MinFreeBytes || segmentBytes > m.policy.MaxReservedBytes

	for needCleanup && len(segments) > 1 {
		// Oldest first; List returns segments sorted by mod time then path.
		victim := segments[0]

		if queue != nil && queue.Remove(victim.Path) {
			m.logger.Info("removed evicted segment from upload queue", "path", victim.Path)
		}

		if err := m.store.Delete(victim.Path); err != nil {
			m.logger.Error("failed to delete oldest segment, stopping cleanup", "path", victim.Path, "error", err)
			break
		}
		m.logger.Info("evicted oldest segment", "path", victim.Path, "size", victim.Size)

		freeBytes, segmentBytes, segments, ok = m.measure()
		if !ok {
			return false
		}
		needCleanup = freeBytes < m.policy.MinFreeBytes || segmentBytes > m.policy.MaxReservedBytes
	}

	if needCleanup && len(segments) <= 1 {
		m.logger.Warn("storage policy still violated but only one segment remains", "free_bytes", freeBytes)
	}

	return freeBytes >= m.policy.MinFreeBytes
}

// measure reads the cached aggregates from the store.
func (m *EvictionManager) measure() (freeBytes, segmentBytes int64, segments []SegmentInfo, ok bool) {
	used, err := m.store.UsedBytes()
	if err != nil {
		m.logger.Error("failed to measure storage usage", "error", err)
		return 0, 0, nil, false
	}
	segments, err = m.store.List()
	if err != nil {
		m.logger.Error("failed to list segments", "error", err)
		return 0, 0, nil, false
	}
	for _, seg := range segments {
		segmentBytes += seg.Size
	}
	return m.store.CapacityBytes() - used, segmentBytes, segments, true
}
