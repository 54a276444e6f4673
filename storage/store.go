package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SegmentInfo describes one recorded segment on storage.
type SegmentInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// SegmentStore is the persistent file store the recorder writes into. List
// returns recognized segments only; UsedBytes counts everything on the
// medium. Implementations are owned by the driver goroutine and are not safe
// for concurrent use.
type SegmentStore interface {
	// Refresh re-scans the underlying storage, replacing any cached view.
	Refresh() error

	// List returns the recognized segments, oldest first, ties broken by path.
	List() ([]SegmentInfo, error)

	// Open opens a segment for reading and reports its size.
	Open(path string) (io.ReadCloser, int64, error)

	// Delete removes a segment from storage.
	Delete(path string) error

	// UsedBytes reports the total bytes occupied on the medium.
	UsedBytes() (int64, error)

	// CapacityBytes reports the fixed size of the medium.
	CapacityBytes() int64
}

// LocalStore implements SegmentStore over a directory. It keeps the segment
// list and byte totals from the last Refresh and adjusts them in place on
// Delete, so the eviction loop does not re-walk the directory per query.
type LocalStore struct {
	root     string
	ext      string
	capacity int64

	scanned   bool
	segments  []SegmentInfo
	usedBytes int64
}

// NewLocalStore creates a store rooted at dir. Files whose name ends in ext
// (e.g. ".avi") are recognized as segments; capacity is the fixed size of the
// medium, matching what the card reports rather than what the OS mounts.
func NewLocalStore(dir, ext string, capacity int64) *LocalStore {
	return &LocalStore{
		root:     dir,
		ext:      ext,
		capacity: capacity,
	}
}

// Refresh walks the root directory and rebuilds the cached segment list and
// usage totals.
func (s *LocalStore) Refresh() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("failed to read storage root: %w", err)
	}

	segments := make([]SegmentInfo, 0, len(entries))
	var used int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// File disappeared mid-scan; the recorder rotates files
			// underneath us, so skip it.
			continue
		}
		used += info.Size()
		if strings.HasSuffix(entry.Name(), s.ext) {
			segments = append(segments, SegmentInfo{
				Path:    filepath.Join(s.root, entry.Name()),
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
		}
	}

	sort.Slice(segments, func(i, j int) bool {
		if segments[i].ModTime.Equal(segments[j].ModTime) {
			return segments[i].Path < segments[j].Path
		}
		return segments[i].ModTime.Before(segments[j].ModTime)
	})

	s.segments = segments
	s.usedBytes = used
	s.scanned = true
	return nil
}

// List returns the cached segment list, scanning first if needed.
func (s *LocalStore) List() ([]SegmentInfo, error) {
	if !s.scanned {
		if err := s.Refresh(); err != nil {
			return nil, err
		}
	}
	out := make([]SegmentInfo, len(s.segments))
	copy(out, s.segments)
	return out, nil
}

// Open opens a segment for reading and reports its size.
func (s *LocalStore) Open(path string) (io.ReadCloser, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open segment: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, fmt.Errorf("failed to stat segment: %w", err)
	}
	return file, info.Size(), nil
}

// Delete removes a segment and updates the cached aggregates.
func (s *LocalStore) Delete(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete segment: %w", err)
	}
	for i, seg := range s.segments {
		if seg.Path == path {
			s.usedBytes -= seg.Size
			s.segments = append(s.segments[:i], s.segments[i+1:]...)
			break
		}
	}
	return nil
}

// UsedBytes reports the cached total bytes on the medium.
func (s *LocalStore) UsedBytes() (int64, error) {
	if !s.scanned {
		if err := s.Refresh(); err != nil {
			return 0, err
		}
	}
	return s.usedBytes, nil
}

// CapacityBytes reports the configured size of the medium.
func (s *LocalStore) CapacityBytes() int64 {
	return s.capacity
}
