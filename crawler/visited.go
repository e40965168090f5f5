package crawler

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	bloom "github.com/bits-and-blooms/bloom/v3"
	"github.com/edsrzf/mmap-go"
)

// Claimer is the crawl-wide visited set. Claim atomically tests and records
// url, returning true only for the first caller; Contains only tests it.
// Implementations must be safe for any number of concurrent callers.
type Claimer interface {
	Claim(url string) bool
	Contains(url string) bool
}

// ClaimSet is an exact, in-memory Claimer.
type ClaimSet struct {
	claimed sync.Map
	count   atomic.Int64
}

// NewClaimSet creates an empty ClaimSet.
func NewClaimSet() *ClaimSet {
	return &ClaimSet{}
}

// Claim records url and reports whether this call was the first for it.
func (s *ClaimSet) Claim(url string) bool {
	if _, loaded := s.claimed.LoadOrStore(url, struct{}{}); loaded {
		return false
	}
	s.count.Add(1)
	return true
}

// Contains reports whether url has been claimed.
func (s *ClaimSet) Contains(url string) bool {
	_, ok := s.claimed.Load(url)
	return ok
}

// Len returns the number of claimed URLs.
func (s *ClaimSet) Len() int {
	return int(s.count.Load())
}

const (
	// defaultBloomCapacity and defaultBloomFPRate size the filter used when
	// Config.Bloom is set.
	defaultBloomCapacity = 100000
	defaultBloomFPRate   = 0.001
)

// VisitedTracker is a Claimer backed by a bloom filter that is persisted to a
// memory-mapped temp file, giving a constant memory footprint regardless of
// crawl size. Bloom filters have false positives: a URL never seen before may
// be reported as claimed and dropped from the tree. They have no false
// negatives, so a URL is never expanded twice.
type VisitedTracker struct {
	mu        sync.Mutex
	filter    *bloom.BloomFilter
	file      *os.File
	mmap      mmap.MMap
	tmpPath   string
	count     uint64 // URLs added since last sync
	syncEvery uint64 // Sync to disk every N URLs
	lastErr   error  // Last error from sync operations
}

// NewVisitedTracker creates a tracker sized for capacity URLs at the given
// false positive rate. It creates a temporary file in the OS temp directory
// which Close removes.
func NewVisitedTracker(capacity uint, fpRate float64) (*VisitedTracker, error) {
	filter := bloom.NewWithEstimates(capacity, fpRate)

	data, err := filter.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal bloom filter: %w", err)
	}

	tmpFile, err := os.CreateTemp(os.TempDir(), "sitetree-visited-*.bloom")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	cleanup := func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}

	// The marshaled form is a small header plus the bit set; size the file to
	// hold it exactly.
	if err := tmpFile.Truncate(int64(len(data))); err != nil {
		cleanup()
		return nil, fmt.Errorf("truncate temp file: %w", err)
	}

	mapped, err := mmap.MapRegion(tmpFile, len(data), mmap.RDWR, 0, 0)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("mmap temp file: %w", err)
	}
	copy(mapped, data)

	return &VisitedTracker{
		filter:    filter,
		file:      tmpFile,
		mmap:      mapped,
		tmpPath:   tmpPath,
		syncEvery: 1000,
	}, nil
}

// Claim atomically checks whether url has been seen and records it if not.
// Returns true if the URL was new.
func (v *VisitedTracker) Claim(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.filter.TestOrAddString(url) {
		return false
	}

	v.count++
	if v.count >= v.syncEvery && v.mmap != nil {
		// Periodic sync is best-effort; the error surfaces through LastError and Close.
		if err := v.syncLocked(); err != nil {
			v.lastErr = err
		}
	}

	return true
}

// Contains reports whether url has (probably) been claimed.
func (v *VisitedTracker) Contains(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.filter.TestString(url)
}

// syncLocked persists the bloom filter to the mapped file. Must be called
// with mu held.
func (v *VisitedTracker) syncLocked() error {
	data, err := v.filter.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal bloom filter: %w", err)
	}

	if len(data) > len(v.mmap) {
		return fmt.Errorf("filter data (%d) exceeds mmap size (%d)", len(data), len(v.mmap))
	}
	copy(v.mmap, data)

	if err := v.mmap.Flush(); err != nil {
		return fmt.Errorf("flush mmap: %w", err)
	}
	v.count = 0
	return nil
}

// Close syncs any pending data and removes the temp file. Calling Close more
// than once is safe.
func (v *VisitedTracker) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	var errs []error
	if v.lastErr != nil {
		errs = append(errs, v.lastErr)
		v.lastErr = nil
	}

	if v.mmap != nil {
		if v.count > 0 {
			if err := v.syncLocked(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := v.mmap.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap: %w", err))
		}
		v.mmap = nil
	}

	if v.file != nil {
		if err := v.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close file: %w", err))
		}
		v.file = nil
	}

	if v.tmpPath != "" {
		if err := os.Remove(v.tmpPath); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("remove temp file: %w", err))
		}
		v.tmpPath = ""
	}

	if len(errs) > 0 {
		return fmt.Errorf("close visited tracker: %w", errors.Join(errs...))
	}
	return nil
}

// LastError returns the last error encountered during periodic syncs.
func (v *VisitedTracker) LastError() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

// Path returns the backing file path, or "" after Close.
func (v *VisitedTracker) Path() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.tmpPath
}
