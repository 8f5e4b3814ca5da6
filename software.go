package mandelbrot

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/mandelbrot/internal/parallel"
)

// SoftwareAccelerator evaluates launches on the CPU. The grid is split into
// bands of rows that a work-stealing pool evaluates in parallel; Dispatch
// submits the bands and Synchronize waits for them.
//
// It is always able to run a launch and evaluates the kernel in float64, so it
// is also the fallback whenever a GPU accelerator declines.
type SoftwareAccelerator struct {
	mu         sync.Mutex
	workers    int
	bandHeight int
	pool       *parallel.WorkerPool
	ownsPool   bool
	pending    *parallel.Batch
	columns    []float64
}

// NewSoftwareAccelerator creates a software accelerator with its own pool of
// workers goroutines (GOMAXPROCS when workers <= 0) splitting frames into
// bands of bandHeight rows (a default when bandHeight <= 0).
func NewSoftwareAccelerator(workers, bandHeight int) *SoftwareAccelerator {
	return &SoftwareAccelerator{workers: workers, bandHeight: bandHeight}
}

// newSharedSoftwareAccelerator runs on a pool owned by the caller.
func newSharedSoftwareAccelerator(pool *parallel.WorkerPool, bandHeight int) *SoftwareAccelerator {
	return &SoftwareAccelerator{pool: pool, bandHeight: bandHeight}
}

// Name returns "software".
func (s *SoftwareAccelerator) Name() string { return "software" }

// Init starts the worker pool. It is safe to call more than once.
func (s *SoftwareAccelerator) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initLocked()
	return nil
}

func (s *SoftwareAccelerator) initLocked() {
	if s.pool == nil {
		s.pool = parallel.NewWorkerPool(s.workers)
		s.ownsPool = true
	}
}

// Close waits for any outstanding launch and stops the pool if it owns one.
func (s *SoftwareAccelerator) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		_ = s.pending.Wait()
		s.pending = nil
	}
	if s.ownsPool && s.pool != nil {
		s.pool.Close()
		s.pool = nil
		s.ownsPool = false
	}
}

// CanAccelerate reports true for every launch.
func (s *SoftwareAccelerator) CanAccelerate(l *Launch) bool {
	return l != nil
}

// Dispatch submits one work item per band of rows and returns immediately.
func (s *SoftwareAccelerator) Dispatch(l *Launch) error {
	if l == nil {
		return errors.New("mandelbrot: nil launch")
	}
	if err := l.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return fmt.Errorf("mandelbrot: %s: launch dispatched before the previous one was synchronized", s.Name())
	}
	s.initLocked()

	w, h := l.Grid.Width, l.Grid.Height
	vp := l.Viewport
	maxIter := l.MaxIterations

	// The real part only depends on the column.
	if cap(s.columns) < w {
		s.columns = make([]float64, w)
	}
	cols := s.columns[:w]
	for x := range cols {
		cols[x] = axis(vp.MinRe, vp.MaxRe, x, w)
	}

	bands := parallel.Bands(h, s.bandHeight)
	work := make([]func() error, len(bands))
	for i, b := range bands {
		work[i] = func() error {
			for y := b.Y0; y < b.Y1; y++ {
				im := axis(vp.MinIm, vp.MaxIm, y, h)
				row := l.Iterations[y*w : (y+1)*w]
				for x, re := range cols {
					row[x] = uint32(Iterate(re, im, maxIter))
				}
			}
			return nil
		}
	}
	s.pending = s.pool.Go(work)
	return nil
}

// Synchronize waits for the bands of the outstanding launch.
func (s *SoftwareAccelerator) Synchronize() error {
	s.mu.Lock()
	b := s.pending
	s.pending = nil
	s.mu.Unlock()
	if b == nil {
		return nil
	}
	return b.Wait()
}
