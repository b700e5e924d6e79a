package main

import (
	"log"
	"sync"
	"time"
)

// Recorder persists benchmark telemetry with batched background writes,
// so the frame loop never waits on SQLite.
type Recorder struct {
	db      *DB
	samples chan SampleRow
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewRecorder creates and starts the background writer. Returns nil when
// db is nil, which callers treat as persistence disabled.
func NewRecorder(db *DB) *Recorder {
	if db == nil {
		return nil
	}
	r := &Recorder{
		db:      db,
		samples: make(chan SampleRow, 1024),
		stop:    make(chan struct{}),
	}
	r.wg.Add(1)
	go r.writer()
	return r
}

// StartRun opens a new run row, returning 0 on failure (samples for run
// 0 are dropped by the writer).
func (r *Recorder) StartRun() int64 {
	id, err := r.db.CreateRun()
	if err != nil {
		log.Printf("recorder: create run: %v", err)
		return 0
	}
	return id
}

// FinishRun closes a run with its final summary.
func (r *Recorder) FinishRun(runID int64, finalBodies int, m MetricsSnapshot) {
	if runID == 0 {
		return
	}
	if err := r.db.FinishRun(runID, finalBodies, m.AvgTickMs, m.MaxTickRate); err != nil {
		log.Printf("recorder: finish run: %v", err)
	}
}

// Sample enqueues one tick sample for async persistence (non-blocking).
func (r *Recorder) Sample(runID int64, bodies int, cellSize float64, m MetricsSnapshot) {
	if runID == 0 {
		return
	}
	select {
	case r.samples <- SampleRow{
		RunID:    runID,
		At:       time.Now().UTC().Format(time.RFC3339),
		Bodies:   bodies,
		CellSize: cellSize,
		TickMs:   m.LastTickMs,
		AvgMs:    m.AvgTickMs,
		FPS:      m.FPS,
	}:
	default:
		// Channel full — drop the sample rather than blocking the loop
	}
}

// Stop flushes pending samples and shuts the writer down.
func (r *Recorder) Stop() {
	close(r.stop)
	r.wg.Wait()
}

// writer batches samples and writes them to the database.
func (r *Recorder) writer() {
	defer r.wg.Done()

	batch := make([]SampleRow, 0, 64)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.db.InsertSamples(batch); err != nil {
			log.Printf("recorder: insert samples: %v", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case s := <-r.samples:
			batch = append(batch, s)
			if len(batch) >= 50 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-r.stop:
			// Drain remaining samples
			close(r.samples)
			for s := range r.samples {
				batch = append(batch, s)
			}
			flush()
			return
		}
	}
}
