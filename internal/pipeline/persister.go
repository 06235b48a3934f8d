package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/feaso/internal/model"
)

// RowWriter is the write half of a row store.
type RowWriter interface {
	UpsertRow(ctx context.Context, projectID string, row model.Row) error
	DeleteRow(ctx context.Context, projectID string, id string) error
}

// DefaultDebounce is the per-row write delay used when none is configured.
const DefaultDebounce = 750 * time.Millisecond

// Persister debounces row writes. Each row id has at most one pending write;
// scheduling the same id again replaces the row and restarts its timer, so
// only the last version inside the window reaches the store. Different ids
// are written independently. Write errors are logged and dropped.
type Persister struct {
	w       RowWriter
	project string
	delay   time.Duration

	mu       sync.Mutex
	pending  map[string]*pendingWrite
	seq      uint64
	idle     *sync.Cond // signalled when inflight drops to zero
	inflight int
	failures int
}

type pendingWrite struct {
	row   model.Row
	seq   uint64
	timer *time.Timer
}

// NewPersister returns a Persister writing rows of projectID to w.
func NewPersister(w RowWriter, projectID string, delay time.Duration) *Persister {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	p := &Persister{
		w:       w,
		project: projectID,
		delay:   delay,
		pending: make(map[string]*pendingWrite),
	}
	p.idle = sync.NewCond(&p.mu)
	return p
}

// Schedule queues row for a debounced write.
func (p *Persister) Schedule(row model.Row) {
	row = row.Clone()

	p.mu.Lock()
	defer p.mu.Unlock()
	if pw, ok := p.pending[row.ID]; ok {
		pw.timer.Stop()
	}
	p.seq++
	pw := &pendingWrite{row: row, seq: p.seq}
	id, seq := row.ID, p.seq
	pw.timer = time.AfterFunc(p.delay, func() { p.fire(id, seq) })
	p.pending[row.ID] = pw
}

func (p *Persister) fire(id string, seq uint64) {
	p.mu.Lock()
	pw, ok := p.pending[id]
	if !ok || pw.seq != seq {
		// superseded or flushed
		p.mu.Unlock()
		return
	}
	delete(p.pending, id)
	p.inflight++
	p.mu.Unlock()

	_ = p.write(context.Background(), pw.row)

	p.mu.Lock()
	p.inflight--
	if p.inflight == 0 {
		p.idle.Broadcast()
	}
	p.mu.Unlock()
}

func (p *Persister) write(ctx context.Context, row model.Row) error {
	if err := p.w.UpsertRow(ctx, p.project, row); err != nil {
		p.mu.Lock()
		p.failures++
		p.mu.Unlock()
		log.Printf("feaso: persisting row %s: %v", row.ID, err)
		return err
	}
	return nil
}

// Delete cancels any pending write for id and removes the row from the
// store. The error is logged and returned.
func (p *Persister) Delete(ctx context.Context, id string) error {
	p.mu.Lock()
	if pw, ok := p.pending[id]; ok {
		pw.timer.Stop()
		delete(p.pending, id)
	}
	p.mu.Unlock()

	if err := p.w.DeleteRow(ctx, p.project, id); err != nil {
		p.mu.Lock()
		p.failures++
		p.mu.Unlock()
		log.Printf("feaso: deleting row %s: %v", id, err)
		return err
	}
	return nil
}

// Flush writes every pending row now, concurrently, and waits for writes
// already in flight. It returns the first write error; every failure is
// also logged.
func (p *Persister) Flush(ctx context.Context) error {
	p.mu.Lock()
	rows := make([]model.Row, 0, len(p.pending))
	for id, pw := range p.pending {
		pw.timer.Stop()
		rows = append(rows, pw.row)
		delete(p.pending, id)
	}
	p.mu.Unlock()

	// A failed write must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(8)
	for _, row := range rows {
		g.Go(func() error { return p.write(ctx, row) })
	}
	err := g.Wait()

	p.mu.Lock()
	for p.inflight > 0 {
		p.idle.Wait()
	}
	p.mu.Unlock()
	return err
}

// Pending reports how many rows are waiting for their debounce to expire.
func (p *Persister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Failures reports how many writes or deletes have failed so far.
func (p *Persister) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}
