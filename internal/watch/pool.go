// Package watch keeps one feed binding per watched tournament.
package watch

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/torvi-live/internal/model"
	"github.com/rickgao/torvi-live/internal/subscription"
)

// Config holds pool configuration.
type Config struct {
	Token            string                     // Feed token shared by every binding
	CloseConcurrency int                        // Max bindings closed in parallel (default: 16)
	ReleaseCompleted bool                       // Stop watching a tournament once it completes
	OnEvent          subscription.EventObserver // Called for every validated event
}

// Status is the connectivity of one watched tournament.
type Status struct {
	ID        string `json:"id"`
	Connected bool   `json:"connected"`
}

// Pool owns one subscription.Binding per tournament id.
type Pool struct {
	cfg    Config
	inv    subscription.Invalidator
	opts   []subscription.Option
	logger *slog.Logger

	mu       sync.Mutex
	bindings map[string]*subscription.Binding
	closed   bool

	// Releases of completed tournaments run off the manager goroutine.
	releases sync.WaitGroup
}

// NewPool creates an empty pool. opts are passed to every binding; the
// event observer is owned by the pool, use Config.OnEvent instead.
func NewPool(cfg Config, inv subscription.Invalidator, logger *slog.Logger, opts ...subscription.Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CloseConcurrency < 1 {
		cfg.CloseConcurrency = 16
	}
	return &Pool{
		cfg:      cfg,
		inv:      inv,
		opts:     opts,
		logger:   logger,
		bindings: make(map[string]*subscription.Binding),
	}
}

// Sync makes the watched set equal to ids. New ids get a binding, ids no
// longer listed have theirs closed. Empty ids are ignored.
func (p *Pool) Sync(ids []string) (added, removed []string) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			want[id] = true
		}
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, nil
	}

	var stale []*subscription.Binding
	for id, b := range p.bindings {
		if !want[id] {
			delete(p.bindings, id)
			stale = append(stale, b)
			removed = append(removed, id)
		}
	}
	for id := range want {
		if _, ok := p.bindings[id]; ok {
			continue
		}
		p.bindings[id] = p.bind(id)
		added = append(added, id)
	}
	p.mu.Unlock()

	for _, b := range stale {
		b.Close()
	}

	slices.Sort(added)
	slices.Sort(removed)
	if len(added) > 0 || len(removed) > 0 {
		p.logger.Info("watch list synced", "added", added, "removed", removed)
	}
	return added, removed
}

// Remove stops watching one tournament. It reports whether it was watched.
func (p *Pool) Remove(id string) bool {
	p.mu.Lock()
	b, ok := p.bindings[id]
	delete(p.bindings, id)
	p.mu.Unlock()

	if ok {
		b.Close()
	}
	return ok
}

// Statuses returns every watched tournament, sorted by id.
func (p *Pool) Statuses() []Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Status, 0, len(p.bindings))
	for id, b := range p.bindings {
		out = append(out, Status{ID: id, Connected: b.IsConnected()})
	}
	slices.SortFunc(out, func(a, b Status) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Status returns one tournament's status.
func (p *Pool) Status(id string) (Status, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.bindings[id]
	if !ok {
		return Status{}, false
	}
	return Status{ID: id, Connected: b.IsConnected()}, true
}

// Close closes every binding, at most CloseConcurrency at a time. It
// returns ctx.Err() if ctx ends first; the remaining closes still finish
// in the background.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	bindings := p.bindings
	p.bindings = make(map[string]*subscription.Binding)
	p.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(p.cfg.CloseConcurrency)
	for _, b := range bindings {
		g.Go(func() error {
			b.Close()
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		g.Wait()
		p.releases.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("watch pool closed", "bindings", len(bindings))
		return nil
	case <-ctx.Done():
		p.logger.Warn("watch pool close timed out", "bindings", len(bindings))
		return ctx.Err()
	}
}

// bind creates and starts the binding for id. Must be called with lock held.
func (p *Pool) bind(id string) *subscription.Binding {
	opts := []subscription.Option{subscription.WithLogger(p.logger)}
	opts = append(opts, p.opts...)
	opts = append(opts, subscription.WithEventObserver(p.observe))
	b := subscription.New(p.inv, opts...)
	b.Bind(id, p.cfg.Token)
	return b
}

// observe runs on a manager goroutine.
func (p *Pool) observe(id string, ev model.Event) {
	if p.cfg.OnEvent != nil {
		p.cfg.OnEvent(id, ev)
	}

	if _, done := ev.(model.TournamentCompleted); done && p.cfg.ReleaseCompleted {
		// Closing the binding waits for this goroutine, so release elsewhere.
		p.releases.Add(1)
		go func() {
			defer p.releases.Done()
			if p.Remove(id) {
				p.logger.Info("tournament completed, watch released", "tournament_id", id)
			}
		}()
	}
}
