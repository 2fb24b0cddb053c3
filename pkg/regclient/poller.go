package regclient

import (
	"context"
	"sync"
	"time"
)

// DefaultPollInterval is how often the poller reads the status
// projection.
const DefaultPollInterval = 10 * time.Second

// Poller watches one schema's registration status until a frontend
// claims it. Once registered is observed the poller stops for good:
// restarting a finished poller is a no-op.
type Poller struct {
	client   *Client
	slug     string
	interval time.Duration
	onChange func(Status)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	final   *Status
	started bool
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		p.interval = d
	}
}

// WithOnChange installs a callback invoked on every observed status
// change, including the final registered one. Called from the polling
// goroutine.
func WithOnChange(fn func(Status)) PollerOption {
	return func(p *Poller) {
		p.onChange = fn
	}
}

// NewPoller creates a poller for the schema with the given slug.
func NewPoller(client *Client, slug string, opts ...PollerOption) *Poller {
	p := &Poller{
		client:   client,
		slug:     slug,
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling. It polls once immediately, then on the
// interval, until registered is observed or ctx is cancelled. Calling
// Start again after completion does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.final != nil {
		return
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.started = true
	go p.run(ctx)
}

// Stop tears the poller down without touching the handshake. It blocks
// until the polling goroutine has exited, so no timer outlives it.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Cancel aborts the handshake server-side and stops polling.
func (p *Poller) Cancel(ctx context.Context) error {
	err := p.client.CancelRegistration(ctx, p.slug)
	p.Stop()
	return err
}

// Result returns the final registered status once observed.
func (p *Poller) Result() (Status, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.final == nil {
		return Status{}, false
	}
	return *p.final, true
}

func (p *Poller) run(ctx context.Context) {
	defer func() {
		p.mu.Lock()
		p.started = false
		close(p.done)
		p.mu.Unlock()
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var last Status
	seen := false
	for {
		status, err := p.client.Status(ctx, p.slug)
		if err == nil {
			if !seen || status != last {
				seen, last = true, status
				if p.onChange != nil {
					p.onChange(status)
				}
			}
			if status.Registered() {
				p.mu.Lock()
				p.final = &status
				p.mu.Unlock()
				return
			}
		}
		// Transient poll errors are retried on the next tick.

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
