package poller

import (
	"context"
	"errors"
	"time"
)

// Run polls once immediately, then on every interval until ctx is done. A
// cycle in progress when ctx is cancelled runs to completion: cycles use a
// context that is detached from ctx.
func (p *Poller) Run(ctx context.Context) {
	cycleCtx := context.WithoutCancel(ctx)

	if ctx.Err() != nil {
		return
	}
	p.PollCycle(cycleCtx)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	p.logger.Info().
		Dur("interval", p.opts.Interval).
		Int("workers", p.opts.Workers).
		Int("identities", len(p.Tracked())).
		Msg("polling started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("polling stopped")
			return
		case <-ticker.C:
			p.PollCycle(cycleCtx)
		}
	}
}

// Start runs the poll loop in the background.
func (p *Poller) Start() error {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	if p.cancel != nil {
		return errors.New("poller already started")
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		p.Run(ctx)
	}(p.done)
	return nil
}

// Stop cancels the loop and waits for the current cycle to finish, or for
// ctx to expire.
func (p *Poller) Stop(ctx context.Context) error {
	p.runMu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.runMu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
