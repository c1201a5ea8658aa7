// Package poller periodically queries the live state of every tracked
// identity, diffs it against the last known session and emits exactly one
// game-started or game-ended event per transition.
package poller

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Source interface {
	QueryLiveState(ctx context.Context, identity domain.Identity) (domain.LiveState, error)
	QueryOutcome(ctx context.Context, identity domain.Identity, sessionID string) (*domain.Outcome, error)
}

// Sink receives transition events. Calls are fire-and-forget; per identity
// they arrive in emission order.
type Sink interface {
	OnGameStarted(ctx context.Context, ev domain.GameStarted)
	OnGameEnded(ctx context.Context, ev domain.GameEnded)
	// OnOutcomeResolved carries the outcome of a session whose game-ended
	// event went out without one. It is never a second game-ended.
	OnOutcomeResolved(ctx context.Context, ev domain.GameEnded)
}

const DefaultInterval = 45 * time.Second

type Options struct {
	Interval time.Duration
	Workers  int
}

type entry struct {
	identity domain.Identity
	seq      uint64
	open     *domain.GameSession
	failures int
}

// pendingOutcome is an ended session whose outcome was not published yet.
type pendingOutcome struct {
	entry    *entry
	session  domain.GameSession
	attempts int
}

func pendingKey(identityID, sessionID string) string {
	return identityID + "/" + sessionID
}

type Poller struct {
	source Source
	sink   Sink
	opts   Options
	logger zerolog.Logger
	now    func() time.Time

	// held for the whole of a cycle so cycles never overlap
	cycleMu sync.Mutex

	mu      sync.RWMutex
	entries map[string]*entry
	nextSeq uint64
	pending map[string]*pendingOutcome

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(source Source, sink Sink, opts Options, logger zerolog.Logger) *Poller {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Poller{
		source:  source,
		sink:    sink,
		opts:    opts,
		logger:  logger.With().Str("component", "poller").Logger(),
		now:     time.Now,
		entries: make(map[string]*entry),
		pending: make(map[string]*pendingOutcome),
	}
}

// Track adds an identity to the polled set. It is picked up by the next
// cycle. Returns false if the identity is already tracked.
func (p *Poller) Track(identity domain.Identity) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.entries[identity.ID]; ok {
		return false
	}
	p.nextSeq++
	p.entries[identity.ID] = &entry{identity: identity, seq: p.nextSeq}
	return true
}

// Untrack removes an identity and any open session it had. An in-flight
// query for it is discarded when it returns.
func (p *Poller) Untrack(identityID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.entries[identityID]; !ok {
		return false
	}
	delete(p.entries, identityID)
	return true
}

func (p *Poller) CurrentlyInGame(identityID string) bool {
	_, ok := p.OpenSession(identityID)
	return ok
}

func (p *Poller) OpenSession(identityID string) (domain.GameSession, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	e, ok := p.entries[identityID]
	if !ok || e.open == nil {
		return domain.GameSession{}, false
	}
	return *e.open, true
}

func (p *Poller) ConsecutiveFailures(identityID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if e, ok := p.entries[identityID]; ok {
		return e.failures
	}
	return 0
}

// Tracked lists tracked identities in the order they were added.
func (p *Poller) Tracked() []domain.Identity {
	batch := p.snapshot()
	out := make([]domain.Identity, len(batch))
	for i, e := range batch {
		out[i] = e.identity
	}
	return out
}

func (p *Poller) snapshot() []*entry {
	p.mu.RLock()
	batch := make([]*entry, 0, len(p.entries))
	for _, e := range p.entries {
		batch = append(batch, e)
	}
	p.mu.RUnlock()

	slices.SortFunc(batch, func(a, b *entry) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return batch
}

// PollCycle retries outcomes still owed from earlier cycles, then queries
// every identity tracked when the cycle starts. A failure for one identity
// never affects the others.
func (p *Poller) PollCycle(ctx context.Context) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	start := p.now()
	p.retryOutcomes(ctx)
	batch := p.snapshot()

	g := new(errgroup.Group)
	g.SetLimit(p.opts.Workers)
	for _, e := range batch {
		g.Go(func() error {
			p.pollIdentity(ctx, e)
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Debug().
		Int("identities", len(batch)).
		Dur("duration", p.now().Sub(start)).
		Msg("poll cycle completed")
}

func (p *Poller) pollIdentity(ctx context.Context, e *entry) {
	log := p.logger.With().Str("identity_id", e.identity.ID).Str("riot_id", e.identity.RiotID()).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("identity poll panicked")
		}
	}()

	qctx, cancel := context.WithTimeout(ctx, constants.SourceQueryTimeout)
	state, err := p.source.QueryLiveState(qctx, e.identity)
	cancel()
	if err != nil {
		p.recordFailure(log, e, err)
		return
	}

	p.mu.Lock()
	if cur, ok := p.entries[e.identity.ID]; !ok || cur != e {
		p.mu.Unlock()
		log.Debug().Msg("identity untracked during query, result discarded")
		return
	}
	e.failures = 0
	next, transitions, err := diff(e.identity.ID, e.open, state, p.now())
	if err == nil {
		e.open = next
	}
	p.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Msg("failed to diff live state")
		return
	}

	for _, t := range transitions {
		p.emit(ctx, log, e, t)
	}
}

func (p *Poller) recordFailure(log zerolog.Logger, e *entry, err error) {
	p.mu.Lock()
	failures := 0
	if cur, ok := p.entries[e.identity.ID]; ok && cur == e {
		e.failures++
		failures = e.failures
	}
	p.mu.Unlock()

	var ev *zerolog.Event
	if failures < constants.ConsecutiveFailureWarn {
		ev = log.Debug()
	} else {
		ev = log.Warn()
	}
	ev.Err(err).
		Bool("source_unavailable", errors.Is(err, domain.ErrSourceUnavailable)).
		Int("consecutive_failures", failures).
		Msg("live state query failed, state left untouched")
}

// emit recovers on its own so that a panicking sink call cannot swallow the
// next transition of the same observation.
func (p *Poller) emit(ctx context.Context, log zerolog.Logger, e *entry, t transition) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("session", t.session.ID).Msg("event delivery panicked")
		}
	}()

	switch t.kind {
	case gameStarted:
		log.Info().
			Str("session", t.session.ID).
			Int("content_id", t.session.ContentID).
			Str("queue", t.session.QueueType).
			Msg("game started")
		p.sink.OnGameStarted(ctx, domain.GameStarted{Identity: e.identity, Session: t.session})

	case gameEnded:
		session := t.session
		if t.wantOutcome {
			outcome, err := p.fetchOutcome(ctx, e.identity, session.ID)
			if err != nil {
				log.Debug().Err(err).Str("session", session.ID).Msg("outcome unavailable, notifying without it")
				p.deferOutcome(e, session)
			}
			session.Outcome = outcome
		}
		log.Info().
			Str("session", session.ID).
			Bool("has_outcome", session.Outcome != nil).
			Msg("game ended")
		p.sink.OnGameEnded(ctx, domain.GameEnded{Identity: e.identity, Session: session})
	}
}

func (p *Poller) fetchOutcome(ctx context.Context, identity domain.Identity, sessionID string) (*domain.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.OutcomeQueryTimeout)
	defer cancel()

	outcome, err := p.source.QueryOutcome(ctx, identity, sessionID)
	if err == nil && outcome == nil {
		err = domain.ErrOutcomeNotYetAvailable
	}
	return outcome, err
}

func (p *Poller) deferOutcome(e *entry, session domain.GameSession) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending[pendingKey(e.identity.ID, session.ID)] = &pendingOutcome{entry: e, session: session}
}

// PendingOutcomes is the number of ended sessions still waiting for their
// outcome.
func (p *Poller) PendingOutcomes() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.pending)
}

// retryOutcomes asks once more for every owed outcome. An entry is dropped
// when its identity was untracked or after constants.OutcomeRetryCycles
// failed attempts.
func (p *Poller) retryOutcomes(ctx context.Context) {
	p.mu.Lock()
	batch := make([]*pendingOutcome, 0, len(p.pending))
	for key, po := range p.pending {
		if cur, ok := p.entries[po.entry.identity.ID]; !ok || cur != po.entry {
			delete(p.pending, key)
			continue
		}
		batch = append(batch, po)
	}
	p.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(p.opts.Workers)
	for _, po := range batch {
		g.Go(func() error {
			p.retryOutcome(ctx, po)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Poller) retryOutcome(ctx context.Context, po *pendingOutcome) {
	identity := po.entry.identity
	log := p.logger.With().
		Str("identity_id", identity.ID).
		Str("riot_id", identity.RiotID()).
		Str("session", po.session.ID).
		Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("outcome retry panicked")
		}
	}()

	outcome, err := p.fetchOutcome(ctx, identity, po.session.ID)
	key := pendingKey(identity.ID, po.session.ID)

	p.mu.Lock()
	if err != nil {
		po.attempts++
		attempts := po.attempts
		if attempts >= constants.OutcomeRetryCycles {
			delete(p.pending, key)
		}
		p.mu.Unlock()

		if attempts >= constants.OutcomeRetryCycles {
			log.Warn().Err(err).Int("attempts", attempts).Msg("giving up on session outcome")
		} else {
			log.Debug().Err(err).Int("attempts", attempts).Msg("outcome still unavailable")
		}
		return
	}
	delete(p.pending, key)
	cur, ok := p.entries[identity.ID]
	p.mu.Unlock()

	if !ok || cur != po.entry {
		log.Debug().Msg("identity untracked during outcome query, result discarded")
		return
	}

	session := po.session
	session.Outcome = outcome
	log.Info().Bool("win", outcome.Win).Msg("outcome resolved")
	p.sink.OnOutcomeResolved(ctx, domain.GameEnded{Identity: identity, Session: session})
}
