package poller

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"lol-tracker/internal/constants"
	"lol-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// scriptedSource replays one result per call for each identity. A nil
// state with a nil error means NotInGame.
type scriptedSource struct {
	mu       sync.Mutex
	scripts  map[string][]result
	outcomes map[string]*domain.Outcome
	// blocks the query for an identity until the channel is closed
	gates map[string]chan struct{}
	// signalled when a gated query starts
	entered chan string
}

type result struct {
	state domain.LiveState
	err   error
	panic bool
}

func newScriptedSource() *scriptedSource {
	return &scriptedSource{
		scripts:  make(map[string][]result),
		outcomes: make(map[string]*domain.Outcome),
		gates:    make(map[string]chan struct{}),
		entered:  make(chan string, 16),
	}
}

func (s *scriptedSource) push(id string, results ...result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[id] = append(s.scripts[id], results...)
}

func (s *scriptedSource) QueryLiveState(ctx context.Context, identity domain.Identity) (domain.LiveState, error) {
	s.mu.Lock()
	gate := s.gates[identity.ID]
	s.mu.Unlock()
	if gate != nil {
		s.entered <- identity.ID
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.scripts[identity.ID]
	if len(queue) == 0 {
		return domain.NotInGame{}, nil
	}
	r := queue[0]
	s.scripts[identity.ID] = queue[1:]
	if r.panic {
		panic("malformed record")
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.state == nil {
		return domain.NotInGame{}, nil
	}
	return r.state, nil
}

func (s *scriptedSource) setOutcome(sessionID string, o *domain.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[sessionID] = o
}

func (s *scriptedSource) QueryOutcome(ctx context.Context, identity domain.Identity, sessionID string) (*domain.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.outcomes[sessionID]; ok {
		return o, nil
	}
	return nil, domain.ErrOutcomeNotYetAvailable
}

type event struct {
	kind     string
	identity string
	session  domain.GameSession
}

type recordingSink struct {
	mu     sync.Mutex
	events []event
}

func (r *recordingSink) OnGameStarted(ctx context.Context, ev domain.GameStarted) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{"started", ev.Identity.ID, ev.Session})
}

func (r *recordingSink) OnGameEnded(ctx context.Context, ev domain.GameEnded) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{"ended", ev.Identity.ID, ev.Session})
}

func (r *recordingSink) OnOutcomeResolved(ctx context.Context, ev domain.GameEnded) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{"resolved", ev.Identity.ID, ev.Session})
}

func (r *recordingSink) eventsFor(id string) []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event
	for _, e := range r.events {
		if e.identity == id {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

var (
	unavailable = result{err: domain.ErrSourceUnavailable}
	notInGame   = result{state: domain.NotInGame{}}
)

func inGame(session string, content int, queue string) result {
	return result{state: domain.InGame{SessionID: session, ContentID: content, QueueType: queue}}
}

func identity(id, handle string) domain.Identity {
	return domain.Identity{ID: id, UserHandle: handle, GameName: id, TagLine: "EUW", Region: "euw1", Puuid: "puuid-" + id}
}

func newTestPoller(src Source, sink Sink, workers int) *Poller {
	return New(src, sink, Options{Interval: time.Hour, Workers: workers}, zerolog.New(io.Discard))
}

func TestScenarioStartThenEnd(t *testing.T) {
	src := newScriptedSource()
	sink := &recordingSink{}
	p := newTestPoller(src, sink, 1)
	p.Track(identity("x", "alice"))

	src.push("x",
		notInGame,
		inGame("EUW1_1", 7, "RANKED_SOLO"),
		inGame("EUW1_1", 7, "RANKED_SOLO"),
		notInGame,
	)
	outcome := &domain.Outcome{Win: true, Kills: 5, Deaths: 1, Assists: 9}
	src.outcomes["EUW1_1"] = outcome

	for range 4 {
		p.PollCycle(context.Background())
	}

	events := sink.eventsFor("x")
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	started, ended := events[0], events[1]
	if started.kind != "started" || started.session.ContentID != 7 || started.session.QueueType != "RANKED_SOLO" {
		t.Errorf("unexpected start event: %+v", started)
	}
	if ended.kind != "ended" || ended.session.ID != "EUW1_1" {
		t.Errorf("unexpected end event: %+v", ended)
	}
	if ended.session.Outcome == nil || *ended.session.Outcome != *outcome {
		t.Errorf("expected outcome attached, got %+v", ended.session.Outcome)
	}
	if ended.session.EndedAt.Before(ended.session.DetectedAt) {
		t.Errorf("session closed before it opened: %+v", ended.session)
	}
	if p.CurrentlyInGame("x") {
		t.Error("identity should not be in game after the end")
	}
}

func TestScenarioSkippedEnd(t *testing.T) {
	src := newScriptedSource()
	sink := &recordingSink{}
	p := newTestPoller(src, sink, 1)
	p.Track(identity("y", "bob"))

	src.push("y", inGame("EUW1_1", 1, "ARAM"), inGame("EUW1_2", 2, "ARAM"))
	// available, but the superseded session must not ask for it
	src.outcomes["EUW1_1"] = &domain.Outcome{Win: true}

	p.PollCycle(context.Background())
	p.PollCycle(context.Background())

	events := sink.eventsFor("y")
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %+v", events)
	}
	if events[1].kind != "ended" || events[1].session.ID != "EUW1_1" || events[1].session.Outcome != nil {
		t.Errorf("expected game-ended for EUW1_1 without outcome, got %+v", events[1])
	}
	if events[2].kind != "started" || events[2].session.ID != "EUW1_2" || events[2].session.ContentID != 2 {
		t.Errorf("expected game-started for EUW1_2, got %+v", events[2])
	}

	open, ok := p.OpenSession("y")
	if !ok || open.ID != "EUW1_2" {
		t.Errorf("expected EUW1_2 open, got %+v (%v)", open, ok)
	}
}

func TestScenarioRepeatedFailures(t *testing.T) {
	src := newScriptedSource()
	sink := &recordingSink{}
	p := newTestPoller(src, sink, 1)
	p.Track(identity("z", "carol"))

	src.push("z", unavailable, unavailable, unavailable)
	for range 3 {
		p.PollCycle(context.Background())
	}
	if got := p.ConsecutiveFailures("z"); got != 3 {
		t.Errorf("expected 3 recorded failures, got %d", got)
	}

	src.push("z", notInGame)
	p.PollCycle(context.Background())

	if sink.count() != 0 {
		t.Errorf("expected no events, got %d", sink.count())
	}
	if got := p.ConsecutiveFailures("z"); got != 0 {
		t.Errorf("expected failure counter reset, got %d", got)
	}
}

func TestScenarioSameHandleConcurrent(t *testing.T) {
	src := newScriptedSource()
	sink := &recordingSink{}
	p := newTestPoller(src, sink, 2)
	p.Track(identity("a1", "dave"))
	p.Track(identity("a2", "dave"))

	src.push("a1", inGame("EUW1_10", 1, "ARAM"))
	src.push("a2", inGame("EUW1_20", 2, "ARAM"))
	p.PollCycle(context.Background())

	src.push("a1", notInGame)
	src.push("a2", notInGame)
	p.PollCycle(context.Background())

	for _, id := range []string{"a1", "a2"} {
		events := sink.eventsFor(id)
		if len(events) != 2 || events[0].kind != "started" || events[1].kind != "ended" {
			t.Errorf("%s: expected started then ended, got %+v", id, events)
		}
	}
}

func TestRepeatedInGameDoesNotRenotify(t *testing.T) {
	src := newScriptedSource()
	sink := &recordingSink{}
	p := newTestPoller(src, sink, 1)
	p.Track(identity("x", "alice"))

	src.push("x", inGame("EUW1_1", 7, "ARAM"), inGame("EUW1_1", 7, "ARAM"))
	p.PollCycle(context.Background())
	p.PollCycle(context.Background())

	if got := sink.count(); got != 1 {
		t.Fatalf("expected exactly one game-started, got %d", got)
	}
	if !p.CurrentlyInGame("x") {
		t.Error("expected identity in game")
	}
}

func TestFailureIsolatedPerIdentity(t *testing.T) {
	src := newScriptedSource()
	sink := &recordingSink{}
	p := newTestPoller(src, sink, 1)
	p.Track(identity("a", "alice"))
	p.Track(identity("b", "bob"))
	p.Track(identity("c", "carol"))

	src.push("a", unavailable)
	src.push("b", result{panic: true})
	src.push("c", inGame("EUW1_5", 3, "ARAM"))
	p.PollCycle(context.Background())

	events := sink.eventsFor("c")
	if len(events) != 1 || events[0].kind != "started" {
		t.Fatalf("expected c's transition despite a and b failing, got %+v", events)
	}
	if p.CurrentlyInGame("a") || p.CurrentlyInGame("b") {
		t.Error("failed identities must keep their previous state")
	}
}

func TestStartedAndEndedAlternate(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for run := range 50 {
		src := newScriptedSource()
		sink := &recordingSink{}
		p := newTestPoller(src, sink, 1)
		p.Track(identity("x", "alice"))

		sessions := []string{"EUW1_1", "EUW1_2", "EUW1_3"}
		for range 40 {
			switch rng.IntN(3) {
			case 0:
				src.push("x", notInGame)
			case 1:
				src.push("x", unavailable)
			default:
				src.push("x", inGame(sessions[rng.IntN(len(sessions))], 1, "ARAM"))
			}
			p.PollCycle(context.Background())
		}

		events := sink.eventsFor("x")
		started, ended := 0, 0
		for i, e := range events {
			want := "started"
			if i%2 == 1 {
				want = "ended"
			}
			if e.kind != want {
				t.Fatalf("run %d: event %d is %s, want %s: %+v", run, i, e.kind, want, events)
			}
			if e.kind == "started" {
				started++
			} else {
				ended++
				if e.session.ID != events[i-1].session.ID {
					t.Fatalf("run %d: ended %s but %s was open", run, e.session.ID, events[i-1].session.ID)
				}
			}
		}
		if d := started - ended; d < 0 || d > 1 {
			t.Fatalf("run %d: started=%d ended=%d", run, started, ended)
		}
	}
}

func TestUntrackDuringQueryDiscardsResult(t *testing.T) {
	src := newScriptedSource()
	sink := &recordingSink{}
	p := newTestPoller(src, sink, 2)
	p.Track(identity("gone", "alice"))
	p.Track(identity("kept", "bob"))

	gate := make(chan struct{})
	src.gates["gone"] = gate
	src.push("gone", inGame("EUW1_1", 1, "ARAM"))
	src.push("kept", inGame("EUW1_2", 2, "ARAM"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.PollCycle(context.Background())
	}()

	<-src.entered
	if !p.Untrack("gone") {
		t.Fatal("expected Untrack to succeed")
	}
	close(gate)
	<-done

	if events := sink.eventsFor("gone"); len(events) != 0 {
		t.Errorf("expected in-flight result discarded, got %+v", events)
	}
	if events := sink.eventsFor("kept"); len(events) != 1 {
		t.Errorf("expected kept identity to transition, got %+v", events)
	}
	if p.CurrentlyInGame("gone") || p.ConsecutiveFailures("gone") != 0 {
		t.Error("untracked identity must have no state")
	}
	for _, id := range p.Tracked() {
		if id.ID == "gone" {
			t.Error("untracked identity still listed")
		}
	}
}

func TestTrackVisibleNextCycle(t *testing.T) {
	src := newScriptedSource()
	sink := &recordingSink{}
	p := newTestPoller(src, sink, 1)

	p.PollCycle(context.Background())
	if !p.Track(identity("new", "alice")) {
		t.Fatal("expected Track to succeed")
	}
	if p.Track(identity("new", "alice")) {
		t.Fatal("expected duplicate Track to be refused")
	}

	src.push("new", inGame("EUW1_9", 9, "ARAM"))
	p.PollCycle(context.Background())

	if len(sink.eventsFor("new")) != 1 {
		t.Errorf("expected new identity polled on the next cycle")
	}
}

func TestTrackedKeepsRegistrationOrder(t *testing.T) {
	p := newTestPoller(newScriptedSource(), &recordingSink{}, 1)
	for _, id := range []string{"c", "a", "b"} {
		p.Track(identity(id, "h"))
	}
	p.Untrack("a")
	p.Track(identity("a", "h"))

	var got []string
	for _, id := range p.Tracked() {
		got = append(got, id.ID)
	}
	want := []string{"c", "b", "a"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestStopLetsCycleFinish(t *testing.T) {
	src := newScriptedSource()
	sink := &recordingSink{}
	p := newTestPoller(src, sink, 1)
	p.Track(identity("x", "alice"))

	gate := make(chan struct{})
	src.gates["x"] = gate
	src.push("x", inGame("EUW1_1", 1, "ARAM"))

	if err := p.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	if err := p.Start(); err == nil {
		t.Fatal("expected second Start to fail")
	}
	<-src.entered

	stopped := make(chan error, 1)
	go func() { stopped <- p.Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a cycle was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	if err := <-stopped; err != nil {
		t.Fatalf("Stop() failed: %v", err)
	}
	if len(sink.eventsFor("x")) != 1 {
		t.Error("expected the in-flight cycle to complete and emit")
	}
}

func TestStopTimesOut(t *testing.T) {
	src := newScriptedSource()
	p := newTestPoller(src, &recordingSink{}, 1)
	p.Track(identity("x", "alice"))

	gate := make(chan struct{})
	defer close(gate)
	src.gates["x"] = gate

	p.Start()
	<-src.entered

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := p.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDiffRejectsUnknownState(t *testing.T) {
	open := &domain.GameSession{ID: "EUW1_1"}
	next, transitions, err := diff("x", open, nil, time.Now())
	if err == nil {
		t.Fatal("expected error for nil state")
	}
	if next != open || len(transitions) != 0 {
		t.Errorf("state must be unchanged on error")
	}
}

func TestOutcomeResolvedOnLaterCycle(t *testing.T) {
	src := newScriptedSource()
	sink := &recordingSink{}
	p := newTestPoller(src, sink, 2)
	p.Track(identity("x", "alice"))

	src.push("x", inGame("EUW1_9", 7, "RANKED_SOLO"), notInGame)
	ctx := context.Background()

	p.PollCycle(ctx)
	p.PollCycle(ctx)

	events := sink.eventsFor("x")
	if len(events) != 2 || events[1].kind != "ended" || events[1].session.Outcome != nil {
		t.Fatalf("expected ended without outcome, got %+v", events)
	}
	if p.PendingOutcomes() != 1 {
		t.Fatalf("pending = %d, want 1", p.PendingOutcomes())
	}

	// still missing: nothing new is emitted
	p.PollCycle(ctx)
	if n := len(sink.eventsFor("x")); n != 2 {
		t.Fatalf("expected no new events, got %d", n)
	}

	outcome := &domain.Outcome{Win: true, Kills: 3, Deaths: 2, Assists: 11}
	src.setOutcome("EUW1_9", outcome)
	p.PollCycle(ctx)

	events = sink.eventsFor("x")
	if len(events) != 3 {
		t.Fatalf("expected a resolved event, got %+v", events)
	}
	resolved := events[2]
	if resolved.kind != "resolved" || resolved.session.ID != "EUW1_9" || resolved.session.QueueType != "RANKED_SOLO" {
		t.Errorf("unexpected resolved event: %+v", resolved)
	}
	if resolved.session.Outcome == nil || *resolved.session.Outcome != *outcome {
		t.Errorf("outcome = %+v", resolved.session.Outcome)
	}
	if resolved.session.EndedAt.IsZero() {
		t.Error("resolved session lost its end time")
	}
	if p.PendingOutcomes() != 0 {
		t.Errorf("pending = %d after resolution", p.PendingOutcomes())
	}

	p.PollCycle(ctx)
	if n := len(sink.eventsFor("x")); n != 3 {
		t.Errorf("outcome published twice: %d events", n)
	}
}

func TestOutcomeRetryIsBounded(t *testing.T) {
	src := newScriptedSource()
	sink := &recordingSink{}
	p := newTestPoller(src, sink, 1)
	p.Track(identity("x", "alice"))

	src.push("x", inGame("EUW1_1", 1, "ARAM"), notInGame)
	ctx := context.Background()
	p.PollCycle(ctx)
	p.PollCycle(ctx)

	for range constants.OutcomeRetryCycles {
		p.PollCycle(ctx)
	}
	if p.PendingOutcomes() != 0 {
		t.Fatalf("pending = %d after %d retries", p.PendingOutcomes(), constants.OutcomeRetryCycles)
	}

	src.setOutcome("EUW1_1", &domain.Outcome{Win: true})
	p.PollCycle(ctx)
	for _, e := range sink.eventsFor("x") {
		if e.kind == "resolved" {
			t.Errorf("outcome published after giving up: %+v", e)
		}
	}
}

func TestPendingOutcomeDroppedOnUntrack(t *testing.T) {
	src := newScriptedSource()
	sink := &recordingSink{}
	p := newTestPoller(src, sink, 1)
	p.Track(identity("x", "alice"))

	src.push("x", inGame("EUW1_1", 1, "ARAM"), notInGame)
	ctx := context.Background()
	p.PollCycle(ctx)
	p.PollCycle(ctx)

	p.Untrack("x")
	src.setOutcome("EUW1_1", &domain.Outcome{Win: true})
	p.PollCycle(ctx)

	if p.PendingOutcomes() != 0 {
		t.Errorf("pending = %d after untrack", p.PendingOutcomes())
	}
	for _, e := range sink.eventsFor("x") {
		if e.kind == "resolved" {
			t.Errorf("outcome published for an untracked identity: %+v", e)
		}
	}
}

type panickingSink struct {
	*recordingSink
}

func (s panickingSink) OnGameEnded(ctx context.Context, ev domain.GameEnded) {
	panic("webhook exploded")
}

func TestPanickingSinkKeepsNextTransition(t *testing.T) {
	src := newScriptedSource()
	rec := &recordingSink{}
	p := newTestPoller(src, panickingSink{rec}, 1)
	p.Track(identity("x", "alice"))

	src.push("x", inGame("EUW1_1", 1, "ARAM"), inGame("EUW1_2", 2, "ARAM"))
	p.PollCycle(context.Background())
	p.PollCycle(context.Background())

	events := rec.eventsFor("x")
	if len(events) != 2 {
		t.Fatalf("expected two starts, got %+v", events)
	}
	if events[1].kind != "started" || events[1].session.ID != "EUW1_2" {
		t.Errorf("start of EUW1_2 lost after a panicking end: %+v", events[1])
	}
	if open, ok := p.OpenSession("x"); !ok || open.ID != "EUW1_2" {
		t.Errorf("open session = %+v (%v)", open, ok)
	}
}
