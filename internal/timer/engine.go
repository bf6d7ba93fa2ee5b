package timer

import (
	"context"
	"errors"
	"fmt"
	"focustrack/internal/alert"
	"focustrack/internal/event"
	"focustrack/internal/storage"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cast"
)

var (
	// ErrInvalidTransition is returned for Start while Running and Pause while not Running.
	ErrInvalidTransition = errors.New("timer: invalid state transition")
	// ErrInvalidDuration is returned for durations outside [1, MaxMinutes].
	ErrInvalidDuration = errors.New("timer: duration must be between 1 minute and 24 hours")
)

// MaxMinutes caps a countdown at one day.
const MaxMinutes = 24 * 60

func validMinutes(minutes int) error {
	if minutes < 1 || minutes > MaxMinutes {
		return fmt.Errorf("%w: got %d", ErrInvalidDuration, minutes)
	}
	return nil
}

// StateStore keys owned by the engine.
const (
	KeyEndTime         = "timer.end_time"         // unix ms
	KeyRunning         = "timer.running"          // bool
	KeyRemainingPaused = "timer.remaining_paused" // ms
	KeyInitialDuration = "timer.initial_duration" // ms
	KeyRunID           = "timer.run_id"
	KeyTag             = "timer.tag"
	KeyCustomDurations = "timer.custom_durations" // JSON []int minutes
)

const (
	DefaultDuration     = 25 * time.Minute
	DefaultTickInterval = 100 * time.Millisecond
	finishedBuffer      = 8
)

type Options struct {
	State  storage.StateStore
	Ledger storage.Ledger
	Sink   alert.Sink
	Clock  clockwork.Clock

	DefaultDuration time.Duration
	TickInterval    time.Duration
	DefaultTag      string

	// OnRecord is called with every appended session while the engine
	// lock is held; it must not block or call back into the engine.
	OnRecord func(event.FocusSession)
}

// Engine is the focus countdown. The wall-clock end time is the single
// source of truth while running; remaining time is recomputed from it.
type Engine struct {
	store    storage.StateStore
	ledger   storage.Ledger
	sink     alert.Sink
	clock    clockwork.Clock
	tickIvl  time.Duration
	onRecord func(event.FocusSession)

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     event.TimerState
	initial   time.Duration
	remaining time.Duration
	endTime   time.Time
	runID     string
	tag       string

	// gen identifies the live tick loop; a tick carrying an older value is stale.
	gen      uint64
	tickStop chan struct{}
	wg       sync.WaitGroup

	finished chan event.TimerFinished
}

// New builds an engine and recovers whatever countdown the state store
// holds. A countdown that ran out while no engine was alive completes
// before New returns.
func New(ctx context.Context, opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.DefaultDuration < event.MinRecordable {
		opts.DefaultDuration = DefaultDuration
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.Sink == nil {
		opts.Sink = alert.Nop
	}

	engineCtx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:    opts.State,
		ledger:   opts.Ledger,
		sink:     opts.Sink,
		clock:    opts.Clock,
		tickIvl:  opts.TickInterval,
		onRecord: opts.OnRecord,
		ctx:      engineCtx,
		cancel:   cancel,
		state:    event.StateIdle,
		initial:  opts.DefaultDuration,
		tag:      opts.DefaultTag,
		finished: make(chan event.TimerFinished, finishedBuffer),
	}
	e.remaining = e.initial

	e.mu.Lock()
	finished := e.recoverLocked(ctx)
	e.mu.Unlock()
	if finished != nil {
		e.announce(*finished)
	}
	return e
}

func (e *Engine) recoverLocked(ctx context.Context) *event.TimerFinished {
	if ms, ok := e.getInt(ctx, KeyInitialDuration); ok && time.Duration(ms)*time.Millisecond >= event.MinRecordable {
		e.initial = time.Duration(ms) * time.Millisecond
		e.remaining = e.initial
	}
	if tag, ok := e.get(ctx, KeyTag); ok {
		e.tag = tag
	}
	runID, _ := e.get(ctx, KeyRunID)

	running := false
	if v, ok := e.get(ctx, KeyRunning); ok {
		b, err := cast.ToBoolE(v)
		if err != nil {
			log.Printf("Warning: unreadable %s %q, treating timer as idle", KeyRunning, v)
		}
		running = b
	}
	now := e.clock.Now()

	if running {
		endMs, ok := e.getInt(ctx, KeyEndTime)
		if !ok {
			log.Println("Warning: timer marked running without an end time, resetting to idle")
			e.clearRun(ctx)
			return nil
		}
		e.runID = runID
		e.endTime = time.UnixMilli(endMs)
		if e.endTime.After(now) {
			log.Printf("Resuming running timer, ends at %s", e.endTime.Format(time.Kitchen))
			e.state = event.StateRunning
			e.remaining = e.endTime.Sub(now)
			e.startTickerLocked()
			return nil
		}
		log.Printf("Timer ran out at %s while the engine was down, completing it now", e.endTime.Format(time.Kitchen))
		e.state = event.StateRunning
		f := e.completeLocked(ctx)
		return &f
	}

	if ms, ok := e.getInt(ctx, KeyRemainingPaused); ok && ms > 0 {
		e.state = event.StatePaused
		e.runID = runID
		e.remaining = time.Duration(ms) * time.Millisecond
		if e.remaining > e.initial {
			e.initial = e.remaining
		}
		log.Printf("Resuming paused timer with %s left", e.remaining)
	}
	return nil
}

// Start runs the countdown from Idle or Paused.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == event.StateRunning {
		return fmt.Errorf("%w: start while running", ErrInvalidTransition)
	}
	if e.remaining <= 0 {
		e.remaining = e.initial
	}
	if e.state == event.StateIdle || e.runID == "" {
		e.runID = uuid.NewString()
	}

	e.endTime = e.clock.Now().Add(e.remaining)
	e.state = event.StateRunning

	e.put(ctx, KeyEndTime, strconv.FormatInt(e.endTime.UnixMilli(), 10))
	e.put(ctx, KeyRunning, "true")
	e.put(ctx, KeyRunID, e.runID)
	e.put(ctx, KeyInitialDuration, strconv.FormatInt(e.initial.Milliseconds(), 10))
	e.clear(ctx, KeyRemainingPaused)

	e.startTickerLocked()
	log.Printf("Timer started: %s left, ends at %s", e.remaining.Round(time.Second), e.endTime.Format(time.Kitchen))
	return nil
}

// Pause freezes a running countdown.
func (e *Engine) Pause(ctx context.Context) error {
	e.mu.Lock()
	if state := e.state; state != event.StateRunning {
		e.mu.Unlock()
		return fmt.Errorf("%w: pause while %s", ErrInvalidTransition, state)
	}
	e.stopTickerLocked()

	remaining := e.endTime.Sub(e.clock.Now())
	if remaining <= 0 {
		// The tick that would have noticed has not fired yet.
		f := e.completeLocked(ctx)
		e.mu.Unlock()
		e.announce(f)
		return nil
	}

	e.remaining = remaining
	e.endTime = time.Time{}
	e.state = event.StatePaused
	e.put(ctx, KeyRemainingPaused, strconv.FormatInt(e.remaining.Milliseconds(), 10))
	e.put(ctx, KeyRunning, "false")
	e.clear(ctx, KeyEndTime)
	e.mu.Unlock()

	log.Printf("Timer paused with %s left", remaining.Round(time.Second))
	return nil
}

// Reset abandons the current run, recording a STOPPED session when at
// least a minute of focus was spent.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	f := e.resetLocked(ctx)
	e.mu.Unlock()
	if f != nil {
		e.announce(*f)
	}
	return nil
}

func (e *Engine) resetLocked(ctx context.Context) *event.TimerFinished {
	if e.state == event.StateIdle && e.remaining == e.initial {
		return nil
	}
	e.stopTickerLocked()

	if e.state == event.StateRunning {
		e.remaining = e.endTime.Sub(e.clock.Now())
		if e.remaining <= 0 {
			f := e.completeLocked(ctx)
			return &f
		}
	}
	if e.remaining > 0 && e.remaining != e.initial {
		e.recordLocked(ctx, event.StatusStopped, e.clock.Now())
	}

	e.clearRun(ctx)
	log.Println("Timer reset")
	return nil
}

// ChangeDuration resets the timer and makes minutes the new countdown length.
func (e *Engine) ChangeDuration(ctx context.Context, minutes int) error {
	if err := validMinutes(minutes); err != nil {
		return err
	}
	e.mu.Lock()
	f := e.resetLocked(ctx)
	e.initial = time.Duration(minutes) * time.Minute
	e.remaining = e.initial
	e.put(ctx, KeyInitialDuration, strconv.FormatInt(e.initial.Milliseconds(), 10))
	e.mu.Unlock()

	if f != nil {
		e.announce(*f)
	}
	log.Printf("Timer duration set to %d minutes", minutes)
	return nil
}

// SetTag labels the sessions recorded from now on.
func (e *Engine) SetTag(ctx context.Context, tag string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tag = tag
	e.put(ctx, KeyTag, tag)
}

func (e *Engine) Tag() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tag
}

// Snapshot reports the live state; Remaining is recomputed from the end time.
func (e *Engine) Snapshot() event.TimerUpdate {
	e.mu.Lock()
	defer e.mu.Unlock()

	remaining := e.remaining
	if e.state == event.StateRunning {
		remaining = e.endTime.Sub(e.clock.Now())
		if remaining < 0 {
			remaining = 0
		}
	}
	return event.TimerUpdate{
		State:     e.state,
		Remaining: remaining,
		Initial:   e.initial,
		EndTime:   e.endTime,
		Tag:       e.tag,
	}
}

// Finished delivers one event per natural completion.
func (e *Engine) Finished() <-chan event.TimerFinished {
	return e.finished
}

// Close stops the tick loop. Persisted state is kept, so the next engine
// resumes the countdown.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.stopTickerLocked()
	e.mu.Unlock()
	e.wg.Wait()
	e.cancel()
	return nil
}

// --- tick loop ---

func (e *Engine) startTickerLocked() {
	e.stopTickerLocked()
	e.gen++
	stop := make(chan struct{})
	e.tickStop = stop

	ticker := e.clock.NewTicker(e.tickIvl)
	e.wg.Add(1)
	go e.runTicker(e.gen, ticker, stop)
}

// stopTickerLocked retires the live loop. Bumping gen under the lock means
// no tick from the old loop can act once the caller releases it.
func (e *Engine) stopTickerLocked() {
	if e.tickStop != nil {
		close(e.tickStop)
		e.tickStop = nil
	}
	e.gen++
}

func (e *Engine) runTicker(gen uint64, ticker clockwork.Ticker, stop <-chan struct{}) {
	defer e.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if done := e.tick(gen); done {
				return
			}
		}
	}
}

// tick recomputes the remaining time and reports whether the loop is done.
func (e *Engine) tick(gen uint64) bool {
	e.mu.Lock()
	if gen != e.gen || e.state != event.StateRunning {
		e.mu.Unlock()
		return true
	}
	remaining := e.endTime.Sub(e.clock.Now())
	if remaining > 0 {
		e.remaining = remaining
		e.mu.Unlock()
		return false
	}
	f := e.completeLocked(e.ctx)
	e.mu.Unlock()

	e.announce(f)
	return true
}

// completeLocked runs the natural completion sequence up to, but not
// including, the alert and the observer event.
func (e *Engine) completeLocked(ctx context.Context) event.TimerFinished {
	e.stopTickerLocked()
	e.remaining = 0
	// Append before clearing: after a crash in between, recovery completes
	// the run again and the ledger drops the duplicate run id.
	sess := e.recordLocked(ctx, event.StatusCompleted, e.endTime)
	e.clearRun(ctx)
	return event.TimerFinished{At: e.clock.Now(), Session: sess}
}

func (e *Engine) announce(f event.TimerFinished) {
	n := event.Notification{Title: "Focus", Message: "Focus session complete!"}
	if f.Session != nil {
		n.Message = fmt.Sprintf("%d minutes of %s logged.", f.Session.DurationMinutes, f.Session.Tag)
	}
	if err := alert.Notify(e.ctx, e.sink, n); err != nil {
		log.Printf("Warning: alert failed: %v", err)
	}

	select {
	case e.finished <- f:
	default:
		log.Println("Warning: timer finished event dropped, no reader")
	}
}

// clearRun returns to Idle at the configured duration and forgets the run.
func (e *Engine) clearRun(ctx context.Context) {
	e.state = event.StateIdle
	e.remaining = e.initial
	e.endTime = time.Time{}
	e.runID = ""
	e.clear(ctx, KeyEndTime, KeyRunning, KeyRemainingPaused, KeyRunID)
}

// recordLocked applies the recording policy: only a minute or more of
// focus, truncated to whole minutes, is written to the ledger. endedAt is
// when the focus stopped, which for a run completed during recovery lies
// in the past.
func (e *Engine) recordLocked(ctx context.Context, status event.SessionStatus, endedAt time.Time) *event.FocusSession {
	spent := e.initial - e.remaining
	if spent < event.MinRecordable {
		return nil
	}
	tag := e.tag
	if tag == "" {
		tag = event.DefaultTag
	}
	fs := event.FocusSession{
		RunID:           e.runID,
		DurationMinutes: int(spent / time.Minute),
		Timestamp:       endedAt,
		Status:          status,
		Tag:             tag,
	}
	id, err := e.ledger.Append(ctx, fs)
	if err != nil {
		log.Printf("Error recording %s session (%d min): %v", status, fs.DurationMinutes, err)
		return nil
	}
	fs.ID = id
	log.Printf("Recorded %s session: %d min, tag %s", status, fs.DurationMinutes, fs.Tag)
	if e.onRecord != nil {
		e.onRecord(fs)
	}
	return &fs
}

// --- persistence helpers; failures are logged and otherwise ignored ---

func (e *Engine) get(ctx context.Context, key string) (string, bool) {
	v, ok, err := e.store.Get(ctx, key)
	if err != nil {
		log.Printf("Warning: failed to read %s: %v", key, err)
		return "", false
	}
	return v, ok
}

func (e *Engine) getInt(ctx context.Context, key string) (int64, bool) {
	v, ok := e.get(ctx, key)
	if !ok {
		return 0, false
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		log.Printf("Warning: unreadable %s %q: %v", key, v, err)
		return 0, false
	}
	return n, true
}

func (e *Engine) put(ctx context.Context, key, value string) {
	if err := e.store.Put(ctx, key, value); err != nil {
		log.Printf("Warning: failed to persist %s: %v", key, err)
	}
}

func (e *Engine) clear(ctx context.Context, keys ...string) {
	if err := e.store.Clear(ctx, keys...); err != nil {
		log.Printf("Warning: failed to clear timer state: %v", err)
	}
}
