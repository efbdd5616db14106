// Package session runs a chord practice session: it hands out tasks, waits
// for the player to hold a settled chord long enough, scores the attempt
// and moves on.
package session

import (
	"sync"
	"time"

	"github.com/jsphweid/chordcoach/aggregator"
	"github.com/jsphweid/chordcoach/chord"
	"github.com/jsphweid/chordcoach/constants"
	"github.com/jsphweid/chordcoach/model"
	"github.com/jsphweid/chordcoach/timer"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
)

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrDisposed          = errors.New("session disposed")
)

type Options struct {
	Difficulty          string
	SessionLength       int
	MinHold             time.Duration
	FeedbackDuration    time.Duration
	RequirePerfectMatch bool
	// Seed of 0 picks a time-based seed.
	Seed uint64
}

func DefaultOptions() Options {
	return Options{
		Difficulty:       constants.DefaultDifficulty,
		SessionLength:    constants.DefaultSessionLength,
		MinHold:          constants.DefaultMinHoldDuration,
		FeedbackDuration: constants.DefaultFeedbackDuration,
	}
}

func (o Options) validate() error {
	if _, err := LookupTier(o.Difficulty); err != nil {
		return err
	}
	if o.SessionLength < 1 {
		return errors.Wrapf(ErrInvalidConfig, "session length must be at least 1, got %d", o.SessionLength)
	}
	if o.MinHold < 0 {
		return errors.Wrapf(ErrInvalidConfig, "min hold must not be negative, got %v", o.MinHold)
	}
	if o.FeedbackDuration < 0 {
		return errors.Wrapf(ErrInvalidConfig, "feedback duration must not be negative, got %v", o.FeedbackDuration)
	}
	return nil
}

type Option func(*Engine)

func WithLogger(l *log.Entry) Option {
	return func(e *Engine) { e.log = l }
}

// WithTimers replaces the debouncer factory. The engine creates the hold
// timer first and the feedback timer second.
func WithTimers(f timer.Factory) Option {
	return func(e *Engine) { e.newTimer = f }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Update is sent to observers after every state change.
type Update struct {
	State   model.SessionState
	Task    *model.PracticeTask
	Attempt *model.AttemptResult
}

type Engine struct {
	mu   sync.Mutex
	opts Options
	rng  *rand.Rand

	tasks     []model.PracticeTask
	index     int
	state     model.SessionState
	attempts  []model.AttemptResult
	score     int
	streak    int
	maxStreak int

	startedAt     time.Time
	completedAt   time.Time
	taskStartedAt time.Time

	hold     timer.Debouncer
	feedback timer.Debouncer
	// held is the snapshot waiting out the hold gate.
	held     model.NoteSet
	// carried is a chord settled during feedback, armed for the next task.
	carried  model.NoteSet
	subs     []aggregator.Subscription
	disposed bool

	observers []func(Update)
	outbox    []Update

	newTimer timer.Factory
	now      func() time.Time
	log      *log.Entry
}

// New validates opts and generates the task list. An unknown tier or a
// malformed option fails with ErrInvalidConfig.
func New(opts Options, fns ...Option) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		opts:     opts,
		state:    model.Idle,
		newTimer: timer.New,
		now:      time.Now,
	}
	for _, fn := range fns {
		fn(e)
	}
	if e.log == nil {
		e.log = log.WithField("component", "session")
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	e.rng = rand.New(rand.NewSource(seed))
	tasks, err := GenerateTasks(opts.Difficulty, opts.SessionLength, e.rng)
	if err != nil {
		return nil, err
	}
	e.tasks = tasks
	e.hold = e.newTimer(opts.MinHold)
	e.feedback = e.newTimer(opts.FeedbackDuration)
	return e, nil
}

// Attach subscribes the engine to an aggregator's stable-note events and
// device disconnections.
func (e *Engine) Attach(agg *aggregator.Aggregator) {
	subs := []aggregator.Subscription{
		agg.Subscribe(aggregator.StableNotes, func(ev aggregator.Event) error {
			e.SubmitSnapshot(*ev.Snapshot)
			return nil
		}),
		agg.Subscribe(aggregator.NotesCleared, func(aggregator.Event) error {
			e.SubmitSnapshot(model.StableChordSnapshot{})
			return nil
		}),
		agg.Subscribe(aggregator.DeviceDisconnected, func(aggregator.Event) error {
			e.HandleDisconnect()
			return nil
		}),
	}
	e.mu.Lock()
	e.subs = append(e.subs, subs...)
	e.mu.Unlock()
}

// OnUpdate registers an observer. Observers run after the engine's lock is
// released and may call accessors.
func (e *Engine) OnUpdate(fn func(Update)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

// Start begins the session from Idle or resumes it from Paused.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	if e.state != model.Idle && e.state != model.Paused {
		state := e.state
		e.mu.Unlock()
		return errors.Wrapf(ErrInvalidTransition, "cannot start from %s", state)
	}
	now := e.now()
	if e.startedAt.IsZero() {
		e.startedAt = now
	}
	e.taskStartedAt = now
	e.setState(model.WaitingForInput)
	e.log.WithFields(log.Fields{
		"task":  e.index + 1,
		"tasks": len(e.tasks),
	}).Info("session started")
	e.unlockAndNotify()
	return nil
}

// Pause is only allowed while waiting for input.
func (e *Engine) Pause() error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	if e.state != model.WaitingForInput {
		state := e.state
		e.mu.Unlock()
		return errors.Wrapf(ErrInvalidTransition, "cannot pause from %s", state)
	}
	e.cancelHold()
	e.setState(model.Paused)
	e.unlockAndNotify()
	return nil
}

// SubmitSnapshot feeds a settled chord. It is evaluated only once the same
// snapshot has been held for the minimum hold duration; a different
// snapshot restarts the wait and one with fewer than two notes cancels it.
// A chord settled during feedback starts the wait for the next task.
func (e *Engine) SubmitSnapshot(snap model.StableChordSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	switch e.state {
	case model.WaitingForInput:
	case model.SuccessFeedback, model.FailFeedback:
		e.carried = nil
		if len(snap.Notes) >= 2 {
			e.carried = append(model.NoteSet{}, snap.Notes...)
		}
		return
	default:
		return
	}
	if len(snap.Notes) < 2 {
		e.cancelHold()
		return
	}
	if snap.Notes.Equal(e.held) {
		return
	}
	e.arm(append(model.NoteSet{}, snap.Notes...))
}

// arm must be called with e.mu held.
func (e *Engine) arm(notes model.NoteSet) {
	e.held = notes
	e.hold.Trigger(func() { e.holdElapsed(notes) })
}

func (e *Engine) holdElapsed(notes model.NoteSet) {
	e.mu.Lock()
	if e.disposed || e.state != model.WaitingForInput || !notes.Equal(e.held) {
		e.mu.Unlock()
		return
	}
	e.evaluate(notes)
	e.unlockAndNotify()
}

// Evaluate scores notes against the current task straight away, bypassing
// the hold gate.
func (e *Engine) Evaluate(notes []int) (model.AttemptResult, error) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return model.AttemptResult{}, ErrDisposed
	}
	if e.state != model.WaitingForInput {
		state := e.state
		e.mu.Unlock()
		return model.AttemptResult{}, errors.Wrapf(ErrInvalidTransition, "cannot evaluate from %s", state)
	}
	e.cancelHold()
	res := e.evaluate(notes)
	e.unlockAndNotify()
	return res, nil
}

// evaluate must be called with e.mu held and the engine waiting for input.
func (e *Engine) evaluate(notes []int) model.AttemptResult {
	e.setState(model.Evaluating)
	e.held = nil
	e.carried = nil
	task := e.tasks[e.index]
	match := chord.Classify(notes)
	now := e.now()

	res := model.AttemptResult{
		TaskID:    task.ID,
		Detected:  match,
		Correct:   Matches(task, match, e.opts.RequirePerfectMatch),
		Timestamp: now,
		Elapsed:   now.Sub(e.taskStartedAt),
	}
	if match != nil {
		res.Confidence = match.Confidence
	}
	e.record(res)

	fields := log.Fields{
		"task":    task.Root + " " + task.TemplateName,
		"notes":   chord.CreateChordKey(notes),
		"correct": res.Correct,
	}
	if match != nil {
		fields["detected"] = match.ChordRoot + " " + match.TemplateName
		fields["confidence"] = match.Confidence
	}
	e.log.WithFields(fields).Info("attempt evaluated")

	if res.Correct {
		e.setStateWithAttempt(model.SuccessFeedback, &res)
	} else {
		e.setStateWithAttempt(model.FailFeedback, &res)
	}
	e.feedback.Trigger(e.feedbackElapsed)
	return res
}

func (e *Engine) record(res model.AttemptResult) {
	e.attempts = append(e.attempts, res)
	if res.Correct {
		e.score += AttemptScore(res)
		e.streak++
		if e.streak > e.maxStreak {
			e.maxStreak = e.streak
		}
	} else {
		e.streak = 0
	}
}

func (e *Engine) feedbackElapsed() {
	e.mu.Lock()
	if e.disposed || (e.state != model.SuccessFeedback && e.state != model.FailFeedback) {
		e.mu.Unlock()
		return
	}
	e.advance()
	e.unlockAndNotify()
}

// SkipChord moves to the next task. Skipping while waiting for input logs
// a skipped, incorrect attempt; skipping during feedback only cuts the
// feedback short.
func (e *Engine) SkipChord() error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	switch e.state {
	case model.WaitingForInput:
		e.cancelHold()
		now := e.now()
		e.record(model.AttemptResult{
			TaskID:    e.tasks[e.index].ID,
			Skipped:   true,
			Timestamp: now,
			Elapsed:   now.Sub(e.taskStartedAt),
		})
	case model.SuccessFeedback, model.FailFeedback:
		e.feedback.Cancel()
	default:
		state := e.state
		e.mu.Unlock()
		return errors.Wrapf(ErrInvalidTransition, "cannot skip from %s", state)
	}
	e.advance()
	e.unlockAndNotify()
	return nil
}

// advance must be called with e.mu held.
func (e *Engine) advance() {
	e.index++
	if e.index >= len(e.tasks) {
		e.index = len(e.tasks)
		e.completedAt = e.now()
		e.setState(model.Completed)
		e.log.WithFields(log.Fields{
			"score":    e.score,
			"attempts": len(e.attempts),
		}).Info("session completed")
		return
	}
	e.taskStartedAt = e.now()
	e.setState(model.WaitingForInput)
	if carried := e.carried; carried != nil {
		e.carried = nil
		e.arm(carried)
	}
}

// Restart regenerates the task list and clears the attempt log, score and
// streaks. The engine returns to Idle.
func (e *Engine) Restart() error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	tasks, err := GenerateTasks(e.opts.Difficulty, e.opts.SessionLength, e.rng)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.cancelHold()
	e.feedback.Cancel()
	e.carried = nil
	e.tasks = tasks
	e.index = 0
	e.attempts = nil
	e.score, e.streak, e.maxStreak = 0, 0, 0
	e.startedAt, e.completedAt, e.taskStartedAt = time.Time{}, time.Time{}, time.Time{}
	e.setState(model.Idle)
	e.unlockAndNotify()
	return nil
}

// HandleDisconnect pauses an active session and drops pending timers. A
// session in feedback finishes that task first.
func (e *Engine) HandleDisconnect() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	switch e.state {
	case model.SuccessFeedback, model.FailFeedback:
		e.feedback.Cancel()
		e.carried = nil
		e.advance()
	}
	if e.state == model.WaitingForInput {
		e.cancelHold()
		e.setState(model.Paused)
		e.log.Warn("input lost, session paused")
	}
	e.unlockAndNotify()
}

// Dispose cancels timers and detaches from the aggregator. It is safe to
// call more than once.
func (e *Engine) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	e.cancelHold()
	e.feedback.Cancel()
	subs := e.subs
	e.subs = nil
	e.observers = nil
	e.outbox = nil
	e.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}

func (e *Engine) cancelHold() {
	e.hold.Cancel()
	e.held = nil
}

func (e *Engine) setState(s model.SessionState) {
	e.setStateWithAttempt(s, nil)
}

func (e *Engine) setStateWithAttempt(s model.SessionState, a *model.AttemptResult) {
	e.state = s
	u := Update{State: s, Attempt: a}
	if task, ok := e.currentTask(); ok {
		u.Task = &task
	}
	e.outbox = append(e.outbox, u)
}

func (e *Engine) unlockAndNotify() {
	updates := e.outbox
	e.outbox = nil
	observers := append([]func(Update){}, e.observers...)
	e.mu.Unlock()

	for _, u := range updates {
		for _, fn := range observers {
			fn(u)
		}
	}
}

func (e *Engine) State() model.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) CurrentTask() (model.PracticeTask, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentTask()
}

func (e *Engine) currentTask() (model.PracticeTask, bool) {
	if e.index >= len(e.tasks) {
		return model.PracticeTask{}, false
	}
	return e.tasks[e.index], true
}

// TaskIndex is the zero-based position of the current task.
func (e *Engine) TaskIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

func (e *Engine) Tasks() []model.PracticeTask {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.PracticeTask{}, e.tasks...)
}

func (e *Engine) Attempts() []model.AttemptResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.AttemptResult{}, e.attempts...)
}

func (e *Engine) Score() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.score
}

func (e *Engine) Streak() (current, max int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.streak, e.maxStreak
}

func (e *Engine) Options() Options {
	return e.opts
}

// Stats derives statistics from the attempt log. Elapsed time runs until
// now while the session is in progress and stops at completion.
func (e *Engine) Stats() model.SessionStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	var elapsed time.Duration
	switch {
	case e.startedAt.IsZero():
	case e.state == model.Completed:
		elapsed = e.completedAt.Sub(e.startedAt)
	default:
		elapsed = e.now().Sub(e.startedAt)
	}
	return ComputeStats(e.attempts, elapsed)
}
