package lookout

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventStatus is the state of a logged step.
type EventStatus int

// Step statuses. A step is InProgress until it is committed.
const (
	InProgress EventStatus = iota
	Pass
	Fail
)

func (s EventStatus) String() string {
	switch s {
	case Pass:
		return "PASS"
	case Fail:
		return "FAIL"
	default:
		return "IN_PROGRESS"
	}
}

// LogEvent describes one user-level call on an element or collection.
type LogEvent struct {
	ID       uuid.UUID
	Subject  string
	Verb     string
	Args     []any
	Start    time.Time
	Duration time.Duration
	Status   EventStatus
	Err      error
}

func (e *LogEvent) String() string {
	return fmt.Sprintf("%s %s: %s", e.Subject, e.Action(), e.Status)
}

// Action returns the verb followed by its arguments.
func (e *LogEvent) Action() string {
	if len(e.Args) == 0 {
		return e.Verb
	}
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = fmt.Sprint(a)
	}
	return e.Verb + " " + strings.Join(args, ", ")
}

// Listener receives steps as they begin and finish.
type Listener interface {
	BeforeEvent(ev *LogEvent)
	AfterEvent(ev *LogEvent)
}

// StepLog fans steps out to named listeners. It is safe for concurrent use.
type StepLog struct {
	mu        sync.RWMutex
	listeners map[string]Listener
	now       func() time.Time
}

// NewStepLog returns an empty StepLog.
func NewStepLog() *StepLog {
	return &StepLog{listeners: make(map[string]Listener), now: time.Now}
}

// AddListener registers l under name, replacing any listener with that name.
func (s *StepLog) AddListener(name string, l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[name] = l
}

// RemoveListener unregisters the listener with the given name.
func (s *StepLog) RemoveListener(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, name)
}

// BeginStep opens a step. The returned event is the token passed to
// CommitStep.
func (s *StepLog) BeginStep(subject, verb string, args ...any) *LogEvent {
	ev := &LogEvent{
		ID:      uuid.New(),
		Subject: subject,
		Verb:    verb,
		Args:    args,
		Start:   s.now(),
		Status:  InProgress,
	}
	for _, l := range s.snapshot() {
		l.BeforeEvent(ev)
	}
	return ev
}

// CommitStep closes a step. A nil err means the step passed.
func (s *StepLog) CommitStep(ev *LogEvent, err error) {
	ev.Duration = s.now().Sub(ev.Start)
	ev.Err = err
	ev.Status = Pass
	if err != nil {
		ev.Status = Fail
	}
	for _, l := range s.snapshot() {
		l.AfterEvent(ev)
	}
}

// snapshot returns the listeners in name order.
func (s *StepLog) snapshot() []Listener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.listeners))
	for name := range s.listeners {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Listener, len(names))
	for i, name := range names {
		out[i] = s.listeners[name]
	}
	return out
}

// ZapListener writes finished steps to a zap logger: passing steps at debug
// level, failing steps at warn level.
type ZapListener struct {
	logger *zap.Logger
}

// NewZapListener returns a listener writing to logger. A nil logger
// discards everything.
func NewZapListener(logger *zap.Logger) *ZapListener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapListener{logger: logger}
}

func (z *ZapListener) BeforeEvent(*LogEvent) {}

func (z *ZapListener) AfterEvent(ev *LogEvent) {
	fields := []zap.Field{
		zap.String("step", ev.ID.String()),
		zap.String("subject", ev.Subject),
		zap.String("action", ev.Action()),
		zap.String("status", ev.Status.String()),
		zap.Duration("duration", ev.Duration),
	}
	if ev.Status == Fail {
		z.logger.Warn("step failed", append(fields, zap.Error(ev.Err))...)
		return
	}
	z.logger.Debug("step", fields...)
}
