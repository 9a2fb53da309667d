// Package session assembles a scripted world, the observer manager, one
// focus tracker and window lifecycle per application and the output sinks
// into a replayable narration session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-narrator/internal/describe"
	"github.com/mj1618/desktop-narrator/internal/eventhandler"
	"github.com/mj1618/desktop-narrator/internal/focus"
	"github.com/mj1618/desktop-narrator/internal/model"
	"github.com/mj1618/desktop-narrator/internal/observer"
	"github.com/mj1618/desktop-narrator/internal/output"
	"github.com/mj1618/desktop-narrator/internal/platform"
	"github.com/mj1618/desktop-narrator/internal/platform/scripted"
)

// ErrClosed is returned by operations on a closed session.
var ErrClosed = errors.New("session closed")

// Session replays one script.
type Session struct {
	script    *scripted.Script
	world     *scripted.World
	manager   *observer.Manager
	recorder  *output.Recorder
	sink      output.Sink
	registrar *eventhandler.Registrar
	describer describe.Describer
	logger    *zap.Logger

	history     int
	extra       output.Sink
	pace        time.Duration
	stopOnError bool

	mu         sync.Mutex
	trackers   map[int]*focus.Tracker
	lifecycles map[int]*focus.WindowLifecycle
	started    bool
	closed     bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger shared by every component.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSink also sends every output job to sink.
func WithSink(sink output.Sink) Option {
	return func(s *Session) { s.extra = sink }
}

// WithHistory bounds the number of recorded jobs. Zero keeps all.
func WithHistory(limit int) Option {
	return func(s *Session) { s.history = limit }
}

// WithDescriber sets the describer used by focus handlers.
func WithDescriber(d describe.Describer) Option {
	return func(s *Session) {
		if d != nil {
			s.describer = d
		}
	}
}

// WithRegistrar sets the handler registrar.
func WithRegistrar(r *eventhandler.Registrar) Option {
	return func(s *Session) {
		if r != nil {
			s.registrar = r
		}
	}
}

// WithPace waits d between replayed steps.
func WithPace(d time.Duration) Option {
	return func(s *Session) { s.pace = d }
}

// WithStopOnError stops the replay at the first failing step.
func WithStopOnError(stop bool) Option {
	return func(s *Session) { s.stopOnError = stop }
}

// New builds the world for script. Nothing is observed until Start.
func New(script *scripted.Script, opts ...Option) (*Session, error) {
	s := &Session{
		script:      script,
		registrar:   eventhandler.NewRegistrar(),
		logger:      zap.NewNop(),
		stopOnError: true,
		trackers:    make(map[int]*focus.Tracker),
		lifecycles:  make(map[int]*focus.WindowLifecycle),
	}
	for _, o := range opts {
		o(s)
	}
	if s.describer == nil {
		s.describer = describe.New(describe.WithLogger(s.logger))
	}
	world, err := scripted.NewWorld(script, scripted.WithLogger(s.logger.Named("world")))
	if err != nil {
		return nil, err
	}
	s.world = world
	s.manager = observer.NewManager(world.Provider().Observers,
		observer.WithLogger(s.logger.Named("observer")),
		observer.WithLiveness(world))
	s.recorder = output.NewRecorder(s.history)
	s.sink = s.recorder
	if s.extra != nil {
		s.sink = output.Tee(s.recorder, s.extra)
	}
	return s, nil
}

// World returns the scripted world.
func (s *Session) World() *scripted.World { return s.world }

// Manager returns the observer manager.
func (s *Session) Manager() *observer.Manager { return s.manager }

// Recorder returns the recorded output jobs.
func (s *Session) Recorder() *output.Recorder { return s.recorder }

// Tracker returns the focus tracker of pid.
func (s *Session) Tracker(pid int) (*focus.Tracker, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trackers[pid]
	return t, ok
}

// Windows returns the window lifecycle of pid.
func (s *Session) Windows(pid int) (*focus.WindowLifecycle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.lifecycles[pid]
	return w, ok
}

func (s *Session) context() eventhandler.Context {
	return eventhandler.Context{
		Describer: s.describer,
		Output:    s.sink,
		Logger:    s.logger.Named("handler"),
	}
}

// Start registers an observer, a focus tracker and a window lifecycle for
// every application, then activates the first application of the script.
// If any application fails, everything started by this call is stopped
// again before the error is returned.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.started {
		return nil
	}
	apps, err := s.world.Applications()
	if err != nil {
		return err
	}
	if err := s.startApps(apps); err != nil {
		return err
	}
	s.started = true
	if len(apps) > 0 {
		s.trackers[apps[0].ProcessIdentifier()].Activate()
	}
	s.settle()
	return nil
}

// startApps must be called with s.mu held.
func (s *Session) startApps(apps []platform.Element) error {
	var started []int
	fail := func(err error) error {
		for _, pid := range started {
			s.trackers[pid].Stop()
			s.lifecycles[pid].Stop()
			delete(s.trackers, pid)
			delete(s.lifecycles, pid)
		}
		s.settle()
		return err
	}
	for _, app := range apps {
		obs, err := s.manager.RegisterObserver(app)
		if err != nil {
			return fail(fmt.Errorf("observe %s: %w", app.ID(), err))
		}
		t := focus.New(obs, focus.WithRegistrar(s.registrar), focus.WithContext(s.context()))
		if err := t.Start(); err != nil {
			return fail(fmt.Errorf("track focus of %s: %w", app.ID(), err))
		}
		w := focus.NewWindowLifecycle(obs, focus.WithLifecycleLogger(s.logger.Named("windows")))
		if err := w.Start(); err != nil {
			t.Stop()
			return fail(fmt.Errorf("observe windows of %s: %w", app.ID(), err))
		}
		s.trackers[obs.PID()] = t
		s.lifecycles[obs.PID()] = w
		started = append(started, obs.PID())
	}
	return nil
}

func (s *Session) settle() {
	s.manager.Queue().Flush()
}

// Run starts the session if needed and replays every step. Deferred
// disposals settle after each step so the next step observes them.
func (s *Session) Run(ctx context.Context) (output.ReplayResult, error) {
	if err := s.Start(); err != nil {
		return output.ReplayResult{}, err
	}
	player := scripted.NewPlayer(s.world, s.script,
		scripted.WithPlayerLogger(s.logger.Named("player")),
		scripted.WithStopOnError(s.stopOnError),
		scripted.WithPace(s.pace),
		scripted.WithAfterStep(func(scripted.StepResult) { s.settle() }))
	res, err := player.Run(ctx)
	return s.report(res), err
}

func (s *Session) report(res scripted.Result) output.ReplayResult {
	out := output.ReplayResult{
		Script:    s.script.Name,
		Steps:     res.Steps,
		Completed: res.Completed,
		Error:     res.Error,
		TS:        time.Now().Unix(),
		Jobs:      s.recorder.Jobs(),
	}
	for _, app := range s.script.Apps {
		out.Apps = append(out.Apps, output.AppRef{Name: app.Name, PID: app.PID})
	}
	return out
}

// Describe returns the focus-in description of the element with id.
func (s *Session) Describe(id string) (output.DescribeResult, error) {
	el, ok := s.world.Lookup(platform.ElementID(id))
	if !ok {
		return output.DescribeResult{}, fmt.Errorf("element %q not found", id)
	}
	res := output.DescribeResult{ID: id}
	res.Role, _ = el.Role()
	for _, flat := range s.Tree().Elements {
		if flat.ID == id {
			res.Path = flat.Path
			break
		}
	}
	h := s.registrar.EventHandler(el, s.context())
	text, spoken := h.FocusIn()
	res.Description = text
	res.Silent = !spoken || text == ""
	return res, nil
}

// Tree flattens the current element trees of every application.
func (s *Session) Tree() output.TreeResult {
	var roots []model.Element
	pids := s.world.PIDs()
	sort.Ints(pids)
	for _, pid := range pids {
		if tree, err := s.world.Tree(pid); err == nil {
			roots = append(roots, tree)
		}
	}
	return output.TreeResult{Script: s.script.Name, Elements: model.FlattenElements(roots)}
}

// Close stops every tracker, every window lifecycle and the observer
// manager. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	trackers := s.trackers
	lifecycles := s.lifecycles
	s.trackers = make(map[int]*focus.Tracker)
	s.lifecycles = make(map[int]*focus.WindowLifecycle)
	s.mu.Unlock()

	for _, t := range trackers {
		t.Stop()
	}
	for _, w := range lifecycles {
		w.Stop()
	}
	s.manager.Close()
}
