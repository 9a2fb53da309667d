package scripted

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/mj1618/desktop-narrator/internal/model"
	"github.com/mj1618/desktop-narrator/internal/platform"
	"github.com/mj1618/desktop-narrator/internal/selection"
)

// Result summarizes a replay.
type Result struct {
	OK        bool         `yaml:"ok"              json:"ok"`
	Steps     int          `yaml:"steps"           json:"steps"`
	Completed int          `yaml:"completed"       json:"completed"`
	Error     string       `yaml:"error,omitempty" json:"error,omitempty"`
	Results   []StepResult `yaml:"results"         json:"results"`
}

// StepResult is the outcome of one step.
type StepResult struct {
	Step    int    `yaml:"step"              json:"step"`
	OK      bool   `yaml:"ok"                json:"ok"`
	Action  string `yaml:"action"            json:"action"`
	Error   string `yaml:"error,omitempty"   json:"error,omitempty"`
	Target  string `yaml:"target,omitempty"  json:"target,omitempty"`
	Elapsed string `yaml:"elapsed,omitempty" json:"elapsed,omitempty"`
}

// Player executes the steps of a script against a World.
type Player struct {
	world       *World
	script      *Script
	logger      *zap.Logger
	stopOnError bool
	pace        time.Duration
	afterStep   func(StepResult)
	defaultPID  int
}

// PlayerOption configures a Player.
type PlayerOption func(*Player)

// WithPlayerLogger sets the player's logger.
func WithPlayerLogger(l *zap.Logger) PlayerOption {
	return func(p *Player) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithStopOnError stops the replay at the first failing step. Enabled by
// default.
func WithStopOnError(stop bool) PlayerOption {
	return func(p *Player) { p.stopOnError = stop }
}

// WithPace waits d between steps.
func WithPace(d time.Duration) PlayerOption {
	return func(p *Player) { p.pace = d }
}

// WithAfterStep calls fn after every step, e.g. to let asynchronous
// consumers settle before the next step runs.
func WithAfterStep(fn func(StepResult)) PlayerOption {
	return func(p *Player) { p.afterStep = fn }
}

// NewPlayer returns a player for s against w. Steps without an app
// parameter target the first application of the script.
func NewPlayer(w *World, s *Script, opts ...PlayerOption) *Player {
	p := &Player{
		world:       w,
		script:      s,
		logger:      zap.NewNop(),
		stopOnError: true,
	}
	if len(s.Apps) > 0 {
		p.defaultPID = s.Apps[0].PID
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes every step in order. It returns an error only when ctx is
// cancelled; step failures are reported in the Result.
func (p *Player) Run(ctx context.Context) (Result, error) {
	res := Result{Steps: len(p.script.Steps), Results: make([]StepResult, 0, len(p.script.Steps))}
	for i, step := range p.script.Steps {
		if err := ctx.Err(); err != nil {
			res.Error = err.Error()
			return res, err
		}
		stepNum := i + 1
		var result StepResult
		var err error
		if len(step) != 1 {
			err = fmt.Errorf("expected exactly one action key, got %d", len(step))
		} else {
			for action, params := range step {
				result, err = p.executeStep(ctx, action, params)
			}
		}
		result.Step = stepNum
		if err != nil {
			result.Error = err.Error()
			p.logger.Warn("step failed", zap.Int("step", stepNum), zap.String("action", result.Action), zap.Error(err))
		} else {
			result.OK = true
			res.Completed++
		}
		res.Results = append(res.Results, result)
		if p.afterStep != nil {
			p.afterStep(result)
		}
		if err != nil {
			if ctx.Err() != nil {
				res.Error = ctx.Err().Error()
				return res, ctx.Err()
			}
			if res.Error == "" {
				res.Error = fmt.Sprintf("step %d: %s", stepNum, err)
			}
			if p.stopOnError {
				break
			}
		}
		if p.pace > 0 && stepNum < len(p.script.Steps) {
			if err := sleep(ctx, p.pace); err != nil {
				res.Error = err.Error()
				return res, err
			}
		}
	}
	res.OK = res.Completed == res.Steps
	return res, nil
}

func (p *Player) executeStep(ctx context.Context, action string, params map[string]any) (StepResult, error) {
	switch action {
	case "focus":
		return p.executeFocus(params)
	case "focus-window":
		return p.executeFocusWindow(params)
	case "select":
		return p.executeSelect(params)
	case "set-value":
		return p.executeSetValue(params)
	case "set-title":
		return p.executeSetTitle(params)
	case "post":
		return p.executePost(params)
	case "sleep":
		return executeSleep(ctx, params)
	case "window-created":
		return p.executeWindowCreated(params)
	case "destroy":
		return p.executeDestroy(params)
	case "exit":
		return p.executeExit(params)
	default:
		return StepResult{Action: action}, fmt.Errorf("unknown step type %q, supported: focus, focus-window, select, set-value, set-title, post, window-created, destroy, sleep, exit", action)
	}
}

func (p *Player) executeFocus(params map[string]any) (StepResult, error) {
	el := stringParam(params, "element", "")
	res := StepResult{Action: "focus", Target: el}
	if el == "" {
		return res, fmt.Errorf("element is required")
	}
	return res, p.world.Focus(intParam(params, "app", p.defaultPID), el)
}

func (p *Player) executeFocusWindow(params map[string]any) (StepResult, error) {
	win := stringParam(params, "window", "")
	res := StepResult{Action: "focus-window", Target: win}
	if win == "" {
		return res, fmt.Errorf("window is required")
	}
	return res, p.world.FocusWindow(intParam(params, "app", p.defaultPID), win)
}

// executeSelect changes the selection of a text element and posts
// AXSelectedTextChanged the way the element's engine would: plain text
// posts no payload, WebKit posts a full payload on the element and Blink
// posts a flat payload on the application.
func (p *Player) executeSelect(params map[string]any) (StepResult, error) {
	id := stringParam(params, "element", "")
	res := StepResult{Action: "select", Target: id}
	if id == "" {
		return res, fmt.Errorf("element is required")
	}
	lower := intParam(params, "lower", 0)
	upper := intParam(params, "upper", lower)
	if err := p.world.Select(id, model.NewRange(lower, upper)); err != nil {
		return res, err
	}
	if !boolParam(params, "notify", true) {
		return res, nil
	}
	el := p.world.MustLookup(id)
	if raw, ok := params["info"]; ok {
		info, err := p.convertInfo(raw)
		if err != nil {
			return res, err
		}
		return res, p.world.Post(id, platform.SelectedTextChanged, info)
	}
	d, err := el.data()
	if err != nil {
		return res, err
	}
	if !d.Text.Markers {
		return res, p.world.Post(id, platform.SelectedTextChanged, nil)
	}
	markers := MarkerRange(model.NewRange(lower, upper))
	if d.Text.Blink {
		app, err := el.Application()
		if err != nil {
			return res, err
		}
		info := platform.Info{
			selection.KeySelection:  markers,
			selection.KeyChangeElem: el,
		}
		return res, p.world.deliver(el.ProcessIdentifier(), app.ID(), platform.SelectedTextChanged, app.ID(), info)
	}

	kind := selection.KindMove
	if stringParam(params, "kind", "move") == "extend" {
		kind = selection.KindExtend
	}
	direction, err := selection.ParseDirection(stringParam(params, "direction", "discontiguous"))
	if err != nil {
		return res, err
	}
	granularity, err := selection.ParseGranularity(stringParam(params, "granularity", "character"))
	if err != nil {
		return res, err
	}
	info := platform.Info{
		selection.KeyChangeType:  selection.RawChangeType(kind),
		selection.KeyDirection:   direction.RawValue(),
		selection.KeyGranularity: granularity.RawValue(),
		selection.KeySelection:   markers,
	}
	if boolParam(params, "focus-changed", false) {
		info[selection.KeyFocusChanged] = true
	}
	return res, p.world.Post(id, platform.SelectedTextChanged, info)
}

func (p *Player) executeSetValue(params map[string]any) (StepResult, error) {
	id := stringParam(params, "element", "")
	res := StepResult{Action: "set-value", Target: id}
	if id == "" {
		return res, fmt.Errorf("element is required")
	}
	if err := p.world.SetValue(id, params["value"]); err != nil {
		return res, err
	}
	if boolParam(params, "notify", false) {
		return res, p.world.Post(id, platform.ValueChanged, nil)
	}
	return res, nil
}

func (p *Player) executeSetTitle(params map[string]any) (StepResult, error) {
	id := stringParam(params, "element", "")
	res := StepResult{Action: "set-title", Target: id}
	if id == "" {
		return res, fmt.Errorf("element is required")
	}
	if err := p.world.SetTitle(id, stringParam(params, "title", "")); err != nil {
		return res, err
	}
	if boolParam(params, "notify", false) {
		return res, p.world.Post(id, platform.TitleChanged, nil)
	}
	return res, nil
}

func (p *Player) executePost(params map[string]any) (StepResult, error) {
	id := stringParam(params, "element", "")
	res := StepResult{Action: "post", Target: id}
	if id == "" {
		return res, fmt.Errorf("element is required")
	}
	name, err := platform.ParseNotification(stringParam(params, "notification", ""))
	if err != nil {
		return res, err
	}
	var info platform.Info
	if raw, ok := params["info"]; ok {
		if info, err = p.convertInfo(raw); err != nil {
			return res, err
		}
	}
	return res, p.world.Post(id, name, info)
}

// executeWindowCreated adds the window given as an element tree, e.g.
// `- window-created: { window: { id: draft, role: AXWindow } }`.
func (p *Player) executeWindowCreated(params map[string]any) (StepResult, error) {
	res := StepResult{Action: "window-created"}
	raw, ok := params["window"]
	if !ok || raw == nil {
		return res, fmt.Errorf("window is required")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return res, fmt.Errorf("window: %w", err)
	}
	var win model.Element
	if err := json.Unmarshal(data, &win); err != nil {
		return res, fmt.Errorf("window: %w", err)
	}
	res.Target = win.ID
	return res, p.world.CreateWindow(intParam(params, "app", p.defaultPID), win)
}

func (p *Player) executeDestroy(params map[string]any) (StepResult, error) {
	id := stringParam(params, "element", "")
	res := StepResult{Action: "destroy", Target: id}
	if id == "" {
		return res, fmt.Errorf("element is required")
	}
	return res, p.world.Destroy(id)
}

func (p *Player) executeExit(params map[string]any) (StepResult, error) {
	pid := intParam(params, "app", p.defaultPID)
	return StepResult{Action: "exit", Target: fmt.Sprint(pid)}, p.world.Exit(pid)
}

func executeSleep(ctx context.Context, params map[string]any) (StepResult, error) {
	ms := intParam(params, "ms", 0)
	if ms <= 0 {
		return StepResult{Action: "sleep"}, fmt.Errorf("ms must be > 0")
	}
	if err := sleep(ctx, time.Duration(ms)*time.Millisecond); err != nil {
		return StepResult{Action: "sleep"}, err
	}
	return StepResult{Action: "sleep", Elapsed: fmt.Sprintf("%dms", ms)}, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// convertInfo turns a script payload into the values a native observer
// would deliver. A selection given as {lower, upper} becomes a marker range,
// a changed element ID becomes an element handle and direction or
// granularity names become their wire values. Anything else passes through
// untouched, so scripts can post malformed payloads.
func (p *Player) convertInfo(raw any) (platform.Info, error) {
	if raw == nil {
		return nil, nil
	}
	m, err := cast.ToStringMapE(raw)
	if err != nil {
		return nil, fmt.Errorf("info must be a map: %w", err)
	}
	info := make(platform.Info, len(m))
	for k, v := range m {
		info[k] = normalize(v)
	}
	if v, ok := info[selection.KeySelection]; ok {
		if r, ok := asRange(v); ok {
			info[selection.KeySelection] = MarkerRange(r)
		}
	}
	if v, ok := info[selection.KeyChangeElem].(string); ok {
		if el, found := p.world.Lookup(platform.ElementID(v)); found {
			info[selection.KeyChangeElem] = el
		}
	}
	if v, ok := info[selection.KeyDirection].(string); ok {
		if d, err := selection.ParseDirection(v); err == nil {
			info[selection.KeyDirection] = d.RawValue()
		}
	}
	if v, ok := info[selection.KeyGranularity].(string); ok {
		if g, err := selection.ParseGranularity(v); err == nil {
			info[selection.KeyGranularity] = g.RawValue()
		}
	}
	return info, nil
}

func normalize(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func asRange(v any) (model.Range[int], bool) {
	m, err := cast.ToStringMapE(v)
	if err != nil {
		return model.Range[int]{}, false
	}
	lower, errL := cast.ToIntE(m["lower"])
	upper, errU := cast.ToIntE(m["upper"])
	if errL != nil || errU != nil {
		return model.Range[int]{}, false
	}
	return model.NewRange(lower, upper), true
}

// Parameter extraction helpers for step maps

func stringParam(params map[string]any, key, defaultVal string) string {
	if v, ok := params[key]; ok {
		if s, err := cast.ToStringE(v); err == nil {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return defaultVal
}

func intParam(params map[string]any, key string, defaultVal int) int {
	if v, ok := params[key]; ok {
		if n, err := cast.ToIntE(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func boolParam(params map[string]any, key string, defaultVal bool) bool {
	if v, ok := params[key]; ok {
		if b, err := cast.ToBoolE(v); err == nil {
			return b
		}
	}
	return defaultVal
}
