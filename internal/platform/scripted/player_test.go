package scripted

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mj1618/desktop-narrator/internal/model"
	"github.com/mj1618/desktop-narrator/internal/platform"
	"github.com/mj1618/desktop-narrator/internal/selection"
)

type capture struct {
	notes []platform.Notification
}

func (c *capture) callback(n platform.Notification) { c.notes = append(c.notes, n) }

func observe(t *testing.T, w *World, pid int, element string, name platform.NotificationName) *capture {
	t.Helper()
	native, err := w.Provider().Observers(pid)
	require.NoError(t, err)
	c := &capture{}
	require.NoError(t, native.Register(w.MustLookup(element), name, c.callback))
	return c
}

func play(t *testing.T, w *World, steps string, opts ...PlayerOption) Result {
	t.Helper()
	s, err := Parse([]byte("apps: [{name: x, pid: 1}]\nsteps:\n"+steps), "yaml")
	require.NoError(t, err)
	opts = append([]PlayerOption{WithPlayerLogger(zaptest.NewLogger(t))}, opts...)
	// Steps run against w, the parsed apps only satisfy validation.
	p := NewPlayer(w, s, opts...)
	p.defaultPID = w.PIDs()[0]
	res, err := p.Run(context.Background())
	require.NoError(t, err)
	return res
}

func TestPlayer_Select(t *testing.T) {
	w := newWorld(t, editorScript)
	c := observe(t, w, 42, "doc", platform.SelectedTextChanged)

	res := play(t, w, `
  - select: { element: doc, lower: 0, upper: 5 }
  - select: { element: doc, lower: 6, upper: 6, notify: false }
`)
	assert.True(t, res.OK)
	assert.Equal(t, 2, res.Completed)
	require.Len(t, c.notes, 1)
	assert.Nil(t, c.notes[0].Info, "plain text posts no payload")

	ranges, err := w.MustLookup("doc").SelectedRanges()
	require.NoError(t, err)
	assert.Equal(t, []model.Range[int]{model.NewRange(6, 6)}, ranges)
}

func TestPlayer_SelectWebKit(t *testing.T) {
	w := newWorld(t, webScript)
	c := observe(t, w, 7, "page", platform.SelectedTextChanged)

	res := play(t, w, `
  - select: { app: 7, element: page, lower: 5, upper: 8, kind: extend, direction: previous, granularity: word }
`)
	require.True(t, res.OK, res.Error)
	require.Len(t, c.notes, 1)

	change, err := selection.DecodeRich[model.TextMarker](c.notes[0].Info)
	require.NoError(t, err)
	assert.Equal(t, selection.KindExtend, change.Kind)
	assert.Equal(t, selection.DirectionPrevious, change.Navigation.Direction)
	assert.Equal(t, selection.GranularityWord, change.Navigation.Granularity)
	assert.Equal(t, MarkerRange(model.NewRange(5, 8)), *change.Navigation.Selection)
}

func TestPlayer_SelectBlinkPostsOnApplication(t *testing.T) {
	w := newWorld(t, webScript)
	c := observe(t, w, 8, "app:8", platform.SelectedTextChanged)

	res := play(t, w, `
  - select: { app: 8, element: chrome-page, lower: 0, upper: 5 }
`)
	require.True(t, res.OK, res.Error)
	require.Len(t, c.notes, 1)
	assert.Equal(t, platform.ElementID("app:8"), c.notes[0].Element.ID())

	change, err := selection.FromTextMarkerNotification(c.notes[0].Info, w.MustLookup("chrome-page"))
	require.NoError(t, err)
	assert.Equal(t, selection.KindMove, change.Kind)
	assert.Equal(t, platform.ElementID("chrome-page"), change.Navigation.Element.ID())
}

func TestPlayer_PostConvertsInfo(t *testing.T) {
	w := newWorld(t, webScript)
	c := observe(t, w, 7, "page", platform.SelectedTextChanged)

	res := play(t, w, `
  - post:
      app: 7
      element: page
      notification: selected-text-changed
      info:
        AXTextStateChangeType: 2
        AXTextSelectionDirection: next
        AXTextSelectionGranularity: 3
        AXSelectedTextMarkerRange: { lower: 1, upper: 2 }
        AXTextChangeElement: page
        extra: keep
`)
	require.True(t, res.OK, res.Error)
	require.Len(t, c.notes, 1)
	info := c.notes[0].Info
	assert.Equal(t, 4, info[selection.KeyDirection])
	assert.Equal(t, 3, info[selection.KeyGranularity])
	assert.Equal(t, MarkerRange(model.NewRange(1, 2)), info[selection.KeySelection])
	el, ok := info[selection.KeyChangeElem].(platform.Element)
	require.True(t, ok)
	assert.Equal(t, platform.ElementID("page"), el.ID())
	assert.Equal(t, "keep", info["extra"])
}

func TestPlayer_FocusAndSetters(t *testing.T) {
	w := newWorld(t, editorScript)
	focus := observe(t, w, 42, "app:42", platform.FocusedUIElementChanged)
	window := observe(t, w, 42, "app:42", platform.FocusedWindowChanged)
	values := observe(t, w, 42, "doc", platform.ValueChanged)
	titles := observe(t, w, 42, "main", platform.TitleChanged)

	res := play(t, w, `
  - focus: { element: ok }
  - focus-window: { window: main }
  - set-value: { element: doc, value: "new text", notify: true }
  - set-title: { element: main, title: Renamed, notify: true }
`)
	require.True(t, res.OK, res.Error)
	require.Len(t, focus.notes, 1)
	assert.Equal(t, platform.ElementID("ok"), focus.notes[0].Element.ID())
	assert.Len(t, window.notes, 1)
	assert.Len(t, values.notes, 1)
	assert.Len(t, titles.notes, 1)

	v, err := w.MustLookup("doc").Value()
	require.NoError(t, err)
	assert.Equal(t, "new text", v)
	title, err := w.MustLookup("main").Title()
	require.NoError(t, err)
	assert.Equal(t, "Renamed", title)
}

func TestPlayer_StopOnError(t *testing.T) {
	w := newWorld(t, editorScript)
	steps := `
  - focus: { element: ok }
  - teleport: { element: ok }
  - focus: { element: doc }
`
	res := play(t, w, steps)
	assert.False(t, res.OK)
	assert.Equal(t, 1, res.Completed)
	require.Len(t, res.Results, 2)
	assert.Contains(t, res.Results[1].Error, "unknown step type")
	assert.Contains(t, res.Error, "step 2")

	res = play(t, w, steps, WithStopOnError(false))
	assert.False(t, res.OK)
	assert.Equal(t, 2, res.Completed)
	assert.Len(t, res.Results, 3)
}

func TestPlayer_StepValidation(t *testing.T) {
	w := newWorld(t, editorScript)
	for _, step := range []string{
		"  - focus: {}\n",
		"  - focus-window: {}\n",
		"  - select: {}\n",
		"  - select: { element: doc, lower: 5, upper: 1 }\n",
		"  - set-value: {}\n",
		"  - post: { element: doc, notification: AXBogus }\n",
		"  - post: { element: doc, notification: value-changed, info: [1, 2] }\n",
		"  - sleep: { ms: 0 }\n",
		"  - exit: { app: 99 }\n",
	} {
		res := play(t, w, step)
		assert.False(t, res.OK, step)
	}
}

func TestPlayer_AfterStepAndExit(t *testing.T) {
	w := newWorld(t, editorScript)
	var seen []string
	res := play(t, w, `
  - sleep: { ms: 1 }
  - exit: {}
  - focus: { element: ok }
`, WithStopOnError(false), WithAfterStep(func(r StepResult) { seen = append(seen, r.Action) }))
	assert.Equal(t, []string{"sleep", "exit", "focus"}, seen)
	assert.Equal(t, "1ms", res.Results[0].Elapsed)
	assert.True(t, res.Results[1].OK)
	assert.False(t, res.Results[2].OK, "focus fails once the process exited")
	assert.False(t, w.Alive(42))
}

func TestPlayer_ContextCancel(t *testing.T) {
	w := newWorld(t, editorScript)
	s, err := Parse([]byte("apps: [{name: x, pid: 42}]\nsteps:\n  - sleep: { ms: 10000 }\n  - focus: { element: ok }\n"), "yaml")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res, err := NewPlayer(w, s).Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, res.Completed)
}

func TestPlayer_WindowCreatedAndDestroy(t *testing.T) {
	w := newWorld(t, editorScript)
	created := observe(t, w, 42, "app:42", platform.WindowCreated)
	destroyed := observe(t, w, 42, "main", platform.UIElementDestroyed)

	res := play(t, w, `
  - window-created: { window: { id: draft, role: AXWindow, title: Draft, children: [{id: send, role: AXButton, title: Send}] } }
  - destroy: { element: main }
`)
	require.True(t, res.OK, res.Error)
	assert.Equal(t, "draft", res.Results[0].Target)

	require.Len(t, created.notes, 1)
	assert.Equal(t, platform.ElementID("draft"), created.notes[0].Element.ID())
	title, err := created.notes[0].Element.Title()
	require.NoError(t, err)
	assert.Equal(t, "Draft", title)

	require.Len(t, destroyed.notes, 1)
	assert.Equal(t, platform.ElementID("main"), destroyed.notes[0].Element.ID())

	_, ok := w.Lookup("doc")
	assert.False(t, ok, "the destroyed subtree is gone")
	_, ok = w.Lookup("send")
	assert.True(t, ok)
	tree, err := w.Tree(42)
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	assert.Equal(t, "draft", tree.Children[0].ID)

	_, err = w.MustLookup("app:42").FocusedElement()
	assert.ErrorIs(t, err, platform.ErrNoValue)
	_, err = w.MustLookup("app:42").FocusedWindow()
	assert.ErrorIs(t, err, platform.ErrNoValue)
}

func TestPlayer_WindowStepValidation(t *testing.T) {
	w := newWorld(t, editorScript)
	res := play(t, w, `
  - window-created: {}
  - window-created: { window: { id: ok, role: AXWindow } }
  - window-created: { window: { id: twin, role: AXWindow, children: [{id: twin, role: AXButton}] } }
  - destroy: {}
  - destroy: { element: "app:42" }
  - destroy: { element: missing }
`, WithStopOnError(false))
	require.Len(t, res.Results, 6)
	for _, r := range res.Results {
		assert.False(t, r.OK, "step %d %s", r.Step, r.Action)
	}
	assert.Contains(t, res.Results[1].Error, ErrDuplicateID.Error())
	assert.Contains(t, res.Results[2].Error, ErrDuplicateID.Error())
	assert.Contains(t, res.Results[4].Error, "is an application")
	_, ok := w.Lookup("twin")
	assert.False(t, ok)
}
