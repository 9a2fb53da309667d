package scripted

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-narrator/internal/model"
	"github.com/mj1618/desktop-narrator/internal/platform"
)

type node struct {
	data     model.Element
	pid      int
	parent   platform.ElementID
	children []platform.ElementID
}

type appState struct {
	element       platform.ElementID
	focused       platform.ElementID
	focusedWindow platform.ElementID
	observer      *Observer
	inaccessible  bool
	dead          bool
}

// World holds the mutable state of a scripted session: element data, focus
// and the per-process native observers.
type World struct {
	logger *zap.Logger

	mu    sync.Mutex
	nodes map[platform.ElementID]*node
	apps  map[int]*appState
	order []int
}

// WorldOption configures a World.
type WorldOption func(*World)

// WithLogger sets the world's logger.
func WithLogger(l *zap.Logger) WorldOption {
	return func(w *World) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWorld builds the initial state of s.
func NewWorld(s *Script, opts ...WorldOption) (*World, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	w := &World{
		logger: zap.NewNop(),
		nodes:  make(map[platform.ElementID]*node),
		apps:   make(map[int]*appState),
	}
	for _, o := range opts {
		o(w)
	}
	for _, app := range s.Apps {
		appID := platform.ElementID(app.ElementID())
		root := &node{
			data: model.Element{ID: string(appID), Role: model.RoleApplication, Title: app.Name},
			pid:  app.PID,
		}
		w.nodes[appID] = root
		for _, win := range app.Windows {
			root.children = append(root.children, w.add(win, app.PID, appID))
		}
		w.apps[app.PID] = &appState{
			element:       appID,
			focused:       platform.ElementID(app.Focused),
			focusedWindow: platform.ElementID(app.Window),
			inaccessible:  app.Inaccessible,
		}
		w.order = append(w.order, app.PID)
	}
	return w, nil
}

func (w *World) add(el model.Element, pid int, parent platform.ElementID) platform.ElementID {
	id := platform.ElementID(el.ID)
	n := &node{data: el, pid: pid, parent: parent}
	n.data.Children = nil
	if el.Text != nil {
		text := *el.Text
		text.Selected = append([]model.Range[int](nil), el.Text.Selected...)
		n.data.Text = &text
	}
	w.nodes[id] = n
	for _, c := range el.Children {
		n.children = append(n.children, w.add(c, pid, id))
	}
	return id
}

// Lookup returns the element with the given ID.
func (w *World) Lookup(id platform.ElementID) (platform.Element, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.nodes[id]; !ok {
		return nil, false
	}
	return &Element{world: w, id: id}, true
}

// MustLookup is Lookup for IDs known to exist. It panics otherwise.
func (w *World) MustLookup(id string) *Element {
	el, ok := w.Lookup(platform.ElementID(id))
	if !ok {
		panic(fmt.Sprintf("scripted: unknown element %q", id))
	}
	return el.(*Element)
}

// Applications returns the application elements of live processes in
// script order.
func (w *World) Applications() ([]platform.Element, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]platform.Element, 0, len(w.order))
	for _, pid := range w.order {
		app := w.apps[pid]
		if app.dead {
			continue
		}
		out = append(out, &Element{world: w, id: app.element})
	}
	return out, nil
}

// PIDs returns the pids of every declared application, sorted.
func (w *World) PIDs() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	pids := append([]int(nil), w.order...)
	sort.Ints(pids)
	return pids
}

// Alive reports whether pid belongs to a declared application that has not
// exited. It satisfies observer.LivenessChecker.
func (w *World) Alive(pid int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	app, ok := w.apps[pid]
	return ok && !app.dead
}

// Provider returns the platform capabilities backed by w.
func (w *World) Provider() *platform.Provider {
	return &platform.Provider{
		Observers:    w.observerFor,
		Applications: w.Applications,
		Lookup:       w.Lookup,
	}
}

func (w *World) observerFor(pid int) (platform.NativeObserver, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	app, ok := w.apps[pid]
	if !ok || app.dead {
		return nil, fmt.Errorf("no running application with pid %d", pid)
	}
	if app.inaccessible {
		return nil, fmt.Errorf("application %d refuses accessibility observers", pid)
	}
	if app.observer == nil {
		app.observer = newObserver(w, pid, w.logger)
	}
	return app.observer, nil
}

// Observer returns the native observer created for pid, if any.
func (w *World) Observer(pid int) *Observer {
	w.mu.Lock()
	defer w.mu.Unlock()
	if app, ok := w.apps[pid]; ok {
		return app.observer
	}
	return nil
}

// Exit terminates the application with pid. Its elements stay queryable but
// its observer stops delivering and refuses registrations.
func (w *World) Exit(pid int) error {
	w.mu.Lock()
	app, ok := w.apps[pid]
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("no application with pid %d", pid)
	}
	app.dead = true
	obs := app.observer
	app.observer = nil
	w.mu.Unlock()
	if obs != nil {
		obs.invalidate()
	}
	w.logger.Debug("application exited", zap.Int("pid", pid))
	return nil
}

// Focus moves keyboard focus in pid to element and posts
// AXFocusedUIElementChanged on the application element.
func (w *World) Focus(pid int, element string) error {
	w.mu.Lock()
	app, err := w.liveApp(pid)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	id := platform.ElementID(element)
	if n, ok := w.nodes[id]; !ok || n.pid != pid {
		w.mu.Unlock()
		return fmt.Errorf("element %q not found in application %d", element, pid)
	}
	app.focused = id
	target := app.element
	w.mu.Unlock()
	return w.deliver(pid, target, platform.FocusedUIElementChanged, id, nil)
}

// FocusWindow makes window the focused window of pid and posts
// AXFocusedWindowChanged on the application element.
func (w *World) FocusWindow(pid int, window string) error {
	w.mu.Lock()
	app, err := w.liveApp(pid)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	id := platform.ElementID(window)
	if n, ok := w.nodes[id]; !ok || n.pid != pid {
		w.mu.Unlock()
		return fmt.Errorf("window %q not found in application %d", window, pid)
	}
	app.focusedWindow = id
	target := app.element
	w.mu.Unlock()
	return w.deliver(pid, target, platform.FocusedWindowChanged, id, nil)
}

// CreateWindow adds window and its subtree to pid and posts AXWindowCreated
// on the application element.
func (w *World) CreateWindow(pid int, window model.Element) error {
	w.mu.Lock()
	app, err := w.liveApp(pid)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if err := w.checkNew(window, make(map[string]bool)); err != nil {
		w.mu.Unlock()
		return err
	}
	root := w.nodes[app.element]
	id := w.add(window, pid, app.element)
	root.children = append(root.children, id)
	target := app.element
	w.mu.Unlock()
	return w.deliver(pid, target, platform.WindowCreated, id, nil)
}

// checkNew must be called with w.mu held.
func (w *World) checkNew(el model.Element, seen map[string]bool) error {
	if el.ID == "" {
		return fmt.Errorf("element with role %q has no id", el.Role)
	}
	if _, ok := w.nodes[platform.ElementID(el.ID)]; ok || seen[el.ID] {
		return fmt.Errorf("%w: %q", ErrDuplicateID, el.ID)
	}
	seen[el.ID] = true
	for _, c := range el.Children {
		if err := w.checkNew(c, seen); err != nil {
			return err
		}
	}
	return nil
}

// Destroy posts AXUIElementDestroyed on element and then removes it and its
// subtree. Focus that pointed into the subtree is cleared.
func (w *World) Destroy(element string) error {
	id := platform.ElementID(element)
	w.mu.Lock()
	n, ok := w.nodes[id]
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("element %q not found", element)
	}
	if n.parent == "" {
		w.mu.Unlock()
		return fmt.Errorf("element %q is an application: %w", element, platform.ErrUnsupported)
	}
	pid := n.pid
	w.mu.Unlock()

	if err := w.deliver(pid, id, platform.UIElementDestroyed, id, nil); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok = w.nodes[id]
	if !ok {
		return nil
	}
	if parent, ok := w.nodes[n.parent]; ok {
		for i, c := range parent.children {
			if c == id {
				parent.children = append(parent.children[:i:i], parent.children[i+1:]...)
				break
			}
		}
	}
	app := w.apps[pid]
	w.remove(id, app)
	return nil
}

// remove must be called with w.mu held.
func (w *World) remove(id platform.ElementID, app *appState) {
	n, ok := w.nodes[id]
	if !ok {
		return
	}
	for _, c := range n.children {
		w.remove(c, app)
	}
	delete(w.nodes, id)
	if app == nil {
		return
	}
	if app.focused == id {
		app.focused = ""
	}
	if app.focusedWindow == id {
		app.focusedWindow = ""
	}
}

// Select replaces the selection of a text element without posting.
func (w *World) Select(element string, r model.Range[int]) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.nodes[platform.ElementID(element)]
	if !ok {
		return fmt.Errorf("element %q not found", element)
	}
	if n.data.Text == nil {
		return fmt.Errorf("element %q has no text: %w", element, platform.ErrUnsupported)
	}
	if r.Lower < 0 || r.Upper < r.Lower || r.Upper > runeCount(n.data.Value) {
		return fmt.Errorf("selection %v out of bounds for %q", r, element)
	}
	n.data.Text.Selected = []model.Range[int]{r}
	return nil
}

// SetValue replaces the value of an element without posting.
func (w *World) SetValue(element string, value any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.nodes[platform.ElementID(element)]
	if !ok {
		return fmt.Errorf("element %q not found", element)
	}
	n.data.Value = value
	if n.data.Text != nil {
		n.data.Text.Selected = nil
	}
	return nil
}

// SetTitle replaces the title of an element without posting.
func (w *World) SetTitle(element, title string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.nodes[platform.ElementID(element)]
	if !ok {
		return fmt.Errorf("element %q not found", element)
	}
	n.data.Title = title
	return nil
}

// Post delivers a notification registered on target. The notification's
// element is target itself.
func (w *World) Post(target string, name platform.NotificationName, info platform.Info) error {
	w.mu.Lock()
	n, ok := w.nodes[platform.ElementID(target)]
	if !ok {
		w.mu.Unlock()
		return fmt.Errorf("element %q not found", target)
	}
	pid := n.pid
	w.mu.Unlock()
	return w.deliver(pid, platform.ElementID(target), name, platform.ElementID(target), info)
}

func (w *World) deliver(pid int, target platform.ElementID, name platform.NotificationName, subject platform.ElementID, info platform.Info) error {
	w.mu.Lock()
	app, ok := w.apps[pid]
	if !ok || app.dead {
		w.mu.Unlock()
		return fmt.Errorf("no running application with pid %d", pid)
	}
	obs := app.observer
	w.mu.Unlock()
	if obs == nil {
		w.logger.Debug("notification dropped, no observer",
			zap.Int("pid", pid), zap.String("notification", string(name)))
		return nil
	}
	obs.deliver(target, platform.Notification{
		Name:    name,
		Element: &Element{world: w, id: subject},
		Info:    info,
	})
	return nil
}

// liveApp must be called with w.mu held.
func (w *World) liveApp(pid int) (*appState, error) {
	app, ok := w.apps[pid]
	if !ok {
		return nil, fmt.Errorf("no application with pid %d", pid)
	}
	if app.dead {
		return nil, fmt.Errorf("application %d has exited", pid)
	}
	return app, nil
}

// snapshot returns a copy of the node data for id.
func (w *World) snapshot(id platform.ElementID) (node, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, ok := w.nodes[id]
	if !ok {
		return node{}, false
	}
	cp := *n
	if n.data.Text != nil {
		text := *n.data.Text
		text.Selected = append([]model.Range[int](nil), n.data.Text.Selected...)
		cp.data.Text = &text
	}
	return cp, true
}

// Tree returns the element tree of pid rooted at its application element.
func (w *World) Tree(pid int) (model.Element, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	app, ok := w.apps[pid]
	if !ok {
		return model.Element{}, fmt.Errorf("no application with pid %d", pid)
	}
	return w.tree(app.element), nil
}

func (w *World) tree(id platform.ElementID) model.Element {
	n := w.nodes[id]
	el := n.data
	el.Children = nil
	for _, c := range n.children {
		el.Children = append(el.Children, w.tree(c))
	}
	return el
}
