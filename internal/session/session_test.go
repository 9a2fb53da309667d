package session_test

import (
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/mj1618/desktop-narrator/internal/focus"
	"github.com/mj1618/desktop-narrator/internal/observer"
	"github.com/mj1618/desktop-narrator/internal/output"
	"github.com/mj1618/desktop-narrator/internal/platform"
	"github.com/mj1618/desktop-narrator/internal/platform/scripted"
	"github.com/mj1618/desktop-narrator/internal/session"
)

func load(name string, opts ...session.Option) *session.Session {
	script, err := scripted.Load(filepath.Join("testdata", name))
	Expect(err).NotTo(HaveOccurred())
	opts = append([]session.Option{session.WithLogger(zap.NewNop())}, opts...)
	s, err := session.New(script, opts...)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(s.Close)
	return s
}

var _ = Describe("Session", func() {
	Describe("replaying an editor session", func() {
		var s *session.Session

		BeforeEach(func() {
			s = load("editor.yaml")
		})

		It("announces the application and echoes caret movement", func() {
			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Error).To(BeEmpty())
			Expect(res.Script).To(Equal("editor"))
			Expect(res.Steps).To(Equal(5))
			Expect(res.Completed).To(Equal(5))
			Expect(res.Apps).To(ConsistOf(output.AppRef{Name: "TextEdit", PID: 42}))

			Expect(s.Recorder().Spoken()).To(Equal([]string{
				"TextEdit",
				"Hello, acc",
				"OK, button",
				"Wrap lines, on, toggle button",
			}))
		})

		It("routes focus and selection speech to separate queues", func() {
			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			var ids []string
			for _, job := range res.Jobs {
				ids = append(ids, job.Identifier)
			}
			Expect(ids).To(Equal([]string{
				output.QueueFocus, output.QueueSelection, output.QueueFocus, output.QueueFocus,
			}))
			Expect(res.Jobs[0].Options).To(Equal(output.Interrupt))
			Expect(res.Jobs[1].Options).To(BeZero())
		})

		It("stops observing the caret once focus leaves the document", func() {
			_, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			native := s.World().Observer(42)
			Expect(native.Registered("doc", platform.SelectedTextChanged)).To(BeFalse())
			Expect(native.Registered("app:42", platform.FocusedUIElementChanged)).To(BeTrue())
		})

		It("releases every native registration on close", func() {
			Expect(s.Start()).To(Succeed())
			native := s.World().Observer(42)
			Expect(native.Registrations()).NotTo(BeEmpty())
			s.Close()
			Expect(native.Registrations()).To(BeEmpty())
			Expect(s.Start()).To(MatchError(session.ErrClosed))
		})

		It("describes a single element", func() {
			res, err := s.Describe("ok")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Description).To(Equal("OK, button"))
			Expect(res.Role).To(Equal("AXButton"))
			Expect(res.Path).To(Equal("app > window > btn"))
			Expect(res.Silent).To(BeFalse())

			res, err = s.Describe("doc")
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Silent).To(BeTrue())

			_, err = s.Describe("missing")
			Expect(err).To(HaveOccurred())
		})

		It("flattens the element tree", func() {
			tree := s.Tree()
			Expect(tree.Script).To(Equal("editor"))
			Expect(tree.Elements).To(HaveLen(5))
			Expect(tree.Elements[0].ID).To(Equal("app:42"))
			Expect(tree.Elements[2].Parent).To(Equal("main"))
		})
	})

	Describe("replaying web content", func() {
		It("echoes WebKit and Blink selections", func() {
			s := load("browsers.yaml")
			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Completed).To(Equal(res.Steps))

			// Safari is activated first, the extend step is not a move and
			// stays silent.
			Expect(s.Recorder().Spoken()).To(Equal([]string{
				"Safari",
				"Read ",
				"blink ",
			}))

			Expect(s.World().Observer(7).Registered("page", platform.SelectedTextChanged)).To(BeTrue())
			Expect(s.World().Observer(8).Registered("app:8", platform.SelectedTextChanged)).To(BeTrue())
		})
	})

	Describe("an application exiting mid-session", func() {
		It("reports the failed step and invalidates the observer", func() {
			script, err := scripted.Parse([]byte(`
apps:
  - name: TextEdit
    pid: 42
    windows: [{id: ok, role: AXButton, title: OK}]
steps:
  - exit: {}
  - focus: { element: ok }
`), "yaml")
			Expect(err).NotTo(HaveOccurred())
			s, err := session.New(script, session.WithStopOnError(false))
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Completed).To(Equal(1))
			Expect(res.Error).To(ContainSubstring("step 2"))

			obs, ok := s.Manager().Observer(42)
			Expect(ok).To(BeTrue())
			Expect(obs.Valid()).To(BeTrue(), "nothing registered since the exit")

			_, err = obs.StartObserving(obs.Application(), platform.WindowCreated, func(platform.Notification) {})
			Expect(err).To(MatchError(observer.ErrInvalidApplication))
			Expect(obs.Valid()).To(BeFalse())

			late := focus.New(obs)
			Expect(late.Start()).To(MatchError(observer.ErrInvalidApplication))
		})
	})

	Describe("window lifecycle", func() {
		It("observes created windows until they are destroyed", func() {
			script, err := scripted.Parse([]byte(`
apps:
  - name: Mail
    pid: 42
    windows: [{id: inbox, role: AXWindow, title: Inbox}]
steps:
  - window-created: { window: { id: draft, role: AXWindow, title: Draft } }
`), "yaml")
			Expect(err).NotTo(HaveOccurred())
			s, err := session.New(script)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			res, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Completed).To(Equal(1))

			windows, ok := s.Windows(42)
			Expect(ok).To(BeTrue())
			Expect(windows.Windows()).To(Equal([]platform.ElementID{"draft"}))
			native := s.World().Observer(42)
			Expect(native.Registered("app:42", platform.WindowCreated)).To(BeTrue())
			Expect(native.Registered("draft", platform.UIElementDestroyed)).To(BeTrue())

			Expect(s.World().Destroy("draft")).To(Succeed())
			s.Manager().Queue().Flush()
			Expect(windows.Windows()).To(BeEmpty())
			Expect(native.Registered("draft", platform.UIElementDestroyed)).To(BeFalse())
		})
	})

	Describe("an application that cannot be observed", func() {
		It("stops the applications already started", func() {
			script, err := scripted.Parse([]byte(`
apps:
  - name: Notes
    pid: 42
    windows: [{id: ok, role: AXButton, title: OK}]
  - name: Locked
    pid: 43
    inaccessible: true
`), "yaml")
			Expect(err).NotTo(HaveOccurred())
			s, err := session.New(script)
			Expect(err).NotTo(HaveOccurred())
			defer s.Close()

			Expect(s.Start()).To(MatchError(observer.ErrInvalidApplication))
			_, ok := s.Tracker(42)
			Expect(ok).To(BeFalse())
			_, ok = s.Windows(42)
			Expect(ok).To(BeFalse())
			Expect(s.World().Observer(42).Registrations()).To(BeEmpty())
			Expect(s.Recorder().Len()).To(BeZero())

			Expect(s.Start()).To(MatchError(observer.ErrInvalidApplication))
			Expect(s.World().Observer(42).Registrations()).To(BeEmpty())
		})
	})

	Describe("streaming output", func() {
		It("tees jobs to an extra sink", func() {
			extra := output.NewRecorder(0)
			s := load("editor.yaml", session.WithSink(extra), session.WithHistory(2))
			_, err := s.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(extra.Len()).To(Equal(4))
			Expect(s.Recorder().Len()).To(Equal(2))
		})
	})

	Describe("cancellation", func() {
		It("stops the replay when the context is cancelled", func() {
			s := load("editor.yaml")
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := s.Run(ctx)
			Expect(err).To(MatchError(context.Canceled))
		})
	})
})
