package output

import (
	"io"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-narrator/internal/dispatch"
)

// Sink receives output jobs. Submit must not block; it is called from
// notification callbacks.
type Sink interface {
	Submit(job Job)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Job)

// Submit calls f.
func (f SinkFunc) Submit(job Job) { f(job) }

// Discard drops every job.
var Discard Sink = SinkFunc(func(Job) {})

// Tee submits each job to every sink in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(job Job) {
		for _, s := range sinks {
			s.Submit(job)
		}
	})
}

// Recorder keeps the most recent jobs in memory.
type Recorder struct {
	limit int

	mu   sync.Mutex
	jobs []Job
}

// NewRecorder returns a recorder holding at most limit jobs. A limit of zero
// or less keeps everything.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Submit records job.
func (r *Recorder) Submit(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
	if r.limit > 0 && len(r.jobs) > r.limit {
		r.jobs = append(r.jobs[:0:0], r.jobs[len(r.jobs)-r.limit:]...)
	}
}

// Jobs returns a copy of the recorded jobs.
func (r *Recorder) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}

// Spoken returns the text of every speech payload in order.
func (r *Recorder) Spoken() []string {
	var out []string
	for _, job := range r.Jobs() {
		for _, p := range job.Payloads {
			if p.Kind == KindSpeech {
				out = append(out, p.Text)
			}
		}
	}
	return out
}

// Len returns the number of recorded jobs.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Reset discards the recorded jobs.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = nil
}

// WriterSink streams each job to w as it arrives.
type WriterSink struct {
	w      io.Writer
	format Format
	logger *zap.Logger

	mu sync.Mutex
}

// NewWriterSink returns a sink writing jobs to w in format f.
func NewWriterSink(w io.Writer, f Format, logger *zap.Logger) *WriterSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WriterSink{w: w, format: f, logger: logger}
}

// Submit writes job. Write errors are logged.
func (s *WriterSink) Submit(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.format == FormatJSON {
		err = FprintJSON(s.w, job, false)
	} else {
		err = FprintYAML(s.w, []Job{job})
	}
	if err != nil {
		s.logger.Warn("write output job", zap.String("id", job.Identifier), zap.Error(err))
	}
}

// Queued hands jobs to a downstream sink on one serial queue per job
// identifier, so producers never wait on rendering and jobs sharing an
// identifier stay ordered.
type Queued struct {
	next   Sink
	logger *zap.Logger

	mu     sync.Mutex
	queues map[string]*dispatch.Queue
	closed bool
}

// NewQueued wraps next.
func NewQueued(next Sink, logger *zap.Logger) *Queued {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queued{next: next, logger: logger, queues: make(map[string]*dispatch.Queue)}
}

// Submit enqueues job on the queue for its identifier.
func (q *Queued) Submit(job Job) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Debug("job dropped after close", zap.String("id", job.Identifier))
		return
	}
	queue, ok := q.queues[job.Identifier]
	if !ok {
		queue = dispatch.NewQueue("output."+job.Identifier, dispatch.WithLogger(q.logger))
		q.queues[job.Identifier] = queue
	}
	q.mu.Unlock()

	queue.Async(func() { q.next.Submit(job) })
}

// Identifiers returns the identifiers that have a queue.
func (q *Queued) Identifiers() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]string, 0, len(q.queues))
	for id := range q.queues {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Flush waits until every job submitted so far reached the downstream sink.
func (q *Queued) Flush() {
	q.mu.Lock()
	queues := make([]*dispatch.Queue, 0, len(q.queues))
	for _, queue := range q.queues {
		queues = append(queues, queue)
	}
	q.mu.Unlock()
	for _, queue := range queues {
		queue.Flush()
	}
}

// Close drains and stops every queue.
func (q *Queued) Close() {
	q.mu.Lock()
	q.closed = true
	queues := q.queues
	q.queues = make(map[string]*dispatch.Queue)
	q.mu.Unlock()
	for _, queue := range queues {
		queue.Close()
	}
}
