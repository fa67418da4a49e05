package audit

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/angola-gov/vigilancia/internal/shared/metrics"
)

// Entry is one recorded administrative action.
type Entry struct {
	Action     string
	ActorID    int64
	ActorEmail string
	ActorRole  string
	Resource   string
	ResourceID string
	Fields     map[string]interface{}
	At         time.Time
}

// Recorder writes audit entries asynchronously. Record never blocks the
// calling request: when the buffer is full the entry is dropped and counted.
type Recorder struct {
	logger  *zap.Logger
	entries chan Entry

	closeOnce sync.Once
	done      chan struct{}
}

// NewRecorder starts the background writer. bufferSize bounds how many
// entries may be in flight before drops begin.
func NewRecorder(logger *zap.Logger, bufferSize int) *Recorder {
	if bufferSize < 1 {
		bufferSize = 1
	}
	r := &Recorder{
		logger:  logger.Named("audit"),
		entries: make(chan Entry, bufferSize),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.entries {
		r.write(e)
	}
}

func (r *Recorder) write(e Entry) {
	fields := []zap.Field{
		zap.String("action", e.Action),
		zap.Int64("actor_id", e.ActorID),
		zap.String("actor_email", e.ActorEmail),
		zap.String("actor_role", e.ActorRole),
		zap.String("resource", e.Resource),
		zap.String("resource_id", e.ResourceID),
		zap.Time("occurred_at", e.At),
	}
	for k, v := range e.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	r.logger.Info("audit", fields...)
	metrics.RecordAuditEntry()
}

// Record enqueues an entry. Missing timestamps are filled with now.
func (r *Recorder) Record(e Entry) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	select {
	case r.entries <- e:
	default:
		metrics.RecordAuditEntryDropped()
		r.logger.Warn("audit buffer full, entry dropped",
			zap.String("action", e.Action),
			zap.String("resource_id", e.ResourceID))
	}
}

// Close drains buffered entries and stops the writer.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.entries)
		<-r.done
	})
}
