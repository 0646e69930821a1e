package logging

import (
	"context"
	"sync"
	"time"

	"learning_assist/internal/utils"
)

// BatchWriter persists one batch of records somewhere durable.
type BatchWriter interface {
	WriteBatch(ctx context.Context, records []*ProxyLogRecord) (string, error)
}

// BufferedSink queues records in memory and flushes them to a BatchWriter
// when the batch grows large enough or the flush interval elapses. A full
// queue drops records rather than blocking the request path.
type BufferedSink struct {
	writer        BatchWriter
	flushSize     int
	flushInterval time.Duration
	logger        *utils.Logger

	recordCh chan *ProxyLogRecord
	doneCh   chan struct{}
	wg       sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewBufferedSink starts the flush goroutine and returns the sink.
func NewBufferedSink(writer BatchWriter, bufferSize, flushSize int, flushInterval time.Duration) *BufferedSink {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if flushSize <= 0 {
		flushSize = 1000
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Minute
	}

	s := &BufferedSink{
		writer:        writer,
		flushSize:     flushSize,
		flushInterval: flushInterval,
		logger:        utils.NewLogger("log-sink"),
		recordCh:      make(chan *ProxyLogRecord, bufferSize),
		doneCh:        make(chan struct{}),
	}

	s.wg.Add(1)
	go s.run()

	return s
}

// Enqueue queues a record for the next flush. If the queue is full the
// record is dropped.
func (s *BufferedSink) Enqueue(rec *ProxyLogRecord) {
	select {
	case s.recordCh <- rec:
	default:
		s.logger.Warn("log buffer full, dropping record", "request_id", rec.RequestID)
	}
}

// Close flushes any queued records and stops the flush goroutine.
func (s *BufferedSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	close(s.doneCh)
	s.wg.Wait()
}

func (s *BufferedSink) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	batch := make([]*ProxyLogRecord, 0, s.flushSize)

	for {
		select {
		case rec := <-s.recordCh:
			batch = append(batch, rec)
			if len(batch) >= s.flushSize {
				batch = s.flush(batch)
			}
		case <-ticker.C:
			batch = s.flush(batch)
		case <-s.doneCh:
			// Drain whatever is still queued, then flush one last time.
			for {
				select {
				case rec := <-s.recordCh:
					batch = append(batch, rec)
				default:
					s.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes the batch and returns a reset slice. A failed write drops the
// batch; request logging is best-effort.
func (s *BufferedSink) flush(batch []*ProxyLogRecord) []*ProxyLogRecord {
	if len(batch) == 0 {
		return batch
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	key, err := s.writer.WriteBatch(ctx, batch)
	if err != nil {
		s.logger.Error("failed to flush log batch", "count", len(batch), "error", err)
	} else {
		s.logger.Debug("flushed log batch", "count", len(batch), "key", key)
	}
	return batch[:0]
}
