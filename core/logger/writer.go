package logger

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// asyncWriter fans log lines out to its sinks on one background goroutine.
// A sink that fails is reported once on the standard logger and skipped from
// then on; the remaining sinks keep receiving lines.
type asyncWriter struct {
	queue    chan []byte
	flushReq chan chan error
	done     chan struct{}

	// mu orders Write and Flush against Close.
	mu     sync.RWMutex
	closed bool

	// sinks are owned by the loop goroutine.
	sinks []*sink

	errMu    sync.Mutex
	firstErr error
}

type sink struct {
	buf    *bufio.Writer
	failed bool
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		queue:    make(chan []byte, 256),
		flushReq: make(chan chan error),
		done:     make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, &sink{buf: bufio.NewWriterSize(out, bufSize)})
		}
	}
	go w.loop()
	return w
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.queue:
			if !ok {
				w.flushSinks()
				return
			}
			w.writeLine(line)
			// batch while a backlog exists
			if len(w.queue) == 0 {
				w.flushSinks()
			}
		case ack := <-w.flushReq:
			ack <- w.flushSinks()
		}
	}
}

// Write queues a copy of p. It blocks while the queue is full; lines are never dropped.
func (w *asyncWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.queue <- append([]byte(nil), p...)
	return nil
}

// Flush waits until everything queued so far reached the sinks.
func (w *asyncWriter) Flush() error {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return w.err()
	}
	ack := make(chan error, 1)
	w.flushReq <- ack
	w.mu.RUnlock()
	return <-ack
}

// Close drains the queue and returns the first sink error, if any.
func (w *asyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
	return w.err()
}

func (w *asyncWriter) writeLine(line []byte) {
	for i, s := range w.sinks {
		if s.failed {
			continue
		}
		if _, err := s.buf.Write(line); err != nil {
			w.disable(i, err)
		}
	}
}

func (w *asyncWriter) flushSinks() error {
	var errs []error
	for i, s := range w.sinks {
		if s.failed {
			continue
		}
		if err := s.buf.Flush(); err != nil {
			w.disable(i, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) disable(i int, err error) {
	w.sinks[i].failed = true
	err = fmt.Errorf("logger: sink %d: %w", i, err)
	log.Printf("%v; sink disabled", err)
	w.errMu.Lock()
	if w.firstErr == nil {
		w.firstErr = err
	}
	w.errMu.Unlock()
}

func (w *asyncWriter) err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.firstErr
}
