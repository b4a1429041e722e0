package core

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// spanLogCapacity is how many finished spans a SpanLog keeps for Recent.
const spanLogCapacity = 512

// SpanRecord is one finished span.
type SpanRecord struct {
	Operation string    `json:"operation"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
	Start     time.Time `json:"start"`
	ElapsedMS float64   `json:"elapsed_ms"`
}

// SpanLog is a Tracer that writes each finished span as a JSON line and
// keeps the latest ones in a ring.
type SpanLog struct {
	mu   sync.Mutex
	enc  *json.Encoder
	ring []SpanRecord
	next int
}

// NewSpanLog returns a SpanLog writing to w. A nil w only fills the ring.
func NewSpanLog(w io.Writer) *SpanLog {
	l := &SpanLog{ring: make([]SpanRecord, 0, spanLogCapacity)}
	if w != nil {
		l.enc = json.NewEncoder(w)
	}
	return l
}

type spanEnd func(error)

func (f spanEnd) End(err error) { f(err) }

// Start implements Tracer.
func (l *SpanLog) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	start := time.Now().UTC()
	return ctx, spanEnd(func(err error) {
		rec := SpanRecord{
			Operation: operation,
			OK:        err == nil,
			Start:     start,
			ElapsedMS: float64(time.Since(start)) / float64(time.Millisecond),
		}
		if err != nil {
			rec.Error = err.Error()
		}
		l.add(rec)
	})
}

func (l *SpanLog) add(rec SpanRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.ring) < cap(l.ring) {
		l.ring = append(l.ring, rec)
	} else {
		l.ring[l.next] = rec
		l.next = (l.next + 1) % len(l.ring)
	}
	if l.enc != nil {
		_ = l.enc.Encode(rec)
	}
}

// Recent returns the kept spans, oldest first.
func (l *SpanLog) Recent() []SpanRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]SpanRecord, 0, len(l.ring))
	out = append(out, l.ring[l.next:]...)
	return append(out, l.ring[:l.next]...)
}
