// internal/logger/ring.go
package logger

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

// Entry is one log line kept by a Ring.
type Entry struct {
	Timestamp time.Time
	Level     string
	Logger    string
	Message   string
}

// Ring keeps the most recent log entries in memory for the dashboard.
// It is an io.Writer for JSON-encoded lines, so it can back a zap core.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	wrapped bool
	total   uint64
}

// NewRing returns a ring holding up to size entries.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = 1
	}
	return &Ring{entries: make([]Entry, size)}
}

// Core returns a zap core that writes into the ring at level and above.
func (r *Ring) Core(level zapcore.LevelEnabler) zapcore.Core {
	encoderConfig := zapcore.EncoderConfig{
		MessageKey:  "msg",
		LevelKey:    "level",
		TimeKey:     "time",
		NameKey:     "logger",
		LineEnding:  zapcore.DefaultLineEnding,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeName:  zapcore.FullNameEncoder,
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(r), level)
}

// Write records one encoded line. Lines that are not JSON are kept verbatim
// as the message.
func (r *Ring) Write(p []byte) (int, error) {
	var line struct {
		Time   time.Time `json:"time"`
		Level  string    `json:"level"`
		Logger string    `json:"logger"`
		Msg    string    `json:"msg"`
	}
	e := Entry{Timestamp: time.Now(), Message: string(p)}
	if err := json.Unmarshal(p, &line); err == nil {
		e = Entry{Timestamp: line.Time, Level: line.Level, Logger: line.Logger, Message: line.Msg}
	}
	r.Add(e)
	return len(p), nil
}

// Add appends e, evicting the oldest entry when full.
func (r *Ring) Add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = e
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.wrapped = true
	}
	r.total++
}

// Recent returns up to limit entries, oldest first. limit <= 0 returns all.
func (r *Ring) Recent(limit int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	count, start := r.next, 0
	if r.wrapped {
		count, start = len(r.entries), r.next
	}
	if limit > 0 && limit < count {
		start += count - limit
		count = limit
	}
	out := make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, r.entries[(start+i)%len(r.entries)])
	}
	return out
}

// Total returns how many entries were ever added.
func (r *Ring) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}
