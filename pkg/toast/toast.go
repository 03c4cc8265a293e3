package toast

import (
	"sync"
	"time"
)

// DefaultDuration is how long a toast stays visible unless overridden.
const DefaultDuration = 5 * time.Second

// Type represents the toast notification type.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// Toast is one user-visible notification.
type Toast struct {
	Level    Type          `json:"level"`
	Title    string        `json:"title,omitempty"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"-"`
}

// DurationMillis returns the auto-dismiss duration in milliseconds.
func (t Toast) DurationMillis() int64 {
	if t.Duration <= 0 {
		return DefaultDuration.Milliseconds()
	}
	return t.Duration.Milliseconds()
}

// Sink displays toasts.
type Sink interface {
	Show(t Toast)
}

// SinkFunc is a function adapter for Sink.
type SinkFunc func(t Toast)

// Show implements Sink.
func (f SinkFunc) Show(t Toast) {
	f(t)
}

// Show displays a toast notification with the default duration.
// A nil sink drops the toast.
func Show(sink Sink, level Type, message string) {
	if sink == nil {
		return
	}
	sink.Show(Toast{Level: level, Message: message, Duration: DefaultDuration})
}

// Success shows a success toast.
//
//	toast.Success(sink, "Changes saved!")
func Success(sink Sink, message string) {
	Show(sink, TypeSuccess, message)
}

// Error shows an error toast.
func Error(sink Sink, message string) {
	Show(sink, TypeError, message)
}

// Warning shows a warning toast.
func Warning(sink Sink, message string) {
	Show(sink, TypeWarning, message)
}

// Info shows an info toast.
func Info(sink Sink, message string) {
	Show(sink, TypeInfo, message)
}

// WithTitle shows a toast with a title and message.
func WithTitle(sink Sink, level Type, title, message string) {
	if sink == nil {
		return
	}
	sink.Show(Toast{Level: level, Title: title, Message: message, Duration: DefaultDuration})
}

// Recorder is a Sink that keeps every toast it receives.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

// Show implements Sink.
func (r *Recorder) Show(t Toast) {
	r.mu.Lock()
	r.toasts = append(r.toasts, t)
	r.mu.Unlock()
}

// Toasts returns a copy of the recorded toasts.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Toast(nil), r.toasts...)
}

// Len returns the number of recorded toasts.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.toasts)
}
