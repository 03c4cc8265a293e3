package server

import (
	"github.com/vango-dev/linkportal/pkg/mount"
	"github.com/vango-dev/linkportal/pkg/toast"
)

// Frame types sent by the thin client.
const (
	FrameHello    = "hello"
	FrameNavigate = "navigate"
	FramePopState = "popstate"
	FrameAction   = "action"
	FramePing     = "ping"
)

// Frame types sent by the server.
const (
	FrameSession = "session"
	FrameMount   = "mount"
	FrameTitle   = "title"
	FrameNav     = "nav"
	FrameToast   = "toast"
	FrameError   = "error"
	FramePong    = "pong"
)

// ClientFrame is a JSON message from the thin client. Which fields are
// set depends on Type.
type ClientFrame struct {
	Type string `json:"type"`

	// hello
	Location string `json:"location,omitempty"`
	Session  string `json:"session,omitempty"`

	// navigate
	Path    string `json:"path,omitempty"`
	Replace bool   `json:"replace,omitempty"`

	// popstate
	URL string `json:"url,omitempty"`

	// action
	Name string            `json:"name,omitempty"`
	Form map[string]string `json:"form,omitempty"`

	// ping
	Time int64 `json:"t,omitempty"`
}

// ServerFrame is a JSON message to the thin client.
type ServerFrame struct {
	Type string `json:"type"`

	// session
	Session string `json:"session,omitempty"`

	// mount
	HTML string `json:"html,omitempty"`

	// title
	Title string `json:"title,omitempty"`

	// nav
	URL     string `json:"url,omitempty"`
	Replace bool   `json:"replace,omitempty"`

	// toast
	Toast *ToastPayload `json:"toast,omitempty"`

	// error
	Error *ErrorPayload `json:"error,omitempty"`

	// pong
	Time int64 `json:"t,omitempty"`
}

// ToastPayload is the body of a toast frame.
type ToastPayload struct {
	Level    toast.Type `json:"level"`
	Title    string     `json:"title,omitempty"`
	Message  string     `json:"message"`
	Duration int64      `json:"duration"`
}

// ErrorPayload is the body of an error frame.
type ErrorPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Reload  bool   `json:"reload,omitempty"`
}

func toastFrame(t toast.Toast) ServerFrame {
	return ServerFrame{Type: FrameToast, Toast: &ToastPayload{
		Level:    t.Level,
		Title:    t.Title,
		Message:  t.Message,
		Duration: t.DurationMillis(),
	}}
}

func errorFrame(v mount.ErrorView) ServerFrame {
	return ServerFrame{Type: FrameError, Error: &ErrorPayload{
		Title:   v.Title,
		Message: v.Message,
		Reload:  v.Reload,
	}}
}
