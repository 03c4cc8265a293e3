package portaltest

import (
	"sync"

	"github.com/vango-dev/linkportal/pkg/history"
	"github.com/vango-dev/linkportal/pkg/mount"
	"github.com/vango-dev/linkportal/pkg/toast"
)

// Host is an in-memory portal.Host: a surface, a history stack and a
// toast recorder standing in for a browser tab.
type Host struct {
	Surface *mount.MemorySurface
	History *history.Memory
	Toasts  *toast.Recorder

	id        string
	mu        sync.Mutex
	refreshes int
}

// NewHost creates a host whose history starts at location.
func NewHost(id, location string) *Host {
	return &Host{
		Surface: mount.NewMemorySurface(),
		History: history.NewMemory(location),
		Toasts:  &toast.Recorder{},
		id:      id,
	}
}

// ID implements portal.Host.
func (h *Host) ID() string { return h.id }

// Mount implements mount.Surface.
func (h *Host) Mount(c mount.Component) error { return h.Surface.Mount(c) }

// ShowError implements mount.Surface.
func (h *Host) ShowError(v mount.ErrorView) { h.Surface.ShowError(v) }

// SetTitle implements mount.Surface.
func (h *Host) SetTitle(title string) { h.Surface.SetTitle(title) }

// Push implements router.History.
func (h *Host) Push(url string) { h.History.Push(url) }

// Replace implements router.History.
func (h *Host) Replace(url string) { h.History.Replace(url) }

// Location implements router.History.
func (h *Host) Location() string { return h.History.Location() }

// Listen implements router.HistoryListener.
func (h *Host) Listen(fn func(url string)) { h.History.Listen(fn) }

// Show implements toast.Sink.
func (h *Host) Show(t toast.Toast) { h.Toasts.Show(t) }

// Refresh implements portal.Refresher.
func (h *Host) Refresh(mount.Component) {
	h.mu.Lock()
	h.refreshes++
	h.mu.Unlock()
}

// Refreshes returns how often the mounted component was redrawn in place.
func (h *Host) Refreshes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refreshes
}
