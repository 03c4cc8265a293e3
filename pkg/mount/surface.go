package mount

import "sync"

// ErrorView is the generic error surface that replaces the mounted
// component when a page cannot be shown.
type ErrorView struct {
	Title   string
	Message string

	// Reload offers a manual reload affordance.
	Reload bool
}

// GenericError returns the default error surface.
func GenericError() ErrorView {
	return ErrorView{
		Title:   "Something went wrong",
		Message: "This page could not be loaded. Please try again.",
		Reload:  true,
	}
}

// Surface is the single region holding the active page.
type Surface interface {
	// Mount replaces the current content with c.
	Mount(c Component) error

	// ShowError replaces the current content with an error view.
	ShowError(v ErrorView)

	// SetTitle sets the document title.
	SetTitle(title string)
}

// MemorySurface is an in-process Surface. It disposes the component it
// replaces and records what is visible.
type MemorySurface struct {
	mu      sync.Mutex
	current Component
	errView *ErrorView
	title   string
	mounts  int

	// MountHook, when set, runs before attaching and can fail the mount.
	MountHook func(c Component) error
}

// NewMemorySurface creates an empty surface.
func NewMemorySurface() *MemorySurface {
	return &MemorySurface{}
}

// Mount implements Surface.
func (s *MemorySurface) Mount(c Component) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MountHook != nil {
		if err := s.MountHook(c); err != nil {
			return err
		}
	}
	if s.current != nil {
		Dispose(s.current)
	}
	s.current = c
	s.errView = nil
	s.mounts++
	return nil
}

// ShowError implements Surface.
func (s *MemorySurface) ShowError(v ErrorView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		Dispose(s.current)
		s.current = nil
	}
	s.errView = &v
}

// SetTitle implements Surface.
func (s *MemorySurface) SetTitle(title string) {
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()
}

// Current returns the mounted component, or nil.
func (s *MemorySurface) Current() Component {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Error returns the visible error view, if any.
func (s *MemorySurface) Error() (ErrorView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.errView == nil {
		return ErrorView{}, false
	}
	return *s.errView, true
}

// Title returns the last title set.
func (s *MemorySurface) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// Mounts returns how many components were attached.
func (s *MemorySurface) Mounts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounts
}

// Render returns the markup of the mounted component, or "".
func (s *MemorySurface) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.Render()
}
