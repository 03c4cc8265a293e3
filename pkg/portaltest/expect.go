package portaltest

import (
	"strings"
	"testing"

	"github.com/vango-dev/linkportal/pkg/toast"
)

// ExpectContains asserts that the mounted page renders substring.
//
// Example:
//
//	portaltest.ExpectContains(t, host, "Welcome back")
func ExpectContains(t *testing.T, h *Host, expected string) {
	t.Helper()
	html := h.Surface.Render()
	if !strings.Contains(html, expected) {
		t.Errorf("expected rendered output to contain %q, got:\n%s", expected, truncate(html, 500))
	}
}

// ExpectNotContains asserts that the mounted page does not render substring.
func ExpectNotContains(t *testing.T, h *Host, unexpected string) {
	t.Helper()
	html := h.Surface.Render()
	if strings.Contains(html, unexpected) {
		t.Errorf("expected rendered output to NOT contain %q, got:\n%s", unexpected, truncate(html, 500))
	}
}

// ExpectLocation asserts the current history entry.
func ExpectLocation(t *testing.T, h *Host, want string) {
	t.Helper()
	if got := h.Location(); got != want {
		t.Errorf("location = %q, want %q", got, want)
	}
}

// ExpectTitle asserts the document title.
func ExpectTitle(t *testing.T, h *Host, want string) {
	t.Helper()
	if got := h.Surface.Title(); got != want {
		t.Errorf("title = %q, want %q", got, want)
	}
}

// ExpectToast asserts that a toast with level and message was shown.
func ExpectToast(t *testing.T, h *Host, level toast.Type, message string) {
	t.Helper()
	toasts := h.Toasts.Toasts()
	for _, got := range toasts {
		if got.Level == level && got.Message == message {
			return
		}
	}
	t.Errorf("no %s toast %q, got %+v", level, message, toasts)
}

// ExpectNoToasts asserts that nothing was shown.
func ExpectNoToasts(t *testing.T, h *Host) {
	t.Helper()
	if toasts := h.Toasts.Toasts(); len(toasts) != 0 {
		t.Errorf("expected no toasts, got %+v", toasts)
	}
}

// ExpectErrorSurface asserts whether the generic error view is visible.
func ExpectErrorSurface(t *testing.T, h *Host, visible bool) {
	t.Helper()
	if _, ok := h.Surface.Error(); ok != visible {
		t.Errorf("error surface visible = %v, want %v", ok, visible)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
