package portal_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vango-dev/linkportal/pkg/api"
	"github.com/vango-dev/linkportal/pkg/auth"
	"github.com/vango-dev/linkportal/pkg/middleware"
	"github.com/vango-dev/linkportal/pkg/portal"
	"github.com/vango-dev/linkportal/pkg/portaltest"
	"github.com/vango-dev/linkportal/pkg/router"
	"github.com/vango-dev/linkportal/pkg/toast"
)

const (
	adaEmail    = "ada@example.com"
	adaPassword = "analytical-engine"
)

func newBackend() *portaltest.Backend {
	b := portaltest.NewBackend()
	b.AddAccount(auth.User{ID: "u1", Email: adaEmail, Name: "Ada Lovelace", Roles: []string{"admin"}}, adaPassword)
	b.AddURL(api.ShortURL{ID: "42", Code: "abc", ShortURL: "https://sho.rt/abc", TargetURL: "https://example.com/long", Clicks: 7})
	return b
}

// attach starts a session at location and waits until it settled.
func attach(t *testing.T, b *portaltest.Backend, location string, opts ...portal.Option) (*portal.Session, *portaltest.Host) {
	t.Helper()
	app := portal.NewApp(portal.Config{}, b.Factory(), opts...)
	host := portaltest.NewHost("s1", location)
	sess, err := app.Attach(context.Background(), host)
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	t.Cleanup(sess.Close)
	sess.Wait()
	return sess, host
}

func TestRoutesTable(t *testing.T) {
	defs := portal.Table().Routes()
	if len(defs) != len(portal.Routes()) {
		t.Fatalf("table has %d routes, want %d", len(defs), len(portal.Routes()))
	}

	tests := []struct {
		path      string
		component string
		protected bool
	}{
		{"/", portal.ComponentHome, false},
		{"/login", portal.ComponentLogin, false},
		{"/dashboard", portal.ComponentDashboard, true},
		{"/urls", portal.ComponentURLs, true},
		{"/urls/42", portal.ComponentURLDetail, true},
		{"/settings", portal.ComponentSettings, true},
		{"/terms", portal.ComponentTerms, false},
		{"/nope", portal.ComponentNotFound, false},
	}
	for _, tt := range tests {
		r, ok := portal.Table().Match(tt.path)
		if !ok {
			t.Errorf("Match(%q) found nothing", tt.path)
			continue
		}
		if r.Definition.Component != tt.component || r.Definition.RequiresAuth != tt.protected {
			t.Errorf("Match(%q) = %s (auth %v), want %s (auth %v)",
				tt.path, r.Definition.Component, r.Definition.RequiresAuth, tt.component, tt.protected)
		}
	}
}

func TestAnonymousHome(t *testing.T) {
	b := newBackend()
	_, host := attach(t, b, "/")

	portaltest.ExpectLocation(t, host, "/")
	portaltest.ExpectTitle(t, host, "Home | Linkportal")
	portaltest.ExpectContains(t, host, "Create an account")
	portaltest.ExpectNoToasts(t, host)

	if b.Calls(portaltest.OpCurrentUser) != 1 || b.Calls(portaltest.OpRefresh) != 1 {
		t.Errorf("restore calls: me=%d refresh=%d, want 1 and 1",
			b.Calls(portaltest.OpCurrentUser), b.Calls(portaltest.OpRefresh))
	}
}

func TestProtectedRouteAdmittedWhileLoadingThenCorrected(t *testing.T) {
	b := newBackend()
	release := b.Block(portaltest.OpCurrentUser)

	app := portal.NewApp(portal.Config{}, b.Factory())
	host := portaltest.NewHost("s1", "/dashboard")
	sess, err := app.Attach(context.Background(), host)
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	defer sess.Close()

	sess.Router().Wait()
	portaltest.ExpectLocation(t, host, "/dashboard")
	portaltest.ExpectContains(t, host, "Loading your account...")
	if !sess.Store().IsLoading() {
		t.Error("store should still be loading")
	}

	release()
	sess.Wait()

	portaltest.ExpectLocation(t, host, "/login")
	portaltest.ExpectTitle(t, host, "Sign in | Linkportal")
	portaltest.ExpectToast(t, host, toast.TypeWarning, "Authentication required.")
	if n := host.History.Len(); n != 1 {
		t.Errorf("history length = %d, want 1 (login replaces the protected entry)", n)
	}
}

func TestRestoredSessionKeepsProtectedRoute(t *testing.T) {
	b := newBackend()
	b.SignIn("s1", adaEmail)
	release := b.Block(portaltest.OpCurrentUser)

	app := portal.NewApp(portal.Config{}, b.Factory())
	host := portaltest.NewHost("s1", "/dashboard")
	sess, err := app.Attach(context.Background(), host)
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	defer sess.Close()

	sess.Router().Wait()
	release()
	sess.Wait()

	portaltest.ExpectLocation(t, host, "/dashboard")
	portaltest.ExpectContains(t, host, "Ada Lovelace")
	portaltest.ExpectNoToasts(t, host)
	if !sess.Store().IsAuthenticated() {
		t.Error("store should be authenticated")
	}
	if host.Refreshes() == 0 {
		t.Error("page was not redrawn when the user arrived")
	}
}

func TestSignedInUserKeptAwayFromGuestPages(t *testing.T) {
	b := newBackend()
	b.SignIn("s1", adaEmail)
	sess, host := attach(t, b, "/")

	sess.Navigate("/register", false)
	sess.Wait()

	portaltest.ExpectLocation(t, host, "/")
	portaltest.ExpectToast(t, host, toast.TypeWarning, "Already authenticated")
}

func TestAnonymousNavigationToProtectedRoute(t *testing.T) {
	b := newBackend()
	sess, host := attach(t, b, "/")

	sess.Navigate("/settings", false)
	sess.Wait()

	portaltest.ExpectLocation(t, host, "/login")
	portaltest.ExpectToast(t, host, toast.TypeWarning, "Authentication required.")
	if got := len(host.Toasts.Toasts()); got != 1 {
		t.Errorf("toasts = %d, want 1", got)
	}
}

func TestLoginAction(t *testing.T) {
	b := newBackend()
	sess, host := attach(t, b, "/login")

	err := sess.Action(context.Background(), portal.ActionLogin, map[string]string{
		"email":    adaEmail,
		"password": adaPassword,
	})
	if err != nil {
		t.Fatalf("Action() error = %v", err)
	}
	sess.Wait()

	portaltest.ExpectLocation(t, host, "/dashboard")
	portaltest.ExpectContains(t, host, "Ada Lovelace")
	portaltest.ExpectToast(t, host, toast.TypeSuccess, "Welcome back, Ada Lovelace.")
	if email, ok := b.SignedIn("s1"); !ok || email != adaEmail {
		t.Errorf("backend session = %q %v", email, ok)
	}
}

func TestLoginActionFailures(t *testing.T) {
	tests := []struct {
		name string
		form map[string]string
		want string
	}{
		{"missing password", map[string]string{"email": adaEmail}, "Email and password are required."},
		{"wrong password", map[string]string{"email": adaEmail, "password": "nope"}, auth.MessageInvalidCredentials},
		{"unknown account", map[string]string{"email": "bob@example.com", "password": "x"}, auth.MessageInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, host := attach(t, newBackend(), "/login")

			if err := sess.Action(context.Background(), portal.ActionLogin, tt.form); err != nil {
				t.Fatalf("Action() error = %v", err)
			}
			sess.Wait()

			portaltest.ExpectLocation(t, host, "/login")
			portaltest.ExpectToast(t, host, toast.TypeError, tt.want)
		})
	}
}

func TestRegisterAction(t *testing.T) {
	valid := func() map[string]string {
		return map[string]string{
			"name":         "Grace Hopper",
			"email":        "grace@example.com",
			"password":     "compilers!",
			"confirm":      "compilers!",
			"accept_terms": "on",
		}
	}

	tests := []struct {
		name   string
		mutate func(map[string]string)
		want   string
	}{
		{"no name", func(f map[string]string) { f["name"] = " " }, "Please enter your name."},
		{"bad email", func(f map[string]string) { f["email"] = "grace" }, "Please enter a valid email address."},
		{"short password", func(f map[string]string) { f["password"], f["confirm"] = "short", "short" }, "Passwords must be at least 8 characters."},
		{"mismatch", func(f map[string]string) { f["confirm"] = "compilers?" }, "Passwords do not match."},
		{"terms", func(f map[string]string) { delete(f, "accept_terms") }, "Please accept the terms of service."},
		{"taken", func(f map[string]string) { f["email"] = adaEmail }, "Email is already registered."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, host := attach(t, newBackend(), "/register")
			form := valid()
			tt.mutate(form)

			if err := sess.Action(context.Background(), portal.ActionRegister, form); err != nil {
				t.Fatalf("Action() error = %v", err)
			}
			sess.Wait()

			portaltest.ExpectLocation(t, host, "/register")
			portaltest.ExpectToast(t, host, toast.TypeError, tt.want)
		})
	}

	t.Run("success", func(t *testing.T) {
		b := newBackend()
		sess, host := attach(t, b, "/register")

		if err := sess.Action(context.Background(), portal.ActionRegister, valid()); err != nil {
			t.Fatalf("Action() error = %v", err)
		}
		sess.Wait()

		portaltest.ExpectLocation(t, host, "/dashboard")
		portaltest.ExpectContains(t, host, "Grace Hopper")
		if _, ok := b.SignedIn("s1"); !ok {
			t.Error("backend session not signed in")
		}
	})
}

func TestForgotPasswordAction(t *testing.T) {
	b := newBackend()
	sess, host := attach(t, b, "/forgot-password")

	if err := sess.Action(context.Background(), portal.ActionForgotPassword, map[string]string{"email": adaEmail}); err != nil {
		t.Fatalf("Action() error = %v", err)
	}
	sess.Wait()

	portaltest.ExpectLocation(t, host, "/login")
	portaltest.ExpectToast(t, host, toast.TypeInfo, "If an account exists for that address, a reset link is on its way.")
	if got := b.Resets(); len(got) != 1 || got[0] != adaEmail {
		t.Errorf("resets = %v", got)
	}
}

func TestForgotPasswordBackendFailure(t *testing.T) {
	b := newBackend()
	b.Fail(portaltest.OpForgotPassword, errors.New("smtp down"))
	sess, host := attach(t, b, "/forgot-password")

	if err := sess.Action(context.Background(), portal.ActionForgotPassword, map[string]string{"email": adaEmail}); err != nil {
		t.Fatalf("Action() error = %v", err)
	}
	sess.Wait()

	portaltest.ExpectLocation(t, host, "/forgot-password")
	portaltest.ExpectToast(t, host, toast.TypeError, auth.MessageGeneric)
}

func TestLogoutAction(t *testing.T) {
	b := newBackend()
	b.SignIn("s1", adaEmail)
	sess, host := attach(t, b, "/dashboard")

	if err := sess.Action(context.Background(), portal.ActionLogout, nil); err != nil {
		t.Fatalf("Action() error = %v", err)
	}
	sess.Wait()

	portaltest.ExpectLocation(t, host, "/login")
	portaltest.ExpectToast(t, host, toast.TypeInfo, "You have been signed out.")
	if got := len(host.Toasts.Toasts()); got != 1 {
		t.Errorf("toasts = %d, want only the sign-out notice", got)
	}
	if _, ok := b.SignedIn("s1"); ok {
		t.Error("backend session still signed in")
	}
}

func TestActionAfterSessionEndedRedirectsToLogin(t *testing.T) {
	b := newBackend()
	b.SignIn("s1", adaEmail)
	sess, host := attach(t, b, "/settings")
	ctx := context.Background()

	// the session ends without a page change, e.g. signed out elsewhere
	sess.Store().Logout(ctx)
	portaltest.ExpectLocation(t, host, "/settings")

	if err := sess.Action(ctx, portal.ActionLogout, nil); err != nil {
		t.Fatalf("Action() error = %v", err)
	}
	sess.Wait()

	portaltest.ExpectLocation(t, host, "/login")
	portaltest.ExpectToast(t, host, toast.TypeWarning, "Authentication required.")
	if got := len(host.Toasts.Toasts()); got != 1 {
		t.Errorf("toasts = %d, want only the warning", got)
	}
	if n := b.Calls(portaltest.OpLogout); n != 1 {
		t.Errorf("logout calls = %d, want 1: the action must not run", n)
	}
}

func TestUnknownAction(t *testing.T) {
	sess, _ := attach(t, newBackend(), "/terms")

	err := sess.Action(context.Background(), portal.ActionLogin, nil)
	if !errors.Is(err, portal.ErrUnknownAction) {
		t.Errorf("Action() error = %v, want ErrUnknownAction", err)
	}

	sess.Navigate("/login", false)
	sess.Wait()
	err = sess.Action(context.Background(), portal.ActionLogout, nil)
	if !errors.Is(err, portal.ErrUnknownAction) {
		t.Errorf("Action() on login page error = %v, want ErrUnknownAction", err)
	}
}

func TestLinkPages(t *testing.T) {
	b := newBackend()
	b.SignIn("s1", adaEmail)
	sess, host := attach(t, b, "/urls")

	portaltest.ExpectTitle(t, host, "My links | Linkportal")
	portaltest.ExpectContains(t, host, "https://sho.rt/abc")
	portaltest.ExpectContains(t, host, "7 clicks")

	sess.Navigate("/urls/42", false)
	sess.Wait()
	portaltest.ExpectLocation(t, host, "/urls/42")
	portaltest.ExpectContains(t, host, "https://example.com/long")

	sess.Navigate("/urls/missing", false)
	sess.Wait()
	portaltest.ExpectLocation(t, host, "/urls/missing")
	portaltest.ExpectContains(t, host, "Link not found")
	portaltest.ExpectErrorSurface(t, host, false)
}

func TestBackendFailureShowsErrorSurface(t *testing.T) {
	b := newBackend()
	b.SignIn("s1", adaEmail)
	sess, host := attach(t, b, "/dashboard")

	b.Fail(portaltest.OpListURLs, errors.New("backend down"))
	sess.Navigate("/urls", false)
	sess.Wait()

	portaltest.ExpectErrorSurface(t, host, true)
	portaltest.ExpectLocation(t, host, "/dashboard")
	if def := sess.Router().CurrentRoute(); def == nil || def.Path != "/dashboard" {
		t.Errorf("current route = %v, want /dashboard", def)
	}
	if sess.Router().State() != router.StateIdle {
		t.Errorf("state = %v, want idle", sess.Router().State())
	}
}

func TestNotFound(t *testing.T) {
	_, host := attach(t, newBackend(), "/no/such/page")

	portaltest.ExpectTitle(t, host, "Page not found | Linkportal")
	portaltest.ExpectContains(t, host, "Go home")
}

func TestPopState(t *testing.T) {
	sess, host := attach(t, newBackend(), "/")

	sess.Navigate("/terms", false)
	sess.Wait()
	if !host.History.Back() {
		t.Fatal("Back() = false")
	}
	sess.Wait()

	portaltest.ExpectLocation(t, host, "/")
	portaltest.ExpectTitle(t, host, "Home | Linkportal")
	if n := host.History.Len(); n != 2 {
		t.Errorf("history length = %d, want 2", n)
	}
}

func TestMetricsWiring(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := middleware.NewMetrics(middleware.WithRegistry(reg))
	sess, _ := attach(t, newBackend(), "/", portal.WithMetrics(m))

	sess.Navigate("/settings", false)
	sess.Wait()

	n, err := testutil.GatherAndCount(reg, "linkportal_navigations_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	// home committed, settings rejected, login committed
	if n != 3 {
		t.Errorf("navigation series = %d, want 3", n)
	}
	n, err = testutil.GatherAndCount(reg, "linkportal_guard_redirects_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 1 {
		t.Errorf("guard redirect series = %d, want 1", n)
	}
}

func TestCloseReleasesApp(t *testing.T) {
	app := portal.NewApp(portal.Config{AppName: "Links"}, newBackend().Factory())
	host := portaltest.NewHost("s1", "/terms")
	sess, err := app.Attach(context.Background(), host)
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	sess.Wait()
	portaltest.ExpectTitle(t, host, "Terms of service | Links")

	sess.Close()
	sess.Close()
	app.Wait()

	sess.Navigate("/", false)
	sess.Router().Wait()
	portaltest.ExpectLocation(t, host, "/terms")
}
