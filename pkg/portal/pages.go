package portal

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/mail"
	"strings"

	"github.com/vango-dev/linkportal/pkg/api"
	"github.com/vango-dev/linkportal/pkg/auth"
	"github.com/vango-dev/linkportal/pkg/mount"
	"github.com/vango-dev/linkportal/pkg/router"
	"github.com/vango-dev/linkportal/pkg/toast"
)

// Action names the thin client submits.
const (
	ActionLogin          = "login"
	ActionRegister       = "register"
	ActionForgotPassword = "forgot-password"
	ActionLogout         = "logout"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// ErrUnknownAction is returned when the mounted page does not handle an action.
var ErrUnknownAction = errors.New("portal: unknown action")

// Form validation messages.
const (
	msgCredentialsRequired = "Email and password are required."
	msgInvalidEmail        = "Please enter a valid email address."
	msgNameRequired        = "Please enter your name."
	msgPasswordTooShort    = "Passwords must be at least 8 characters."
	msgPasswordMismatch    = "Passwords do not match."
	msgTermsRequired       = "Please accept the terms of service."
	msgResetSent           = "If an account exists for that address, a reset link is on its way."
	msgSignedOut           = "You have been signed out."
)

type navigator interface {
	Navigate(path string, opts ...router.NavigateOption)
}

// env is what pages of one session share.
type env struct {
	store   *auth.Store
	backend Backend
	toasts  toast.Sink
	nav     navigator
}

func esc(s string) string {
	return html.EscapeString(s)
}

func userName(store *auth.Store) string {
	if u := store.User(); u != nil {
		return u.DisplayName()
	}
	return ""
}

func publicMessage(err error) string {
	var pe auth.PublicError
	if errors.As(err, &pe) && pe.PublicMessage() != "" {
		return pe.PublicMessage()
	}
	return auth.MessageGeneric
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func checked(v string) bool {
	switch strings.ToLower(v) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

type homePage struct {
	env *env
}

func (p *homePage) Render() string {
	if name := userName(p.env.store); name != "" {
		return fmt.Sprintf(`<section class="home"><h1>Welcome back, %s</h1><a href="/dashboard" data-link>Go to your dashboard</a></section>`, esc(name))
	}
	return `<section class="home"><h1>Short links, managed.</h1><a href="/login" data-link>Sign in</a> <a href="/register" data-link>Create an account</a></section>`
}

type loginPage struct {
	env *env
}

func (p *loginPage) Render() string {
	return `<section class="auth"><h1>Sign in</h1>` +
		`<form data-action="login"><input type="email" name="email" required><input type="password" name="password" required><button type="submit">Sign in</button></form>` +
		`<a href="/forgot-password" data-link>Forgot your password?</a> <a href="/register" data-link>Create an account</a></section>`
}

func (p *loginPage) HandleAction(ctx context.Context, name string, form map[string]string) error {
	if name != ActionLogin {
		return ErrUnknownAction
	}
	creds := auth.Credentials{
		Email:    strings.TrimSpace(form["email"]),
		Password: form["password"],
	}
	if creds.Email == "" || creds.Password == "" {
		toast.Error(p.env.toasts, msgCredentialsRequired)
		return nil
	}
	if !p.env.store.Login(ctx, creds) {
		toast.Error(p.env.toasts, p.env.store.State().Error)
		return nil
	}
	toast.Success(p.env.toasts, "Welcome back, "+userName(p.env.store)+".")
	p.env.nav.Navigate(PathDashboard)
	return nil
}

type registerPage struct {
	env *env
}

func (p *registerPage) Render() string {
	return `<section class="auth"><h1>Create account</h1>` +
		`<form data-action="register"><input name="name" required><input type="email" name="email" required>` +
		`<input type="password" name="password" required><input type="password" name="confirm" required>` +
		`<label><input type="checkbox" name="accept_terms"> I accept the <a href="/terms" data-link>terms of service</a></label>` +
		`<button type="submit">Create account</button></form></section>`
}

func (p *registerPage) HandleAction(ctx context.Context, name string, form map[string]string) error {
	if name != ActionRegister {
		return ErrUnknownAction
	}
	reg := auth.Registration{
		Name:        strings.TrimSpace(form["name"]),
		Email:       strings.TrimSpace(form["email"]),
		Password:    form["password"],
		AcceptTerms: checked(form["accept_terms"]),
	}
	if msg := validateRegistration(reg, form["confirm"]); msg != "" {
		toast.Error(p.env.toasts, msg)
		return nil
	}
	if !p.env.store.Register(ctx, reg) {
		toast.Error(p.env.toasts, p.env.store.State().Error)
		return nil
	}
	toast.Success(p.env.toasts, "Your account is ready.")
	p.env.nav.Navigate(PathDashboard)
	return nil
}

func validateRegistration(reg auth.Registration, confirm string) string {
	switch {
	case reg.Name == "":
		return msgNameRequired
	case !validEmail(reg.Email):
		return msgInvalidEmail
	case len(reg.Password) < MinPasswordLength:
		return msgPasswordTooShort
	case reg.Password != confirm:
		return msgPasswordMismatch
	case !reg.AcceptTerms:
		return msgTermsRequired
	}
	return ""
}

type forgotPasswordPage struct {
	env *env
}

func (p *forgotPasswordPage) Render() string {
	return `<section class="auth"><h1>Reset password</h1>` +
		`<form data-action="forgot-password"><input type="email" name="email" required><button type="submit">Send reset link</button></form>` +
		`<a href="/login" data-link>Back to sign in</a></section>`
}

func (p *forgotPasswordPage) HandleAction(ctx context.Context, name string, form map[string]string) error {
	if name != ActionForgotPassword {
		return ErrUnknownAction
	}
	email := strings.TrimSpace(form["email"])
	if !validEmail(email) {
		toast.Error(p.env.toasts, msgInvalidEmail)
		return nil
	}
	if err := p.env.backend.ForgotPassword(ctx, email); err != nil {
		toast.Error(p.env.toasts, publicMessage(err))
		return nil
	}
	toast.Info(p.env.toasts, msgResetSent)
	p.env.nav.Navigate(PathLogin)
	return nil
}

// signedIn gives pages behind authentication the logout action.
type signedIn struct {
	env *env
}

func (p signedIn) HandleAction(ctx context.Context, name string, _ map[string]string) error {
	if name != ActionLogout {
		return ErrUnknownAction
	}
	p.env.store.Logout(ctx)
	toast.Info(p.env.toasts, msgSignedOut)
	p.env.nav.Navigate(PathLogin)
	return nil
}

func (p signedIn) header() string {
	name := userName(p.env.store)
	if name == "" {
		name = "Loading your account..."
	}
	return fmt.Sprintf(`<header><nav><a href="/dashboard" data-link>Dashboard</a> <a href="/urls" data-link>My links</a> <a href="/settings" data-link>Settings</a></nav><span class="user">%s</span><button data-action="logout">Sign out</button></header>`, esc(name))
}

type dashboardPage struct {
	signedIn
}

func (p *dashboardPage) Render() string {
	return p.header() + `<section class="dashboard"><h1>Dashboard</h1><a href="/urls" data-link>Manage your links</a></section>`
}

type urlsPage struct {
	signedIn
	urls []api.ShortURL
}

func (p *urlsPage) Render() string {
	var b strings.Builder
	b.WriteString(p.header())
	b.WriteString(`<section class="urls"><h1>My links</h1>`)
	if len(p.urls) == 0 {
		b.WriteString(`<p>You have not shortened any links yet.</p>`)
	} else {
		b.WriteString(`<ul>`)
		for _, u := range p.urls {
			fmt.Fprintf(&b, `<li><a href="/urls/%s" data-link>%s</a> %s <span class="clicks">%d clicks</span></li>`,
				esc(u.ID), esc(u.ShortURL), esc(u.TargetURL), u.Clicks)
		}
		b.WriteString(`</ul>`)
	}
	b.WriteString(`</section>`)
	return b.String()
}

type urlDetailPage struct {
	signedIn
	url *api.ShortURL
}

func (p *urlDetailPage) Render() string {
	if p.url == nil {
		return p.header() + `<section class="url"><h1>Link not found</h1><a href="/urls" data-link>Back to your links</a></section>`
	}
	u := p.url
	return p.header() + fmt.Sprintf(`<section class="url"><h1>%s</h1><dl><dt>Target</dt><dd>%s</dd><dt>Code</dt><dd>%s</dd><dt>Clicks</dt><dd>%d</dd><dt>Created</dt><dd>%s</dd></dl></section>`,
		esc(u.ShortURL), esc(u.TargetURL), esc(u.Code), u.Clicks, u.CreatedAt.Format("2006-01-02"))
}

type settingsPage struct {
	signedIn
}

func (p *settingsPage) Render() string {
	u := p.env.store.User()
	if u == nil {
		return p.header() + `<section class="settings"><h1>Settings</h1></section>`
	}
	return p.header() + fmt.Sprintf(`<section class="settings"><h1>Settings</h1><dl><dt>Name</dt><dd>%s</dd><dt>Email</dt><dd>%s</dd><dt>Roles</dt><dd>%s</dd></dl></section>`,
		esc(u.Name), esc(u.Email), esc(strings.Join(u.Roles, ", ")))
}

const (
	termsMarkup    = `<section class="terms"><h1>Terms of service</h1><p>Use short links responsibly. Links pointing to malware or abuse are removed.</p></section>`
	notFoundMarkup = `<section class="not-found"><h1>Page not found</h1><a href="/" data-link>Go home</a></section>`
)

// registry builds the page factories for one session.
func (e *env) registry() *mount.Registry {
	reg := mount.NewRegistry()
	reg.Register(ComponentHome, func(context.Context, mount.Props) (mount.Component, error) {
		return &homePage{env: e}, nil
	})
	reg.Register(ComponentLogin, func(context.Context, mount.Props) (mount.Component, error) {
		return &loginPage{env: e}, nil
	})
	reg.Register(ComponentRegister, func(context.Context, mount.Props) (mount.Component, error) {
		return &registerPage{env: e}, nil
	})
	reg.Register(ComponentForgotPassword, func(context.Context, mount.Props) (mount.Component, error) {
		return &forgotPasswordPage{env: e}, nil
	})
	reg.Register(ComponentDashboard, func(context.Context, mount.Props) (mount.Component, error) {
		return &dashboardPage{signedIn{env: e}}, nil
	})
	reg.Register(ComponentURLs, func(ctx context.Context, _ mount.Props) (mount.Component, error) {
		urls, err := e.backend.ListURLs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list links: %w", err)
		}
		return &urlsPage{signedIn: signedIn{env: e}, urls: urls}, nil
	})
	reg.Register(ComponentURLDetail, func(ctx context.Context, props mount.Props) (mount.Component, error) {
		var args struct {
			ID string `param:"id"`
		}
		if err := router.Params(props.Params).Decode(&args); err != nil {
			return nil, err
		}
		if args.ID == "" {
			return &urlDetailPage{signedIn: signedIn{env: e}}, nil
		}
		u, err := e.backend.GetURL(ctx, args.ID)
		if api.IsNotFound(err) {
			return &urlDetailPage{signedIn: signedIn{env: e}}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("get link %q: %w", args.ID, err)
		}
		return &urlDetailPage{signedIn: signedIn{env: e}, url: u}, nil
	})
	reg.Register(ComponentSettings, func(context.Context, mount.Props) (mount.Component, error) {
		return &settingsPage{signedIn{env: e}}, nil
	})
	reg.Register(ComponentTerms, func(context.Context, mount.Props) (mount.Component, error) {
		return mount.Static(termsMarkup), nil
	})
	reg.Register(ComponentNotFound, func(context.Context, mount.Props) (mount.Component, error) {
		return mount.Static(notFoundMarkup), nil
	})
	return reg
}
