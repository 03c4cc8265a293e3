package portal

import (
	"github.com/vango-dev/linkportal/pkg/authguard"
	"github.com/vango-dev/linkportal/pkg/router"
)

// Component identifiers of the portal pages.
const (
	ComponentHome           = "home"
	ComponentLogin          = "login"
	ComponentRegister       = "register"
	ComponentForgotPassword = "forgot-password"
	ComponentDashboard      = "dashboard"
	ComponentURLs           = "urls"
	ComponentURLDetail      = "url-detail"
	ComponentSettings       = "settings"
	ComponentTerms          = "terms"
	ComponentNotFound       = "not-found"
)

// Well-known locations.
const (
	PathHome      = "/"
	PathLogin     = "/login"
	PathDashboard = "/dashboard"
)

var guestOnly = map[string]string{authguard.MetaGuestOnly: "true"}

// Routes returns the portal's route definitions in match order.
func Routes() []router.Definition {
	return []router.Definition{
		{Path: PathHome, Component: ComponentHome, Title: "Home"},
		{Path: PathLogin, Component: ComponentLogin, Title: "Sign in", Meta: guestOnly},
		{Path: "/register", Component: ComponentRegister, Title: "Create account", Meta: guestOnly},
		{Path: "/forgot-password", Component: ComponentForgotPassword, Title: "Reset password", Meta: guestOnly},
		{Path: PathDashboard, Component: ComponentDashboard, Title: "Dashboard", RequiresAuth: true},
		{Path: "/urls", Component: ComponentURLs, Title: "My links", RequiresAuth: true},
		{Path: "/urls/:id", Component: ComponentURLDetail, Title: "Link details", RequiresAuth: true},
		{Path: "/settings", Component: ComponentSettings, Title: "Settings", RequiresAuth: true},
		{Path: "/terms", Component: ComponentTerms, Title: "Terms of service"},
		{Path: router.WildcardPath, Component: ComponentNotFound, Title: "Page not found"},
	}
}

var table = router.MustTable(Routes())

// Table returns the shared portal route table.
func Table() *router.Table {
	return table
}
