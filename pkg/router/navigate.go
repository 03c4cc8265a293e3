package router

// Source tells where a navigation request came from.
type Source int

const (
	// SourcePush is a programmatic or link navigation. It pushes a history entry.
	SourcePush Source = iota

	// SourcePop is a back/forward traversal. History already moved.
	SourcePop

	// SourceInitial resolves the location the router started at.
	SourceInitial

	// SourceRedirect is a navigation issued by a guard redirect.
	SourceRedirect
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourcePush:
		return "push"
	case SourcePop:
		return "pop"
	case SourceInitial:
		return "initial"
	case SourceRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// NavigateOptions configures navigation behavior.
type NavigateOptions struct {
	// Replace replaces the current history entry instead of pushing.
	Replace bool
}

// NavigateOption is a functional option for Navigate.
type NavigateOption func(*NavigateOptions)

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() NavigateOption {
	return func(o *NavigateOptions) {
		o.Replace = true
	}
}

// Navigation is one navigation request flowing through the pipeline.
type Navigation struct {
	// Path is the requested location, possibly with a query string.
	Path string

	// Seq is the request's sequence number. Only the latest may commit.
	Seq uint64

	// Source tells where the request came from.
	Source Source

	// Options are the caller's navigate options.
	Options NavigateOptions

	// Hops counts guard redirects that led to this request.
	Hops int

	// Route is the resolved target, set once matching succeeded.
	Route *ResolvedRoute

	// Guard is the rejecting guard result, if any.
	Guard *GuardResult
}

// historyMode tells the commit step how to record the location.
func (n *Navigation) historyMode() historyMode {
	switch {
	case n.Source == SourcePop:
		return historyNone
	case n.Source == SourceInitial, n.Options.Replace:
		return historyReplace
	default:
		return historyPush
	}
}

type historyMode int

const (
	historyNone historyMode = iota
	historyPush
	historyReplace
)

// History records committed locations.
// It stands in for the browser's history object.
type History interface {
	// Push adds a new entry for url.
	Push(url string)

	// Replace overwrites the current entry with url.
	Replace(url string)

	// Location returns the current entry.
	Location() string
}

// HistoryListener is implemented by histories that report back/forward
// traversal. Start binds the router's PopState to it.
type HistoryListener interface {
	Listen(fn func(url string))
}
