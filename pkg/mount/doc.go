// Package mount defines the page components the router instantiates and
// the surface they are attached to.
//
// Exactly one component is visible at a time. The router builds it through
// a Registry keyed by component identifier and hands it to a Surface,
// which replaces whatever was mounted before. When building or attaching
// fails, the surface shows an ErrorView instead.
package mount
