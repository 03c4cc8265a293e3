// Package history provides an in-memory session history.
//
// Memory behaves like a browser's history object: Push adds an entry and
// drops anything forward of the cursor, Replace overwrites the current
// entry, and Back/Forward move the cursor and notify the bound listener the
// way a popstate event would. It implements router.History and
// router.HistoryListener.
package history
