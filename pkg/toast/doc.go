// Package toast provides transient notifications for portal sessions.
//
// A Sink is whatever can show a toast to the user. The WebSocket session
// implements it by sending a "toast" frame that the thin client renders
// and dismisses after Duration; Recorder captures toasts in tests.
//
// Guard rejections are the main producer:
//
//	toast.Warning(sink, "Authentication required.")
//
// With title:
//
//	toast.WithTitle(sink, toast.TypeSuccess, "Settings", "Your changes have been saved.")
package toast
