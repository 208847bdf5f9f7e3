// Package reporting talks to the PowerScribe 360 RAS web services over
// SOAP 1.2.
//
// [Client] issues the four operations the sync engine needs (SignIn,
// SignOut, BrowseOrders, GetReportEvents) and runs every response envelope
// through its registered [Interceptor] hooks. [SessionManager] owns the
// sign-in lifecycle: it installs a [HeaderCapture] interceptor that lifts
// the AccountSession element out of the response header and attaches it to
// every later call. Calls made without an active session fail with
// [ErrNoSession] instead of going out anonymously.
package reporting
