// Package subscription binds a consumer scope to one tournament feed.
//
// A Binding owns at most one connection.Manager at a time. Every validated
// event triggers exactly one cache invalidation for the bound tournament,
// and the manager's status callbacks drive the binding's connected flag.
// Consumers never see transport errors; the flag is the only signal.
package subscription
