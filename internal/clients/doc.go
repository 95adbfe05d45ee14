// Package clients holds the gateway's backend collaborators: the identity
// service (credential verification), the execution control plane, and the
// memory/search service.
//
// Each client is constructed once at process start and shared by reference
// across all request goroutines; the stdlib http.Client underneath manages
// the connection pool. Callers see typed payloads and sentinel errors
// (ErrNotFound, ErrUnavailable, ErrAuthenticationFailed) rather than wire
// details.
package clients
