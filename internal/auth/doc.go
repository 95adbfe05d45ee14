// Package auth provides authentication for hermes-gateway.
//
// # Tokens
//
// Clients authenticate with HS256-signed JWTs issued by the login flow.
// Every issuance produces an access/refresh pair; each token carries its
// own jti so a specific token can be revoked without touching the other.
//
//	issuer, err := auth.NewIssuer(secret, 24*time.Hour)
//	pair, err := issuer.Issue(userID, email, role)
//	claims, err := issuer.Validate(pair.AccessToken)
//
// Validation is pure: it checks signature and expiry only. Revocation is
// enforced by the HTTP middleware, which compares the token's jti against
// the session record for the subject on every request.
//
// # Middleware
//
// Middleware wraps protected handlers. It extracts the bearer token from
// the Authorization header, validates it, cross-checks the session store,
// and attaches an Identity to the request context:
//
//	identity := auth.FromContext(r.Context())
//
// Failures are converted to a uniform {error, status} body; nothing about
// which check failed crosses the boundary beyond the status code.
package auth
