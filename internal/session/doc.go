// Package session tracks active sessions in Redis, one record per subject.
//
// A record holds the jti of the subject's currently live access token plus
// basic profile fields. Login and refresh overwrite the record (last writer
// wins); logout deletes it; Redis TTL expires it alongside the access token.
// The auth middleware rejects any token whose jti no longer matches the
// record, which is what makes logout and refresh revoke older tokens.
package session
