// Package password provides one-way password hashing with argon2id.
//
// Hashes are self-describing PHC strings, so parameters can change without
// invalidating stored hashes. Verification never recovers the password and
// compares digests in constant time.
package password
