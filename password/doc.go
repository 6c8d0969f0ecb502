// Package password hashes and verifies login passwords with Argon2id.
//
// Hashes use the PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher.NeedsRehash] reports hashes produced with weaker parameters so the
// caller can re-hash after the next successful login.
//
// # What this package must NOT do
//
//   - Store passwords or hashes.
//   - Import any other goSession package.
package password
