// Package jwt issues and verifies signed session tokens: JWTs whose payload is
// the encoded user data of one session and whose jti names the session for
// revocation. Validation is strict: pinned algorithm, required exp and iat,
// optional issuer, audience and kid checks.
package jwt
