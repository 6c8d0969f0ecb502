// Package server is the sessiond demo application: a chi router that logs
// users in against an Argon2id user table, creates sessions through a
// goSession engine, and serves the session data the interceptor resolved.
//
// The interceptor only classifies requests. Handlers decide what each
// outcome means, so GET /session/data answers 401 itself for NoCookie and
// NoSession.
package server
