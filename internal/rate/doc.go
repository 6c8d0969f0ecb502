// Package rate implements the fixed-window failed-login throttle used by
// sessiond's login handler.
//
// # Window semantics
//
// INCR plus EXPIRE on the first hit of a window. Key prefixes:
//   - gs:rl:login:u:  per user name
//   - gs:rl:login:ip: per client address
//
// # What this package must NOT do
//
//   - Know about sessions or the goSession engine.
package rate
