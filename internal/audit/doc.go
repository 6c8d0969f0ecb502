// Package audit implements asynchronous event dispatching for session
// lifecycle events.
//
// # Components
//
//   - [Sink]: consumer interface, generic over the event type.
//   - [Dispatcher]: buffered relay with drop-if-full / block-if-full semantics.
//
// # Architecture boundaries
//
// This package owns buffering and delivery only. It does NOT decide which events
// to emit or what they contain; the engine does.
package audit
