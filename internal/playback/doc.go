// Package playback keeps a main player and its preview players on one clock.
//
// A Coordinator owns the authoritative current time (TimeStore), the set of
// player handles keyed by camera (Registry), the active segment and any
// pending seek (Policy), and the export range (ExportSelector). Players talk
// to it through explicit events: OnReady when a handle can take commands,
// OnTimeUpdate and OnEnded while playing, and Release when they go away.
//
// Requests for a time outside the review range are logged and dropped.
// Handles that fail, panic or are not ready yet are skipped; they catch up on
// the next scrub or when they report ready.
//
// A Coordinator is not safe for concurrent use. The session package runs each
// one on its own goroutine.
package playback
