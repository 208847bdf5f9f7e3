// Package engine implements the event-watermark sync between the reporting
// system and the shared store.
//
// Engine.PollOnce asks the reporting system for orders modified since the
// watermark, fetches each order's events and folds them into an
// ActivityIndex that keeps only the newest event per person. People whose
// entry changed are written to the store in one batch at the end of the
// cycle. The merge is commutative and idempotent: re-delivered or
// out-of-order events never overwrite a newer one.
//
// Loop wraps the engine in the session lifecycle:
//
//	Disconnected → LoggingIn → Polling → SessionExpired → LoggingOut → Disconnected
//
// Single-writer: the watermark and the index are only touched by the
// goroutine running Loop.Run. Readers use the atomically published copies
// returned by Engine.Watermark and Engine.IndexSize.
//
// Delivery is at-least-once. The watermark moves before the flush, so a
// crash between the two loses that cycle's updates until the lookback
// window on restart covers them again.
package engine
