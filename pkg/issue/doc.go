// Package issue publishes newsletter issues and fans them out into one
// delivery task per confirmed recipient.
//
// Publish runs as a single database transaction guarded by the idempotency
// store: the issue row, the full set of delivery tasks, and the idempotency
// record become visible together or not at all. A crash mid fan-out leaves
// no partial issue behind, and a client retrying with the same idempotency
// key receives the original response without a second fan-out.
//
// The delivery tasks created here are drained asynchronously by
// pkg/delivery; Publish returns as soon as the fan-out is committed, before
// any email is sent.
package issue
