// Package delivery drains the issue delivery queue and sends one email per
// task.
//
// Any number of worker instances may run concurrently against the same
// database with no coordination: each claim takes an exclusive row lock with
// FOR UPDATE SKIP LOCKED, so a task is processed by at most one worker at a
// time and a slow send never blocks the others. An empty (or fully locked)
// queue is the normal drained state, not an error.
//
// Per task the worker either deletes the row (sent, or retry budget
// exhausted) or pushes it back with an incremented retry count and an
// exponentially later execute_after. Tasks are independent; failures never
// leak across recipients.
//
// [Worker.Run] is the polling loop for production use; [Worker.ProcessOne]
// is the single-pass entry point that tests drive deterministically.
package delivery
