// Package portpool hands out WebRTC media port numbers from a fixed,
// contiguous range.
//
// Every port in the range is always either free or assigned, never both and
// never neither. The pool itself is not safe for concurrent use; callers
// serialize access (see relay.Hub).
package portpool
