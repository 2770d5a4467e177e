// Package cachekey derives the string keys under which chat and thread
// events are stored. Keys sort lexicographically in event-index order, so
// a contiguous index range maps to a single key range scan.
package cachekey

import "fmt"

// PadWidth is the fixed zero-pad width for event indices. Ten digits covers
// every index up to 9,999,999,999 while keeping byte-wise key comparison
// consistent with numeric ordering.
const PadWidth = 10

// Event returns the storage key for an event in a chat's main event stream:
// <chatID>_<index padded to 10 digits>.
func Event(chatID string, index uint32) string {
	return fmt.Sprintf("%s_%0*d", chatID, PadWidth, index)
}

// ThreadEvent returns the storage key for an event inside a thread. The
// thread root message index becomes an extra key segment so threads never
// collide with the chat's own stream or with sibling threads.
func ThreadEvent(chatID string, threadRootMessageIndex uint32, index uint32) string {
	return fmt.Sprintf("%s_%d_%0*d", chatID, threadRootMessageIndex, PadWidth, index)
}

// ForEvent dispatches on whether a thread root is present.
func ForEvent(chatID string, index uint32, threadRootMessageIndex *uint32) string {
	if threadRootMessageIndex != nil {
		return ThreadEvent(chatID, *threadRootMessageIndex, index)
	}
	return Event(chatID, index)
}
