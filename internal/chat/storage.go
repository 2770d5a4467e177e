package chat

// ForStorage converts an event into the form that may be persisted. Two
// fields of a live message are not serializable as-is: fetched blob bytes
// (which belong to the blob cache, not the event cache) and a rehydrated
// reply context (which embeds another message's content). The returned copy
// has blob data cleared and the reply context downgraded to its raw
// coordinates; the input is never mutated. Applying ForStorage to an
// already-stripped event returns it unchanged.
func ForStorage(ev EventWrapper) EventWrapper {
	msg := ev.Event.Message
	if msg == nil {
		return ev
	}
	if msg.Content.BlobData == nil && !isRehydrated(msg.RepliesTo) {
		return ev
	}

	stripped := *msg
	stripped.Content.BlobData = nil
	if isRehydrated(stripped.RepliesTo) {
		stripped.RepliesTo = &ReplyContext{
			Kind:          RawReplyContext,
			EventIndex:    stripped.RepliesTo.EventIndex,
			ChatIDIfOther: stripped.RepliesTo.ChatIDIfOther,
		}
	}
	ev.Event.Message = &stripped
	return ev
}

func isRehydrated(rc *ReplyContext) bool {
	return rc != nil && rc.Kind == RehydratedReplyContext
}

// SnapshotForStorage strips every latest message in a snapshot and drops
// previewed group chats, which must always be refetched live rather than
// served from cache.
func SnapshotForStorage(snap Snapshot) Snapshot {
	summaries := make([]Summary, 0, len(snap.Summaries))
	for _, s := range snap.Summaries {
		if s.Kind == "group" && s.Role == RolePreviewer {
			continue
		}
		if s.LatestMessage != nil {
			lm := ForStorage(*s.LatestMessage)
			s.LatestMessage = &lm
		}
		summaries = append(summaries, s)
	}
	snap.Summaries = summaries
	return snap
}
