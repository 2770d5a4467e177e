package chat

import "sort"

// MergeEventsResults combines two partial event results into one. Events
// and affected events are concatenated and re-sorted ascending by index;
// duplicates are preserved (dedup, when needed, belongs to the caller).
// The latest event index is the max of the inputs, with nil treated as -1
// unless both sides are nil. The sorted output is independent of argument
// order and of how a longer merge chain is grouped.
func MergeEventsResults(a, b EventsResult) EventsResult {
	events := make([]EventWrapper, 0, len(a.Events)+len(b.Events))
	events = append(events, a.Events...)
	events = append(events, b.Events...)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Index < events[j].Index
	})

	affected := make([]EventWrapper, 0, len(a.AffectedEvents)+len(b.AffectedEvents))
	affected = append(affected, a.AffectedEvents...)
	affected = append(affected, b.AffectedEvents...)
	sort.SliceStable(affected, func(i, j int) bool {
		return affected[i].Index < affected[j].Index
	})

	return EventsResult{
		Events:           events,
		AffectedEvents:   affected,
		LatestEventIndex: maxLatestIndex(a.LatestEventIndex, b.LatestEventIndex),
	}
}

func maxLatestIndex(a, b *uint32) *uint32 {
	if a == nil {
		return b
	}
	if b == nil || *a >= *b {
		return a
	}
	return b
}

// MergeChatUpdates applies an updates-since delta to the cached summary
// list. Removed chats are dropped, per-chat updates applied field-wise, and
// added chats appended (replacing any stale entry with the same id). The
// relative order of surviving cached chats is preserved.
func MergeChatUpdates(cached []Summary, delta UpdatesDelta) []Summary {
	removed := make(map[string]struct{}, len(delta.ChatsRemoved))
	for _, id := range delta.ChatsRemoved {
		removed[id] = struct{}{}
	}
	updates := make(map[string]SummaryUpdates, len(delta.ChatsUpdated))
	for _, u := range delta.ChatsUpdated {
		updates[u.ChatID] = u
	}
	added := make(map[string]struct{}, len(delta.ChatsAdded))
	for _, s := range delta.ChatsAdded {
		added[s.ChatID] = struct{}{}
	}

	merged := make([]Summary, 0, len(cached)+len(delta.ChatsAdded))
	for _, s := range cached {
		if _, gone := removed[s.ChatID]; gone {
			continue
		}
		if _, replaced := added[s.ChatID]; replaced {
			continue
		}
		if u, ok := updates[s.ChatID]; ok {
			s = applySummaryUpdates(s, u)
		}
		merged = append(merged, s)
	}
	merged = append(merged, delta.ChatsAdded...)
	return merged
}

func applySummaryUpdates(s Summary, u SummaryUpdates) Summary {
	if u.Name != nil {
		s.Name = *u.Name
	}
	if u.Description != nil {
		s.Description = *u.Description
	}
	if u.Public != nil {
		s.Public = *u.Public
	}
	if u.Role != nil {
		s.Role = *u.Role
	}
	s.AvatarID = u.AvatarID.Apply(s.AvatarID)
	if u.NotificationsMuted != nil {
		s.NotificationsMuted = *u.NotificationsMuted
	}
	if u.LatestEventIndex != nil && *u.LatestEventIndex > s.LatestEventIndex {
		s.LatestEventIndex = *u.LatestEventIndex
	}
	if u.LatestMessage != nil {
		if s.LatestMessage == nil || u.LatestMessage.Index >= s.LatestMessage.Index {
			s.LatestMessage = u.LatestMessage
		}
	}
	if u.LastUpdated > s.LastUpdated {
		s.LastUpdated = u.LastUpdated
	}
	return s
}

// MergeSnapshot folds a delta into the full snapshot row.
func MergeSnapshot(snap Snapshot, delta UpdatesDelta) Snapshot {
	snap.Summaries = MergeChatUpdates(snap.Summaries, delta)
	snap.Timestamp = delta.Timestamp
	snap.AvatarID = delta.AvatarID.Apply(snap.AvatarID)
	if delta.BlockedUsers != nil {
		snap.BlockedUsers = *delta.BlockedUsers
	}
	if delta.PinnedChats != nil {
		snap.PinnedChats = *delta.PinnedChats
	}
	return snap
}

// MergeGroupDetails applies a group-details delta to the cached record.
func MergeGroupDetails(d GroupDetails, u GroupDetailsUpdates) GroupDetails {
	if len(u.MembersRemoved) > 0 || len(u.MembersAdded) > 0 || len(u.MembersUpdated) > 0 {
		gone := make(map[string]struct{}, len(u.MembersRemoved))
		for _, id := range u.MembersRemoved {
			gone[id] = struct{}{}
		}
		changed := make(map[string]Member, len(u.MembersUpdated))
		for _, m := range u.MembersUpdated {
			changed[m.UserID] = m
		}
		members := make([]Member, 0, len(d.Members)+len(u.MembersAdded))
		for _, m := range d.Members {
			if _, ok := gone[m.UserID]; ok {
				continue
			}
			if upd, ok := changed[m.UserID]; ok {
				m = upd
			}
			members = append(members, m)
		}
		members = append(members, u.MembersAdded...)
		d.Members = members
	}

	d.BlockedUsers = mergeStringSet(d.BlockedUsers, u.BlockedAdded, u.BlockedRemoved)
	d.PinnedMessages = mergeIndexSet(d.PinnedMessages, u.PinnedAdded, u.PinnedRemoved)
	if u.Rules != nil {
		d.Rules = *u.Rules
	}
	if u.LatestEventIndex > d.LatestEventIndex {
		d.LatestEventIndex = u.LatestEventIndex
	}
	return d
}

func mergeStringSet(current, add, remove []string) []string {
	if len(add) == 0 && len(remove) == 0 {
		return current
	}
	set := make(map[string]struct{}, len(current)+len(add))
	for _, v := range current {
		set[v] = struct{}{}
	}
	for _, v := range add {
		set[v] = struct{}{}
	}
	for _, v := range remove {
		delete(set, v)
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func mergeIndexSet(current, add, remove []uint32) []uint32 {
	if len(add) == 0 && len(remove) == 0 {
		return current
	}
	set := make(map[uint32]struct{}, len(current)+len(add))
	for _, v := range current {
		set[v] = struct{}{}
	}
	for _, v := range add {
		set[v] = struct{}{}
	}
	for _, v := range remove {
		delete(set, v)
	}
	out := make([]uint32, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
