// Package chat holds the domain types shared by the cache stores and the
// sync engine: event wrappers, chat summaries, update deltas, and the pure
// merge functions over them.
package chat

import "encoding/json"

// Chat roles. Previewer marks a group the user can see but has not joined;
// previewed chats are never persisted as full summaries.
const (
	RoleOwner       = "owner"
	RoleAdmin       = "admin"
	RoleParticipant = "participant"
	RolePreviewer   = "previewer"
)

// EventWrapper pairs an event with its canonical per-chat index. Index is
// the authoritative ordering and lookup key for everything in the cache.
type EventWrapper struct {
	Index     uint32 `json:"index"`
	Timestamp int64  `json:"timestamp"`
	Event     Event  `json:"event"`
}

// Event is a single entry in a chat's event stream. Message events carry a
// full message; every other kind passes through as an opaque payload that
// the cache stores and returns without interpreting.
type Event struct {
	Kind    string          `json:"kind"`
	Message *Message        `json:"message,omitempty"`
	Detail  json.RawMessage `json:"detail,omitempty"`
}

// Message is the event payload for kind "message". MessageIndex is the
// sparser, message-only index used for "jump to message" window queries.
type Message struct {
	MessageID    uint64        `json:"messageId"`
	MessageIndex uint32        `json:"messageIndex"`
	Sender       string        `json:"sender"`
	Content      Content       `json:"content"`
	RepliesTo    *ReplyContext `json:"repliesTo,omitempty"`
	Edited       bool          `json:"edited,omitempty"`
}

// Content is a message body. BlobData holds lazily fetched media bytes and
// must never reach storage; BlobRef is the durable pointer it was fetched
// from.
type Content struct {
	Kind     string   `json:"kind"`
	Text     string   `json:"text,omitempty"`
	Caption  string   `json:"caption,omitempty"`
	MimeType string   `json:"mimeType,omitempty"`
	BlobRef  *BlobRef `json:"blobRef,omitempty"`
	BlobData []byte   `json:"blobData,omitempty"`
}

// BlobRef locates a blob on the storage canisters.
type BlobRef struct {
	Canister string `json:"canister"`
	BlobID   uint64 `json:"blobId"`
}

// Reply context kinds. A rehydrated context embeds the replied-to content
// for display; the raw form keeps only the coordinates needed to rehydrate
// it again.
const (
	RawReplyContext        = "raw_reply_context"
	RehydratedReplyContext = "rehydrated_reply_context"
)

// ReplyContext describes the message a message replies to. ChatIDIfOther is
// nil when the reply target lives in the same chat.
type ReplyContext struct {
	Kind          string   `json:"kind"`
	EventIndex    uint32   `json:"eventIndex"`
	ChatIDIfOther *string  `json:"chatIdIfOther,omitempty"`
	SenderID      string   `json:"senderId,omitempty"`
	Content       *Content `json:"content,omitempty"`
}

// Summary is the cached list entry for one chat.
type Summary struct {
	ChatID             string        `json:"chatId"`
	Kind               string        `json:"kind"` // "direct" or "group"
	Them               string        `json:"them,omitempty"`
	Name               string        `json:"name,omitempty"`
	Description        string        `json:"description,omitempty"`
	Public             bool          `json:"public,omitempty"`
	Role               string        `json:"role,omitempty"`
	AvatarID           *uint64       `json:"avatarId,omitempty"`
	NotificationsMuted bool          `json:"notificationsMuted,omitempty"`
	LatestEventIndex   uint32        `json:"latestEventIndex"`
	LatestMessage      *EventWrapper `json:"latestMessage,omitempty"`
	LastUpdated        int64         `json:"lastUpdated"`
}

// SummaryUpdates is the per-chat delta of an updates-since response. Plain
// pointer fields distinguish "unchanged" (nil) from a new value; AvatarID
// needs the tri-state OptionUpdate because "cleared" is a real transition.
type SummaryUpdates struct {
	ChatID             string               `json:"chatId"`
	Name               *string              `json:"name,omitempty"`
	Description        *string              `json:"description,omitempty"`
	Public             *bool                `json:"public,omitempty"`
	Role               *string              `json:"role,omitempty"`
	AvatarID           OptionUpdate[uint64] `json:"avatarId"`
	NotificationsMuted *bool                `json:"notificationsMuted,omitempty"`
	LatestEventIndex   *uint32              `json:"latestEventIndex,omitempty"`
	LatestMessage      *EventWrapper        `json:"latestMessage,omitempty"`
	LastUpdated        int64                `json:"lastUpdated"`
}

// Snapshot is the persisted chat-list state for one principal: the one row
// in the chats table.
type Snapshot struct {
	Summaries    []Summary `json:"summaries"`
	Timestamp    int64     `json:"timestamp"`
	BlockedUsers []string  `json:"blockedUsers,omitempty"`
	PinnedChats  []string  `json:"pinnedChats,omitempty"`
	AvatarID     *uint64   `json:"avatarId,omitempty"`
}

// UpdatesDelta is an updates-since response from the remote. AffectedEvents
// lists, per chat, cached event indices that were edited or deleted
// remotely and must be dropped from the event cache. WasUpdated is false
// when the check found nothing new, in which case nothing is persisted.
type UpdatesDelta struct {
	Timestamp      int64                `json:"timestamp"`
	WasUpdated     bool                 `json:"wasUpdated"`
	ChatsAdded     []Summary            `json:"chatsAdded,omitempty"`
	ChatsUpdated   []SummaryUpdates     `json:"chatsUpdated,omitempty"`
	ChatsRemoved   []string             `json:"chatsRemoved,omitempty"`
	AffectedEvents map[string][]uint32  `json:"affectedEvents,omitempty"`
	AvatarID       OptionUpdate[uint64] `json:"avatarId"`
	BlockedUsers   *[]string            `json:"blockedUsers,omitempty"`
	PinnedChats    *[]string            `json:"pinnedChats,omitempty"`
}

// EventsResult is the success payload of an events query, cached or remote.
type EventsResult struct {
	Events           []EventWrapper `json:"events"`
	AffectedEvents   []EventWrapper `json:"affectedEvents,omitempty"`
	LatestEventIndex *uint32        `json:"latestEventIndex,omitempty"`
}

// Member is a group member entry.
type Member struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Rules are a group's join rules.
type Rules struct {
	Enabled bool   `json:"enabled"`
	Text    string `json:"text,omitempty"`
}

// GroupDetails is the cached per-group detail record. It lives outside the
// event stream and is fetched and refreshed independently.
type GroupDetails struct {
	ChatID           string   `json:"chatId"`
	Members          []Member `json:"members"`
	BlockedUsers     []string `json:"blockedUsers,omitempty"`
	PinnedMessages   []uint32 `json:"pinnedMessages,omitempty"`
	Rules            Rules    `json:"rules"`
	LatestEventIndex uint32   `json:"latestEventIndex"`
}

// GroupDetailsUpdates is the delta form of GroupDetails.
type GroupDetailsUpdates struct {
	ChatID           string   `json:"chatId"`
	MembersAdded     []Member `json:"membersAdded,omitempty"`
	MembersUpdated   []Member `json:"membersUpdated,omitempty"`
	MembersRemoved   []string `json:"membersRemoved,omitempty"`
	BlockedAdded     []string `json:"blockedAdded,omitempty"`
	BlockedRemoved   []string `json:"blockedRemoved,omitempty"`
	PinnedAdded      []uint32 `json:"pinnedAdded,omitempty"`
	PinnedRemoved    []uint32 `json:"pinnedRemoved,omitempty"`
	Rules            *Rules   `json:"rules,omitempty"`
	LatestEventIndex uint32   `json:"latestEventIndex"`
}
