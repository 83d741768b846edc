package telegram

import "strconv"

// Update represents an incoming event from the Bot API.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

// Message represents a chat message.
type Message struct {
	MessageID      int64    `json:"message_id"`
	From           *User    `json:"from,omitempty"`
	Chat           Chat     `json:"chat"`
	Date           int64    `json:"date"`
	Text           string   `json:"text,omitempty"`
	ReplyToMessage *Message `json:"reply_to_message,omitempty"`
}

// User represents a Telegram user or bot account.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
}

// DisplayName returns the best human-readable name for the user:
// full name, else @handle, else the stringified id.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}

// Chat represents a conversation the bot participates in.
// For private chats the chat id equals the peer's user id.
type Chat struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"` // "private", "group", "supergroup", "channel"
	Title     string `json:"title,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// IsGroup reports whether the chat is a group-like conversation where
// moderation actions make sense.
func (c *Chat) IsGroup() bool {
	return c.Type == "group" || c.Type == "supergroup"
}

// DisplayName returns the best human-readable name for a private chat's peer.
func (c *Chat) DisplayName() string {
	name := c.FirstName
	if c.LastName != "" {
		if name != "" {
			name += " "
		}
		name += c.LastName
	}
	if name != "" {
		return name
	}
	if c.Username != "" {
		return "@" + c.Username
	}
	return strconv.FormatInt(c.ID, 10)
}

// Member statuses returned by getChatMember.
const (
	MemberStatusCreator       = "creator"
	MemberStatusAdministrator = "administrator"
	MemberStatusMember        = "member"
	MemberStatusRestricted    = "restricted"
	MemberStatusLeft          = "left"
	MemberStatusKicked        = "kicked"
)

// ChatMember describes a user's membership in a specific chat.
type ChatMember struct {
	Status             string `json:"status"`
	User               User   `json:"user"`
	CanRestrictMembers bool   `json:"can_restrict_members,omitempty"`
	CanPromoteMembers  bool   `json:"can_promote_members,omitempty"`
	UntilDate          int64  `json:"until_date,omitempty"`
}

// CanRestrict reports whether this member may restrict or ban others.
// The chat creator always can; administrators need the explicit right.
func (m *ChatMember) CanRestrict() bool {
	if m.Status == MemberStatusCreator {
		return true
	}
	return m.Status == MemberStatusAdministrator && m.CanRestrictMembers
}

// ChatPermissions is the restriction mask applied by restrictChatMember.
type ChatPermissions struct {
	CanSendMessages       bool `json:"can_send_messages"`
	CanSendMediaMessages  bool `json:"can_send_media_messages"`
	CanSendOtherMessages  bool `json:"can_send_other_messages"`
	CanAddWebPagePreviews bool `json:"can_add_web_page_previews"`
}
