package domain

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// TypeMessaging is the only channel type the app creates.
const TypeMessaging = "messaging"

const (
	MinNameLength     = 3
	MaxNameLength     = 22
	MaxDirectIDLength = 64
	directIDSeparator = "-"
)

var (
	ErrNameEmpty   = errors.New("Channel name cannot be empty")
	ErrNameLength  = errors.New("Channel name must be between 3 and 22 characters")
	ErrNameInvalid = errors.New("Channel name must contain letters or numbers")
)

// Visibility controls who can discover a channel.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Channel is a chat channel.
type Channel struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	Name         string     `json:"name,omitempty"`
	Description  string     `json:"description,omitempty"`
	CreatedByID  string     `json:"created_by_id"`
	Members      []string   `json:"members"`
	Private      bool       `json:"private"`
	Discoverable bool       `json:"discoverable"`
	Visibility   Visibility `json:"visibility"`
	CreatedAt    time.Time  `json:"created_at"`
}

// HasMember reports whether userID belongs to the channel.
func (c *Channel) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// CreateChannelRequest represents a create channel request.
type CreateChannelRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Visibility  Visibility `json:"visibility"`
	MemberIDs   []string   `json:"member_ids"`
}

// DirectChannelRequest opens a one-to-one channel with UserID.
type DirectChannelRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// InviteRequest adds UserIDs to a channel.
type InviteRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1"`
}

// CreateOrJoinRequest is the generic create-or-join call used when a
// selection is finalised into a room.
type CreateOrJoinRequest struct {
	ID        string   `json:"id" binding:"required"`
	MemberIDs []string `json:"member_ids"`
}

// ValidateName trims name and checks its length.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrNameEmpty
	}
	if n := utf8.RuneCountInString(name); n < MinNameLength || n > MaxNameLength {
		return "", ErrNameLength
	}
	return name, nil
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	idDisallowed  = regexp.MustCompile(`[^a-z0-9_-]`)
)

// ChannelID derives a channel id from a display name: lowercase, runs of
// whitespace become '-', anything outside [a-z0-9_-] is dropped and the
// result is cut to MaxNameLength.
func ChannelID(name string) (string, error) {
	id := strings.ToLower(strings.TrimSpace(name))
	id = whitespaceRun.ReplaceAllString(id, "-")
	id = idDisallowed.ReplaceAllString(id, "")
	if len(id) > MaxNameLength {
		id = id[:MaxNameLength]
	}
	if strings.Trim(id, "-_") == "" {
		return "", ErrNameInvalid
	}
	return id, nil
}

// DirectChannelID returns the id shared by both participants of a direct
// conversation regardless of who opens it.
func DirectChannelID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	id := strings.Join(ids, directIDSeparator)
	if len(id) > MaxDirectIDLength {
		id = id[:MaxDirectIDLength]
	}
	return id
}

// MergeMembers returns first followed by the distinct non-empty ids of
// rest, in order.
func MergeMembers(first string, rest ...string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(rest)+1)
	for _, id := range append([]string{first}, rest...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
