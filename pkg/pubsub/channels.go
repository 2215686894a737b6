package pubsub

import "strings"

// ChannelUserLifecycle carries identity-provider user events from the
// webhook intake to the sync worker.
const ChannelUserLifecycle = "identity:user_lifecycle"

// User lifecycle event types. Values match the identity provider's webhook
// type names.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// UserEmail is one address of an identity-provider user.
type UserEmail struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// UserPayload is the identity-provider user object relayed with
// user.created and user.updated.
type UserPayload struct {
	ID                    string      `json:"id"`
	Username              string      `json:"username,omitempty"`
	FirstName             string      `json:"first_name,omitempty"`
	LastName              string      `json:"last_name,omitempty"`
	ImageURL              string      `json:"image_url,omitempty"`
	PrimaryEmailAddressID string      `json:"primary_email_address_id,omitempty"`
	EmailAddresses        []UserEmail `json:"email_addresses"`
}

// UserDeletedPayload is relayed with user.deleted.
type UserDeletedPayload struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// channelToTopic maps a channel name to a Kafka topic name.
//
//	"identity:user_lifecycle" → "identity-user-lifecycle"
func channelToTopic(channel string) string {
	return strings.NewReplacer(":", "-", "_", "-").Replace(channel)
}
