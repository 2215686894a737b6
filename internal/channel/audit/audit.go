package audit

import (
	"context"
	"strings"

	"github.com/divverma2003/convo-app/pkg/log"
)

// Audit actions for channel operations.
const (
	ActionCreateChannel = "channel.create"
	ActionOpenDirect    = "channel.open_direct"
	ActionInvite        = "channel.invite"
	ActionAutoJoin      = "channel.auto_join"
	ActionRemoveMember  = "channel.remove_member"
)

const (
	FieldAction  = "action"
	FieldMembers = "members"
)

// Log emits a structured audit log entry for a channel action.
func Log(ctx context.Context, action, userID, channelID string, members []string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(log.FieldChannelID, channelID).
		Str(FieldMembers, strings.Join(members, ",")).
		Msg(msg)
}
