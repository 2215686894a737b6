package handler

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/divverma2003/convo-app/internal/identity/webhook"
	"github.com/divverma2003/convo-app/pkg/errreport"
	"github.com/divverma2003/convo-app/pkg/log"
	"github.com/divverma2003/convo-app/pkg/pubsub"
	"github.com/divverma2003/convo-app/pkg/response"
)

const maxBodyBytes = 1 << 20

// Envelope is the outer shape of every identity webhook delivery.
type Envelope struct {
	Type   string          `json:"type"`
	Object string          `json:"object"`
	Data   json.RawMessage `json:"data"`
}

// Handler accepts identity-provider webhooks and relays user lifecycle
// events to the event bus.
type Handler struct {
	verifier  *webhook.Verifier
	publisher pubsub.Publisher
}

// NewHandler creates a new webhook handler.
func NewHandler(verifier *webhook.Verifier, publisher pubsub.Publisher) *Handler {
	return &Handler{verifier: verifier, publisher: publisher}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/api/webhooks/identity", h.Receive)
}

// Receive verifies a delivery and publishes it on the lifecycle channel.
func (h *Handler) Receive(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		response.BadRequest(c, "failed to read body")
		return
	}

	webhookID, err := h.verifier.Verify(c.Request.Header, body)
	if err != nil {
		l.Warn().Err(err).Msg("rejected identity webhook")
		response.Unauthorized(c, "invalid webhook signature")
		return
	}
	l = l.With().Str(log.FieldEventID, webhookID).Logger()

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		response.BadRequest(c, "invalid webhook payload")
		return
	}
	l = l.With().Str(log.FieldEventType, env.Type).Logger()

	event, err := buildEvent(env)
	if err != nil {
		if errors.Is(err, errIgnored) {
			l.Debug().Msg("ignoring identity webhook")
			response.SuccessWithMessage(c, "ignored", nil)
			return
		}
		l.Warn().Err(err).Msg("invalid identity webhook payload")
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.publisher.Publish(ctx, pubsub.ChannelUserLifecycle, event); err != nil {
		l.Error().Err(err).Msg("failed to publish user lifecycle event")
		errreport.Capture(ctx, err, "identity-webhook", map[string]string{log.FieldEventType: event.Type})
		response.Unavailable(c, "failed to queue webhook")
		return
	}

	l.Info().Str(log.FieldUserID, event.Key).Msg("user lifecycle event queued")
	response.Accepted(c, "queued")
}

var errIgnored = errors.New("event type not handled")

func buildEvent(env Envelope) (*pubsub.Event, error) {
	switch env.Type {
	case pubsub.EventUserCreated, pubsub.EventUserUpdated:
		var p pubsub.UserPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, errors.New("invalid user payload")
		}
		if p.ID == "" {
			return nil, errors.New("user id is required")
		}
		return pubsub.NewEvent(env.Type, p.ID, p)
	case pubsub.EventUserDeleted:
		var p pubsub.UserDeletedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, errors.New("invalid user payload")
		}
		if p.ID == "" {
			return nil, errors.New("user id is required")
		}
		return pubsub.NewEvent(env.Type, p.ID, p)
	default:
		return nil, errIgnored
	}
}
