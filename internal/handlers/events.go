package handlers

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mediarag-backend/internal/logger"
	"github.com/yungbote/mediarag-backend/internal/services"
	"github.com/yungbote/mediarag-backend/internal/types"
)

// pubsubPush is the Pub/Sub push wrapper: the storage notification lives
// base64-encoded in message.data.
type pubsubPush struct {
	Message struct {
		Data       string            `json:"data"`
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type EventsHandler struct {
	log        *logger.Logger
	dispatcher services.Dispatcher
}

func NewEventsHandler(log *logger.Logger, dispatcher services.Dispatcher) *EventsHandler {
	return &EventsHandler{
		log:        log.With("handler", "EventsHandler"),
		dispatcher: dispatcher,
	}
}

// POST /events/object-finalized
//
// Accepts either the raw storage notification or a Pub/Sub push envelope.
// Anything unparseable is acked with 200: redelivering garbage cannot make
// it parse. Only a failed enqueue returns 500 so the event comes back.
func (h *EventsHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "unreadable_body", err)
		return
	}

	event, ok := h.decodeEvent(body)
	if !ok {
		h.log.Warn("Unparseable object event, acking", "body_len", len(body))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	enqueued, err := h.dispatcher.HandleObjectFinalized(c.Request.Context(), event)
	if err != nil {
		h.log.Error("Enqueue failed, requesting redelivery",
			"object_key", event.Name, "error", err)
		RespondError(c, http.StatusInternalServerError, "enqueue_failed", err)
		return
	}
	if !enqueued {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "enqueued", "object_key": event.Name})
}

func (h *EventsHandler) decodeEvent(body []byte) (types.ObjectFinalizedEvent, bool) {
	var push pubsubPush
	if err := json.Unmarshal(body, &push); err == nil && push.Message.Data != "" {
		raw, err := base64.StdEncoding.DecodeString(push.Message.Data)
		if err != nil {
			return types.ObjectFinalizedEvent{}, false
		}
		var event types.ObjectFinalizedEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			return types.ObjectFinalizedEvent{}, false
		}
		return event, true
	}

	var event types.ObjectFinalizedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return types.ObjectFinalizedEvent{}, false
	}
	return event, true
}
