package handlers

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/beamdrop/services/backend/cmd/signaling-service/internal/models"
	"github.com/beamdrop/services/backend/internal/metrics"
)

// MessageHandler dispatches inbound protocol frames against the room
// registry and relays validated payloads to the rest of a room. Relay-type
// frames that fail validation are dropped without a response; only join-room
// answers failures explicitly.
type MessageHandler struct {
	Registry *models.Registry
}

// NewMessageHandler wires the handler to its registry.
func NewMessageHandler(registry *models.Registry) *MessageHandler {
	return &MessageHandler{Registry: registry}
}

// HandleMessage processes one inbound frame for client.
func (h *MessageHandler) HandleMessage(msg models.Message, client *models.Client) {
	switch msg.Type {
	case models.TypeCheckRoom:
		h.handleCheckRoom(msg, client)
	case models.TypeVerifyPassword:
		h.handleVerifyPassword(msg, client)
	case models.TypeJoinRoom:
		h.handleJoinRoom(msg, client)
	case models.TypeOffer, models.TypeAnswer, models.TypeICECandidate:
		h.handleSignal(msg, client)
	case models.TypeFileMeta:
		h.handleFileMeta(msg, client)
	case models.TypeTransferDone, models.TypeTransferConfirmed:
		h.handleTransferStatus(msg, client)
	default:
		log.Printf("[DEBUG] Unhandled message type %q from %s", msg.Type, client.UserID)
	}
}

// Disconnect removes the client from every room and notifies the remaining
// members. This is the sole cleanup path; there is no separate leave-room
// message.
func (h *MessageHandler) Disconnect(client *models.Client) {
	left := h.Registry.Leave(client)
	if len(left) > 0 {
		log.Printf("[INFO] Client %s left rooms %v", client.UserID, left)
	}
}

func (h *MessageHandler) handleCheckRoom(msg models.Message, client *models.Client) {
	var payload models.RoomPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		client.QueueSend(models.MarshalMessage(models.TypeRoomNotFound, nil))
		return
	}

	info, ok := h.Registry.CheckRoom(payload.RoomID)
	if !ok {
		client.QueueSend(models.MarshalMessage(models.TypeRoomNotFound, nil))
		return
	}
	client.QueueSend(models.MarshalMessage(models.TypeRoomInfo, info))
}

func (h *MessageHandler) handleVerifyPassword(msg models.Message, client *models.Client) {
	var payload models.VerifyPasswordPayload
	valid := false
	if err := json.Unmarshal(msg.Payload, &payload); err == nil {
		valid = h.Registry.VerifyPassword(payload.RoomID, payload.PasswordHash)
	}
	client.QueueSend(models.MarshalMessage(models.TypePasswordVerified, models.PasswordVerified{Valid: valid}))
}

// decodeJoinPayload accepts both the legacy bare room id string and the
// extended object form with protection flags.
func decodeJoinPayload(raw json.RawMessage) (models.JoinRoomPayload, error) {
	var roomID string
	if err := json.Unmarshal(raw, &roomID); err == nil {
		return models.JoinRoomPayload{RoomID: roomID}, nil
	}

	var payload models.JoinRoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return models.JoinRoomPayload{}, err
	}
	return payload, nil
}

func (h *MessageHandler) handleJoinRoom(msg models.Message, client *models.Client) {
	payload, err := decodeJoinPayload(msg.Payload)
	if err != nil {
		client.QueueSend(models.MarshalMessage(models.TypeJoinResponse, models.JoinResponse{
			Success: false,
			Error:   "invalid join payload",
		}))
		return
	}

	room, err := h.Registry.JoinOrCreate(payload.RoomID, payload.PasswordHash, payload.IsProtected, client)
	if err != nil {
		client.QueueSend(models.MarshalMessage(models.TypeJoinResponse, models.JoinResponse{
			Success: false,
			Error:   err.Error(),
		}))
		return
	}

	client.QueueSend(models.MarshalMessage(models.TypeJoinResponse, models.JoinResponse{
		Success: true,
		RoomID:  room.ID,
	}))

	// Arrival notice goes to everyone already in the room, never back to the
	// joining connection itself.
	room.Broadcast(models.MarshalMessage(models.TypeUserJoined, models.UserEvent{UserID: client.UserID}), client)
}

// hasValue reports whether a raw JSON field is present and not null.
func hasValue(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func (h *MessageHandler) handleSignal(msg models.Message, client *models.Client) {
	var payload models.SignalPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[DEBUG] Dropping malformed %s from %s: %v", msg.Type, client.UserID, err)
		return
	}
	if !models.ValidRoomID(payload.RoomID) {
		log.Printf("[DEBUG] Dropping %s from %s: bad room id", msg.Type, client.UserID)
		return
	}

	relay := models.SignalRelay{From: client.UserID}
	switch msg.Type {
	case models.TypeICECandidate:
		if !hasValue(payload.Candidate) {
			log.Printf("[DEBUG] Dropping %s from %s: missing candidate", msg.Type, client.UserID)
			return
		}
		relay.Candidate = payload.Candidate
	default:
		if !hasValue(payload.SDP) {
			log.Printf("[DEBUG] Dropping %s from %s: missing sdp", msg.Type, client.UserID)
			return
		}
		relay.SDP = payload.SDP
	}

	room, ok := h.Registry.GetRoom(payload.RoomID)
	if !ok {
		return
	}

	log.Printf("[INFO] Relaying %s from %s in room %s", msg.Type, client.UserID, room.ID)
	room.Broadcast(models.MarshalMessage(msg.Type, relay), client)
	metrics.RelayedMessages.WithLabelValues(msg.Type).Inc()
}

func (h *MessageHandler) handleFileMeta(msg models.Message, client *models.Client) {
	var payload models.FileMetaPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return
	}
	if !models.ValidRoomID(payload.RoomID) || !hasValue(payload.Metadata) {
		return
	}

	var meta models.FileMeta
	if err := json.Unmarshal(payload.Metadata, &meta); err != nil {
		return
	}
	if strings.TrimSpace(meta.Name) == "" || meta.Size < 0 || meta.Size > models.MaxFileSize {
		log.Printf("[DEBUG] Dropping file-meta from %s: invalid metadata", client.UserID)
		return
	}

	room, ok := h.Registry.GetRoom(payload.RoomID)
	if !ok {
		return
	}

	// Metadata is forwarded exactly as received.
	room.Broadcast(models.MarshalMessage(models.TypeFileMeta, payload.Metadata), client)
	metrics.RelayedMessages.WithLabelValues(models.TypeFileMeta).Inc()
}

func (h *MessageHandler) handleTransferStatus(msg models.Message, client *models.Client) {
	var payload models.RoomPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return
	}
	if !models.ValidRoomID(payload.RoomID) {
		return
	}

	room, ok := h.Registry.GetRoom(payload.RoomID)
	if !ok {
		return
	}

	room.Broadcast(models.MarshalMessage(msg.Type, nil), client)
	metrics.RelayedMessages.WithLabelValues(msg.Type).Inc()
}
