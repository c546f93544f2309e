package models

import "encoding/json"

// Client to server message types.
const (
	TypeCheckRoom         = "check-room"
	TypeVerifyPassword    = "verify-password"
	TypeJoinRoom          = "join-room"
	TypeOffer             = "offer"
	TypeAnswer            = "answer"
	TypeICECandidate      = "ice-candidate"
	TypeFileMeta          = "file-meta"
	TypeTransferDone      = "transfer-done"
	TypeTransferConfirmed = "transfer-confirmed"
)

// Server to client message types.
const (
	TypeConnected        = "connected"
	TypeRoomNotFound     = "room-not-found"
	TypeRoomInfo         = "room-info"
	TypePasswordVerified = "password-verified"
	TypeJoinResponse     = "join-response"
	TypeUserJoined       = "user-joined"
	TypeUserLeft         = "user-left"
)

// MaxFileSize is the largest file size accepted in file-meta, 10 GiB.
const MaxFileSize = 10 * (1 << 30)

// Message is the wire envelope for every websocket frame. The payload shape
// depends on Type; relay payloads are opaque blobs the server never
// interprets.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MarshalMessage builds an outbound frame for the given type and payload.
func MarshalMessage(messageType string, payload interface{}) []byte {
	var raw json.RawMessage
	if payload != nil {
		raw, _ = json.Marshal(payload)
	}
	msg := Message{Type: messageType, Payload: raw}
	msgBytes, _ := json.Marshal(msg)
	return msgBytes
}

// RoomPayload carries just a room id (check-room, transfer-done,
// transfer-confirmed).
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// VerifyPasswordPayload carries the client-computed password hash to compare
// against the one stored at room creation.
type VerifyPasswordPayload struct {
	RoomID       string `json:"roomId"`
	PasswordHash string `json:"passwordHash"`
}

// JoinRoomPayload is the extended join form. The legacy form is a bare JSON
// string holding only the room id.
type JoinRoomPayload struct {
	RoomID       string `json:"roomId"`
	PasswordHash string `json:"passwordHash,omitempty"`
	IsProtected  bool   `json:"isProtected,omitempty"`
}

// SignalPayload carries an SDP offer/answer or an ICE candidate.
type SignalPayload struct {
	RoomID    string          `json:"roomId"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// SignalRelay is the outbound form of offer/answer/ice-candidate: the
// original blob plus the sender's connection id.
type SignalRelay struct {
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
	From      string          `json:"from"`
}

// FileMeta describes the file about to be transferred.
type FileMeta struct {
	Name string  `json:"name"`
	Size float64 `json:"size"`
}

// FileMetaPayload wraps the metadata with its room. Metadata is kept raw so
// the relay forwards it verbatim.
type FileMetaPayload struct {
	RoomID   string          `json:"roomId"`
	Metadata json.RawMessage `json:"metadata"`
}

// RoomInfo answers check-room for an existing room.
type RoomInfo struct {
	Exists      bool `json:"exists"`
	IsProtected bool `json:"isProtected"`
	HasUsers    bool `json:"hasUsers"`
}

// PasswordVerified answers verify-password. Unknown rooms, malformed ids and
// wrong hashes all collapse into valid=false.
type PasswordVerified struct {
	Valid bool `json:"valid"`
}

// JoinResponse acknowledges a join-room request.
type JoinResponse struct {
	Success bool   `json:"success"`
	RoomID  string `json:"roomId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UserEvent identifies the peer behind a connected/user-joined/user-left
// event.
type UserEvent struct {
	UserID string `json:"userId"`
}
