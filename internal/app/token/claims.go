package token

import "github.com/golang-jwt/jwt"

// VideoGrant describes the media-room permissions embedded in an access
// credential. Field names follow the transport provider's wire format.
type VideoGrant struct {
	RoomCreate bool   `json:"roomCreate,omitempty"`
	RoomList   bool   `json:"roomList,omitempty"`
	RoomRecord bool   `json:"roomRecord,omitempty"`
	RoomAdmin  bool   `json:"roomAdmin,omitempty"`
	RoomJoin   bool   `json:"roomJoin,omitempty"`
	Room       string `json:"room,omitempty"`

	CanPublish           *bool `json:"canPublish,omitempty"`
	CanSubscribe         *bool `json:"canSubscribe,omitempty"`
	CanPublishData       *bool `json:"canPublishData,omitempty"`
	CanUpdateOwnMetadata *bool `json:"canUpdateOwnMetadata,omitempty"`
}

// AgentDispatch names an automated persona participant that the provider
// should add to the room on creation. This is how a session is routed to the
// correct backend agent process without a separate dispatch service.
type AgentDispatch struct {
	AgentName string `json:"agent_name"`
}

// RoomConfig is the room-configuration directive carried inside a credential.
type RoomConfig struct {
	Agents []AgentDispatch `json:"agents,omitempty"`
}

// Metadata is the free-form payload embedded in a participant credential.
// The agent reads it to pick the conversation language and persona.
type Metadata struct {
	Language string `json:"language,omitempty"`
	GuruID   string `json:"guruId,omitempty"`
	PlanID   string `json:"planId,omitempty"`
}

// Claims defines the JWT claim set of a media access credential.
// The issuer is the API key; the subject is the participant identity.
type Claims struct {
	jwt.StandardClaims

	// Name is the human-readable participant name shown to other participants.
	Name string `json:"name,omitempty"`

	// Video carries the permission grant for the room join.
	Video *VideoGrant `json:"video,omitempty"`

	// Metadata is a JSON-encoded Metadata payload.
	Metadata string `json:"metadata,omitempty"`

	// RoomConfig optionally requests agent dispatch on room creation.
	RoomConfig *RoomConfig `json:"roomConfig,omitempty"`
}

func boolPtr(b bool) *bool { return &b }
