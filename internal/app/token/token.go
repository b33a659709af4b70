/*
Package token issues signed, time-boxed media-room access credentials.

A single parameterized issuer replaces the per-feature token routes of earlier
iterations: each feature instantiates a RouteConfig describing its room-naming
strategy (a fixed well-known room shared by all participants, or a generated
per-session room), its credential TTL, and its default agent. The grant policy
is uniform: every participant may publish, subscribe, and publish data; hosts
additionally receive room-admin and metadata-update rights.
*/
package token

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt"

	"guruvani/internal/pkg/randx"
)

const (
	// SharedRoomTTL is the credential lifetime for shared multi-party rooms.
	SharedRoomTTL = 2 * time.Hour

	// PrivateRoomTTL is the credential lifetime for private one-to-one rooms.
	PrivateRoomTTL = 15 * time.Minute

	// adminTTL bounds the short-lived credentials minted for provider API calls.
	adminTTL = 10 * time.Minute
)

// Role identifies the permission tier requested for a participant.
type Role string

const (
	RoleHost        Role = "host"
	RoleParticipant Role = "participant"
)

// RoomNaming selects how a route names its rooms. Exactly one field is set:
// Fixed routes hand every caller the identical room name (correctness of the
// shared-room features depends on exact string equality); Generated routes
// synthesize a unique name per session from the prefix.
type RoomNaming struct {
	Fixed  string
	Prefix string
}

// RouteConfig parameterizes credential issuance for one feature route.
type RouteConfig struct {
	// Naming is the room-naming strategy for this route.
	Naming RoomNaming

	// IdentityPrefix namespaces the generated participant identities.
	IdentityPrefix string

	// TTL is the credential lifetime.
	TTL time.Duration

	// DefaultAgent is dispatched when the request names no agent.
	DefaultAgent string

	// RequireGuru makes the guruId request field mandatory on this route.
	RequireGuru bool

	// HonorHostRole enables the elevated host grant on this route.
	HonorHostRole bool
}

// ResolveRoom returns the room name for one issuance under this config.
// scope (persona or user identifier) is folded into generated names.
func (rc RouteConfig) ResolveRoom(scope string) (string, error) {
	if rc.Naming.Fixed != "" {
		return rc.Naming.Fixed, nil
	}
	return randx.RoomName(rc.Naming.Prefix, scope)
}

// Params describes one credential to mint.
type Params struct {
	Identity string
	Name     string
	Room     string
	TTL      time.Duration

	Role      Role
	AgentName string
	Metadata  *Metadata
}

// Issuer signs media access credentials with the provider API key pair.
type Issuer struct {
	apiKey    string
	apiSecret string
}

// NewIssuer constructs an Issuer for the given API key pair.
func NewIssuer(apiKey, apiSecret string) *Issuer {
	return &Issuer{apiKey: apiKey, apiSecret: apiSecret}
}

// Mint creates and signs a participant credential.
func (i *Issuer) Mint(p Params) (string, error) {
	if p.Identity == "" || p.Room == "" {
		return "", errors.New("token: identity and room are required")
	}

	ttl := p.TTL
	if ttl <= 0 {
		ttl = PrivateRoomTTL
	}

	grant := &VideoGrant{
		Room:           p.Room,
		RoomJoin:       true,
		CanPublish:     boolPtr(true),
		CanSubscribe:   boolPtr(true),
		CanPublishData: boolPtr(true),
	}

	if p.Role == RoleHost {
		grant.RoomAdmin = true
		grant.CanUpdateOwnMetadata = boolPtr(true)
	}

	claims := &Claims{
		Name:  p.Name,
		Video: grant,
	}

	if p.Metadata != nil {
		raw, err := json.Marshal(p.Metadata)
		if err != nil {
			return "", err
		}
		claims.Metadata = string(raw)
	}

	if p.AgentName != "" {
		claims.RoomConfig = &RoomConfig{
			Agents: []AgentDispatch{{AgentName: p.AgentName}},
		}
	}

	return i.sign(claims, p.Identity, ttl)
}

// MintAdmin creates a short-lived credential authorizing provider API calls
// (egress control and room administration).
func (i *Issuer) MintAdmin() (string, error) {
	claims := &Claims{
		Video: &VideoGrant{
			RoomAdmin:  true,
			RoomRecord: true,
			RoomList:   true,
		},
	}

	return i.sign(claims, i.apiKey, adminTTL)
}

// sign fills the registered claims and produces the HS256-signed string.
func (i *Issuer) sign(claims *Claims, subject string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims.StandardClaims = jwt.StandardClaims{
		ExpiresAt: now.Add(ttl).Unix(),
		NotBefore: now.Unix(),
		IssuedAt:  now.Unix(),
		Issuer:    i.apiKey,
		Subject:   subject,
		Id:        subject,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return tok.SignedString([]byte(i.apiSecret))
}

// Parse validates a credential string and returns its claims. Used by tests
// and diagnostic tooling; the transport provider performs its own validation.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(i.apiSecret), nil
	})

	if err != nil {
		return nil, err
	}

	if !tok.Valid {
		return nil, errors.New("invalid or expired token")
	}

	return claims, nil
}
