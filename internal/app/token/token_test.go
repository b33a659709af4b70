package token

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func testIssuer() *Issuer {
	return NewIssuer("APIxyz", "secret-for-tests")
}

func TestFixedRoomIsIdenticalAcrossResolutions(t *testing.T) {
	route := RouteConfig{Naming: RoomNaming{Fixed: "DailySatsang"}}

	first, err := route.ResolveRoom("")
	if err != nil {
		t.Fatal(err)
	}
	second, err := route.ResolveRoom("someone")
	if err != nil {
		t.Fatal(err)
	}

	if first != "DailySatsang" || second != "DailySatsang" {
		t.Fatalf("fixed route must always resolve the identical room, got %q and %q", first, second)
	}
}

func TestGeneratedRoomsAreUnique(t *testing.T) {
	route := RouteConfig{Naming: RoomNaming{Prefix: "voice_assistant_room"}}

	first, err := route.ResolveRoom("")
	if err != nil {
		t.Fatal(err)
	}
	second, err := route.ResolveRoom("")
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(first, "voice_assistant_room_") {
		t.Fatalf("generated room missing prefix: %q", first)
	}
	if first == second {
		t.Fatalf("two resolutions produced the same room: %q", first)
	}
}

func TestGeneratedRoomEmbedsScope(t *testing.T) {
	route := RouteConfig{Naming: RoomNaming{Prefix: "guru"}}

	room, err := route.ResolveRoom("guru42")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(room, "guru_guru42_") {
		t.Fatalf("expected guru_guru42_ prefix, got %q", room)
	}
}

func TestMintParticipantGrant(t *testing.T) {
	iss := testIssuer()

	tok, err := iss.Mint(Params{
		Identity: "user_abc",
		Name:     "Asha",
		Room:     "DailySatsang",
		TTL:      time.Hour,
		Role:     RoleParticipant,
	})
	if err != nil {
		t.Fatal(err)
	}

	claims, err := iss.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}

	if claims.Subject != "user_abc" || claims.Id != "user_abc" {
		t.Fatalf("subject/jti mismatch: %q %q", claims.Subject, claims.Id)
	}
	if claims.Issuer != "APIxyz" {
		t.Fatalf("issuer must be the API key, got %q", claims.Issuer)
	}
	if claims.Name != "Asha" {
		t.Fatalf("unexpected name %q", claims.Name)
	}

	g := claims.Video
	if g == nil {
		t.Fatal("missing video grant")
	}
	if g.Room != "DailySatsang" || !g.RoomJoin {
		t.Fatalf("wrong room grant: %+v", g)
	}
	if g.CanPublish == nil || !*g.CanPublish {
		t.Fatal("participant must be able to publish")
	}
	if g.CanSubscribe == nil || !*g.CanSubscribe {
		t.Fatal("participant must be able to subscribe")
	}
	if g.CanPublishData == nil || !*g.CanPublishData {
		t.Fatal("participant must be able to publish data")
	}
	if g.RoomAdmin {
		t.Fatal("participant must not be room admin")
	}
	if claims.RoomConfig != nil {
		t.Fatal("no agent requested, roomConfig must be absent")
	}
}

func TestMintHostGrant(t *testing.T) {
	iss := testIssuer()

	tok, err := iss.Mint(Params{
		Identity: "host_1",
		Room:     "LiveSatsang",
		Role:     RoleHost,
	})
	if err != nil {
		t.Fatal(err)
	}

	claims, err := iss.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}

	g := claims.Video
	if !g.RoomAdmin {
		t.Fatal("host must be room admin")
	}
	if g.CanUpdateOwnMetadata == nil || !*g.CanUpdateOwnMetadata {
		t.Fatal("host must be able to update own metadata")
	}
}

func TestMintAgentDispatchAndMetadata(t *testing.T) {
	iss := testIssuer()

	tok, err := iss.Mint(Params{
		Identity:  "user_2",
		Room:      "guru_g1_abc_1",
		AgentName: "guruji-daily",
		Metadata: &Metadata{
			Language: "hi",
			GuruID:   "g1",
			PlanID:   "premium",
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	claims, err := iss.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}

	if claims.RoomConfig == nil || len(claims.RoomConfig.Agents) != 1 {
		t.Fatalf("expected one dispatched agent, got %+v", claims.RoomConfig)
	}
	if claims.RoomConfig.Agents[0].AgentName != "guruji-daily" {
		t.Fatalf("wrong agent name %q", claims.RoomConfig.Agents[0].AgentName)
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(claims.Metadata), &meta); err != nil {
		t.Fatalf("metadata is not valid JSON: %v", err)
	}
	if meta.Language != "hi" || meta.GuruID != "g1" || meta.PlanID != "premium" {
		t.Fatalf("metadata round trip failed: %+v", meta)
	}
}

func TestMintAdminGrant(t *testing.T) {
	iss := testIssuer()

	tok, err := iss.MintAdmin()
	if err != nil {
		t.Fatal(err)
	}

	claims, err := iss.Parse(tok)
	if err != nil {
		t.Fatal(err)
	}

	g := claims.Video
	if !g.RoomAdmin || !g.RoomRecord || !g.RoomList {
		t.Fatalf("admin grant incomplete: %+v", g)
	}
	if claims.Subject != "APIxyz" {
		t.Fatalf("admin subject must be the API key, got %q", claims.Subject)
	}
}

func TestMintRejectsMissingIdentityOrRoom(t *testing.T) {
	iss := testIssuer()

	if _, err := iss.Mint(Params{Room: "r"}); err == nil {
		t.Fatal("expected error for missing identity")
	}
	if _, err := iss.Mint(Params{Identity: "i"}); err == nil {
		t.Fatal("expected error for missing room")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, err := testIssuer().Mint(Params{Identity: "i", Room: "r"})
	if err != nil {
		t.Fatal(err)
	}

	other := NewIssuer("APIxyz", "a-different-secret")
	if _, err := other.Parse(tok); err == nil {
		t.Fatal("expected parse failure with wrong secret")
	}
}
