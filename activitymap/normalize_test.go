package activitymap_test

import (
	"testing"
	"time"

	auth "github.com/kachraalert/kachra-auth"
	"github.com/kachraalert/kachra-auth/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType: auth.ActivityEventLoginSuccess,
		UserID:    "user-100",
		SessionID: "sess-9",
		Metadata: map[string]any{
			"ip": "10.0.0.7",
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "user-100" {
		t.Fatalf("expected actor_id user-100, got %q", out.ActorID)
	}
	if out.Verb != string(auth.ActivityEventLoginSuccess) {
		t.Fatalf("expected verb %q, got %q", auth.ActivityEventLoginSuccess, out.Verb)
	}
	if out.ObjectType != "user" {
		t.Fatalf("expected object_type user, got %q", out.ObjectType)
	}
	if out.ObjectID != "user-100" {
		t.Fatalf("expected object_id user-100, got %q", out.ObjectID)
	}
	if out.Channel != "auth" {
		t.Fatalf("expected channel auth, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}

	if out.Metadata["ip"] != "10.0.0.7" {
		t.Fatalf("expected metadata ip 10.0.0.7, got %#v", out.Metadata["ip"])
	}
	if out.Metadata[activitymap.MetadataKeySessionID] != "sess-9" {
		t.Fatalf("expected metadata session_id sess-9, got %#v", out.Metadata[activitymap.MetadataKeySessionID])
	}
}

func TestNormalizeFallbacksAndOptions(t *testing.T) {
	t.Parallel()

	event := auth.ActivityEvent{
		EventType: auth.ActivityEventLoginFailure,
		Metadata:  map[string]any{"email": "who@example.com"},
	}

	out := activitymap.Normalize(event,
		activitymap.WithDefaultChannel("security"),
		activitymap.WithDefaultObjectType("credential"),
		activitymap.WithActorFallback("anonymous"),
		activitymap.WithObjectIDResolver(func(e auth.ActivityEvent) string {
			if email, ok := e.Metadata["email"].(string); ok {
				return email
			}
			return ""
		}),
	)

	if out.ActorID != "anonymous" {
		t.Fatalf("expected actor fallback anonymous, got %q", out.ActorID)
	}
	if out.Channel != "security" {
		t.Fatalf("expected channel security, got %q", out.Channel)
	}
	if out.ObjectType != "credential" {
		t.Fatalf("expected object_type credential, got %q", out.ObjectType)
	}
	if out.ObjectID != "who@example.com" {
		t.Fatalf("expected resolved object id, got %q", out.ObjectID)
	}
	if out.OccurredAt.IsZero() {
		t.Fatal("expected occurred_at to be defaulted")
	}
}

func TestNormalizeDoesNotMutateEventMetadata(t *testing.T) {
	t.Parallel()

	event := auth.ActivityEvent{
		EventType: auth.ActivityEventLogout,
		UserID:    "user-1",
		SessionID: "sess-1",
		Metadata:  map[string]any{"ip": "127.0.0.1"},
	}

	out := activitymap.Normalize(event)
	out.Metadata["mutated"] = true

	if _, exists := event.Metadata["mutated"]; exists {
		t.Fatal("normalization must copy metadata, not share it")
	}
	if _, exists := event.Metadata[activitymap.MetadataKeySessionID]; exists {
		t.Fatal("session id must only appear on the normalized copy")
	}
}
