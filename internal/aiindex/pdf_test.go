package aiindex

import (
	"bytes"
	"testing"
	"time"

	"github.com/wurksy/wurksy/internal/policy"
	"github.com/wurksy/wurksy/internal/session"
)

func TestNormaliseEventsMergesChronologically(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	note := "saved paper"

	// deliberately out of order across both inputs
	events := []session.Event{
		{Role: session.RoleAssistant, Channel: session.ChannelChat, Content: "• reply", CreatedAt: t0.Add(2 * time.Minute)},
		{Role: session.RoleUser, Channel: session.ChannelChat, Content: "question", CreatedAt: t0},
	}
	artifacts := []session.Artifact{
		{Kind: "research_save", Title: "On Anomie", Content: &note, CreatedAt: t0.Add(time.Minute)},
	}

	timeline := NormaliseEvents(events, artifacts)
	if len(timeline) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(timeline))
	}
	for i := 1; i < len(timeline); i++ {
		if timeline[i].At.Before(timeline[i-1].At) {
			t.Fatalf("timeline out of order at %d: %+v", i, timeline)
		}
	}
	if timeline[0].Content != "question" || timeline[1].Kind != "research_save" {
		t.Fatalf("unexpected merge: %+v", timeline)
	}
	if timeline[1].Content != note {
		t.Fatalf("artifact content not preferred over title: %q", timeline[1].Content)
	}
}

func TestBuildProducesPDF(t *testing.T) {
	now := time.Now().UTC()
	doc := Document{
		Session: &session.Session{SessionID: "01TESTSESSION", Mode: session.ModeGuest, CreatedAt: now},
		Used:    3,
		Cap:     100,
		Risk:    policy.Summary{TotalScore: 3, Counts: map[string]int{"humanise_ai": 1}, Level: policy.LevelMedium},
		Timeline: []TimelineEntry{
			{At: now, Kind: session.ChannelChat, Role: session.RoleUser, Content: "humanise this"},
		},
	}

	pdf, err := Build(doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("output is not a pdf (got %q...)", pdf[:8])
	}
}

func TestBuildRequiresSession(t *testing.T) {
	if _, err := Build(Document{}); err == nil {
		t.Fatalf("expected error without a session")
	}
}
