package session

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMarkdownToBullets(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "•"},
		{"\n\n", "•"},
		{"plain line", "• plain line"},
		{"# Heading\nbody", "• Heading\n• body"},
		{"**bold** and *em*", "• bold and em"},
		{"1. first\n2. second", "• first\n• second"},
		{"- dash\n* star\n• dot", "• dash\n• star\n• dot"},
		{"> quoted", "• quoted"},
		{"`code` inline", "• code inline"},
	}
	for _, tt := range tests {
		if got := MarkdownToBullets(tt.in); got != tt.want {
			t.Fatalf("MarkdownToBullets(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTrimMessage(t *testing.T) {
	short := "hello"
	if got := TrimMessage(short); got != short {
		t.Fatalf("short message modified: %q", got)
	}

	big := make([]byte, MaxMessageLen*2)
	for i := range big {
		big[i] = 'x'
	}
	if got := TrimMessage(string(big)); len(got) != MaxMessageLen {
		t.Fatalf("trimmed length = %d, want %d", len(got), MaxMessageLen)
	}
}

func TestTrimMessageKeepsValidUTF8(t *testing.T) {
	// é is two bytes; an odd-length prefix guarantees the byte cap lands
	// mid-rune
	msg := "x" + strings.Repeat("é", MaxMessageLen)
	got := TrimMessage(msg)

	if !utf8.ValidString(got) {
		t.Fatalf("trimmed message is not valid utf-8")
	}
	if len(got) > MaxMessageLen {
		t.Fatalf("trimmed length = %d, over the cap", len(got))
	}
	if len(got) < MaxMessageLen-utf8.UTFMax {
		t.Fatalf("trimmed length = %d, backed off too far", len(got))
	}
}
