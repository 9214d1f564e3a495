package aiindex

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/wurksy/wurksy/internal/policy"
	"github.com/wurksy/wurksy/internal/session"
)

// TimelineEntry is one row of the AI Index: a chat turn or a non-chat
// artifact, flattened into a common shape for rendering.
type TimelineEntry struct {
	At      time.Time
	Kind    string // "chat", "research", "lecture" or an artifact kind
	Role    string // empty for artifacts
	Content string
}

// Document is everything needed to render one session's AI Index.
type Document struct {
	Session    *session.Session
	Assignment *session.Assignment
	Used       int
	Cap        int
	Risk       policy.Summary
	Timeline   []TimelineEntry
}

// NormaliseEvents merges chat events and artifacts into one chronological
// timeline. Events arrive in whatever order the store returned them; the
// merge sorts explicitly and never trusts input order.
func NormaliseEvents(events []session.Event, artifacts []session.Artifact) []TimelineEntry {
	out := make([]TimelineEntry, 0, len(events)+len(artifacts))
	for _, e := range events {
		kind := e.Channel
		if kind == "" {
			kind = session.ChannelChat
		}
		out = append(out, TimelineEntry{
			At:      e.CreatedAt,
			Kind:    kind,
			Role:    e.Role,
			Content: e.Content,
		})
	}
	for _, a := range artifacts {
		content := a.Title
		if a.Content != nil && *a.Content != "" {
			content = *a.Content
		}
		out = append(out, TimelineEntry{
			At:      a.CreatedAt,
			Kind:    a.Kind,
			Content: content,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].At.Before(out[j].At)
	})
	return out
}

// Build renders the AI Index PDF: a cover block with session metadata, the
// usage and risk summary, then the full timeline. The index is a disclosure
// document a student attaches to their submission.
func Build(doc Document) ([]byte, error) {
	if doc.Session == nil {
		return nil, fmt.Errorf("aiindex: session is required")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "AI Usage Index", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Generated %s", time.Now().UTC().Format("2006-01-02 15:04 UTC"))), "", 1, "L", false, 0, "")
	pdf.Ln(4)
	pdf.SetTextColor(0, 0, 0)

	writeKV := func(k, v string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(42, 6, k, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 6, tr(v), "", "L", false)
	}

	writeKV("Session", doc.Session.SessionID)
	writeKV("Started", doc.Session.CreatedAt.UTC().Format(time.RFC3339))
	writeKV("Mode", doc.Session.Mode)
	if doc.Session.StudentID != nil && *doc.Session.StudentID != "" {
		writeKV("Student", *doc.Session.StudentID)
	}
	if doc.Assignment != nil {
		writeKV("Assignment", fmt.Sprintf("%s (%s) %s", doc.Assignment.Title, doc.Assignment.ShortCode, doc.Assignment.ModuleCode))
	}
	writeKV("Prompts used", fmt.Sprintf("%d of %d", doc.Used, doc.Cap))
	if doc.Session.LockedAt != nil {
		writeKV("Submitted", doc.Session.LockedAt.UTC().Format(time.RFC3339))
	}
	if doc.Session.Declaration != nil && *doc.Session.Declaration != "" {
		writeKV("Declaration", *doc.Session.Declaration)
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Integrity summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 6, tr(fmt.Sprintf("Risk level: %s (score %d)", doc.Risk.Level, doc.Risk.TotalScore)), "", "L", false)
	if len(doc.Risk.Counts) > 0 {
		codes := make([]string, 0, len(doc.Risk.Counts))
		for c := range doc.Risk.Counts {
			codes = append(codes, c)
		}
		sort.Strings(codes)
		parts := make([]string, 0, len(codes))
		for _, c := range codes {
			parts = append(parts, fmt.Sprintf("%s x%d", c, doc.Risk.Counts[c]))
		}
		pdf.MultiCell(0, 6, tr("Flags: "+strings.Join(parts, ", ")), "", "L", false)
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Timeline", "", 1, "L", false, 0, "")

	if len(doc.Timeline) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 6, "No recorded activity.", "", "L", false)
	}
	for _, entry := range doc.Timeline {
		label := entry.Kind
		if entry.Role != "" {
			label = fmt.Sprintf("%s/%s", entry.Kind, entry.Role)
		}
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetTextColor(70, 70, 70)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("%s  [%s]", entry.At.UTC().Format("2006-01-02 15:04:05"), label)), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(entry.Content), "", "L", false)
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("aiindex: render: %w", err)
	}
	return buf.Bytes(), nil
}
