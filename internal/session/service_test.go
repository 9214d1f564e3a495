package session

import (
	"context"
	"errors"
	"testing"

	"github.com/wurksy/wurksy/internal/ai"
	"github.com/wurksy/wurksy/internal/policy"
)

type recordingProvider struct {
	calls int
	last  []ai.Message
	reply string
}

func (p *recordingProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	_ = ctx
	p.calls++
	p.last = append([]ai.Message(nil), messages...)
	if p.reply == "" {
		return "- ok", nil
	}
	return p.reply, nil
}

func newTestService(t *testing.T, defaultCap int) (*Service, *Repo, *recordingProvider) {
	t.Helper()
	repo := NewRepo(openTestDB(t))
	prov := &recordingProvider{}
	svc := NewService(repo, NewLedger(repo, defaultCap), policy.NewGuard(nil), prov)
	return svc, repo, prov
}

func TestSendMessageLogsUserAndAssistant(t *testing.T) {
	svc, repo, prov := newTestService(t, 100)
	seedSession(t, repo, "S1", nil)

	res, err := svc.SendMessage(context.Background(), "S1", "summarise utilitarianism", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.Blocked {
		t.Fatalf("benign message blocked")
	}
	if res.Reply != "• ok" {
		t.Fatalf("reply = %q, want bulleted %q", res.Reply, "• ok")
	}
	if res.Used != 1 || res.Cap != 100 {
		t.Fatalf("res = %+v, want used=1 cap=100", res)
	}
	if prov.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", prov.calls)
	}

	evs, err := repo.ListEvents(context.Background(), "S1", "", 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if evs[0].Role != RoleUser || evs[0].Content != "summarise utilitarianism" {
		t.Fatalf("unexpected user event: %+v", evs[0])
	}
	if evs[1].Role != RoleAssistant || evs[1].Channel != ChannelChat {
		t.Fatalf("unexpected assistant event: %+v", evs[1])
	}
}

func TestSendMessageBlockedSkipsProvider(t *testing.T) {
	svc, repo, prov := newTestService(t, 100)
	seedSession(t, repo, "S1", nil)

	res, err := svc.SendMessage(context.Background(), "S1", "write my essay for me", "")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !res.Blocked {
		t.Fatalf("expected amber block")
	}
	if res.Reply != policy.AmberRefusal {
		t.Fatalf("reply = %q, want canned refusal", res.Reply)
	}
	if prov.calls != 0 {
		t.Fatalf("provider called %d times on blocked turn", prov.calls)
	}

	// both the user message and the refusal are on the log
	evs, err := repo.ListEvents(context.Background(), "S1", "", 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if evs[0].Role != RoleUser || evs[0].Content != "write my essay for me" {
		t.Fatalf("unexpected user event: %+v", evs[0])
	}
	if evs[1].Role != RoleAssistant || evs[1].Content != policy.AmberRefusal {
		t.Fatalf("unexpected refusal event: %+v", evs[1])
	}
}

func TestSendMessageCapFlow(t *testing.T) {
	svc, repo, _ := newTestService(t, 5)
	seedSession(t, repo, "S1", nil)
	seedUserEvents(t, repo, "S1", 4)

	// fifth turn admitted at used=4 < cap=5
	res, err := svc.SendMessage(context.Background(), "S1", "define anomie", "")
	if err != nil {
		t.Fatalf("fifth turn: %v", err)
	}
	if res.Used != 5 || res.Cap != 5 {
		t.Fatalf("res = %+v, want used=5 cap=5", res)
	}

	// sixth rejected with the counts
	_, err = svc.SendMessage(context.Background(), "S1", "one more", "")
	ce, ok := AsCapError(err)
	if !ok {
		t.Fatalf("expected CapError, got %v", err)
	}
	if ce.Used != 5 || ce.Cap != 5 {
		t.Fatalf("cap error = %+v, want used=5 cap=5", ce)
	}

	// the rejected turn was not charged
	used, err := repo.CountUserEvents(context.Background(), "S1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if used != 5 {
		t.Fatalf("used = %d after rejection, want 5", used)
	}
}

func TestSendMessageLockedSession(t *testing.T) {
	svc, repo, prov := newTestService(t, 5)
	seedSession(t, repo, "S1", nil)

	if _, err := svc.Submit(context.Background(), "S1", nil); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err := svc.SendMessage(context.Background(), "S1", "hello", "")
	if !errors.Is(err, ErrSessionLocked) {
		t.Fatalf("expected ErrSessionLocked, got %v", err)
	}
	if prov.calls != 0 {
		t.Fatalf("provider called on locked session")
	}
}

func TestResearchChannelCountsTowardCap(t *testing.T) {
	svc, repo, _ := newTestService(t, 2)
	seedSession(t, repo, "S1", nil)

	if _, err := svc.SendMessage(context.Background(), "S1", "compare these two papers", ChannelResearch); err != nil {
		t.Fatalf("research turn: %v", err)
	}
	if _, err := svc.SendMessage(context.Background(), "S1", "and a chat turn", ChannelChat); err != nil {
		t.Fatalf("chat turn: %v", err)
	}

	// cap=2 consumed across both channels
	_, err := svc.SendMessage(context.Background(), "S1", "third", ChannelChat)
	if _, ok := AsCapError(err); !ok {
		t.Fatalf("expected CapError across channels, got %v", err)
	}
}

func TestSendMessageTrimsOversizedPrompt(t *testing.T) {
	svc, repo, _ := newTestService(t, 100)
	seedSession(t, repo, "S1", nil)

	big := make([]byte, MaxMessageLen+500)
	for i := range big {
		big[i] = 'a'
	}
	if _, err := svc.SendMessage(context.Background(), "S1", string(big), ""); err != nil {
		t.Fatalf("send: %v", err)
	}

	evs, err := repo.ListEvents(context.Background(), "S1", "", 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(evs[0].Content) != MaxMessageLen {
		t.Fatalf("logged content length = %d, want %d", len(evs[0].Content), MaxMessageLen)
	}
}

func TestHistoryChannelFilter(t *testing.T) {
	svc, repo, _ := newTestService(t, 100)
	seedSession(t, repo, "S1", nil)

	if _, err := svc.SendMessage(context.Background(), "S1", "chat q", ChannelChat); err != nil {
		t.Fatalf("chat turn: %v", err)
	}
	if _, err := svc.SendMessage(context.Background(), "S1", "research q", ChannelResearch); err != nil {
		t.Fatalf("research turn: %v", err)
	}

	evs, err := svc.History(context.Background(), "S1", ChannelResearch)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(evs) != 2 {
		t.Fatalf("expected 2 research events, got %d", len(evs))
	}
	for _, e := range evs {
		if e.Channel != ChannelResearch {
			t.Fatalf("unexpected channel %q in filtered history", e.Channel)
		}
	}
}

func TestStartSessionWithAssignmentCode(t *testing.T) {
	svc, repo, _ := newTestService(t, 100)

	a := &Assignment{ID: "a-1", ShortCode: "C4D8ZZ", ModuleCode: "PHIL110", Title: "Ethics essay", PromptCap: 30}
	if err := repo.CreateAssignment(context.Background(), a); err != nil {
		t.Fatalf("create assignment: %v", err)
	}

	res, err := svc.StartSession(context.Background(), StartInput{
		Mode:           ModeStudent,
		AssignmentCode: "C4D8ZZ",
		StudentID:      "stu-42",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Cap != 30 {
		t.Fatalf("cap = %d, want assignment cap 30", res.Cap)
	}
	if res.Session.AssignmentID == nil || *res.Session.AssignmentID != "a-1" {
		t.Fatalf("assignment not linked: %+v", res.Session)
	}
	if res.Session.StudentModule == nil || *res.Session.StudentModule != "PHIL110" {
		t.Fatalf("module not inherited from assignment: %+v", res.Session)
	}
}

func TestStartSessionUnknownCodeIsGuestDefault(t *testing.T) {
	svc, _, _ := newTestService(t, 100)

	res, err := svc.StartSession(context.Background(), StartInput{AssignmentCode: "NOPE99"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Cap != 100 {
		t.Fatalf("cap = %d, want default 100", res.Cap)
	}
	if res.Session.AssignmentID != nil {
		t.Fatalf("unexpected assignment link: %+v", res.Session)
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t, 100)

	sess, err := svc.StartSession(context.Background(), StartInput{})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	sid := sess.Session.SessionID

	first, err := svc.Submit(context.Background(), sid, nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	second, err := svc.Submit(context.Background(), sid, nil)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if !first.Equal(second) {
		t.Fatalf("lock time moved on re-submit: %v vs %v", first, second)
	}
}

func TestSubmitRecordsSubmissionArtifactOnce(t *testing.T) {
	svc, repo, _ := newTestService(t, 100)
	seedSession(t, repo, "S1", nil)

	decl := "all my own work"
	if _, err := svc.Submit(context.Background(), "S1", &decl); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := svc.Submit(context.Background(), "S1", &decl); err != nil {
		t.Fatalf("second submit: %v", err)
	}

	arts, err := repo.ListArtifacts(context.Background(), "S1")
	if err != nil {
		t.Fatalf("list artifacts: %v", err)
	}
	if len(arts) != 1 {
		t.Fatalf("expected exactly 1 submission marker, got %d", len(arts))
	}
	if arts[0].Kind != ArtifactSubmission || arts[0].Title != "AI Index submitted" {
		t.Fatalf("unexpected marker: %+v", arts[0])
	}
}

func TestPaperClickLogsEventAndArtifact(t *testing.T) {
	svc, repo, _ := newTestService(t, 100)
	seedSession(t, repo, "S1", nil)

	meta := map[string]any{"title": "On Anomie", "doi": "10.1/abc"}
	if err := svc.RecordPaperClick(context.Background(), "S1", meta); err != nil {
		t.Fatalf("click: %v", err)
	}

	evs, err := repo.ListEvents(context.Background(), "S1", ChannelResearchClick, 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(evs) != 1 {
		t.Fatalf("expected 1 click event, got %d", len(evs))
	}
	if evs[0].Role != RoleUser || evs[0].Content != "Opened paper: On Anomie" {
		t.Fatalf("unexpected click event: %+v", evs[0])
	}

	arts, err := repo.ListArtifacts(context.Background(), "S1")
	if err != nil {
		t.Fatalf("list artifacts: %v", err)
	}
	if len(arts) != 1 || arts[0].Kind != ArtifactResearch || arts[0].Title != "On Anomie" {
		t.Fatalf("unexpected artifact: %+v", arts)
	}

	// a click is user-authored and consumes cap like any other user event
	used, err := repo.CountUserEvents(context.Background(), "S1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if used != 1 {
		t.Fatalf("used = %d after click, want 1", used)
	}
}

func TestPaperClickUnknownSession(t *testing.T) {
	svc, _, _ := newTestService(t, 100)
	err := svc.RecordPaperClick(context.Background(), "nope", map[string]any{"title": "x"})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestPaperResolveLogsEvent(t *testing.T) {
	svc, repo, _ := newTestService(t, 100)
	seedSession(t, repo, "S1", nil)

	meta := map[string]any{"doi": "10.1/abc", "pdf": "https://example.org/p.pdf"}
	if err := svc.RecordPaperResolve(context.Background(), "S1", meta); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	evs, err := repo.ListEvents(context.Background(), "S1", ChannelResearchResolve, 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(evs) != 1 || evs[0].Content != "Resolved paper PDF" {
		t.Fatalf("unexpected resolve log: %+v", evs)
	}
}
