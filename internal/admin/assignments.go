package admin

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wurksy/wurksy/internal/session"
)

// Short codes avoid ambiguous glyphs (0/O, 1/I/L) so they survive being
// read out in a lecture hall.
const shortCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	shortCodeLen      = 6
	shortCodeAttempts = 8

	defaultAssignmentCap = 100
)

var ErrShortCodeExhausted = errors.New("admin: could not allocate a unique short code")

// Assignments creates and lists instructor work packages.
type Assignments struct {
	repo *session.Repo
}

func NewAssignments(repo *session.Repo) *Assignments {
	return &Assignments{repo: repo}
}

type AssignmentInput struct {
	ModuleCode      string                   `json:"module_code"`
	Title           string                   `json:"title"`
	Brief           string                   `json:"brief"`
	Deadline        *time.Time               `json:"deadline"`
	PromptCap       int                      `json:"prompt_cap"`
	RecommendedPDFs []session.RecommendedPDF `json:"recommended_pdfs"`
	CreatedBy       *string                  `json:"-"`
}

// Create validates the input, allocates a unique short code and stores the
// assignment. Assignments are immutable once created.
func (a *Assignments) Create(ctx context.Context, in AssignmentInput) (*session.Assignment, error) {
	in.ModuleCode = strings.TrimSpace(in.ModuleCode)
	in.Title = strings.TrimSpace(in.Title)
	if in.ModuleCode == "" || in.Title == "" {
		return nil, errors.New("admin: module code and title are required")
	}
	if in.PromptCap <= 0 {
		in.PromptCap = defaultAssignmentCap
	}

	code, err := a.allocateShortCode(ctx)
	if err != nil {
		return nil, err
	}

	out := &session.Assignment{
		ID:              uuid.NewString(),
		ShortCode:       code,
		ModuleCode:      in.ModuleCode,
		Title:           in.Title,
		Brief:           strings.TrimSpace(in.Brief),
		Deadline:        in.Deadline,
		PromptCap:       in.PromptCap,
		RecommendedPDFs: in.RecommendedPDFs,
		CreatedBy:       in.CreatedBy,
	}
	if err := a.repo.CreateAssignment(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Assignments) List(ctx context.Context, from, to *time.Time, limit, offset int) ([]session.Assignment, int64, error) {
	return a.repo.ListAssignments(ctx, from, to, limit, offset)
}

func (a *Assignments) allocateShortCode(ctx context.Context) (string, error) {
	for i := 0; i < shortCodeAttempts; i++ {
		code, err := randomShortCode()
		if err != nil {
			return "", err
		}
		taken, err := a.repo.ShortCodeTaken(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrShortCodeExhausted
}

func randomShortCode() (string, error) {
	buf := make([]byte, shortCodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("admin: short code entropy: %w", err)
	}
	out := make([]byte, shortCodeLen)
	for i, b := range buf {
		out[i] = shortCodeAlphabet[int(b)%len(shortCodeAlphabet)]
	}
	return string(out), nil
}
