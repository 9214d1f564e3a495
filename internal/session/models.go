package session

import "time"

// Event roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Event channels. Every user-authored event counts toward the prompt cap
// regardless of channel; the channel only partitions the stream by feature
// area.
const (
	ChannelChat            = "chat"
	ChannelResearch        = "research"
	ChannelResearchSearch  = "research_search"
	ChannelResearchClick   = "research_click"
	ChannelResearchResolve = "research_resolve"
	ChannelLecture         = "lecture"
	ChannelLectureUpload   = "lecture_upload"
	ChannelArtifact        = "artifact"
)

// Session modes.
const (
	ModeGuest   = "guest"
	ModeStudent = "student"
)

// Artifact kinds.
const (
	ArtifactResearch   = "research"
	ArtifactSubmission = "submission"
)

// Session is one continuous unit of student work, optionally bound to an
// assignment. Locked sessions accept no further chat turns.
type Session struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID string `gorm:"type:varchar(26);uniqueIndex;not null" json:"id"`
	Mode      string `gorm:"type:varchar(16);not null;default:guest" json:"mode"`

	StudentID     *string `gorm:"type:varchar(64)" json:"student_id"`
	StudentModule *string `gorm:"type:varchar(64)" json:"student_module"`

	AssignmentID   *string `gorm:"type:varchar(36);index" json:"assignment_id"`
	AssignmentCode *string `gorm:"type:varchar(16)" json:"assignment_code"`

	// Cap at session start, kept for display. Cap enforcement always
	// re-reads the assignment row; this value never gates anything.
	CapSnapshot *int `gorm:"" json:"cap_snapshot,omitempty"`

	Declaration *string    `gorm:"type:text" json:"declaration"`
	LockedAt    *time.Time `gorm:"index" json:"locked_at"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (Session) TableName() string { return "sessions" }

// Event is one immutable record in a session's append-only log.
type Event struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string         `gorm:"type:varchar(26);not null;index:idx_events_session_role,priority:1" json:"session_id"`
	Role      string         `gorm:"type:varchar(16);not null;index:idx_events_session_role,priority:2" json:"role"`
	Channel   string         `gorm:"type:varchar(24);not null;default:chat" json:"channel"`
	Content   string         `gorm:"type:text;not null" json:"content"`
	Meta      map[string]any `gorm:"serializer:json" json:"meta,omitempty"`
	Tokens    *int           `json:"tokens,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

func (Event) TableName() string { return "chat_events" }

// RecommendedPDF is one instructor-suggested reading on an assignment.
type RecommendedPDF struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Assignment is an instructor-defined work package. Immutable after
// creation; the short code is the student-facing handle.
type Assignment struct {
	ID         string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ShortCode  string `gorm:"type:varchar(16);uniqueIndex;not null" json:"short_code"`
	ModuleCode string `gorm:"type:varchar(64);not null" json:"module_code"`
	Title      string `gorm:"type:varchar(255);not null" json:"title"`
	Brief      string `gorm:"type:text" json:"brief"`

	Deadline  *time.Time `json:"deadline"`
	PromptCap int        `gorm:"not null;default:100" json:"prompt_cap"`

	RecommendedPDFs []RecommendedPDF `gorm:"serializer:json" json:"recommended_pdfs,omitempty"`

	CreatedBy *string   `gorm:"type:varchar(64)" json:"created_by"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Assignment) TableName() string { return "assignments" }

// Artifact is a non-chat occurrence attached to a session (lecture upload,
// research save, submission marker). Rendered into the AI Index timeline.
type Artifact struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string         `gorm:"type:varchar(26);not null;index" json:"session_id"`
	Kind      string         `gorm:"type:varchar(24);not null" json:"kind"`
	Title     string         `gorm:"type:varchar(255)" json:"title"`
	Meta      map[string]any `gorm:"serializer:json" json:"meta,omitempty"`
	Content   *string        `gorm:"type:text" json:"content,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

func (Artifact) TableName() string { return "artifacts" }
