package domain

import "time"

// Status marks a metadata record as live or soft-deleted.
type Status string

const (
	StatusActive  Status = "active"
	StatusDeleted Status = "deleted"
)

// Analytics holds usage counters for a managed bookmark.
type Analytics struct {
	VisitCount int       `json:"visit_count"`
	LastVisit  time.Time `json:"last_visit"`
	Importance float64   `json:"importance"`
}

// Snapshot is a point-in-time copy of a deleted node's structural fields,
// sufficient to recreate it later under a new id.
type Snapshot struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	ParentID  string    `json:"parent_id"`
	Path      string    `json:"path"`
	DateAdded time.Time `json:"date_added"`
}

// Metadata is the extension-owned overlay record for one native node.
//
// It is keyed by the native id and lives entirely outside the structural
// tree. Snapshot is non-nil exactly when Status is StatusDeleted; a deleted
// record is never flipped back to active under the same id, it is either
// purged or superseded by a restore under a brand-new id.
type Metadata struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// ID equals the native node id this record overlays.
	ID string `json:"id"`

	// ─────────────────────────────
	// AI-derived fields
	// ─────────────────────────────

	AITags       []string `json:"ai_tags,omitempty"`
	AISummary    string   `json:"ai_summary,omitempty"`
	AICategory   string   `json:"ai_category,omitempty"`
	AIConfidence float64  `json:"ai_confidence,omitempty"`
	AIDifficulty string   `json:"ai_difficulty,omitempty"`
	AITechStack  []string `json:"ai_tech_stack,omitempty"`

	// ─────────────────────────────
	// User-owned fields
	// ─────────────────────────────

	UserTags  []string `json:"user_tags,omitempty"`
	UserNotes string   `json:"user_notes,omitempty"`
	Starred   bool     `json:"starred,omitempty"`
	Pinned    bool     `json:"pinned,omitempty"`

	Analytics Analytics `json:"analytics"`

	// ─────────────────────────────
	// Lifecycle
	// ─────────────────────────────

	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ImportSource string    `json:"import_source,omitempty"`

	Status   Status    `json:"status"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
}

// HasSignal reports whether the record carries non-default value worth
// preserving across a structural rebuild: an AI summary, or any AI or
// user tags.
func (m *Metadata) HasSignal() bool {
	return m.AISummary != "" || len(m.AITags) > 0 || len(m.UserTags) > 0
}

// Clone returns a deep copy. Slices are copied so callers can mutate the
// clone without aliasing the stored record.
func (m *Metadata) Clone() *Metadata {
	c := *m
	c.AITags = append([]string(nil), m.AITags...)
	c.AITechStack = append([]string(nil), m.AITechStack...)
	c.UserTags = append([]string(nil), m.UserTags...)
	if m.Snapshot != nil {
		snap := *m.Snapshot
		c.Snapshot = &snap
	}
	return &c
}

// MetadataPatch is a shallow-merge update. Nil fields are left untouched.
type MetadataPatch struct {
	AITags       *[]string `json:"ai_tags,omitempty"`
	AISummary    *string   `json:"ai_summary,omitempty"`
	AICategory   *string   `json:"ai_category,omitempty"`
	AIConfidence *float64  `json:"ai_confidence,omitempty"`
	AIDifficulty *string   `json:"ai_difficulty,omitempty"`
	AITechStack  *[]string `json:"ai_tech_stack,omitempty"`

	UserTags  *[]string `json:"user_tags,omitempty"`
	UserNotes *string   `json:"user_notes,omitempty"`
	Starred   *bool     `json:"starred,omitempty"`
	Pinned    *bool     `json:"pinned,omitempty"`

	Analytics *Analytics `json:"analytics,omitempty"`

	ImportSource *string `json:"import_source,omitempty"`
}

// Apply merges the patch into m. UpdatedAt is the caller's responsibility.
func (p *MetadataPatch) Apply(m *Metadata) {
	if p.AITags != nil {
		m.AITags = append([]string(nil), (*p.AITags)...)
	}
	if p.AISummary != nil {
		m.AISummary = *p.AISummary
	}
	if p.AICategory != nil {
		m.AICategory = *p.AICategory
	}
	if p.AIConfidence != nil {
		m.AIConfidence = *p.AIConfidence
	}
	if p.AIDifficulty != nil {
		m.AIDifficulty = *p.AIDifficulty
	}
	if p.AITechStack != nil {
		m.AITechStack = append([]string(nil), (*p.AITechStack)...)
	}
	if p.UserTags != nil {
		m.UserTags = append([]string(nil), (*p.UserTags)...)
	}
	if p.UserNotes != nil {
		m.UserNotes = *p.UserNotes
	}
	if p.Starred != nil {
		m.Starred = *p.Starred
	}
	if p.Pinned != nil {
		m.Pinned = *p.Pinned
	}
	if p.Analytics != nil {
		m.Analytics = *p.Analytics
	}
	if p.ImportSource != nil {
		m.ImportSource = *p.ImportSource
	}
}
