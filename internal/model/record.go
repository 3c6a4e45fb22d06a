package model

import "time"

// RecordType distinguishes the two kinds of citizen report.  A red-flag
// alleges corruption; an intervention calls for government action.
type RecordType string

const (
	TypeRedFlag      RecordType = "red-flag"
	TypeIntervention RecordType = "intervention"
)

// Valid reports whether the record type is one of the known values.
func (t RecordType) Valid() bool {
	return t == TypeRedFlag || t == TypeIntervention
}

// Status is the lifecycle state of a record.  A record starts in draft
// and stays mutable to its owner until an admin moves it to one of the
// three review statuses, after which the owner can no longer touch it.
type Status string

const (
	StatusDraft              Status = "draft"
	StatusUnderInvestigation Status = "under_investigation"
	StatusRejected           Status = "rejected"
	StatusResolved           Status = "resolved"
)

// ParseStatus validates a raw status string.  Only the three review
// statuses are accepted; draft is the implicit initial state and is
// never a settable target.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusUnderInvestigation, StatusRejected, StatusResolved:
		return Status(s), true
	}
	return "", false
}

// Finalized reports whether the record has left draft.  A finalized
// record is immutable to its owner; only admins may keep moving it
// between review statuses.
func (s Status) Finalized() bool {
	return s != StatusDraft
}

// Record mirrors the `records` table.  UserID is the owning citizen and
// never changes after creation, as does CreatedAt.  Latitude/Longitude
// are optional; nil means the reporter gave no location.
type Record struct {
	ID          uint64     // records.id
	Type        RecordType // records.type
	Title       string     // records.title
	Description string     // records.description
	Status      Status     // records.status
	Latitude    *float64   // records.latitude (nullable)
	Longitude   *float64   // records.longitude (nullable)
	UserID      uint64     // records.user_id (owner, immutable)
	CreatedAt   time.Time  // records.created_at (set once)
	Media       []Media    // media rows attached to this record
}

// Media mirrors the `media` table.  A media row references its parent
// record and is removed together with it.  At least one of the two URLs
// is set.
type Media struct {
	ID       uint64  // media.id
	ImageURL *string // media.image_url (nullable)
	VideoURL *string // media.video_url (nullable)
	RecordID uint64  // media.record_id
}
