package mail

import "time"

// ThreadStatus tracks where a thread sits in the reviewer's queue.
type ThreadStatus string

const (
	ThreadActive   ThreadStatus = "active"
	ThreadArchived ThreadStatus = "archived"
	ThreadSnoozed  ThreadStatus = "snoozed"
)

// DraftStatus tracks a draft's lifecycle. Sent and rejected are absorbing:
// no transition leaves them.
type DraftStatus string

const (
	// DraftPending means generated, awaiting the reviewer's gesture.
	DraftPending DraftStatus = "pending"

	// DraftApproved means the reviewer accepted it; eligible to send.
	DraftApproved DraftStatus = "approved"

	// DraftRejected means the reviewer discarded it. Terminal.
	DraftRejected DraftStatus = "rejected"

	// DraftSent means it went out. Terminal.
	DraftSent DraftStatus = "sent"
)

// Thread is one email conversation under review. Created by ingestion,
// mutated by dispatch outcomes, never deleted here.
type Thread struct {
	ID           string       `json:"id"`
	Subject      string       `json:"subject"`
	Participants []string     `json:"participants"`
	Status       ThreadStatus `json:"status"`
	Importance   string       `json:"importance,omitempty"`
	Summary      string       `json:"summary,omitempty"`
	DraftID      string       `json:"draft_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Draft is an AI-generated reply belonging to a thread. At most one pending
// draft exists per thread. Drafts are retired by terminal transitions, not
// physically deleted.
type Draft struct {
	ID        string      `json:"id"`
	ThreadID  string      `json:"thread_id"`
	Body      string      `json:"body"`
	Status    DraftStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	SentAt    time.Time   `json:"sent_at,omitempty"`
}

// Terminal reports whether the status is absorbing.
func (s DraftStatus) Terminal() bool {
	return s == DraftRejected || s == DraftSent
}
