package kb

import "time"

// Person is a contact in the knowledge base. Email is the natural key:
// upserts match by exact email equality.
type Person struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Company   string    `json:"company,omitempty"`
	Role      string    `json:"role,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Project is a tracked initiative. Name is the natural key: upserts match
// case-insensitively, so "Apollo" and "apollo" are the same record.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Batch is a set of extracted entities headed for the resolver, usually the
// output of one model extraction over a thread.
type Batch struct {
	People   []Person  `json:"people,omitempty"`
	Projects []Project `json:"projects,omitempty"`
}
