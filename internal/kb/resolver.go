// Package kb resolves extracted people and projects into the reviewer's
// knowledge base. Upserts are keyed by natural key (exact email for people,
// case-folded name for projects) and merge non-destructively: an incoming
// field only replaces a stored one when it actually carries a value.
package kb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
)

// Resolver owns entity upserts. It does not serialize concurrent upserts to
// the same natural key across calls; the system assumes a single active
// reviewer, so simultaneous writers are last-write-wins.
type Resolver struct {
	store  Store
	logger log.Logger
}

// NewResolver creates a resolver over the given store.
func NewResolver(store Store, logger log.Logger) *Resolver {
	if logger == nil {
		logger = log.Nop()
	}
	return &Resolver{store: store, logger: logger}
}

// UpsertPerson inserts or merges a person matched by exact email equality.
// Returns the stored record after the merge.
func (r *Resolver) UpsertPerson(ctx context.Context, in Person) (*Person, error) {
	if in.Email == "" {
		return nil, fmt.Errorf("upsert person: empty email")
	}

	existing, ok, err := r.store.GetPersonByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup person %q: %w", in.Email, err)
	}

	now := time.Now()
	if !ok {
		in.ID = ulid.Make().String()
		in.CreatedAt = now
		in.UpdatedAt = now
		if err := r.store.PutPerson(ctx, &in); err != nil {
			return nil, fmt.Errorf("insert person %q: %w", in.Email, err)
		}
		r.logger.Info(ctx, "person created", "email", in.Email, "id", in.ID)
		return &in, nil
	}

	mergeField(&existing.Name, in.Name)
	mergeField(&existing.Company, in.Company)
	mergeField(&existing.Role, in.Role)
	mergeField(&existing.Notes, in.Notes)
	existing.Tags = mergeTags(existing.Tags, in.Tags)
	existing.UpdatedAt = now

	if err := r.store.PutPerson(ctx, existing); err != nil {
		return nil, fmt.Errorf("update person %q: %w", in.Email, err)
	}
	r.logger.Info(ctx, "person merged", "email", in.Email, "id", existing.ID)
	return existing, nil
}

// UpsertProject inserts or merges a project matched case-insensitively by
// name. Returns the stored record after the merge.
func (r *Resolver) UpsertProject(ctx context.Context, in Project) (*Project, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("upsert project: empty name")
	}

	existing, ok, err := r.store.GetProjectByName(ctx, in.Name)
	if err != nil {
		return nil, fmt.Errorf("lookup project %q: %w", in.Name, err)
	}

	now := time.Now()
	if !ok {
		in.ID = ulid.Make().String()
		in.CreatedAt = now
		in.UpdatedAt = now
		if err := r.store.PutProject(ctx, &in); err != nil {
			return nil, fmt.Errorf("insert project %q: %w", in.Name, err)
		}
		r.logger.Info(ctx, "project created", "name", in.Name, "id", in.ID)
		return &in, nil
	}

	// The stored name keeps its original casing.
	mergeField(&existing.Description, in.Description)
	mergeField(&existing.Status, in.Status)
	mergeField(&existing.Notes, in.Notes)
	existing.Tags = mergeTags(existing.Tags, in.Tags)
	existing.UpdatedAt = now

	if err := r.store.PutProject(ctx, existing); err != nil {
		return nil, fmt.Errorf("update project %q: %w", in.Name, err)
	}
	r.logger.Info(ctx, "project merged", "name", existing.Name, "id", existing.ID)
	return existing, nil
}

// SaveExtractedEntities upserts a whole extraction batch. Bare person names
// without an address get a synthesized placeholder address so the upsert has
// a natural key; that is a heuristic, not a claim the address is real.
// Applying the same batch twice yields the same records.
func (r *Resolver) SaveExtractedEntities(ctx context.Context, batch Batch) error {
	for _, p := range batch.People {
		if p.Email == "" {
			p.Email = placeholderEmail(p.Name)
			if p.Email == "" {
				r.logger.Warn(ctx, "skipping person with no email or name")
				continue
			}
		}
		if _, err := r.UpsertPerson(ctx, p); err != nil {
			return err
		}
	}
	for _, pr := range batch.Projects {
		if pr.Name == "" {
			r.logger.Warn(ctx, "skipping project with no name")
			continue
		}
		if _, err := r.UpsertProject(ctx, pr); err != nil {
			return err
		}
	}
	return nil
}

// mergeField overwrites dst only when the incoming value is meaningful.
// Empty strings and the model's "N/A" filler never clobber stored data.
func mergeField(dst *string, incoming string) {
	if incoming == "" {
		return
	}
	if strings.EqualFold(strings.TrimSpace(incoming), "N/A") {
		return
	}
	*dst = incoming
}

// mergeTags unions two tag sets, preserving first-seen order for existing
// tags and sorting the additions for determinism.
func mergeTags(existing, incoming []string) []string {
	if len(incoming) == 0 {
		return existing
	}
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		seen[t] = true
	}
	var added []string
	for _, t := range incoming {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		added = append(added, t)
	}
	sort.Strings(added)
	return append(existing, added...)
}

// placeholderEmail synthesizes an address from a bare name: the first token,
// lowercased, at a reserved domain. Returns "" when there is no name.
func placeholderEmail(name string) string {
	fields := strings.Fields(strings.TrimSpace(name))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0]) + "@unknown.invalid"
}
