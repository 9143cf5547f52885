package kb

import "context"

// Store is the persistence interface for knowledge-base records. Lookup by
// natural key is the resolver's matching primitive; lookups return copies.
type Store interface {
	GetPersonByEmail(ctx context.Context, email string) (*Person, bool, error)
	PutPerson(ctx context.Context, p *Person) error
	ListPeople(ctx context.Context) ([]Person, error)

	GetProjectByName(ctx context.Context, name string) (*Project, bool, error)
	PutProject(ctx context.Context, p *Project) error
	ListProjects(ctx context.Context) ([]Project, error)
}
