// Package directory resolves user and category references by id.
package directory

import (
	"context"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
)

// Directory looks up the summaries embedded in event views.
// Both lookups fail with a model NotFound error for unknown ids.
type Directory interface {
	LookupUser(ctx context.Context, id string) (model.UserSummary, error)
	LookupCategory(ctx context.Context, id string) (model.CategorySummary, error)
}

// Registry is a Directory that also accepts new entries.
type Registry interface {
	Directory
	CreateUser(ctx context.Context, name, email string) (model.UserSummary, error)
	CreateCategory(ctx context.Context, name string) (model.CategorySummary, error)
}
