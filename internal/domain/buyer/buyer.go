package buyer

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned by a Directory when no buyer has the given id.
var ErrNotFound = errors.New("buyer not found")

// Buyer is the identity placing a checkout.
type Buyer struct {
	ID   string
	Name string
}

// Directory looks up buyers. Identity management lives elsewhere.
type Directory interface {
	FindByID(ctx context.Context, id string) (*Buyer, error)
}
