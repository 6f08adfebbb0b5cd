package invoice

import (
	"context"

	"github.com/xraph/factor/id"
)

// Store persists invoices.
type Store interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, invID id.InvoiceID) (*Invoice, error)
	List(ctx context.Context, opts ListOpts) ([]*Invoice, error)
	// UpdateIfStatus replaces inv only while the stored status still equals
	// expected. Implementations must make the check and the write atomic.
	UpdateIfStatus(ctx context.Context, inv *Invoice, expected Status) error
}
