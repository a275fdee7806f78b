package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// SigningSummary is the human-readable context handed to the approval UI
// before a signing method touches the key store.
type SigningSummary struct {
	Origin  string
	Method  string
	From    string
	To      string
	// ValueEther is the transaction value rendered in ether, zero for
	// message signing.
	ValueEther decimal.Decimal
	// Preview is a short rendering of the payload (message text, typed data
	// domain, or tx destination).
	Preview string
}

// Approver is the user-facing approval collaborator. Both methods block
// until the user decides or ctx ends; a decline is core.ErrUserRejected.
type Approver interface {
	// ApproveConnection asks the user to connect an origin. It returns the
	// address the user selected for the grant.
	ApproveConnection(ctx context.Context, origin, address string) (string, error)

	// ApproveSigning asks the user to confirm a signing request.
	ApproveSigning(ctx context.Context, summary SigningSummary) error
}
