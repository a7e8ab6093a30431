package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/peto/internal/models"
)

// SwarmService runs application attempts across the target list
type SwarmService interface {
	// Run executes one full swarm pass and returns the aggregate report
	Run(ctx context.Context) (*models.RunReport, error)
}

// HealService applies the post-mortem hint-growth step
type HealService interface {
	// Heal reads the prior attempt's log and grows the hint pools.
	// Returns the updated state.
	Heal(ctx context.Context, attempt int) (*models.RunState, error)
}

// InboxService scans a mailbox for application receipt emails
type InboxService interface {
	// FindReceipt looks for a recent receipt matching the company.
	// Returns the subject line, or "" when none is found.
	FindReceipt(ctx context.Context, company string, since time.Time) (string, error)
}
