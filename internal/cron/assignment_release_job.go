package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/orderdeskhq/orderdesk-backend/internal/orders"
	"github.com/orderdeskhq/orderdesk-backend/pkg/db/models"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
)

const defaultAssignmentStaleTTL = 24 * time.Hour

// AssignmentReleaseJobParams configure the stale assignment sweeper.
type AssignmentReleaseJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Assignments staleAssignmentReader
	Orders      orders.Repository
	StaleTTL    time.Duration
}

type staleAssignmentReader interface {
	FindStaleActive(ctx context.Context, cutoff time.Time) ([]models.Assignment, error)
}

// NewAssignmentReleaseJob builds the safety net that releases assignments
// whose order reached a terminal state without the release effect landing.
func NewAssignmentReleaseJob(params AssignmentReleaseJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Assignments == nil {
		return nil, fmt.Errorf("assignments reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders reader required")
	}
	staleTTL := params.StaleTTL
	if staleTTL <= 0 {
		staleTTL = defaultAssignmentStaleTTL
	}
	return &assignmentReleaseJob{
		logg:        params.Logger,
		db:          params.DB,
		assignments: params.Assignments,
		orders:      params.Orders,
		staleTTL:    staleTTL,
		now:         time.Now,
	}, nil
}

type assignmentReleaseJob struct {
	logg        *logger.Logger
	db          txRunner
	assignments staleAssignmentReader
	orders      orders.Repository
	staleTTL    time.Duration
	now         func() time.Time
}

func (j *assignmentReleaseJob) Name() string { return "assignment-release" }

func (j *assignmentReleaseJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.staleTTL)
	stale, err := j.assignments.FindStaleActive(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale assignments: %w", err)
	}

	released := 0
	var errs []error
	for _, assignment := range stale {
		ok, err := j.releaseIfTerminal(ctx, assignment)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			released++
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned":  len(stale),
		"released": released,
		"failed":   len(errs),
	})
	j.logg.Info(logCtx, "assignment release sweep complete")
	return multierr.Combine(errs...)
}

func (j *assignmentReleaseJob) releaseIfTerminal(ctx context.Context, assignment models.Assignment) (bool, error) {
	released := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.orders.WithTx(tx)
		order, err := repo.FindOrder(ctx, assignment.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				// orphaned assignment, release it
				released = true
				return repo.ReleaseAssignment(ctx, assignment.OrderID)
			}
			return fmt.Errorf("load order %s: %w", assignment.OrderID, err)
		}
		if !order.Status.IsTerminal() {
			return nil
		}
		released = true
		return repo.ReleaseAssignment(ctx, assignment.OrderID)
	})
	return released, err
}
