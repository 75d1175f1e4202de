package gradebook

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/whatif-grades-api/internal/models"
	appErrors "github.com/noah-isme/whatif-grades-api/pkg/errors"
)

// DetailFetcher performs the per-assignment detail lookup used as the second
// resolution stage.
type DetailFetcher interface {
	AssignmentDetail(ctx context.Context, courseID, assignmentID string) (*models.AssignmentDetail, error)
}

// Outcome describes how a resolution attempt ended.
type Outcome string

const (
	OutcomeSkipped     Outcome = "skipped"
	OutcomeListing     Outcome = "listing"
	OutcomeDetail      Outcome = "detail"
	OutcomeNotRequired Outcome = "not_required"
	OutcomeFailed      Outcome = "failed"
)

// ResolveAssignment fills the real score gaps of one assignment. The cached
// bulk listing is consulted first; the detail fetch only runs when points are
// no longer needed, since it can only supply max points. Fetch failures never
// escape: they end as OutcomeFailed with failedToLoad set, or as
// OutcomeNotRequired when the gap does not affect any aggregate.
func (c *Course) ResolveAssignment(ctx context.Context, assignmentID string, fetcher DetailFetcher) (Outcome, error) {
	a, ok := c.Assignment(assignmentID)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("assignment %s not found", assignmentID))
	}

	c.mu.Lock()
	if !a.unresolved() {
		c.mu.Unlock()
		return OutcomeSkipped, nil
	}
	listingErr := c.fillFromListing(a)
	if listingErr == nil {
		c.mu.Unlock()
		c.logger.Debug("loaded points from grade listing", zap.String("assignment_id", a.ID))
		return OutcomeListing, nil
	}
	tryDetail := !a.needPoints()
	c.mu.Unlock()

	var detailErr error
	if tryDetail && fetcher != nil {
		detail, err := fetcher.AssignmentDetail(ctx, c.ID, a.ID)
		switch {
		case err != nil:
			detailErr = err
		case detail == nil || !detail.MaxPoints.Valid():
			detailErr = appErrors.Clone(appErrors.ErrFetch, "detail returned without max points")
		default:
			maxPoints := *detail.MaxPoints.Value
			c.mu.Lock()
			a.maxPoints = &maxPoints
			c.mu.Unlock()
			c.logger.Debug("loaded max points from assignment detail", zap.String("assignment_id", a.ID))
			return OutcomeDetail, nil
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if a.shouldLoadMaxPoints() && !a.needMaxPoints() {
		c.logger.Warn("failed to load max points, assignment is not used in calculations",
			zap.String("assignment_id", a.ID), zap.NamedError("detail_error", detailErr))
		return OutcomeNotRequired, nil
	}

	a.failedToLoad = true
	c.logger.Error("failed to load points for "+c.describe(a),
		zap.NamedError("listing_error", listingErr),
		zap.NamedError("detail_error", detailErr))
	return OutcomeFailed, nil
}

// fillFromListing copies whichever missing fields the cached listing holds
// and reports an error unless the assignment ends up fully resolved.
func (c *Course) fillFromListing(a *Assignment) error {
	if c.listing == nil {
		return appErrors.Clone(appErrors.ErrFetch, "no cached grade listing for course "+c.ID)
	}
	entry, ok := c.listing.Find(a.ID)
	if !ok {
		return appErrors.Clone(appErrors.ErrFetch, "assignment "+a.ID+" missing from grade listing")
	}
	if a.needPoints() && entry.Grade.Valid() {
		v := *entry.Grade.Value
		a.points = &v
	}
	if a.shouldLoadMaxPoints() && entry.MaxPoints.Valid() {
		v := *entry.MaxPoints.Value
		a.maxPoints = &v
	}
	if a.needPoints() || a.shouldLoadMaxPoints() {
		return appErrors.Clone(appErrors.ErrFetch, "failed to load points from grade listing for assignment "+a.ID)
	}
	return nil
}
