package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/synopticspread/spread/internal/domain"
)

// Reset undoes a run's contribution to the catalog: it deletes runID's
// point_metrics rows from rel, and, when sweepArray is true, also drops
// every array-store object under prefix (see ArrayStore.DropTree). The
// array sweep is separate from the row deletion because a handle is
// shared storage — grid_snapshots rows aren't owned by a single run, so
// a crash between Put and the catalog commit for one run must not take
// another run's snapshots with it; callers pass sweepArray only when
// they know prefix scopes objects this run alone wrote (its own
// init_time, e.g. HandleKey's "{YYYYMMDDHH}/" prefix).
func Reset(ctx context.Context, rel *RelationalStore, arr *ArrayStore, runID uuid.UUID, prefix string, sweepArray bool) error {
	if sweepArray && arr == nil {
		return fmt.Errorf("%w: reset: sweepArray requested with no array store", domain.ErrStorageFailure)
	}
	if err := rel.DeleteRunMetrics(ctx, runID); err != nil {
		return err
	}
	if !sweepArray {
		return nil
	}
	return arr.DropTree(ctx, prefix)
}
