package saga

import (
	"context"
	"fmt"

	"github.com/p-n-ai/pai-content/internal/content"
	"github.com/p-n-ai/pai-content/internal/store"
)

// UpdateDayStatus sets the completion status of a day_content row.
func UpdateDayStatus(ctx context.Context, s store.Store, dayID string, status content.CompletionStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown completion status %q", content.ErrInvalidPayload, status)
	}

	ok, err := s.Update(ctx, store.DayContent, dayID, store.Data{"completion_status": string(status)})
	if err == nil && !ok {
		err = store.ErrNotFound
	}
	if err != nil {
		return &content.PersistenceError{Entity: string(store.DayContent), Op: "update", Err: err}
	}
	return nil
}
