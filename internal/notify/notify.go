// Package notify delivers appointment notifications to patients and to
// other services. Every sender implements scheduling.Notifier.
package notify

import (
	"context"
	"errors"

	"github.com/hackgods/hospital-scheduling/internal/scheduling"
)

// Multi fans a notification out to every sender. All senders are tried;
// their errors are joined.
type Multi []scheduling.Notifier

func (m Multi) Notify(ctx context.Context, n scheduling.Notification) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
