package notify

import (
	"context"
	"errors"
)

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

// Notify delivers msg to every notifier, skipping nil entries.
func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
