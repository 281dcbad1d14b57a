package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("storage: not found")

type Repository interface {
	LoadStateBlob(ctx context.Context, key string) (StateBlob, error)
	SaveStateBlob(ctx context.Context, in StateBlob) error

	CreateReminder(ctx context.Context, in Reminder) error
	GetReminder(ctx context.Context, id string) (Reminder, error)
	MarkReminderFired(ctx context.Context, id string, at time.Time) error
	DeleteReminder(ctx context.Context, id string) error
	ListReminders(ctx context.Context, filter ReminderListFilter) ([]Reminder, error)
}
