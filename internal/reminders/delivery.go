package reminders

import (
	"context"
	"time"
)

// Category tags every reminder a Syncer owns so a resync only touches its
// own reminders.
type Category string

const (
	CategoryTask     Category = "task_reminder"
	CategoryLongterm Category = "longterm_reminder"
)

const (
	ChannelID   = "task-list"
	ChannelName = "任务清单"
)

type PermissionStatus string

const (
	PermissionGranted      PermissionStatus = "granted"
	PermissionDenied       PermissionStatus = "denied"
	PermissionUndetermined PermissionStatus = "undetermined"
)

// Payload is what the user sees plus the tag used to find it again.
type Payload struct {
	Category Category
	Kind     string
	Title    string
	Body     string
	TaskIDs  []string
}

// Scheduled describes a reminder the backend currently holds.
type Scheduled struct {
	Handle    string
	Category  Category
	At        time.Time
	Repeating bool
	Hour      int
	Minute    int
	Payload   Payload
}

// Delivery is the capability set a notification backend provides.
type Delivery interface {
	PermissionStatus(ctx context.Context) (PermissionStatus, error)
	RequestPermission(ctx context.Context) (PermissionStatus, error)
	EnsureChannel(ctx context.Context, id, name string) error
	ListScheduled(ctx context.Context, category Category) ([]Scheduled, error)
	Cancel(ctx context.Context, handle string) error
	ScheduleAt(ctx context.Context, at time.Time, payload Payload) (string, error)
	ScheduleRepeating(ctx context.Context, payload Payload, hour, minute int) (string, error)
}
