package storage

import "time"

// StateKey is the blob key the aggregate is stored under.
const StateKey = "reward_plan_state_v1"

type StateBlob struct {
	Key       string
	Data      []byte
	UpdatedAt time.Time
}

// Reminder is one row of the scheduled reminder ledger. One-shot reminders
// carry TriggerAt; repeating ones fire daily at Hour:Minute.
type Reminder struct {
	ID        string
	Category  string
	Kind      string
	Title     string
	Body      string
	TaskIDs   []string
	TriggerAt *time.Time
	Repeating bool
	Hour      int
	Minute    int
	LastFired *time.Time
	CreatedAt time.Time
}

type ReminderListFilter struct {
	Category string
	Limit    int
	Offset   int
}
