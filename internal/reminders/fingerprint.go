package reminders

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/EwwwzhI/ActionPlus/internal/model"
)

// Fingerprints are the hex SHA-256 of the JSON encoding of the input
// structs below. Field order is fixed by the struct declarations and tasks
// are sorted by id, so equal inputs always hash equal. Reordering or renaming
// fields changes every fingerprint and forces one full reschedule.

type fingerprintTask struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Rule  string `json:"rule"`
}

type periodicFingerprintInput struct {
	Category       Category          `json:"category"`
	Enabled        bool              `json:"enabled"`
	PeriodicHour   int               `json:"periodicHour"`
	PeriodicMinute int               `json:"periodicMinute"`
	SingleHour     int               `json:"singleHour"`
	SingleMinute   int               `json:"singleMinute"`
	Mode           string            `json:"mode"`
	DateMode       string            `json:"dateMode"`
	RepeatRule     string            `json:"repeatRule"`
	Repeating      bool              `json:"repeating"`
	Tasks          []fingerprintTask `json:"tasks"`
}

type longtermFingerprintInput struct {
	Category        Category          `json:"category"`
	Enabled         bool              `json:"enabled"`
	Hour            int               `json:"hour"`
	Minute          int               `json:"minute"`
	DeadlineOffsets []int             `json:"deadlineOffsets"`
	IntervalRule    string            `json:"intervalRule"`
	Tasks           []fingerprintTask `json:"tasks"`
}

// taskRule is the per-task input that changes trigger times.
func taskRule(t model.Task) string {
	if t.PlanType == model.PlanLongterm {
		return t.DeadlineDate
	}
	return t.TargetDate
}

func fingerprintTasks(tasks []model.Task) []fingerprintTask {
	out := make([]fingerprintTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, fingerprintTask{ID: t.ID, Title: t.Title, Rule: taskRule(t)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func hashJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// PeriodicFingerprint covers every input of the periodic plan.
func PeriodicFingerprint(s model.NotificationSettings, tasks []model.Task, repeating bool) string {
	s = s.Normalize()
	return hashJSON(periodicFingerprintInput{
		Category:       CategoryTask,
		Enabled:        s.Enabled,
		PeriodicHour:   s.PeriodicHour,
		PeriodicMinute: s.PeriodicMinute,
		SingleHour:     s.SingleHour,
		SingleMinute:   s.SingleMinute,
		Mode:           string(s.Mode),
		DateMode:       string(s.DateMode),
		RepeatRule:     string(s.RepeatRule),
		Repeating:      repeating,
		Tasks:          fingerprintTasks(tasks),
	})
}

// LongtermFingerprint covers every input of the longterm plan.
func LongtermFingerprint(s model.LongtermNotificationSettings, tasks []model.Task) string {
	s = s.Normalize()
	return hashJSON(longtermFingerprintInput{
		Category:        CategoryLongterm,
		Enabled:         s.Enabled,
		Hour:            s.Hour,
		Minute:          s.Minute,
		DeadlineOffsets: s.DeadlineOffsets,
		IntervalRule:    string(s.IntervalRule),
		Tasks:           fingerprintTasks(tasks),
	})
}
