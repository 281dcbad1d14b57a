package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/EwwwzhI/ActionPlus/internal/datekey"
)

var (
	ErrInvalidPlanType = errors.New("model: invalid plan type")
	ErrInvalidOrigin   = errors.New("model: invalid task origin")
	ErrEarnedOverMax   = errors.New("model: earned points exceed max points")
)

type PlanType string

const (
	PlanDaily    PlanType = "daily"
	PlanLongterm PlanType = "longterm"
)

func (p PlanType) IsValid() bool {
	switch p {
	case PlanDaily, PlanLongterm:
		return true
	default:
		return false
	}
}

func (p PlanType) Label() string {
	if p == PlanLongterm {
		return "长期任务"
	}
	return "每日任务"
}

type OriginKind string

const (
	OriginAdhoc    OriginKind = "adhoc"
	OriginTemplate OriginKind = "template"
)

// TaskOrigin records whether a task was entered by hand or spawned from a
// template. The template link is weak: the template may be gone.
type TaskOrigin struct {
	Kind       OriginKind
	TemplateID string
}

func AdhocOrigin() TaskOrigin { return TaskOrigin{Kind: OriginAdhoc} }

func FromTemplate(id string) TaskOrigin {
	if strings.TrimSpace(id) == "" {
		return AdhocOrigin()
	}
	return TaskOrigin{Kind: OriginTemplate, TemplateID: id}
}

func (o TaskOrigin) IsTemplate() bool {
	return o.Kind == OriginTemplate && o.TemplateID != ""
}

type Task struct {
	ID           string
	Title        string
	GroupID      string
	PlanType     PlanType
	Origin       TaskOrigin
	DetailNote   string
	DeadlineDate string
	MaxPoints    int
	EarnedPoints *int
	SettledAt    *time.Time
	Note         string
	Completed    bool
	TargetDate   string
	CreatedAt    time.Time
}

// SourceTemplateID returns the generating template, if any.
func (t Task) SourceTemplateID() (string, bool) {
	if !t.Origin.IsTemplate() {
		return "", false
	}
	return t.Origin.TemplateID, true
}

func (t Task) IsSettled() bool { return t.EarnedPoints != nil }

// Earned is the settled value, 0 when unsettled.
func (t Task) Earned() int {
	if t.EarnedPoints == nil {
		return 0
	}
	return *t.EarnedPoints
}

// EffectiveDateKey is the day a settled task counts towards: the settlement
// day, else the daily target date. ok is false when neither is known.
func (t Task) EffectiveDateKey() (string, bool) {
	if t.SettledAt != nil && !t.SettledAt.IsZero() {
		return datekey.FromTimestamp(*t.SettledAt), true
	}
	if t.PlanType == PlanDaily && t.TargetDate != "" {
		return t.TargetDate, true
	}
	return "", false
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("model: task title is required")
	}
	if !t.PlanType.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPlanType, t.PlanType)
	}
	switch t.Origin.Kind {
	case OriginAdhoc:
	case OriginTemplate:
		if t.Origin.TemplateID == "" {
			return fmt.Errorf("%w: template origin without template id", ErrInvalidOrigin)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOrigin, t.Origin.Kind)
	}
	if t.MaxPoints < 0 {
		return errors.New("model: max points must not be negative")
	}
	if t.EarnedPoints != nil && (*t.EarnedPoints < 0 || *t.EarnedPoints > t.MaxPoints) {
		return fmt.Errorf("%w: %d > %d", ErrEarnedOverMax, *t.EarnedPoints, t.MaxPoints)
	}
	if t.PlanType == PlanDaily && t.DeadlineDate != "" {
		return errors.New("model: deadline_date is only valid for longterm tasks")
	}
	if t.PlanType == PlanLongterm && t.TargetDate != "" {
		return errors.New("model: target_date is only valid for daily tasks")
	}
	if t.CreatedAt.IsZero() {
		return errors.New("model: task created_at is required")
	}
	return nil
}

const DefaultGroupID = "group_default"

const DefaultGroupColor = "#0E7490"

type TaskGroup struct {
	ID        string
	Name      string
	Color     string
	CreatedAt time.Time
}

// DefaultGroup is the sentinel group that always exists.
func DefaultGroup() TaskGroup {
	return TaskGroup{ID: DefaultGroupID, Name: "默认", Color: DefaultGroupColor, CreatedAt: time.UnixMilli(0)}
}

// GroupColors is the palette offered when creating groups.
var GroupColors = []struct {
	Name  string
	Value string
}{
	{"blue", "#0E7490"},
	{"green", "#16A34A"},
	{"orange", "#F97316"},
	{"purple", "#7C3AED"},
	{"pink", "#DB2777"},
	{"gray", "#64748B"},
}

// ResolveColor maps a palette name to its hex value; anything else is
// returned trimmed.
func ResolveColor(v string) string {
	v = strings.TrimSpace(v)
	for _, c := range GroupColors {
		if strings.EqualFold(c.Name, v) {
			return c.Value
		}
	}
	return v
}

type TaskTemplate struct {
	ID        string
	Title     string
	GroupID   string
	PlanType  PlanType
	MaxPoints int
	AutoDaily bool
	AutoRule  AutoRule
	CreatedAt time.Time
}

type TemplateKey struct {
	GroupID   string
	PlanType  PlanType
	Title     string
	MaxPoints int
}

func (t TaskTemplate) Key() TemplateKey {
	return TemplateKey{GroupID: t.GroupID, PlanType: t.PlanType, Title: t.Title, MaxPoints: t.MaxPoints}
}

// TemplateKeyOf is the key a template saved from task would have.
func TemplateKeyOf(task Task) TemplateKey {
	return TemplateKey{GroupID: task.GroupID, PlanType: task.PlanType, Title: task.Title, MaxPoints: task.MaxPoints}
}

type ArchiveSettings struct {
	CycleDays   int
	PeriodStart string
}

const DefaultCycleDays = 30

type ScoreArchive struct {
	ID          string
	TotalPoints int
	EndDate     string
	CreatedAt   time.Time
}
