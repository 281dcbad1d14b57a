package storage

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/EwwwzhI/ActionPlus/internal/datekey"
	"github.com/EwwwzhI/ActionPlus/internal/model"
	"github.com/EwwwzhI/ActionPlus/internal/state"
)

// Wire types pin the stored JSON layout. Instants are epoch milliseconds.

type wireState struct {
	Points                       int                      `json:"points"`
	Tasks                        []wireTask               `json:"tasks"`
	Templates                    []wireTemplate           `json:"templates"`
	Groups                       []wireGroup              `json:"groups"`
	Archives                     []wireArchive            `json:"archives"`
	ArchiveSettings              wireArchiveSettings      `json:"archiveSettings"`
	NotificationSettings         wireNotificationSettings `json:"notificationSettings"`
	LongtermNotificationSettings wireLongtermSettings     `json:"longtermNotificationSettings"`
}

type wireTask struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	GroupID          string `json:"groupId"`
	PlanType         string `json:"planType"`
	SourceTemplateID string `json:"sourceTemplateId,omitempty"`
	DetailNote       string `json:"detailNote,omitempty"`
	DeadlineDate     string `json:"deadlineDate,omitempty"`
	MaxPoints        int    `json:"maxPoints"`
	EarnedPoints     *int   `json:"earnedPoints"`
	SettledAt        *int64 `json:"settledAt"`
	Note             string `json:"note,omitempty"`
	Completed        bool   `json:"completed"`
	TargetDate       string `json:"targetDate,omitempty"`
	CreatedAt        int64  `json:"createdAt"`
}

type wireTemplate struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	GroupID   string `json:"groupId"`
	PlanType  string `json:"planType"`
	MaxPoints int    `json:"maxPoints"`
	AutoDaily bool   `json:"autoDaily"`
	AutoRule  string `json:"autoRule"`
	CreatedAt int64  `json:"createdAt"`
}

type wireGroup struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	CreatedAt int64  `json:"createdAt"`
}

type wireArchive struct {
	ID          string `json:"id"`
	TotalPoints int    `json:"totalPoints"`
	EndDate     string `json:"endDate"`
	CreatedAt   int64  `json:"createdAt"`
}

type wireArchiveSettings struct {
	CycleDays   int     `json:"cycleDays"`
	PeriodStart *string `json:"periodStart"`
}

type wireNotificationSettings struct {
	Enabled        bool     `json:"enabled"`
	PeriodicHour   int      `json:"periodicHour"`
	PeriodicMinute int      `json:"periodicMinute"`
	SingleHour     int      `json:"singleHour"`
	SingleMinute   int      `json:"singleMinute"`
	TaskIDs        []string `json:"taskIds"`
	Mode           string   `json:"mode"`
	DateMode       string   `json:"dateMode"`
	RepeatRule     string   `json:"repeatRule"`
}

type wireLongtermSettings struct {
	Enabled         bool     `json:"enabled"`
	Hour            int      `json:"hour"`
	Minute          int      `json:"minute"`
	TaskIDs         []string `json:"taskIds"`
	DeadlineOffsets []int    `json:"deadlineOffsets"`
	IntervalRule    string   `json:"intervalRule"`
}

// EncodeState serializes s in the stored layout.
func EncodeState(s state.State) ([]byte, error) {
	out := wireState{
		Points:    s.Points,
		Tasks:     make([]wireTask, 0, len(s.Tasks)),
		Templates: make([]wireTemplate, 0, len(s.Templates)),
		Groups:    make([]wireGroup, 0, len(s.Groups)),
		Archives:  make([]wireArchive, 0, len(s.Archives)),
		ArchiveSettings: wireArchiveSettings{
			CycleDays: s.ArchiveSettings.CycleDays,
		},
	}
	for _, t := range s.Tasks {
		templateID, _ := t.SourceTemplateID()
		w := wireTask{
			ID:               t.ID,
			Title:            t.Title,
			GroupID:          t.GroupID,
			PlanType:         string(t.PlanType),
			SourceTemplateID: templateID,
			DetailNote:       t.DetailNote,
			DeadlineDate:     t.DeadlineDate,
			MaxPoints:        t.MaxPoints,
			EarnedPoints:     t.EarnedPoints,
			Note:             t.Note,
			Completed:        t.Completed,
			TargetDate:       t.TargetDate,
			CreatedAt:        t.CreatedAt.UnixMilli(),
		}
		if t.SettledAt != nil {
			ms := t.SettledAt.UnixMilli()
			w.SettledAt = &ms
		}
		out.Tasks = append(out.Tasks, w)
	}
	for _, t := range s.Templates {
		out.Templates = append(out.Templates, wireTemplate{
			ID:        t.ID,
			Title:     t.Title,
			GroupID:   t.GroupID,
			PlanType:  string(t.PlanType),
			MaxPoints: t.MaxPoints,
			AutoDaily: t.AutoDaily,
			AutoRule:  string(t.AutoRule),
			CreatedAt: t.CreatedAt.UnixMilli(),
		})
	}
	for _, g := range s.Groups {
		out.Groups = append(out.Groups, wireGroup{ID: g.ID, Name: g.Name, Color: g.Color, CreatedAt: g.CreatedAt.UnixMilli()})
	}
	for _, a := range s.Archives {
		out.Archives = append(out.Archives, wireArchive{ID: a.ID, TotalPoints: a.TotalPoints, EndDate: a.EndDate, CreatedAt: a.CreatedAt.UnixMilli()})
	}
	if s.ArchiveSettings.PeriodStart != "" {
		start := s.ArchiveSettings.PeriodStart
		out.ArchiveSettings.PeriodStart = &start
	}
	ns := s.NotificationSettings
	out.NotificationSettings = wireNotificationSettings{
		Enabled:        ns.Enabled,
		PeriodicHour:   ns.PeriodicHour,
		PeriodicMinute: ns.PeriodicMinute,
		SingleHour:     ns.SingleHour,
		SingleMinute:   ns.SingleMinute,
		TaskIDs:        nonNil(ns.TaskIDs),
		Mode:           string(ns.Mode),
		DateMode:       string(ns.DateMode),
		RepeatRule:     string(ns.RepeatRule),
	}
	ls := s.LongtermNotificationSettings
	offsets := ls.DeadlineOffsets
	if offsets == nil {
		offsets = []int{}
	}
	out.LongtermNotificationSettings = wireLongtermSettings{
		Enabled:         ls.Enabled,
		Hour:            ls.Hour,
		Minute:          ls.Minute,
		TaskIDs:         nonNil(ls.TaskIDs),
		DeadlineOffsets: offsets,
		IntervalRule:    string(ls.IntervalRule),
	}
	return json.Marshal(out)
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// DecodeState reads stored JSON leniently. Malformed entries are dropped or
// replaced by defaults, legacy fields are migrated, and any document that is
// not a JSON object yields state.Initial(). now supplies today's key for
// daily tasks without a target date and the creation time of entries that
// lack one.
func DecodeState(raw []byte, now time.Time) state.State {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return state.Initial()
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return state.Initial()
	}
	root := object(doc)
	initial := state.Initial()
	todayKey := datekey.Format(now)

	groups := make([]model.TaskGroup, 0)
	for _, item := range root.objects("groups") {
		if g, ok := decodeGroup(item, now); ok {
			groups = append(groups, g)
		}
	}
	if !hasGroup(groups, model.DefaultGroupID) {
		groups = append([]model.TaskGroup{model.DefaultGroup()}, groups...)
	}
	groupIDs := make(map[string]bool, len(groups))
	for _, g := range groups {
		groupIDs[g.ID] = true
	}

	tasks := make([]model.Task, 0)
	for _, item := range root.objects("tasks") {
		if t, ok := decodeTask(item, todayKey, groupIDs, now); ok {
			tasks = append(tasks, t)
		}
	}
	templates := make([]model.TaskTemplate, 0)
	for _, item := range root.objects("templates") {
		if t, ok := decodeTemplate(item, now); ok {
			if !groupIDs[t.GroupID] {
				t.GroupID = model.DefaultGroupID
			}
			templates = append(templates, t)
		}
	}
	archives := make([]model.ScoreArchive, 0)
	for _, item := range root.objects("archives") {
		if a, ok := decodeArchive(item, now); ok {
			archives = append(archives, a)
		}
	}

	out := state.State{
		Points:                       initial.Points,
		Tasks:                        tasks,
		Templates:                    templates,
		Groups:                       groups,
		Archives:                     archives,
		ArchiveSettings:              decodeArchiveSettings(root.object("archiveSettings"), initial.ArchiveSettings),
		NotificationSettings:         decodeNotificationSettings(root.object("notificationSettings"), tasks),
		LongtermNotificationSettings: decodeLongtermSettings(root.object("longtermNotificationSettings"), tasks),
	}
	if v, ok := root.integer("points"); ok {
		out.Points = max(0, v)
	}
	return out
}

func decodeTask(o object, todayKey string, groupIDs map[string]bool, now time.Time) (model.Task, bool) {
	id, okID := o.str("id")
	title, okTitle := o.str("title")
	if !okID || !okTitle {
		return model.Task{}, false
	}
	rawPlan, _ := o.str("planType")
	plan := model.PlanType(rawPlan)
	switch {
	case rawPlan == "weekly" || rawPlan == "monthly":
		plan = model.PlanLongterm
	case !plan.IsValid():
		plan = model.PlanDaily
	}

	maxSource, ok := o.integer("maxPoints")
	if !ok {
		maxSource, _ = o.integer("points")
	}
	maxPoints := max(0, maxSource)

	t := model.Task{
		ID:        id,
		Title:     title,
		GroupID:   model.DefaultGroupID,
		PlanType:  plan,
		Origin:    model.AdhocOrigin(),
		MaxPoints: maxPoints,
		Completed: o.truthy("completed"),
		CreatedAt: o.millis("createdAt", now),
	}
	if g, ok := o.str("groupId"); ok && groupIDs[g] {
		t.GroupID = g
	}
	if src, ok := o.str("sourceTemplateId"); ok {
		t.Origin = model.FromTemplate(src)
	}
	if v, ok := o.integer("earnedPoints"); ok {
		earned := min(maxPoints, max(0, v))
		t.EarnedPoints = &earned
	}
	if v, ok := o.number("settledAt"); ok {
		at := time.UnixMilli(int64(v))
		t.SettledAt = &at
	}
	if note, ok := o.str("note"); ok {
		t.Note = strings.TrimSpace(note)
	}
	if detail, ok := o.str("detailNote"); ok {
		t.DetailNote = strings.TrimSpace(detail)
	}
	if plan == model.PlanDaily {
		t.TargetDate = todayKey
		if target, ok := o.str("targetDate"); ok {
			t.TargetDate = target
		}
	} else if deadline, ok := o.str("deadlineDate"); ok && datekey.Valid(deadline) {
		t.DeadlineDate = deadline
	}
	return t, true
}

func decodeTemplate(o object, now time.Time) (model.TaskTemplate, bool) {
	id, okID := o.str("id")
	title, okTitle := o.str("title")
	if !okID || !okTitle {
		return model.TaskTemplate{}, false
	}
	rawPlan, _ := o.str("planType")
	plan := model.PlanType(rawPlan)
	if !plan.IsValid() {
		plan = model.PlanDaily
	}
	maxSource, _ := o.integer("maxPoints")
	rawRule, _ := o.str("autoRule")
	rule, _ := model.ParseAutoRule(rawRule)
	groupID, ok := o.str("groupId")
	if !ok {
		groupID = model.DefaultGroupID
	}
	return model.TaskTemplate{
		ID:        id,
		Title:     title,
		GroupID:   groupID,
		PlanType:  plan,
		MaxPoints: max(0, maxSource),
		AutoDaily: o.truthy("autoDaily"),
		AutoRule:  rule,
		CreatedAt: o.millis("createdAt", now),
	}, true
}

func decodeGroup(o object, now time.Time) (model.TaskGroup, bool) {
	id, okID := o.str("id")
	name, okName := o.str("name")
	if !okID || !okName {
		return model.TaskGroup{}, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.TaskGroup{}, false
	}
	color := model.DefaultGroupColor
	if c, ok := o.str("color"); ok && strings.TrimSpace(c) != "" {
		color = strings.TrimSpace(c)
	}
	return model.TaskGroup{ID: id, Name: name, Color: color, CreatedAt: o.millis("createdAt", now)}, true
}

func decodeArchive(o object, now time.Time) (model.ScoreArchive, bool) {
	id, okID := o.str("id")
	end, okEnd := o.str("endDate")
	if !okID || !okEnd {
		return model.ScoreArchive{}, false
	}
	total, _ := o.integer("totalPoints")
	return model.ScoreArchive{ID: id, TotalPoints: max(0, total), EndDate: end, CreatedAt: o.millis("createdAt", now)}, true
}

func decodeArchiveSettings(o object, fallback model.ArchiveSettings) model.ArchiveSettings {
	if o == nil {
		return fallback
	}
	out := model.ArchiveSettings{CycleDays: model.DefaultCycleDays}
	if v, ok := o.integer("cycleDays"); ok {
		out.CycleDays = max(1, v)
	}
	if start, ok := o.str("periodStart"); ok {
		out.PeriodStart = start
	}
	return out
}

func decodeNotificationSettings(o object, tasks []model.Task) model.NotificationSettings {
	out := model.DefaultNotificationSettings()
	if o == nil {
		return out
	}
	if v, ok := o["enabled"].(bool); ok {
		out.Enabled = v
	}
	// Older documents kept a single hour/minute pair for the periodic time.
	out.PeriodicHour = o.clock("periodicHour", "hour", out.PeriodicHour, model.ClampHour)
	out.PeriodicMinute = o.clock("periodicMinute", "minute", out.PeriodicMinute, model.ClampMinute)
	out.SingleHour = o.clock("singleHour", "", out.SingleHour, model.ClampHour)
	out.SingleMinute = o.clock("singleMinute", "", out.SingleMinute, model.ClampMinute)
	out.TaskIDs = existingIDs(o.strings("taskIds"), tasks)
	if v, ok := o.str("mode"); ok {
		out.Mode = model.NotificationMode(v).Normalize()
	}
	if v, ok := o.str("dateMode"); ok {
		out.DateMode = model.DateMode(v).Normalize()
	}
	if v, ok := o.str("repeatRule"); ok {
		out.RepeatRule = model.RepeatRule(v).Normalize()
	}
	return out
}

func decodeLongtermSettings(o object, tasks []model.Task) model.LongtermNotificationSettings {
	out := model.DefaultLongtermNotificationSettings()
	if o == nil {
		return out
	}
	if v, ok := o["enabled"].(bool); ok {
		out.Enabled = v
	}
	out.Hour = o.clock("hour", "", out.Hour, model.ClampHour)
	out.Minute = o.clock("minute", "", out.Minute, model.ClampMinute)
	out.TaskIDs = existingIDs(o.strings("taskIds"), tasks)
	if raw, ok := o["deadlineOffsets"].([]any); ok {
		offsets := make([]int, 0, len(raw))
		for _, item := range raw {
			if v, ok := finite(item); ok && math.Abs(v) <= maxStoredInt {
				offsets = append(offsets, int(math.Round(v)))
			}
		}
		out.DeadlineOffsets = model.NormalizeDeadlineOffsets(offsets)
	}
	if v, ok := o.str("intervalRule"); ok {
		out.IntervalRule = model.IntervalRule(v).Normalize()
	}
	return out
}

func hasGroup(groups []model.TaskGroup, id string) bool {
	for _, g := range groups {
		if g.ID == id {
			return true
		}
	}
	return false
}

func existingIDs(ids []string, tasks []model.Task) []string {
	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}
	out := make([]string, 0, len(ids))
	for _, id := range model.NormalizeTaskIDs(ids) {
		if known[id] {
			out = append(out, id)
		}
	}
	return out
}

// object is a decoded JSON object with typed accessors that treat a value
// of the wrong type as absent.
type object map[string]any

func (o object) str(key string) (string, bool) {
	v, ok := o[key].(string)
	return v, ok
}

func (o object) number(key string) (float64, bool) {
	return finite(o[key])
}

func (o object) truthy(key string) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		return v != ""
	case nil:
		return false
	default:
		return true
	}
}

func (o object) millis(key string, fallback time.Time) time.Time {
	if v, ok := o.number(key); ok {
		return time.UnixMilli(int64(v))
	}
	return fallback
}

func (o object) clock(key, legacy string, fallback int, clampFn func(int) int) int {
	if v, ok := o.integer(key); ok {
		return clampFn(v)
	}
	if legacy != "" {
		if v, ok := o.integer(legacy); ok {
			return clampFn(v)
		}
	}
	return fallback
}

func (o object) object(key string) object {
	v, ok := o[key].(map[string]any)
	if !ok {
		return nil
	}
	return object(v)
}

func (o object) objects(key string) []object {
	raw, ok := o[key].([]any)
	if !ok {
		return nil
	}
	out := make([]object, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, object(m))
		}
	}
	return out
}

func (o object) strings(key string) []string {
	raw, ok := o[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// maxStoredInt bounds every stored count so rounding cannot overflow int on
// any platform.
const maxStoredInt = math.MaxInt32

// integer rounds a finite number, rejecting values outside the int32 range.
func (o object) integer(key string) (int, bool) {
	v, ok := o.number(key)
	if !ok {
		return 0, false
	}
	r := math.Round(v)
	if r > maxStoredInt || r < -maxStoredInt {
		return 0, false
	}
	return int(r), true
}

func finite(v any) (float64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
