package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/EwwwzhI/ActionPlus/internal/datekey"
)

type Type string

const (
	TypeAdd      Type = "add"
	TypeSettle   Type = "settle"
	TypeToggle   Type = "toggle"
	TypeDelete   Type = "delete"
	TypeDeadline Type = "deadline"
	TypeRemind   Type = "remind"
	TypeTemplate Type = "template"
	TypeGroup    Type = "group"
	TypeArchive  Type = "archive"
	TypeNotify   Type = "notify"
	TypeExport   Type = "export"
	TypeSync     Type = "sync"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
	ErrCodeNotFound        ErrorCode = "not_found"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// Plan targets accepted by add.
const (
	PlanToday    = "daily"
	PlanTomorrow = "tomorrow"
	PlanLongterm = "longterm"
)

type AddArgs struct {
	Plan   string
	Points int
	Title  string
}

// Task indexes are 1-based positions in the list the user is looking at.

type SettleArgs struct {
	Index  int
	Points int
	Note   *string
}

type IndexArgs struct {
	Index int
}

type DeadlineArgs struct {
	Index int
	// Date is a date key, or empty to clear the deadline.
	Date string
}

type TemplateOp string

const (
	TemplateSave   TemplateOp = "save"
	TemplateAuto   TemplateOp = "auto"
	TemplateRule   TemplateOp = "rule"
	TemplateDelete TemplateOp = "delete"
)

type TemplateArgs struct {
	Op      TemplateOp
	Index   int
	Enabled bool
}

type GroupOp string

const (
	GroupAdd    GroupOp = "add"
	GroupRename GroupOp = "rename"
	GroupDelete GroupOp = "delete"
	GroupUse    GroupOp = "use"
)

type GroupArgs struct {
	Op    GroupOp
	Index int
	Name  string
	Color string
}

type ArchiveArgs struct {
	Days int
}

type NotifyScope string

const (
	ScopePeriodic NotifyScope = "periodic"
	ScopeLongterm NotifyScope = "longterm"
)

// NotifyArgs changes one notification setting. Exactly one field besides
// Scope is meaningful, selected by Field.
type NotifyArgs struct {
	Scope   NotifyScope
	Field   string
	Enabled bool
	Hour    int
	Minute  int
	Value   string
	Offsets []int
}

type Command struct {
	Type     Type
	Raw      string
	Add      *AddArgs
	Settle   *SettleArgs
	Index    *IndexArgs
	Deadline *DeadlineArgs
	Template *TemplateArgs
	Group    *GroupArgs
	Archive  *ArchiveArgs
	Notify   *NotifyArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeSettle:
		return parseSettle(input, args)
	case TypeToggle, TypeDelete, TypeRemind:
		return parseIndexOnly(input, Type(head), args)
	case TypeDeadline:
		return parseDeadline(input, args)
	case TypeTemplate:
		return parseTemplate(input, args)
	case TypeGroup:
		return parseGroup(input, args)
	case TypeArchive:
		return parseArchive(input, args)
	case TypeNotify:
		return parseNotify(input, args)
	case TypeExport, TypeSync:
		return Command{Type: Type(head), Raw: input}, nil
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseAdd(raw string, args []string) (Command, error) {
	if len(args) < 3 {
		return Command{}, invalid("add requires a plan, points and a title")
	}
	plan := strings.ToLower(args[0])
	switch plan {
	case "today", PlanToday:
		plan = PlanToday
	case PlanTomorrow, PlanLongterm:
	default:
		return Command{}, invalid("unknown plan %q, use daily, tomorrow or longterm", args[0])
	}
	points, err := parsePoints(args[1])
	if err != nil {
		return Command{}, err
	}
	title := strings.TrimSpace(strings.Join(args[2:], " "))
	if title == "" {
		return Command{}, invalid("add requires a title")
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Plan: plan, Points: points, Title: title}}, nil
}

func parseSettle(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, invalid("settle requires a task number and points")
	}
	index, err := parseIndex(args[0])
	if err != nil {
		return Command{}, err
	}
	points, err := parsePoints(args[1])
	if err != nil {
		return Command{}, err
	}
	out := &SettleArgs{Index: index, Points: points}
	if len(args) > 2 {
		note := strings.TrimSpace(strings.Join(args[2:], " "))
		out.Note = &note
	}
	return Command{Type: TypeSettle, Raw: raw, Settle: out}, nil
}

func parseIndexOnly(raw string, typ Type, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("%s requires a task number", typ)
	}
	index, err := parseIndex(args[0])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: typ, Raw: raw, Index: &IndexArgs{Index: index}}, nil
}

func parseDeadline(raw string, args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, invalid("deadline requires a task number and a date (YYYY-MM-DD or clear)")
	}
	index, err := parseIndex(args[0])
	if err != nil {
		return Command{}, err
	}
	date := args[1]
	if strings.EqualFold(date, "clear") {
		date = ""
	} else if !datekey.Valid(date) {
		return Command{}, invalid("invalid date %q", date)
	}
	return Command{Type: TypeDeadline, Raw: raw, Deadline: &DeadlineArgs{Index: index, Date: date}}, nil
}

func parseTemplate(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, invalid("template requires save|auto|rule|delete and a number")
	}
	op := TemplateOp(strings.ToLower(args[0]))
	index, err := parseIndex(args[1])
	if err != nil {
		return Command{}, err
	}
	out := &TemplateArgs{Op: op, Index: index}
	switch op {
	case TemplateSave, TemplateRule, TemplateDelete:
		if len(args) != 2 {
			return Command{}, invalid("template %s takes only a number", op)
		}
	case TemplateAuto:
		if len(args) != 3 {
			return Command{}, invalid("template auto requires on or off")
		}
		enabled, err := parseSwitch(args[2])
		if err != nil {
			return Command{}, err
		}
		out.Enabled = enabled
	default:
		return Command{}, invalid("unknown template action %q", args[0])
	}
	return Command{Type: TypeTemplate, Raw: raw, Template: out}, nil
}

func parseGroup(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, invalid("group requires add|rename|delete|use and an argument")
	}
	op := GroupOp(strings.ToLower(args[0]))
	out := &GroupArgs{Op: op}
	switch op {
	case GroupAdd:
		out.Name, out.Color = splitColor(args[1:])
		if out.Name == "" {
			return Command{}, invalid("group add requires a name")
		}
	case GroupRename:
		if len(args) < 3 {
			return Command{}, invalid("group rename requires a number and a name")
		}
		index, err := parseIndex(args[1])
		if err != nil {
			return Command{}, err
		}
		out.Index = index
		out.Name, out.Color = splitColor(args[2:])
		if out.Name == "" {
			return Command{}, invalid("group rename requires a name")
		}
	case GroupDelete, GroupUse:
		if len(args) != 2 {
			return Command{}, invalid("group %s requires a number", op)
		}
		index, err := parseIndex(args[1])
		if err != nil {
			return Command{}, err
		}
		out.Index = index
	default:
		return Command{}, invalid("unknown group action %q", args[0])
	}
	return Command{Type: TypeGroup, Raw: raw, Group: out}, nil
}

// splitColor takes a trailing #RRGGBB or palette key off a name.
func splitColor(args []string) (name, color string) {
	if len(args) > 1 {
		last := args[len(args)-1]
		if strings.HasPrefix(last, "#") || strings.HasPrefix(last, "color:") {
			return strings.TrimSpace(strings.Join(args[:len(args)-1], " ")), strings.TrimPrefix(last, "color:")
		}
	}
	return strings.TrimSpace(strings.Join(args, " ")), ""
}

func parseArchive(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("archive requires a cycle length in days")
	}
	days, err := strconv.Atoi(args[0])
	if err != nil || days < 1 {
		return Command{}, invalid("invalid cycle length %q", args[0])
	}
	return Command{Type: TypeArchive, Raw: raw, Archive: &ArchiveArgs{Days: days}}, nil
}

// parseNotify accepts
//
//	notify [long] on|off
//	notify [long] time HH:MM
//	notify single HH:MM
//	notify rule once|daily|weekday
//	notify mode global_rule|follow_task
//	notify date today|tomorrow
//	notify long interval none|weekly|every14Days|every30Days
//	notify long offsets 7,3,1,0
func parseNotify(raw string, args []string) (Command, error) {
	out := &NotifyArgs{Scope: ScopePeriodic}
	if len(args) > 0 && strings.EqualFold(args[0], "long") {
		out.Scope = ScopeLongterm
		args = args[1:]
	}
	if len(args) == 0 {
		return Command{}, invalid("notify requires a setting")
	}
	field := strings.ToLower(args[0])
	if field == "on" || field == "off" {
		out.Field = "enabled"
		out.Enabled = field == "on"
		return Command{Type: TypeNotify, Raw: raw, Notify: out}, nil
	}
	if len(args) != 2 {
		return Command{}, invalid("notify %s requires one value", field)
	}
	value := args[1]
	out.Field = field
	switch {
	case field == "time" || (field == "single" && out.Scope == ScopePeriodic):
		h, m, err := parseClock(value)
		if err != nil {
			return Command{}, err
		}
		out.Hour, out.Minute = h, m
	case out.Scope == ScopePeriodic && (field == "rule" || field == "mode" || field == "date"):
		out.Value = value
	case out.Scope == ScopeLongterm && field == "interval":
		out.Value = value
	case out.Scope == ScopeLongterm && field == "offsets":
		for _, part := range strings.Split(value, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return Command{}, invalid("invalid offset %q", part)
			}
			out.Offsets = append(out.Offsets, n)
		}
	default:
		return Command{}, invalid("unknown notify setting %q", field)
	}
	return Command{Type: TypeNotify, Raw: raw, Notify: out}, nil
}

func parseIndex(v string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(v, "#"))
	if err != nil || n < 1 {
		return 0, invalid("invalid task number %q", v)
	}
	return n, nil
}

func parsePoints(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, invalid("invalid points %q", v)
	}
	return n, nil
}

func parseSwitch(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	default:
		return false, invalid("expected on or off, got %q", v)
	}
}

func parseClock(v string) (int, int, error) {
	parts := strings.Split(v, ":")
	if len(parts) != 2 {
		return 0, 0, invalid("invalid time %q, expected HH:MM", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, invalid("invalid hour in %q", v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, invalid("invalid minute in %q", v)
	}
	return h, m, nil
}
