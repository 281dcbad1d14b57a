// Package export renders settled tasks as a spreadsheet-friendly CSV file.
package export

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/EwwwzhI/ActionPlus/internal/datekey"
	"github.com/EwwwzhI/ActionPlus/internal/state"
)

var ErrNoRecords = errors.New("export: no records in range")

// EmptyMessage is shown when the retention window has nothing to export.
const EmptyMessage = "近 120 天无可导出记录"

const bom = "\ufeff"

var header = []string{"日期", "任务组", "类型", "任务", "获得分", "最高分", "备注"}

type Row struct {
	DateKey string
	Group   string
	Type    string
	Title   string
	Earned  int
	Max     int
	Note    string
}

func (r Row) fields() []string {
	return []string{r.DateKey, r.Group, r.Type, r.Title, strconv.Itoa(r.Earned), strconv.Itoa(r.Max), r.Note}
}

// Rows selects settled tasks whose effective date is on or after the
// retention cutoff, oldest first.
func Rows(s state.State, today time.Time, retentionDays int) []Row {
	cutoff := state.RetentionCutoff(today, retentionDays)
	out := make([]Row, 0)
	for _, t := range s.Tasks {
		if !t.IsSettled() {
			continue
		}
		key, ok := t.EffectiveDateKey()
		if !ok || key < cutoff {
			continue
		}
		out = append(out, Row{
			DateKey: key,
			Group:   s.GroupName(t.GroupID),
			Type:    t.PlanType.Label(),
			Title:   t.Title,
			Earned:  t.Earned(),
			Max:     t.MaxPoints,
			Note:    t.Note,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateKey < out[j].DateKey })
	return out
}

// WriteCSV writes the BOM-prefixed export. Lines are joined with "\n" and
// there is no trailing newline. It returns ErrNoRecords without writing
// anything when no row qualifies.
func WriteCSV(w io.Writer, s state.State, today time.Time, retentionDays int) (int, error) {
	rows := Rows(s, today, retentionDays)
	if len(rows) == 0 {
		return 0, ErrNoRecords
	}
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, joinFields(header))
	for _, r := range rows {
		lines = append(lines, joinFields(r.fields()))
	}
	if _, err := io.WriteString(w, bom+strings.Join(lines, "\n")); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}
	return len(rows), nil
}

// FileName is the export file name for today.
func FileName(today time.Time) string {
	return "ActionPlus_" + datekey.Format(today) + ".csv"
}

func joinFields(fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = escape(f)
	}
	return strings.Join(escaped, ",")
}

// escape quotes a value containing a comma, a quote or a newline, doubling
// inner quotes.
func escape(v string) string {
	if !strings.ContainsAny(v, ",\"\n") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
