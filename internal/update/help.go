package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"github.com/EwwwzhI/ActionPlus/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

const commandsMarkdown = "## Commands\n\n" +
	"- `add daily|tomorrow|longterm <points> <title>`\n" +
	"- `settle <n> <points> [note]`\n" +
	"- `toggle <n>` / `delete <n>` / `remind <n>`\n" +
	"- `deadline <n> <YYYY-MM-DD|clear>`\n" +
	"- `template save|rule|delete <n>`, `template auto <n> on|off`\n" +
	"- `group add <name> [#color]`, `group rename|delete|use <n>`\n" +
	"- `archive <days>`\n" +
	"- `notify [long] on|off|time HH:MM`, `notify rule|mode|date <value>`\n" +
	"- `notify long interval <rule>`, `notify long offsets 7,3,1,0`\n" +
	"- `export`, `sync`\n"

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	return m.renderHelpView()
}

func (m Model) renderHelpView() string {
	bindings := m.helpBindings()
	var plain []string
	for _, kb := range m.viewBindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	return views.RenderHelpPanel(views.HelpPanelData{
		CurrentView: string(m.CurrentView),
		Bindings:    plain,
		HelpView: m.helpModel.View(helpKeyMap{
			short: bindings,
			full:  [][]key.Binding{bindings},
		}),
		Commands: views.RenderMarkdown(commandsMarkdown),
	})
}

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: "1-5", Action: "switch tab"},
		{Key: m.Keys.NextTab, Action: "next tab"},
		{Key: m.Keys.Palette, Action: "open command palette"},
		{Key: m.Keys.Group, Action: "cycle group for new tasks"},
		{Key: m.Keys.Sync, Action: "resync reminders"},
		{Key: m.Keys.Export, Action: "export CSV"},
		{Key: m.Keys.Help, Action: "toggle help panel"},
		{Key: m.Keys.Quit, Action: "quit app"},
	}
}

func (m Model) viewBindings() []KeyBinding {
	switch m.CurrentView {
	case ViewToday, ViewTomorrow:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "f", Action: "settle with full points"},
			{Key: "r", Action: "toggle reminder"},
			{Key: "s", Action: "save as template"},
		}
	case ViewLongterm:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "x", Action: "mark done / reopen"},
			{Key: "f", Action: "settle with full points"},
			{Key: "r", Action: "toggle reminder"},
			{Key: "s", Action: "save as template"},
		}
	case ViewTemplates:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "a", Action: "toggle auto generation"},
			{Key: "t", Action: "cycle auto rule"},
		}
	default:
		return []KeyBinding{{Key: "-", Action: "no contextual bindings"}}
	}
}

func (m Model) helpBindings() []key.Binding {
	out := make([]key.Binding, 0, len(m.globalBindings())+len(m.viewBindings()))
	for _, kb := range m.globalBindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	for _, kb := range m.viewBindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
