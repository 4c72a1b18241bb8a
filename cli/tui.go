package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fahmaliyi/passvault/vault"
)

const (
	stateTable = "table"
	stateShow  = "showEntry"
	stateAdd   = "addEntry"
	stateEdit  = "editEntry"

	revealFor = 5 * time.Second
)

type model struct {
	vault      *vault.Vault
	entries    []*vault.Record
	cursor     int
	state      string
	textInputs []textinput.Model
	selectedID string
	editField  string
	reveal     bool
	msg        string

	clipboardClear time.Duration
	copy           func(string) error
}

type hideSecretMsg struct{}

type clearClipboardMsg struct{}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	msgStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("57")).Foreground(lipgloss.Color("0"))
)

// editKeys maps a key in the entry view to the field it edits.
var editKeys = map[string]string{
	"t": "title",
	"u": "username",
	"m": "email",
	"p": "password",
	"l": "url",
	"n": "notes",
}

func newModel(v *vault.Vault, clear time.Duration) model {
	return model{
		vault:          v,
		entries:        v.List(),
		state:          stateTable,
		clipboardClear: clear,
		copy:           clipboard.WriteAll,
	}
}

// RunTUI starts the interactive TUI
func RunTUI(v *vault.Vault, clear time.Duration) error {
	p := tea.NewProgram(newModel(v, clear))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

// --- Tea Model interface ---
func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case hideSecretMsg:
		m.reveal = false
		return m, nil
	case clearClipboardMsg:
		_ = m.copy("")
		return m, nil
	}

	switch m.state {
	case stateTable:
		return updateTable(m, msg)
	case stateShow:
		return updateShowEntry(m, msg)
	case stateAdd:
		return updateAddEntry(m, msg)
	case stateEdit:
		return updateEditEntry(m, msg)
	default:
		return m, nil
	}
}

func (m model) View() string {
	switch m.state {
	case stateTable:
		return viewTable(m)
	case stateShow:
		return viewShowEntry(m)
	case stateAdd:
		return viewForm(m, "Add New Entry", "Press Enter on the last field to save, Esc to cancel")
	case stateEdit:
		return viewForm(m, "Edit "+m.editField, "Press Enter to apply, Esc to cancel")
	default:
		return "Unknown state"
	}
}

func (m model) selected() *vault.Record {
	return m.vault.Get(m.selectedID)
}

func (m *model) refresh() {
	m.entries = m.vault.List()
	if m.cursor >= len(m.entries) && m.cursor > 0 {
		m.cursor = len(m.entries) - 1
	}
}

// outcome turns a mutation result into the status line, saving on success.
func (m *model) outcome(res vault.Result, ok string) bool {
	switch res {
	case vault.Success:
		if err := m.vault.Save(); err != nil {
			m.msg = "Error saving vault: " + err.Error()
			return false
		}
		m.msg = ok
		return true
	case vault.Collision:
		m.msg = "Title and username already exist"
	default:
		m.msg = "Main key mismatch, nothing changed"
	}
	return false
}

// --- Table ---
func updateTable(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "j", "down":
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if len(m.entries) > 0 {
			m.selectedID = m.entries[m.cursor].ID()
			m.state = stateShow
			m.msg = ""
		}
	case "a":
		m.textInputs = addInputs()
		m.state = stateAdd
		m.msg = ""
	case "d":
		if len(m.entries) == 0 {
			break
		}
		res, err := m.vault.Remove(m.entries[m.cursor].ID())
		if err != nil {
			m.msg = err.Error()
			break
		}
		m.outcome(res, "Entry deleted")
		m.refresh()
	case "c":
		if len(m.entries) == 0 {
			break
		}
		return m.copyPassword(m.entries[m.cursor])
	}
	return m, nil
}

func (m model) copyPassword(e *vault.Record) (model, tea.Cmd) {
	if err := m.copy(e.Password()); err != nil {
		m.msg = "Error copying to clipboard: " + err.Error()
		return m, nil
	}
	m.msg = fmt.Sprintf("Password copied! (clears in %s)", m.clipboardClear)
	return m, tea.Tick(m.clipboardClear, func(time.Time) tea.Msg { return clearClipboardMsg{} })
}

func viewTable(m model) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Vault Entries") + "\n\n")
	for i, e := range m.entries {
		line := fmt.Sprintf("%-30s  %-24s  %-24s", e.Title(), e.Username(), e.URL())
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	if m.msg != "" {
		b.WriteString("\n" + msgStyle.Render(m.msg))
	}
	b.WriteString("\nCommands: j/k=move, enter=show, a=add, d=delete, c=copy, q=quit")
	return b.String()
}

// --- Show Entry ---
func updateShowEntry(m model, msg tea.Msg) (model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	e := m.selected()
	if e == nil {
		m.state = stateTable
		m.refresh()
		return m, nil
	}
	switch k := key.String(); k {
	case "esc":
		m.state = stateTable
		m.selectedID = ""
		m.reveal = false
		m.refresh()
	case "v":
		m.reveal = true
		return m, tea.Tick(revealFor, func(time.Time) tea.Msg { return hideSecretMsg{} })
	case "c":
		return m.copyPassword(e)
	default:
		if field, ok := editKeys[k]; ok {
			m.editField = field
			m.textInputs = []textinput.Model{editInput(e, field)}
			m.state = stateEdit
			m.msg = ""
		}
	}
	return m, nil
}

func viewShowEntry(m model) string {
	e := m.selected()
	if e == nil {
		return errStyle.Render("Entry no longer exists")
	}
	password := "********"
	if m.reveal {
		password = e.Password()
	}
	s := fmt.Sprintf("Title: %s\nUsername: %s\nEmail: %s\nPassword: %s\nURL: %s\nNotes: %s\nCreated: %s\nPassword age: %s\n",
		e.Title(), e.Username(), e.Email(), password, e.URL(),
		strings.Join(e.Notes(), "; "),
		e.CreatedAt().Format(time.DateTime),
		e.TimeSincePasswordUpdate().Round(time.Second))
	if m.msg != "" {
		s += "\n" + msgStyle.Render(m.msg)
	}
	s += "\nv=reveal, c=copy, edit: t=title u=username m=email p=password l=url n=notes, Esc to return"
	return s
}

// --- Add / Edit forms ---
func newInput(placeholder string, secret bool) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '*'
	}
	return ti
}

func addInputs() []textinput.Model {
	inputs := []textinput.Model{
		newInput("Title", false),
		newInput("Username", false),
		newInput("Email", false),
		newInput("Password", true),
		newInput("URL", false),
		newInput("Notes (separate with ;)", false),
	}
	inputs[0].Focus()
	return inputs
}

func editInput(e *vault.Record, field string) textinput.Model {
	ti := newInput("New "+field, field == "password")
	switch field {
	case "title":
		ti.SetValue(e.Title())
	case "username":
		ti.SetValue(e.Username())
	case "email":
		ti.SetValue(e.Email())
	case "url":
		ti.SetValue(e.URL())
	case "notes":
		ti.SetValue(strings.Join(e.Notes(), "; "))
	}
	ti.Focus()
	return ti
}

func splitNotes(s string) []string {
	notes := []string{}
	for _, n := range strings.Split(s, ";") {
		if n = strings.TrimSpace(n); n != "" {
			notes = append(notes, n)
		}
	}
	return notes
}

func (m *model) updateInputs(msg tea.Msg) {
	for i := range m.textInputs {
		ti := &m.textInputs[i]
		if ti.Focused() {
			*ti, _ = ti.Update(msg)
		}
	}
}

func updateAddEntry(m model, msg tea.Msg) (model, tea.Cmd) {
	m.updateInputs(msg)

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "tab", "shift+tab", "down", "up":
		m.focusNext(key.String() == "shift+tab" || key.String() == "up")
	case "esc":
		m.state = stateTable
	case "ctrl+s":
		m = saveAddEntry(m)
	case "enter":
		if m.textInputs[len(m.textInputs)-1].Focused() {
			m = saveAddEntry(m)
		} else {
			m.focusNext(false)
		}
	}
	return m, nil
}

// Focus next or previous input
func (m *model) focusNext(backward bool) {
	n := len(m.textInputs)
	for i := 0; i < n; i++ {
		if m.textInputs[i].Focused() {
			m.textInputs[i].Blur()
			if backward {
				m.textInputs[(i-1+n)%n].Focus()
			} else {
				m.textInputs[(i+1)%n].Focus()
			}
			break
		}
	}
}

func saveAddEntry(m model) model {
	in := m.textInputs
	_, res := m.vault.Add(in[0].Value(), in[1].Value(), in[2].Value(), in[3].Value(), in[4].Value(), splitNotes(in[5].Value()))
	if !m.outcome(res, "Entry added") {
		return m
	}
	m.refresh()
	m.state = stateTable
	for i := range m.textInputs {
		m.textInputs[i].SetValue("")
	}
	return m
}

func updateEditEntry(m model, msg tea.Msg) (model, tea.Cmd) {
	m.updateInputs(msg)

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "esc":
		m.state = stateShow
	case "enter":
		e := m.selected()
		if e == nil {
			m.state = stateTable
			m.refresh()
			return m, nil
		}
		auth := m.vault.Session()
		value := m.textInputs[0].Value()
		var res vault.Result
		switch m.editField {
		case "title":
			res = e.SetTitle(auth, value)
		case "username":
			res = e.SetUsername(auth, value)
		case "email":
			res = e.SetEmail(auth, value)
		case "password":
			res = e.SetPassword(auth, value)
		case "url":
			res = e.SetURL(auth, value)
		case "notes":
			res = e.SetNotes(auth, splitNotes(value))
		}
		m.textInputs[0].SetValue("")
		m.outcome(res, "Entry updated")
		m.state = stateShow
	}
	return m, nil
}

func viewForm(m model, title, footer string) string {
	s := titleStyle.Render(title) + "\n\n"
	for i, ti := range m.textInputs {
		s += fmt.Sprintf("%s: %s\n", ti.Placeholder, ti.View())
		if i < len(m.textInputs)-1 {
			s += "\n"
		}
	}
	if m.msg != "" {
		s += "\n" + errStyle.Render(m.msg)
	}
	s += "\n" + footer
	return s
}
