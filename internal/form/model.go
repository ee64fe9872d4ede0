// Package form is the interactive front end: five path fields and a
// generate button, rendered with bubbletea.
package form

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0070C0"))
	labelStyle   = lipgloss.NewStyle().Width(24).Foreground(lipgloss.Color("252"))
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	buttonStyle  = lipgloss.NewStyle().Padding(0, 2).Background(lipgloss.Color("#002060")).Foreground(lipgloss.Color("#FFFFFF"))
	activeButton = buttonStyle.Background(lipgloss.Color("#0070C0")).Bold(true)
)

// Field indexes the form inputs.
type Field int

const (
	FieldRecords Field = iota
	FieldStreets
	FieldPhotos
	FieldDistricts
	FieldOutput
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Fitxer d'incidències",
	"Registre de carrers",
	"Carpeta de fotos",
	"Carpeta de plànols",
	"Document de sortida",
}

var fieldPlaceholders = [fieldCount]string{
	"incidencies.xlsx",
	"carrers.xlsx (opcional)",
	"fotos/",
	"barris/ (opcional)",
	"informes_word.docx",
}

// Values are the paths collected by the form.
type Values struct {
	Records   string
	Streets   string
	Photos    string
	Districts string
	Output    string
}

// ErrRecordsRequired is shown when generate is pressed without a records
// file.
var ErrRecordsRequired = errors.New("cal indicar el fitxer d'incidències")

// GenerateFunc runs one generation and returns a summary to display.
type GenerateFunc func(ctx context.Context, v Values) (string, error)

type resultMsg struct {
	summary string
	err     error
}

// Model is the bubbletea model of the form.
type Model struct {
	ctx      context.Context
	generate GenerateFunc

	inputs  []textinput.Model
	focus   int // len(inputs) is the button
	spinner spinner.Model

	running bool
	summary string
	err     error
	runs    int
}

// New returns a form prefilled with initial.
func New(ctx context.Context, initial Values, generate GenerateFunc) Model {
	values := [fieldCount]string{initial.Records, initial.Streets, initial.Photos, initial.Districts, initial.Output}
	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.Placeholder = fieldPlaceholders[i]
		ti.CharLimit = 512
		ti.Width = 48
		ti.Prompt = "› "
		ti.SetValue(values[i])
		inputs[i] = ti
	}
	inputs[0].Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:      ctx,
		generate: generate,
		inputs:   inputs,
		spinner:  sp,
	}
}

// Values returns the current field contents, trimmed.
func (m Model) Values() Values {
	v := func(f Field) string { return strings.TrimSpace(m.inputs[f].Value()) }
	return Values{
		Records:   v(FieldRecords),
		Streets:   v(FieldStreets),
		Photos:    v(FieldPhotos),
		Districts: v(FieldDistricts),
		Output:    v(FieldOutput),
	}
}

// Err is the last generation error.
func (m Model) Err() error { return m.err }

// Summary is the last successful generation summary.
func (m Model) Summary() string { return m.summary }

// Running reports whether a generation is in progress.
func (m Model) Running() bool { return m.running }

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}
		if m.running {
			return m, nil
		}
		switch msg.String() {
		case "tab", "down":
			return m.setFocus(m.focus + 1)
		case "shift+tab", "up":
			return m.setFocus(m.focus - 1)
		case "enter":
			if m.focus < len(m.inputs)-1 {
				return m.setFocus(m.focus + 1)
			}
			return m.submit()
		}

	case resultMsg:
		m.running = false
		m.runs++
		m.summary, m.err = msg.summary, msg.err
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.focus < len(m.inputs) {
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) setFocus(i int) (tea.Model, tea.Cmd) {
	n := len(m.inputs) + 1
	m.focus = ((i % n) + n) % n
	var cmds []tea.Cmd
	for j := range m.inputs {
		if j == m.focus {
			cmds = append(cmds, m.inputs[j].Focus())
			continue
		}
		m.inputs[j].Blur()
	}
	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	v := m.Values()
	if v.Records == "" {
		m.err = ErrRecordsRequired
		m.summary = ""
		return m, nil
	}
	if m.generate == nil {
		m.err = errors.New("no generator configured")
		return m, nil
	}
	m.running = true
	m.err = nil
	m.summary = ""

	ctx, generate := m.ctx, m.generate
	if ctx == nil {
		ctx = context.Background()
	}
	run := func() tea.Msg {
		summary, err := generate(ctx, v)
		return resultMsg{summary: summary, err: err}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Generador d'informes d'incidències"))
	b.WriteString("\n\n")

	for i, in := range m.inputs {
		label := labelStyle.Render(fieldLabels[i])
		if i == m.focus {
			label = focusedStyle.Render(fmt.Sprintf("%-24s", fieldLabels[i]))
		}
		b.WriteString(label)
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	button := buttonStyle.Render("Generar")
	if m.focus == len(m.inputs) {
		button = activeButton.Render("Generar")
	}
	b.WriteString(button)
	b.WriteString("\n\n")

	switch {
	case m.running:
		b.WriteString(m.spinner.View() + " Generant el document...")
		b.WriteString("\n")
	case m.err != nil:
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	case m.summary != "":
		b.WriteString(okStyle.Render("Document generat"))
		b.WriteString("\n")
		b.WriteString(m.summary)
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("tab/↓ següent · shift+tab/↑ anterior · enter generar · esc sortir"))
	b.WriteString("\n")
	return b.String()
}
