// Package tui is a terminal viewer: the terminal grid is the render surface,
// mouse drag pans, the wheel zooms at the cursor and keys drive the controls.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/recera/mapview/pkg/viewport"
)

// headerRows sits above the map; the status line and help sit below it
const (
	headerRows = 1
	footerRows = 2
)

// panFraction is how far one arrow key moves the window, relative to its size
const panFraction = 0.1

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	zoomStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	gridStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#39424e"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6ea8fe"))
	draggingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcf33")).Bold(true)
)

// termSurface maps the map area of the terminal to the view window.
// One cell is one pixel.
type termSurface struct {
	win      viewport.Window
	cols     int
	rows     int
	dragging bool
}

func (s *termSurface) Present(w viewport.Window) { s.win = w }

func (s *termSurface) PixelSize() (float64, float64) {
	return float64(s.cols), float64(s.rows)
}

func (s *termSurface) ClientRect() viewport.Rect {
	return viewport.Rect{Left: 0, Top: headerRows, Width: float64(s.cols), Height: float64(s.rows)}
}

func (s *termSurface) SetDragging(dragging bool) { s.dragging = dragging }

// Model represents the terminal viewer state
type Model struct {
	// Window dimensions
	width  int
	height int

	title   string
	state   *viewport.ViewState
	adapter *viewport.GestureAdapter
	surface *termSurface

	keys     KeyMap
	help     help.Model
	quitting bool
}

// NewModel creates a viewer over a fresh view state
func NewModel(opts viewport.Options, title string) Model {
	surface := &termSurface{}
	state := viewport.NewViewState(&opts)
	adapter := viewport.NewGestureAdapter(state, surface)
	adapter.Sync()

	return Model{
		title:   title,
		state:   state,
		adapter: adapter,
		surface: surface,
		keys:    DefaultKeyMap,
		help:    help.New(),
	}
}

// Window returns the window currently on screen
func (m Model) Window() viewport.Window {
	return m.surface.win
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.surface.cols = msg.Width
		m.surface.rows = max(0, msg.Height-headerRows-footerRows)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.ZoomIn):
		m.adapter.Press(viewport.ButtonZoomIn)
	case key.Matches(msg, m.keys.ZoomOut):
		m.adapter.Press(viewport.ButtonZoomOut)
	case key.Matches(msg, m.keys.Reset):
		m.adapter.Press(viewport.ButtonReset)
	case key.Matches(msg, m.keys.Up):
		m.pan(0, -1)
	case key.Matches(msg, m.keys.Down):
		m.pan(0, 1)
	case key.Matches(msg, m.keys.Left):
		m.pan(-1, 0)
	case key.Matches(msg, m.keys.Right):
		m.pan(1, 0)
	}
	return m, nil
}

func (m Model) pan(dirX, dirY float64) {
	w := m.state.Get()
	m.state.Pan(dirX*w.W*panFraction, dirY*w.H*panFraction)
	m.adapter.Sync()
}

// handleMouse forwards terminal mouse reports as pointer and wheel events.
// The terminal has a single pointer, id 0. Positions are taken at the cell
// center.
func (m Model) handleMouse(msg tea.MouseMsg) {
	x, y := float64(msg.X)+0.5, float64(msg.Y)+0.5
	pe := viewport.PointerEvent{ClientX: x, ClientY: y}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.adapter.Wheel(viewport.WheelEvent{DeltaY: -1, ClientX: x, ClientY: y})
		return
	case tea.MouseButtonWheelDown:
		m.adapter.Wheel(viewport.WheelEvent{DeltaY: 1, ClientX: x, ClientY: y})
		return
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft {
			m.adapter.PointerDown(pe)
		}
	case tea.MouseActionMotion:
		m.adapter.PointerMove(pe)
	case tea.MouseActionRelease:
		m.adapter.PointerUp(pe)
	}
}

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	scene := m.state.Options().Scene
	win := m.surface.win
	step := niceStep(win.W, gridLines)

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString(zoomStyle.Render(fmt.Sprintf("  %.0f%%", scene.Width/win.W*100)))
	b.WriteByte('\n')

	for _, row := range renderGrid(win, m.surface.cols, m.surface.rows, step) {
		b.WriteString(gridStyle.Render(row))
		b.WriteByte('\n')
	}

	status := fmt.Sprintf("viewBox %s  grid %g", win.ViewBox(), step)
	if m.surface.dragging {
		b.WriteString(draggingStyle.Render(status + "  dragging"))
	} else {
		b.WriteString(statusStyle.Render(status))
	}
	b.WriteByte('\n')
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

// Run starts the terminal viewer and blocks until it exits
func Run(opts viewport.Options, title string) (viewport.Window, error) {
	p := tea.NewProgram(NewModel(opts, title), tea.WithAltScreen(), tea.WithMouseCellMotion())
	final, err := p.Run()
	if err != nil {
		return viewport.Window{}, fmt.Errorf("failed to run viewer: %w", err)
	}
	return final.(Model).Window(), nil
}
