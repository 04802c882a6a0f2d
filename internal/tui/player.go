// Package tui is the terminal workout player: a Bubble Tea model that
// renders a running session and maps keys onto its controls.
package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/claude/stitch/internal/models"
	"github.com/claude/stitch/internal/workout"
)

// WeightStep is the amount +/- changes the recorded weight by.
const WeightStep = 2.5

// refreshInterval is how often the clocks are re-read from the session.
const refreshInterval = 250 * time.Millisecond

// Player is the part of a workout session the model drives.
// *workout.Session satisfies it.
type Player interface {
	Advance() workout.Transition
	Exit()
	SetActualWeight(w float64) bool
	SetActualReps(r int) bool
	Snapshot() workout.Snapshot
}

var _ Player = (*workout.Session)(nil)

// refreshMsg re-reads the session so the clocks keep moving on screen.
type refreshMsg time.Time

// Model is the Bubble Tea model for one workout.
type Model struct {
	player Player
	snap   workout.Snapshot
	bar    progress.Model
	width  int
	quit   bool
}

// New returns a model over an already loaded session.
func New(p Player) Model {
	bar := progress.New(progress.WithSolidFill(string(colorAccent)), progress.WithoutPercentage())
	bar.Width = 30
	return Model{player: p, snap: p.Snapshot(), bar: bar}
}

// Init starts the refresh loop.
func (m Model) Init() tea.Cmd { return refresh() }

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 16; w > 10 {
			m.bar.Width = min(w, 60)
		}

	case refreshMsg:
		m.snap = m.player.Snapshot()
		if m.quit {
			return m, nil
		}
		return m, refresh()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		if m.snap.Active() {
			m.player.Exit()
		}
		m.quit = true
		return m, tea.Quit

	case "enter", " ", "space":
		m.player.Advance()

	case "+", "=":
		m.player.SetActualWeight(m.snap.ActualWeight + WeightStep)

	case "-", "_":
		m.player.SetActualWeight(max(m.snap.ActualWeight-WeightStep, 0))

	case "up", "k":
		m.player.SetActualReps(m.snap.ActualReps + 1)

	case "down", "j":
		m.player.SetActualReps(max(m.snap.ActualReps-1, 0))
	}
	m.snap = m.player.Snapshot()
	return m, nil
}

// Finished reports whether the routine was played to the end.
func (m Model) Finished() bool { return m.snap.Phase == workout.PhaseFinished }

// Snapshot returns the last state the model rendered.
func (m Model) Snapshot() workout.Snapshot { return m.snap }

func (m Model) View() string {
	if m.quit {
		return ""
	}
	s := m.snap

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render(s.RoutineName),
		mutedStyle.Render("  "+workout.FormatClock(s.ElapsedSeconds)),
	)

	var body string
	switch s.Phase {
	case workout.PhaseFinished:
		body = doneStyle.Render("Workout complete") + "\n" +
			mutedStyle.Render(fmt.Sprintf("%d sets in %s", s.TotalSteps, workout.FormatClock(s.ElapsedSeconds)))
	case workout.PhaseResting:
		body = m.restView()
	case workout.PhasePerforming:
		body = m.performView()
	default:
		body = mutedStyle.Render("No workout loaded")
	}

	lines := []string{header, "", body, "", m.bar.ViewAs(s.Progress()) + mutedStyle.Render(fmt.Sprintf(" %d/%d", min(s.StepIndex+1, s.TotalSteps), s.TotalSteps))}
	if next := nextLine(s); next != "" {
		lines = append(lines, mutedStyle.Render(next))
	}
	lines = append(lines, "", mutedStyle.Render(help(s.Phase)))
	return frameStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) performView() string {
	s := m.snap
	st := s.Step
	var b strings.Builder
	b.WriteString(exerciseStyle.Render(s.ExerciseTitle))
	if st.IsSuperset {
		b.WriteString(mutedStyle.Render("  superset"))
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Set %d/%d", st.SetIndex+1, st.TotalSets)))
	if st.SetType != models.SetWorking {
		b.WriteString(mutedStyle.Render(" · " + string(st.SetType)))
	}
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Target") + targetLine(*st) + "\n")
	b.WriteString(labelStyle.Render("Actual") + formatWeight(s.ActualWeight) + " × " + strconv.Itoa(s.ActualReps))
	return b.String()
}

func (m Model) restView() string {
	s := m.snap
	line := "REST " + workout.FormatClock(s.RestSeconds)
	if s.Step != nil && s.Step.RestAfter > 0 {
		line += " / " + workout.FormatClock(s.Step.RestAfter)
	}
	out := restStyle.Render(line)
	if s.Step != nil && s.Step.RestAfter > 0 && s.RestSeconds >= s.Step.RestAfter {
		out += "\n" + doneStyle.Render("Rest is over")
	}
	return out
}

func targetLine(st workout.Step) string {
	target := workout.TargetLabel(st)
	if st.TrackingType == models.TrackReps && st.HasRepTarget() {
		target += " reps"
	}
	if st.TargetWeight > 0 {
		return formatWeight(st.TargetWeight) + " × " + target
	}
	return target
}

func formatWeight(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64) + " kg"
}

func nextLine(s workout.Snapshot) string {
	if !s.Active() || s.Next == nil {
		return ""
	}
	if s.Phase == workout.PhaseResting {
		// While resting Step is the completed set; Next is what comes up.
		return fmt.Sprintf("Up next: set %d/%d", s.Next.SetIndex+1, s.Next.TotalSets)
	}
	return fmt.Sprintf("Then: set %d/%d", s.Next.SetIndex+1, s.Next.TotalSets)
}

func help(p workout.Phase) string {
	switch p {
	case workout.PhasePerforming:
		return "enter done · +/- weight · ↑/↓ reps · q quit"
	case workout.PhaseResting:
		return "enter skip rest · q quit"
	default:
		return "q quit"
	}
}
