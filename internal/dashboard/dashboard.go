// Package dashboard renders a live terminal view of a pipeline run. It is a
// read-only observer: it tails the stage logs the engine writes, classifies
// each stage's progress, and shows the extracted metric lines. It works
// whether a run is in flight or long finished.
package dashboard

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"github.com/rimuru/simpipe/internal/config"
	"github.com/rimuru/simpipe/internal/logscan"
	"github.com/rimuru/simpipe/internal/phase"
	"github.com/rimuru/simpipe/internal/runlock"
)

// Verdict is the dashboard's classification of one stage, derived purely
// from its log file.
type Verdict string

const (
	VerdictNotStarted Verdict = "not started"
	VerdictRunning    Verdict = "running"
	VerdictComplete   Verdict = "complete"
	VerdictFailed     Verdict = "failed"
)

// phaseView is the rendered state of one stage.
type phaseView struct {
	phase   phase.Phase
	verdict Verdict
	metrics []logscan.Metric
}

type tickMsg time.Time

type fsEventMsg struct{}

type watcherClosedMsg struct{}

// Model is the bubbletea model for the dashboard.
type Model struct {
	cfg    *config.Config
	phases []phase.Phase

	views    []phaseView
	lockInfo string

	spinner  spinner.Model
	viewport viewport.Model
	watcher  *fsnotify.Watcher
	refresh  time.Duration

	width  int
	height int
	ready  bool
}

// New creates a dashboard model. The fsnotify watcher is optional: when the
// log directory cannot be watched the dashboard falls back to polling alone.
func New(cfg *config.Config, phases []phase.Phase) Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle))

	var watcher *fsnotify.Watcher
	if w, err := fsnotify.NewWatcher(); err == nil {
		if err := w.Add(cfg.Paths.ResolveLogDir()); err == nil {
			watcher = w
		} else {
			w.Close()
		}
	}

	m := Model{
		cfg:     cfg,
		phases:  phases,
		spinner: sp,
		watcher: watcher,
		refresh: cfg.Dashboard.RefreshInterval(),
	}
	m.rescan()
	return m
}

// Init starts the spinner, the poll ticker, and (when available) the
// filesystem watcher.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.tick()}
	if m.watcher != nil {
		cmds = append(cmds, m.waitForEvent())
	}
	return tea.Batch(cmds...)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForEvent blocks on the next filesystem event in the log directory.
func (m Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case _, ok := <-m.watcher.Events:
			if !ok {
				return watcherClosedMsg{}
			}
			return fsEventMsg{}
		case _, ok := <-m.watcher.Errors:
			if !ok {
				return watcherClosedMsg{}
			}
			return fsEventMsg{}
		}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.watcher != nil {
				m.watcher.Close()
			}
			return m, tea.Quit
		case "r":
			m.rescan()
			m.viewport.SetContent(m.detailContent())
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerHeight := len(m.phases) + 6
		vpHeight := m.height - headerHeight
		if vpHeight < 3 {
			vpHeight = 3
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}
		m.viewport.SetContent(m.detailContent())
		return m, nil

	case tickMsg:
		m.rescan()
		m.viewport.SetContent(m.detailContent())
		return m, m.tick()

	case fsEventMsg:
		m.rescan()
		m.viewport.SetContent(m.detailContent())
		return m, m.waitForEvent()

	case watcherClosedMsg:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// rescan reclassifies every stage from its log file and refreshes the lock
// status line.
func (m *Model) rescan() {
	views := make([]phaseView, 0, len(m.phases))
	for _, p := range m.phases {
		views = append(views, classify(p))
	}
	m.views = views

	if info, locked := runlock.IsLocked(m.cfg.Paths.ResolveRunDir()); locked {
		m.lockInfo = fmt.Sprintf("run active (PID %d on %s)", info.PID, info.Hostname)
	} else {
		m.lockInfo = "no active run"
	}
}

// classify derives a stage's verdict from its log: no log means the stage
// never started; a fatal marker means failed; a loop-time line means the
// engine finished its run; anything else means still running.
func classify(p phase.Phase) phaseView {
	view := phaseView{phase: p, verdict: VerdictNotStarted}

	if _, err := os.Stat(p.LogPath); err != nil {
		return view
	}

	scan, err := logscan.ScanFile(p.LogPath, logscan.TableFor(p.Name))
	if err != nil {
		view.verdict = VerdictRunning
		return view
	}

	view.metrics = scan.Metrics
	switch {
	case scan.Failed():
		view.verdict = VerdictFailed
	case hasMetric(scan.Metrics, "loop time"), hasMetric(scan.Metrics, "wall time"):
		view.verdict = VerdictComplete
	default:
		view.verdict = VerdictRunning
	}
	return view
}

func hasMetric(metrics []logscan.Metric, label string) bool {
	for _, m := range metrics {
		if m.Label == label {
			return true
		}
	}
	return false
}

// Run starts the dashboard program in the alternate screen.
func Run(cfg *config.Config, phases []phase.Phase) error {
	p := tea.NewProgram(New(cfg, phases), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
