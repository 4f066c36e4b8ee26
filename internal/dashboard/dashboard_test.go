package dashboard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rimuru/simpipe/internal/phase"
)

func logPhase(t *testing.T, dir string, id int, name, logContent string) phase.Phase {
	t.Helper()
	p := phase.Phase{
		ID:      id,
		Name:    name,
		LogPath: filepath.Join(dir, name+".log"),
	}
	if logContent != "" {
		if err := os.WriteFile(p.LogPath, []byte(logContent), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return p
}

func TestClassify(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		log     string // empty = no log file
		want    Verdict
		metrics int
	}{
		{
			name: "no log means not started",
			want: VerdictNotStarted,
		},
		{
			name: "log without terminal line means running",
			log:  "LAMMPS (2 Aug 2023)\nStep Temp\n  1000 1820.3\n",
			want: VerdictRunning,
		},
		{
			name:    "loop time line means complete",
			log:     "Step Temp\n 50000 1793.1\nLoop time of 8412.52 on 4 procs for 50000 steps\n",
			want:    VerdictComplete,
			metrics: 1,
		},
		{
			name: "fatal marker wins over completion",
			log:  "ERROR: Lost atoms\nLoop time of 100.0 on 1 procs\n",
			want: VerdictFailed,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := logPhase(t, dir, i+1, strings.ReplaceAll(tt.name, " ", "_"), tt.log)
			view := classify(p)

			if view.verdict != tt.want {
				t.Errorf("classify() verdict = %q, want %q", view.verdict, tt.want)
			}
			if tt.metrics > 0 && len(view.metrics) < tt.metrics {
				t.Errorf("classify() metrics = %d, want at least %d", len(view.metrics), tt.metrics)
			}
		})
	}
}

func TestStatusLine_RendersVerdicts(t *testing.T) {
	m := Model{}
	tests := []struct {
		verdict Verdict
		want    string
	}{
		{VerdictNotStarted, "not started"},
		{VerdictComplete, "complete"},
		{VerdictFailed, "failed"},
	}

	for _, tt := range tests {
		line := m.statusLine(phaseView{
			phase:   phase.Phase{ID: 1, Name: "equilibration"},
			verdict: tt.verdict,
		})
		if !strings.Contains(line, tt.want) {
			t.Errorf("statusLine(%q) = %q, want substring %q", tt.verdict, line, tt.want)
		}
		if !strings.Contains(line, "equilibration") {
			t.Errorf("statusLine missing phase name: %q", line)
		}
	}
}

func TestDetailContent(t *testing.T) {
	dir := t.TempDir()
	p := logPhase(t, dir, 1, "growth",
		"Particle count: 48\nMean diameter (nm): 3.2\nLoop time of 10.0 on 1 procs\n")

	m := Model{views: []phaseView{classify(p)}}
	content := m.detailContent()

	if !strings.Contains(content, "Particle count: 48") {
		t.Errorf("detail content missing literal metric line:\n%s", content)
	}

	empty := Model{}
	if !strings.Contains(empty.detailContent(), "no metrics") {
		t.Error("empty detail content should say no metrics were extracted")
	}
}
