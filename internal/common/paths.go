package common

import (
	"fmt"
	"os"
	"path/filepath"
)

// RunDirs holds the artifact directories for a single swarm run.
type RunDirs struct {
	Proof   string
	Source  string
	Logs    string
	Reports string
}

// EnsureRunDirs creates the artifact directory tree for a run and
// returns the resolved paths. Page sources live under proof/source so
// screenshots and raw HTML stay together.
func EnsureRunDirs(config *Config) (*RunDirs, error) {
	dirs := &RunDirs{
		Proof:   config.Swarm.ProofDir,
		Source:  filepath.Join(config.Swarm.ProofDir, "source"),
		Logs:    config.Swarm.LogsDir,
		Reports: config.Report.Dir,
	}

	for _, dir := range []string{dirs.Proof, dirs.Source, dirs.Logs, dirs.Reports} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return dirs, nil
}

// ScreenshotPath returns the proof screenshot path for a target attempt.
// Blocked attempts use a "_blocked" suffix instead of "_success".
func (d *RunDirs) ScreenshotPath(slug string, attempt int, blocked bool) string {
	suffix := "success"
	if blocked {
		suffix = "blocked"
	}
	return filepath.Join(d.Proof, fmt.Sprintf("%s_attempt%d_%s.png", slug, attempt, suffix))
}

// SourcePath returns the captured page source path for a target attempt.
func (d *RunDirs) SourcePath(slug string, attempt int) string {
	return filepath.Join(d.Source, fmt.Sprintf("%s_attempt%d.html", slug, attempt))
}

// DiagSourcePath returns the diagnostic page source path. Diagnostic
// captures happen on every final check, confirmed or not.
func (d *RunDirs) DiagSourcePath(slug string, attempt int) string {
	return filepath.Join(d.Source, fmt.Sprintf("%s_attempt%d_diag.html", slug, attempt))
}

// MarkdownPath returns the markdown rendition path for a captured page.
func (d *RunDirs) MarkdownPath(slug string, attempt int) string {
	return filepath.Join(d.Source, fmt.Sprintf("%s_attempt%d.md", slug, attempt))
}

// ForensicPath returns the forensic JSON log path for a target attempt.
func (d *RunDirs) ForensicPath(slug string, attempt int) string {
	return filepath.Join(d.Logs, fmt.Sprintf("%s_attempt%d_forensic.json", slug, attempt))
}
