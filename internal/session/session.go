// Package session owns the on-disk layout of one collection run: the session
// directory, its screenshot subdirectories and the image store.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Paths resolves every artifact location for one session.
type Paths struct {
	SessionsRoot string
	ImagesRoot   string
	SessionID    string
}

// NewID generates a fresh session id: a timestamp prefix for sortability plus
// a short random suffix.
func NewID() string {
	return fmt.Sprintf("coleta_%s_%s",
		time.Now().Format("20060102_150405"),
		uuid.NewString()[:8])
}

// SanitizeID strips everything outside [A-Za-z0-9_-] so the id is safe as a
// directory name.
func SanitizeID(id string) string {
	cleaned := unsafeIDChars.ReplaceAllString(id, "_")
	if cleaned == "" {
		cleaned = NewID()
	}
	return cleaned
}

// New resolves the paths for a session and creates the directory skeleton.
func New(sessionsRoot, imagesRoot, sessionID string) (*Paths, error) {
	p := &Paths{
		SessionsRoot: sessionsRoot,
		ImagesRoot:   imagesRoot,
		SessionID:    SanitizeID(sessionID),
	}
	for _, dir := range []string{p.Dir(), p.FilesDir(), p.ViralScreenshotsDir(), p.ModulesDir(), p.ImagesDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create session directory %s: %w", dir, err)
		}
	}
	return p, nil
}

// Dir is the session root directory.
func (p *Paths) Dir() string {
	return filepath.Join(p.SessionsRoot, p.SessionID)
}

// FilesDir holds the general screenshots.
func (p *Paths) FilesDir() string {
	return filepath.Join(p.Dir(), "files")
}

// ViralScreenshotsDir holds the viral-post screenshots.
func (p *Paths) ViralScreenshotsDir() string {
	return filepath.Join(p.FilesDir(), "viral_screenshots")
}

// ModulesDir is reserved for downstream analysis modules.
func (p *Paths) ModulesDir() string {
	return filepath.Join(p.Dir(), "modules")
}

// ImagesDir holds the downloaded viral images.
func (p *Paths) ImagesDir() string {
	return filepath.Join(p.ImagesRoot, p.SessionID)
}

// ArtifactPath is the JSON artifact location.
func (p *Paths) ArtifactPath() string {
	return filepath.Join(p.Dir(), "massive_data.json")
}

// ReportPath is the Markdown report location.
func (p *Paths) ReportPath() string {
	return filepath.Join(p.Dir(), "relatorio_coleta.md")
}

// IncorporationPath is the plain-text incorporation report location.
func (p *Paths) IncorporationPath() string {
	return filepath.Join(p.Dir(), "relatorio_incorporacao.txt")
}

// Relative rebases an absolute artifact path onto the session directory so
// stored paths stay relocatable.
func (p *Paths) Relative(absolute string) string {
	rel, err := filepath.Rel(p.Dir(), absolute)
	if err != nil || strings.HasPrefix(rel, "..") {
		return absolute
	}
	return filepath.ToSlash(rel)
}
