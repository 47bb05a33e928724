package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesSkeleton(t *testing.T) {
	root := t.TempDir()
	images := t.TempDir()

	p, err := New(root, images, "coleta_teste_01")
	require.NoError(t, err)

	for _, dir := range []string{p.Dir(), p.FilesDir(), p.ViralScreenshotsDir(), p.ModulesDir(), p.ImagesDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err, "directory %s must exist", dir)
		assert.True(t, info.IsDir(), "%s must be a directory", dir)
	}

	assert.Equal(t, filepath.Join(root, "coleta_teste_01", "massive_data.json"), p.ArtifactPath())
	assert.Equal(t, filepath.Join(root, "coleta_teste_01", "relatorio_coleta.md"), p.ReportPath())
}

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"coleta_ok-123", "coleta_ok-123"},
		{"../../etc/passwd", "______etc_passwd"},
		{"sessão com espaço", "sess_o_com_espa_o"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeID(tt.in), "SanitizeID(%q)", tt.in)
	}

	assert.NotEmpty(t, SanitizeID(""), "empty id must be replaced, not kept")
}

func TestNewIDIsUniqueAndSafe(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b, "ids must be unique")
	assert.Equal(t, a, SanitizeID(a), "generated id must already be directory-safe")
}

func TestRelativeRebasesInsideSession(t *testing.T) {
	p := &Paths{SessionsRoot: "/data/sessions", ImagesRoot: "/data/images", SessionID: "s1"}

	assert.Equal(t, "files/shot_01.png", p.Relative("/data/sessions/s1/files/shot_01.png"))
	assert.Equal(t, "/tmp/other.png", p.Relative("/tmp/other.png"),
		"paths outside the session must pass through")
}
