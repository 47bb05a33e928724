package capture

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"garimpo/internal/session"
)

func testPaths(t *testing.T) *session.Paths {
	t.Helper()
	p, err := session.New(t.TempDir(), t.TempDir(), "captura_teste")
	if err != nil {
		t.Fatalf("session setup failed: %v", err)
	}
	return p
}

func TestDownloadImagesValidatesAndSaves(t *testing.T) {
	goodImage := bytes.Repeat([]byte{0x89, 0x50, 0x4e, 0x47}, 100) // 400 bytes
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/boa.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write(goodImage)
		case "/pixel.png":
			w.Header().Set("Content-Type", "image/png")
			w.Write([]byte{0x89})
		case "/pagina.png":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html>não sou imagem</html>"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	d := NewDownloader(testPaths(t), 100)
	images := d.DownloadImages(context.Background(), []ImageRequest{
		{URL: server.URL + "/boa.png", Title: "Post Viral de Cosméticos!"},
		{URL: server.URL + "/pixel.png", Title: "pixel"},
		{URL: server.URL + "/pagina.png", Title: "html"},
		{URL: server.URL + "/sumiu.png", Title: "404"},
		{URL: "ftp://invalido/imagem.png", Title: "esquema"},
	})

	if len(images) != 1 {
		t.Fatalf("expected only the valid image to survive, got %d", len(images))
	}
	img := images[0]
	if img.FileSizeBytes != int64(len(goodImage)) {
		t.Errorf("size mismatch: %d", img.FileSizeBytes)
	}
	if img.MIMEType != "image/png" {
		t.Errorf("unexpected MIME: %s", img.MIMEType)
	}

	name := filepath.Base(img.LocalPath)
	if !strings.HasPrefix(name, "000_") || !strings.HasSuffix(name, ".png") {
		t.Errorf("unexpected filename: %s", name)
	}
	if strings.ContainsAny(name, " !") {
		t.Errorf("filename not sanitized: %s", name)
	}

	data, err := os.ReadFile(img.LocalPath)
	if err != nil || !bytes.Equal(data, goodImage) {
		t.Error("saved file does not match downloaded bytes")
	}
}

func TestValidImageURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://site.com.br/foto.jpg", true},
		{"https://site.com.br/foto.WEBP", true},
		{"https://img.youtube.com/vi/abc/maxresdefault.jpg", true},
		{"https://pbs.twimg.com/media/xyz?format=jpg", true},
		{"https://site.com.br/pagina.html", false},
		{"ftp://site.com.br/foto.jpg", false},
		{"::garbage::", false},
	}
	for _, tt := range tests {
		if got := ValidImageURL(tt.url); got != tt.want {
			t.Errorf("ValidImageURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestSafeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Post Viral de Cosméticos!", "post_viral_de_cosm_ticos"},
		{"---", "imagem"},
		{"", "imagem"},
	}
	for _, tt := range tests {
		if got := SafeTitle(tt.in); got != tt.want {
			t.Errorf("SafeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := SafeTitle(strings.Repeat("abc ", 30))
	if len(long) > 40 {
		t.Errorf("title not truncated: %d chars", len(long))
	}
}

func TestCaptureScreenshotsEmptyInput(t *testing.T) {
	c := NewCapturer(testPaths(t))
	if shots := c.CaptureScreenshots(context.Background(), nil, "screenshot"); shots != nil {
		t.Errorf("expected nil for empty targets, got %v", shots)
	}
}
