package skills

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Chative-medical-agent/server/internal/agent/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadRegistry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeFile(t, dir, "registry.json", `{"skills":[
		{"id":"device_expert","description":"血壓計操作、錯誤代碼排除"},
		{"id":"health_analyst","description":"血壓數據分析"},
		{"id":"general","description":"reserved"},
		{"id":"device_expert","description":"duplicate"}
	]}`)

	r := LoadRegistry(p)
	ids := r.IDs()
	if len(ids) != 2 || ids[0] != "device_expert" || ids[1] != "health_analyst" {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if !r.Has("health_analyst") || r.Has("general") {
		t.Fatal("reserved ids must be skipped")
	}
}

func TestLoadRegistryFailsSoft(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	missing := LoadRegistry(filepath.Join(dir, "nope.json"))
	if missing.Len() != 0 {
		t.Fatalf("missing file must yield empty registry, got %d", missing.Len())
	}

	malformed := LoadRegistry(writeFile(t, dir, "bad.json", `{"skills": [`))
	if malformed.Len() != 0 {
		t.Fatalf("malformed file must yield empty registry, got %d", malformed.Len())
	}
	if got := malformed.Manifest(); got != generalManifestLine {
		t.Fatalf("empty manifest must hold only the general line, got %q", got)
	}
}

func TestManifest(t *testing.T) {
	t.Parallel()

	r := NewRegistry([]model.SkillEntry{
		{ID: "device_expert", Description: "設備"},
		{ID: "health_analyst", Description: "健康"},
	})
	want := "- 'device_expert': 設備\n- 'health_analyst': 健康\n" + generalManifestLine
	if got := r.Manifest(); got != want {
		t.Fatalf("Manifest() = %q, want %q", got, want)
	}
}

func TestParseDocument(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		body string
		meta bool
	}{
		{"plain", "只有內文", "只有內文", false},
		{"frontmatter", "---\nname: device\nversion: 2\n---\n說明書內容\n", "說明書內容", true},
		{"empty frontmatter", "---\n---\n內文", "內文", false},
		{"unclosed", "---\nname: x\n內文", "---\nname: x\n內文", false},
		{"bad yaml", "---\nname: [unclosed\n---\n內文", "---\nname: [unclosed\n---\n內文", false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			doc := ParseDocument(tc.raw)
			if doc.Body != tc.body {
				t.Fatalf("body = %q, want %q", doc.Body, tc.body)
			}
			if tc.meta && doc.Meta["name"] != "device" {
				t.Fatalf("unexpected meta: %v", doc.Meta)
			}
		})
	}
}

func TestDocumentLoaderCachesBody(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "device_expert.md", "---\nname: device\n---\n錯誤代碼表")
	l := NewDocumentLoader(dir)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body, err := l.Load(context.Background(), "device_expert")
			if err != nil {
				errs <- err
				return
			}
			if body != "錯誤代碼表" {
				errs <- os.ErrInvalid
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Load() error = %v", err)
	}

	// Served from cache even after the file disappears.
	if err := os.Remove(filepath.Join(dir, "device_expert.md")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if body, err := l.Load(context.Background(), "device_expert"); err != nil || body != "錯誤代碼表" {
		t.Fatalf("cached Load() = %q, %v", body, err)
	}
}

func TestDocumentLoaderRejectsTraversal(t *testing.T) {
	t.Parallel()

	l := NewDocumentLoader(t.TempDir())
	if _, err := l.Load(context.Background(), "../etc/passwd"); err == nil || !strings.Contains(err.Error(), "invalid skill id") {
		t.Fatalf("expected invalid id error, got %v", err)
	}
	if _, err := l.Load(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for missing document")
	}
}
