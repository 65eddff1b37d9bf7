package skills

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	logx "github.com/Chative-medical-agent/server/pkg/logger"
)

const frontmatterDelimiter = "---"

// Document is a skill document split into its metadata block and body.
type Document struct {
	Meta map[string]any
	Body string
}

// ParseDocument splits an optional leading metadata block, delimited by
// "---" lines, from the body. Metadata that fails to parse degrades to the
// whole raw content being the body.
func ParseDocument(raw string) Document {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontmatterDelimiter {
		return Document{Body: strings.TrimSpace(raw)}
	}

	closing := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterDelimiter {
			closing = i
			break
		}
	}
	if closing < 0 {
		return Document{Body: strings.TrimSpace(raw)}
	}

	meta := map[string]any{}
	if block := strings.Join(lines[1:closing], "\n"); strings.TrimSpace(block) != "" {
		if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
			logx.Warn().Err(err).Msg("Skill metadata unreadable, using raw document")
			return Document{Body: strings.TrimSpace(raw)}
		}
	}
	return Document{Meta: meta, Body: strings.TrimSpace(strings.Join(lines[closing+1:], "\n"))}
}

// DocumentLoader reads "<dir>/<id>.md" once per id and caches the body.
// Concurrent first loads of the same id share one read.
type DocumentLoader struct {
	dir string

	mu    sync.RWMutex
	cache map[string]string
	group singleflight.Group
}

func NewDocumentLoader(dir string) *DocumentLoader {
	return &DocumentLoader{dir: dir, cache: make(map[string]string)}
}

// Load returns the effective body of the skill document for id.
func (l *DocumentLoader) Load(ctx context.Context, id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", fmt.Errorf("invalid skill id %q", id)
	}

	l.mu.RLock()
	body, ok := l.cache[id]
	l.mu.RUnlock()
	if ok {
		return body, nil
	}

	ch := l.group.DoChan(id, func() (any, error) {
		raw, err := os.ReadFile(filepath.Join(l.dir, id+".md"))
		if err != nil {
			return "", fmt.Errorf("read skill %s: %w", id, err)
		}
		doc := ParseDocument(string(raw))
		l.mu.Lock()
		l.cache[id] = doc.Body
		l.mu.Unlock()
		return doc.Body, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}
