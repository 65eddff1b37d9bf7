package skills

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Chative-medical-agent/server/internal/agent/model"
	logx "github.com/Chative-medical-agent/server/pkg/logger"
)

const generalManifestLine = "- 'general': 處理日常寒暄、心情分享或非上述專業領域的問題。"

type registryFile struct {
	Skills []model.SkillEntry `json:"skills"`
}

// Registry is the immutable id -> description set loaded at startup.
type Registry struct {
	entries []model.SkillEntry
	index   map[string]int
}

// NewRegistry builds a registry from entries, dropping empty, reserved and
// duplicate ids.
func NewRegistry(entries []model.SkillEntry) *Registry {
	r := &Registry{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		e.ID = strings.TrimSpace(e.ID)
		switch {
		case e.ID == "":
			logx.Warn().Msg("Skipping skill with empty id")
			continue
		case e.ID == model.IntentVisualizer || e.ID == model.IntentGeneral:
			logx.Warn().Str("skill_id", e.ID).Msg("Skipping skill with reserved id")
			continue
		}
		if _, dup := r.index[e.ID]; dup {
			logx.Warn().Str("skill_id", e.ID).Msg("Skipping duplicate skill id")
			continue
		}
		r.index[e.ID] = len(r.entries)
		r.entries = append(r.entries, e)
	}
	return r
}

// LoadRegistry reads the registry file. It never fails: a missing or
// malformed file yields an empty registry, which routes everything to general.
func LoadRegistry(path string) *Registry {
	entries, err := readRegistry(path)
	if err != nil {
		logx.Error().Err(err).Str("path", path).Msg("Failed to load skill registry, specialized routing disabled")
		return NewRegistry(nil)
	}
	r := NewRegistry(entries)
	logx.Info().Str("path", path).Strs("skills", r.IDs()).Msg("Skill registry loaded")
	return r
}

func readRegistry(path string) ([]model.SkillEntry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	var f registryFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	return f.Skills, nil
}

// Entries returns the registered skills in file order.
func (r *Registry) Entries() []model.SkillEntry {
	return append([]model.SkillEntry(nil), r.entries...)
}

// IDs returns the registered ids in file order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		ids = append(ids, e.ID)
	}
	return ids
}

func (r *Registry) Has(id string) bool {
	_, ok := r.index[id]
	return ok
}

func (r *Registry) Len() int { return len(r.entries) }

// Manifest renders one bullet per skill plus the fixed general bullet, for
// the router's decision prompt.
func (r *Registry) Manifest() string {
	var sb strings.Builder
	for _, e := range r.entries {
		fmt.Fprintf(&sb, "- '%s': %s\n", e.ID, e.Description)
	}
	sb.WriteString(generalManifestLine)
	return sb.String()
}
