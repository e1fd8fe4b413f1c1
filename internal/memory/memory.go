// Package memory implements the persistent healing memory (spec.md §4.9,
// C10): a serialized document of recalled error-pattern fixes and
// reasoning episodes, schema-versioned the way the teacher's
// internal/store/migrations.go versions its SQLite schema — here applied
// to a single small JSON document rather than a database.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// CurrentVersion is the document schema this package writes.
const CurrentVersion = "2.0"

const maxEpisodes = 100

// Pattern is a recalled (error, context) → fix association.
type Pattern struct {
	Error    string    `json:"error"`
	Context  string    `json:"context"`
	Fix      string    `json:"fix"`
	Count    int       `json:"count"`
	LastUsed time.Time `json:"last_used"`
}

// EpisodeContext is the (file, function, goals) context an episode was
// recorded under.
type EpisodeContext struct {
	File     string   `json:"file"`
	Function string   `json:"function,omitempty"`
	Goals    []string `json:"goals,omitempty"`
}

// Episode is a recorded reasoning episode (spec.md §3).
type Episode struct {
	TriggerType    string         `json:"trigger_type"`
	Observations   []string       `json:"observations"`
	Decision       string         `json:"decision"`
	DecisionDetail string         `json:"decision_detail,omitempty"`
	Outcome        string         `json:"outcome,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	Context        EpisodeContext `json:"context"`
}

// Document is the full persisted memory document (spec.md §3/§6).
type Document struct {
	Version           string            `json:"version"`
	Patterns          []Pattern         `json:"patterns"`
	ProjectDefaults   map[string]string `json:"project_defaults"`
	ReasoningEpisodes []Episode         `json:"reasoning_episodes"`
}

// VersionMismatch is returned by Load when a document declares a version
// newer than CurrentVersion (spec.md §4.9: "Newer unknown versions must be
// rejected with VersionMismatch{expected, found}").
type VersionMismatch struct {
	Expected string
	Found    string
}

func (e *VersionMismatch) Error() string {
	return fmt.Sprintf("memory: version mismatch: expected %s, found %s", e.Expected, e.Found)
}

// now is a seam so tests get deterministic LastUsed/Timestamp values.
var now = func() time.Time { return time.Now() }

func empty() *Document {
	return &Document{Version: CurrentVersion, ProjectDefaults: map[string]string{}}
}

// Load reads the memory document at path. A missing file is not an error
// and returns an empty document (spec.md §4.9).
func Load(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("memory: reading %s: %w", path, err)
	}

	var raw struct {
		Version           string            `json:"version"`
		Patterns          []Pattern         `json:"patterns"`
		ProjectDefaults   map[string]string `json:"project_defaults"`
		ReasoningEpisodes []Episode         `json:"reasoning_episodes"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("memory: parsing %s: %w", path, err)
	}

	doc := &Document{
		Version:           raw.Version,
		Patterns:          raw.Patterns,
		ProjectDefaults:   raw.ProjectDefaults,
		ReasoningEpisodes: raw.ReasoningEpisodes,
	}
	if doc.ProjectDefaults == nil {
		doc.ProjectDefaults = map[string]string{}
	}

	switch doc.Version {
	case "1.0":
		// v1.0 documents carry no reasoning_episodes field — migrate
		// silently to v2.0 with an empty episode list.
		doc.Version = "2.0"
		doc.ReasoningEpisodes = []Episode{}
	case "2.0", "":
		if doc.Version == "" {
			doc.Version = "2.0"
		}
	default:
		return nil, &VersionMismatch{Expected: CurrentVersion, Found: doc.Version}
	}

	return doc, nil
}

// Save persists the document to path as indented JSON.
func Save(path string, doc *Document) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: marshaling document: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("memory: writing %s: %w", path, err)
	}
	return nil
}

// FindPattern looks up a pattern by error text: case-insensitive exact
// match first, then substring match in both directions (spec.md §4.9).
func (d *Document) FindPattern(errText string) (*Pattern, bool) {
	return d.FindPatternWithContext(errText, "")
}

// FindPatternWithContext is FindPattern additionally preferring a pattern
// whose recorded context matches, falling back to any match on error text.
func (d *Document) FindPatternWithContext(errText, context string) (*Pattern, bool) {
	needle := strings.ToLower(errText)

	var exactAny, exactCtx *Pattern
	for i := range d.Patterns {
		p := &d.Patterns[i]
		if strings.ToLower(p.Error) == needle {
			if exactAny == nil {
				exactAny = p
			}
			if context != "" && strings.EqualFold(p.Context, context) {
				exactCtx = p
			}
		}
	}
	if exactCtx != nil {
		return exactCtx, true
	}
	if exactAny != nil {
		return exactAny, true
	}

	var subAny, subCtx *Pattern
	for i := range d.Patterns {
		p := &d.Patterns[i]
		pe := strings.ToLower(p.Error)
		if strings.Contains(pe, needle) || strings.Contains(needle, pe) {
			if subAny == nil {
				subAny = p
			}
			if context != "" && strings.EqualFold(p.Context, context) {
				subCtx = p
			}
		}
	}
	if subCtx != nil {
		return subCtx, true
	}
	if subAny != nil {
		return subAny, true
	}
	return nil, false
}

// RecordFix updates an existing pattern in place (count++, fix text
// latest-wins, empty context filled in) or appends a new one (spec.md §4.9).
func (d *Document) RecordFix(errText, context, fix string) {
	needle := strings.ToLower(errText)
	for i := range d.Patterns {
		p := &d.Patterns[i]
		if strings.ToLower(p.Error) == needle {
			p.Count++
			p.Fix = fix
			p.LastUsed = now()
			if p.Context == "" && context != "" {
				p.Context = context
			}
			return
		}
	}
	d.Patterns = append(d.Patterns, Pattern{
		Error: errText, Context: context, Fix: fix, Count: 1, LastUsed: now(),
	})
}

// ProjectDefault returns a project default value, if set.
func (d *Document) ProjectDefault(key string) (string, bool) {
	v, ok := d.ProjectDefaults[key]
	return v, ok
}

// SetProjectDefault sets a project default value.
func (d *Document) SetProjectDefault(key, value string) {
	if d.ProjectDefaults == nil {
		d.ProjectDefaults = map[string]string{}
	}
	d.ProjectDefaults[key] = value
}

// RecordEpisode appends a reasoning episode, evicting the oldest once the
// 100-episode FIFO bound (spec.md §4.9) is exceeded.
func (d *Document) RecordEpisode(ep Episode) {
	if ep.Timestamp.IsZero() {
		ep.Timestamp = now()
	}
	d.ReasoningEpisodes = append(d.ReasoningEpisodes, ep)
	if len(d.ReasoningEpisodes) > maxEpisodes {
		d.ReasoningEpisodes = d.ReasoningEpisodes[len(d.ReasoningEpisodes)-maxEpisodes:]
	}
}

// FindSimilarEpisodes matches by exact trigger type plus any
// observation-substring overlap (spec.md §4.9).
func (d *Document) FindSimilarEpisodes(triggerType string, observations []string) []Episode {
	var out []Episode
	for _, ep := range d.ReasoningEpisodes {
		if ep.TriggerType != triggerType {
			continue
		}
		if observationsOverlap(ep.Observations, observations) {
			out = append(out, ep)
		}
	}
	return out
}

func observationsOverlap(a, b []string) bool {
	for _, x := range a {
		xl := strings.ToLower(x)
		for _, y := range b {
			yl := strings.ToLower(y)
			if strings.Contains(xl, yl) || strings.Contains(yl, xl) {
				return true
			}
		}
	}
	return false
}
