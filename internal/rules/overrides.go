package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/romangod6/sitemap-builder/internal/models"
	"github.com/spf13/afero"
)

// Override is a partial replacement for the heuristic metadata of one path.
type Override struct {
	ChangeFreq *models.ChangeFreq
	Priority   *float64
}

// Overrides maps canonical URL paths to their overrides. It is read-only after load.
type Overrides map[string]Override

type rawOverride struct {
	ChangeFreq *string          `json:"changefreq"`
	Priority   *json.RawMessage `json:"priority"`
}

// OverrideWarning describes an override value that was ignored.
type OverrideWarning struct {
	Path   string
	Field  string
	Reason string
}

func (w OverrideWarning) String() string {
	return fmt.Sprintf("override %s: ignoring %s: %s", w.Path, w.Field, w.Reason)
}

// LoadOverrides reads a JSON override file:
//
//	{"/fonts/anchu/": {"changefreq": "monthly", "priority": "0.95"}}
//
// Priorities may be strings or numbers. Invalid fields are dropped and reported
// as warnings. A missing file returns an error satisfying errors.Is(err, fs.ErrNotExist).
func LoadOverrides(fsys afero.Fs, path string) (Overrides, []OverrideWarning, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("override config %s: %w", path, fs.ErrNotExist)
		}
		return nil, nil, fmt.Errorf("failed to read override config %s: %w", path, err)
	}
	return ParseOverrides(data)
}

// ParseOverrides decodes override JSON. See LoadOverrides.
func ParseOverrides(data []byte) (Overrides, []OverrideWarning, error) {
	var raw map[string]rawOverride
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse override config: %w", err)
	}

	out := make(Overrides, len(raw))
	var warnings []OverrideWarning
	for path, r := range raw {
		var o Override
		if r.ChangeFreq != nil {
			if cf, ok := models.ParseChangeFreq(*r.ChangeFreq); ok {
				o.ChangeFreq = &cf
			} else {
				warnings = append(warnings, OverrideWarning{Path: path, Field: "changefreq", Reason: fmt.Sprintf("unknown value %q", *r.ChangeFreq)})
			}
		}
		if r.Priority != nil {
			p, err := parsePriority(*r.Priority)
			if err != nil {
				warnings = append(warnings, OverrideWarning{Path: path, Field: "priority", Reason: err.Error()})
			} else {
				o.Priority = &p
			}
		}
		out[path] = o
	}
	return out, warnings, nil
}

func parsePriority(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return 0, fmt.Errorf("not a number: %s", string(raw))
		}
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}
	p, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, fmt.Errorf("%s outside 0.0-1.0", s)
	}
	if p == 0 {
		// -0 would render as "-0.0"
		p = 0
	}
	return p, nil
}
