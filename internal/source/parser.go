package source

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/theirongolddev/feaso/internal/model"
)

// Format is a schedule document encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// Parse decodes a schedule document. Tasks without a name are dropped and
// later duplicates of a name are ignored. Dates are kept as written;
// malformed dates are left for the engine to treat as unconstrained.
func Parse(data []byte, f Format) ([]model.ScheduleTask, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var raw []rawTask
	switch f {
	case FormatYAML:
		var err error
		if raw, err = parseYAML(data); err != nil {
			return nil, fmt.Errorf("parsing yaml schedule: %w", err)
		}
	default:
		var err error
		if raw, err = parseJSON(data); err != nil {
			return nil, fmt.Errorf("parsing json schedule: %w", err)
		}
	}
	return normalize(raw), nil
}

func parseJSON(data []byte) ([]rawTask, error) {
	if data[0] == '[' {
		var list []rawTask
		err := json.Unmarshal(data, &list)
		return list, err
	}
	var doc rawDocument
	err := json.Unmarshal(data, &doc)
	return doc.Tasks, err
}

func parseYAML(data []byte) ([]rawTask, error) {
	var list []rawTask
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var doc rawDocument
	err := yaml.Unmarshal(data, &doc)
	return doc.Tasks, err
}

func normalize(raw []rawTask) []model.ScheduleTask {
	seen := make(map[string]bool, len(raw))
	out := make([]model.ScheduleTask, 0, len(raw))
	for _, r := range raw {
		name := strings.TrimSpace(r.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		start, end := r.StartDate, r.EndDate
		if start == "" {
			start = r.Start
		}
		if end == "" {
			end = r.End
		}
		out = append(out, model.ScheduleTask{
			Name:      name,
			StartDate: strings.TrimSpace(start),
			EndDate:   strings.TrimSpace(end),
		})
	}
	return out
}
