package metacard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a batch of metacards from a JSON or YAML file. The file holds
// either a list of metacards or a single metacard.
func LoadFile(path string) ([]Metacard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metacard file %s: %w", path, err)
	}

	metacards, err := Decode(data, formatFor(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse metacard file %s: %w", path, err)
	}
	return metacards, nil
}

// LoadFiles reads and concatenates the batches in each file.
func LoadFiles(paths []string) ([]Metacard, error) {
	var all []Metacard
	for _, path := range paths {
		metacards, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, metacards...)
	}
	return all, nil
}

// Decode parses a batch in the given format ("json" or "yaml").
func Decode(data []byte, format string) ([]Metacard, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var metacards []Metacard
	switch format {
	case "json":
		if trimmed[0] == '{' {
			var single Metacard
			if err := json.Unmarshal(trimmed, &single); err != nil {
				return nil, err
			}
			metacards = []Metacard{single}
		} else if err := json.Unmarshal(trimmed, &metacards); err != nil {
			return nil, err
		}
	case "yaml":
		var node yaml.Node
		if err := yaml.Unmarshal(trimmed, &node); err != nil {
			return nil, err
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.MappingNode {
			var single Metacard
			if err := node.Decode(&single); err != nil {
				return nil, err
			}
			metacards = []Metacard{single}
		} else if err := node.Decode(&metacards); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported metacard format: %s", format)
	}

	for i := range metacards {
		if metacards[i].Attributes == nil {
			metacards[i].Attributes = make(map[string]interface{})
		}
	}
	return metacards, nil
}

// PairUpdates matches old and new metacards by ID. Every new metacard must
// have exactly one old counterpart.
func PairUpdates(olds, news []Metacard) ([]Update, error) {
	byID := make(map[string]Metacard, len(olds))
	for _, old := range olds {
		if _, dup := byID[old.ID]; dup {
			return nil, fmt.Errorf("duplicate old metacard %q", old.ID)
		}
		byID[old.ID] = old
	}

	updates := make([]Update, 0, len(news))
	var missing []string
	for _, n := range news {
		old, ok := byID[n.ID]
		if !ok {
			missing = append(missing, n.ID)
			continue
		}
		updates = append(updates, Update{Old: old, New: n})
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("no previous version for metacard(s) [%s]", strings.Join(missing, ","))
	}
	return updates, nil
}

func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
