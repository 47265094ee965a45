package permission

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadRuleset reads a ruleset from a JSON or YAML file, chosen by file
// extension (.json, .yaml, .yml). The loaded ruleset is validated.
func LoadRuleset(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ruleset: %w", err)
	}

	var rs Ruleset
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &rs); err != nil {
			return nil, fmt.Errorf("parse ruleset %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &rs); err != nil {
			return nil, fmt.Errorf("parse ruleset %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported ruleset format %q", ext)
	}

	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ruleset %s: %w", path, err)
	}
	return &rs, nil
}

// SaveRuleset writes a ruleset to a JSON or YAML file, chosen by file
// extension.
func SaveRuleset(path string, rs *Ruleset) error {
	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		data, err = json.MarshalIndent(rs, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(rs)
	default:
		return fmt.Errorf("unsupported ruleset format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("marshal ruleset: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write ruleset: %w", err)
	}
	return nil
}
