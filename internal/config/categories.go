package config

import (
	"fmt"
	"os"
	"strings"

	"finledger/internal/core"

	"gopkg.in/yaml.v3"
)

// categoryFile is the layout of CATEGORY_DEFAULTS_FILE:
//
//	categories:
//	  - name: Salary
//	    type: income
//	    color: "#28a745"
type categoryFile struct {
	Categories []categoryEntry `yaml:"categories"`
}

type categoryEntry struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Color       string `yaml:"color"`
	Icon        string `yaml:"icon"`
}

// LoadCategoryDefaults reads the categories created for new users. Names
// must be unique, ignoring case.
func LoadCategoryDefaults(path string) ([]core.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category defaults: %w", err)
	}
	return parseCategoryDefaults(data)
}

func parseCategoryDefaults(data []byte) ([]core.Category, error) {
	var file categoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse category defaults: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("category defaults: no categories listed")
	}

	seen := make(map[string]bool, len(file.Categories))
	out := make([]core.Category, 0, len(file.Categories))
	for i, e := range file.Categories {
		c := core.Category{
			Name:        strings.TrimSpace(e.Name),
			Description: e.Description,
			Type:        core.TransactionType(strings.ToUpper(strings.TrimSpace(e.Type))),
			Color:       e.Color,
			Icon:        e.Icon,
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("category defaults entry %d (%q): %w", i+1, e.Name, err)
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			return nil, fmt.Errorf("category defaults: %q listed twice", c.Name)
		}
		seen[key] = true
		out = append(out, c)
	}
	return out, nil
}
