package sources

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"newsradar/internal/models"
)

// seedFile is the YAML layout of the static source configuration.
type seedFile struct {
	Sources []seedSource `yaml:"sources"`
}

type seedSource struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Category    string `yaml:"category"`
	Language    string `yaml:"language"`
	Enabled     *bool  `yaml:"enabled"`
	Color       string `yaml:"color"`
	MaxArticles int    `yaml:"maxArticles"`
}

// LoadSeedFile reads the static source configuration used to seed an empty
// registry.
func LoadSeedFile(path string) ([]models.Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}

	out := make([]models.Source, 0, len(file.Sources))
	for _, s := range file.Sources {
		if s.Name == "" || s.URL == "" {
			return nil, fmt.Errorf("seed file %s: every source needs a name and url", path)
		}
		src := *models.NewSource(s.Name, s.URL)
		src.Category = s.Category
		if s.Language != "" {
			src.Language = s.Language
		}
		if s.Enabled != nil {
			src.Enabled = *s.Enabled
		}
		if s.Color != "" {
			src.Color = s.Color
		}
		if s.MaxArticles > 0 {
			src.MaxArticles = s.MaxArticles
		}
		out = append(out, src)
	}
	return out, nil
}
