// Package content holds the static copy of the dashboard: the page header and
// the recommendations block.
package content

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultContent []byte

type Page struct {
	Title       string `yaml:"title"`
	Subtitle    string `yaml:"subtitle"`
	Description string `yaml:"description"`
}

type Recommendation struct {
	Title string `yaml:"title"`
	Body  string `yaml:"body"`
}

type Content struct {
	Page            Page             `yaml:"page"`
	Recommendations []Recommendation `yaml:"recommendations"`
}

// Default returns the embedded content.
func Default() (*Content, error) {
	return Parse(defaultContent)
}

// Parse decodes and checks a content document.
func Parse(b []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	if c.Page.Title == "" {
		return nil, errors.New("content: page title is required")
	}
	for i, r := range c.Recommendations {
		if r.Title == "" || r.Body == "" {
			return nil, fmt.Errorf("content: recommendation %d needs a title and body", i+1)
		}
	}
	return &c, nil
}
