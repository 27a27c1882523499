package categorizer

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed training.yaml
var defaultTrainingYAML []byte

// Corpus is a labelled set of example descriptions per category.
type Corpus struct {
	Categories []CategoryExamples `yaml:"categories"`
}

// CategoryExamples holds the training examples for one category.
type CategoryExamples struct {
	Name     string   `yaml:"name"`
	Examples []string `yaml:"examples"`
}

// DefaultCorpus returns the embedded training corpus.
func DefaultCorpus() *Corpus {
	corpus, err := ParseCorpus(defaultTrainingYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded training corpus is invalid: %v", err))
	}
	return corpus
}

// LoadCorpus reads a training file. An empty path returns the embedded
// corpus.
func LoadCorpus(path string) (*Corpus, error) {
	if path == "" {
		return DefaultCorpus(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read training file: %w", err)
	}

	corpus, err := ParseCorpus(data)
	if err != nil {
		return nil, fmt.Errorf("invalid training file %s: %w", path, err)
	}
	return corpus, nil
}

// ParseCorpus decodes and validates a YAML training corpus.
func ParseCorpus(data []byte) (*Corpus, error) {
	var corpus Corpus
	if err := yaml.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("failed to parse training YAML: %w", err)
	}
	if err := corpus.Validate(); err != nil {
		return nil, err
	}
	return &corpus, nil
}

// Validate checks that the corpus can train a classifier: at least two
// uniquely named categories, each with at least one usable example.
func (c *Corpus) Validate() error {
	if len(c.Categories) < 2 {
		return fmt.Errorf("training corpus needs at least 2 categories, got %d", len(c.Categories))
	}

	seen := make(map[string]bool, len(c.Categories))
	for i, category := range c.Categories {
		name := strings.TrimSpace(category.Name)
		if name == "" {
			return fmt.Errorf("category %d has no name", i+1)
		}
		if seen[name] {
			return fmt.Errorf("duplicate category %q", name)
		}
		seen[name] = true

		usable := 0
		for _, example := range category.Examples {
			if len(Terms(example)) > 0 {
				usable++
			}
		}
		if usable == 0 {
			return fmt.Errorf("category %q has no usable examples", name)
		}
	}
	return nil
}
