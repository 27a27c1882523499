// =============================================================================
// Statement Ingest - Transaction Categorizer
// =============================================================================
//
// Suggests a spending category for a cleaned transaction. The ingestion
// pipeline never calls a categorizer; callers inject one and invoke it once
// per final transaction.
//
// The default implementation is a naive Bayes classifier trained from a
// labelled corpus. Text is lower-cased, everything except letters and
// whitespace is stripped, and the remaining words are turned into unigram
// and bigram terms.
//
// =============================================================================

package categorizer

//go:generate mockgen -destination=mocks/mock_categorizer.go -package=mocks github.com/ginjaninja78/statement-ingest/internal/categorizer Categorizer

import (
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/jbrukh/bayesian"
)

// DefaultCategory is returned when nothing can be learned from the text.
const DefaultCategory = "Others"

// Categorizer suggests a category and a confidence in [0, 1] for a
// transaction.
type Categorizer interface {
	Categorize(description, merchant string) (string, float64)
}

// Bayesian is a Categorizer backed by a naive Bayes classifier. It is safe
// for concurrent use.
type Bayesian struct {
	mu         sync.RWMutex
	classifier *bayesian.Classifier
}

// NewBayesian trains a classifier from a corpus.
//
// PARAMETERS:
//   - corpus: The labelled examples. Nil uses the embedded corpus.
//
// RETURNS:
//   - A trained categorizer, or an error if the corpus is invalid.
func NewBayesian(corpus *Corpus) (*Bayesian, error) {
	if corpus == nil {
		corpus = DefaultCorpus()
	}
	if err := corpus.Validate(); err != nil {
		return nil, err
	}

	classes := make([]bayesian.Class, 0, len(corpus.Categories))
	for _, category := range corpus.Categories {
		classes = append(classes, bayesian.Class(strings.TrimSpace(category.Name)))
	}

	b := &Bayesian{classifier: bayesian.NewClassifier(classes...)}
	for i, category := range corpus.Categories {
		for _, example := range category.Examples {
			if terms := Terms(example); len(terms) > 0 {
				b.classifier.Learn(terms, classes[i])
			}
		}
	}

	return b, nil
}

// NewDefault trains a classifier from the embedded corpus.
func NewDefault() *Bayesian {
	b, err := NewBayesian(nil)
	if err != nil {
		panic(err)
	}
	return b
}

// Categorize returns the most probable category and its posterior.
// Empty text yields DefaultCategory with zero confidence.
func (b *Bayesian) Categorize(description, merchant string) (string, float64) {
	terms := Terms(description + " " + merchant)
	if len(terms) == 0 {
		return DefaultCategory, 0
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	scores, best, _ := b.classifier.LogScores(terms)
	return string(b.classifier.Classes[best]), posterior(scores, best)
}

// posterior converts log scores into the probability of the winning class.
// Raw probability products underflow on long descriptions.
func posterior(logScores []float64, best int) float64 {
	sum := 0.0
	for _, score := range logScores {
		sum += math.Exp(score - logScores[best])
	}
	return 1 / sum
}

// Learn adds one labelled example. The category must be one the classifier
// was trained with.
func (b *Bayesian) Learn(text, category string) bool {
	terms := Terms(text)
	if len(terms) == 0 {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, class := range b.classifier.Classes {
		if string(class) == category {
			b.classifier.Learn(terms, class)
			return true
		}
	}
	return false
}

// Categories lists the classes the classifier can return.
func (b *Bayesian) Categories() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, len(b.classifier.Classes))
	for i, class := range b.classifier.Classes {
		out[i] = string(class)
	}
	return out
}

// Terms normalizes text into unigram and bigram terms.
func Terms(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, strings.ToLower(text))

	words := strings.Fields(cleaned)
	if len(words) == 0 {
		return nil
	}

	terms := make([]string, 0, 2*len(words)-1)
	terms = append(terms, words...)
	for i := 0; i+1 < len(words); i++ {
		terms = append(terms, words[i]+" "+words[i+1])
	}
	return terms
}
