package keywords

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/GiladLeef/ShortsTurbo/internal/log"
	"github.com/GiladLeef/ShortsTurbo/internal/provider"
)

// stopwords are common english words that make useless footage search terms.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "has": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "his": {}, "have": {}, "this": {},
	"that": {}, "with": {}, "from": {}, "they": {}, "will": {}, "would": {},
	"there": {}, "their": {}, "what": {}, "about": {}, "which": {}, "when": {},
	"your": {}, "them": {}, "then": {}, "than": {}, "were": {}, "been": {},
	"into": {}, "only": {}, "over": {}, "also": {}, "just": {}, "because": {},
	"more": {}, "most": {}, "some": {}, "such": {}, "very": {}, "like": {},
	"each": {}, "other": {}, "these": {}, "those": {}, "while": {}, "where": {},
	"does": {}, "doing": {}, "being": {}, "after": {}, "before": {}, "during": {},
	"here": {}, "every": {}, "much": {}, "many": {}, "even": {}, "still": {},
}

// DefaultTerms are the search terms used when nothing better can be derived
// from the task input.
func DefaultTerms() []string {
	return []string{"scenery", "people", "city", "nature", "business", "technology"}
}

// FromFilename derives search terms from a script file name by splitting its
// base name on separators. "sunset_beach-waves.txt" becomes
// ["sunset", "beach", "waves"].
func FromFilename(name string) []string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	parts := strings.FieldsFunc(base, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})

	terms := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if len(p) < 2 {
			continue
		}
		terms = append(terms, p)
	}

	return terms
}

// ExtractorConfig is the configuration for the local keyword extractor.
type ExtractorConfig struct {
	Logger log.Logger
}

func (c *ExtractorConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "keywords.Extractor"})

	return nil
}

// Extractor derives search terms from a script using word frequency. It runs
// fully locally and never fails transiently.
type Extractor struct {
	logger log.Logger
}

// NewExtractor creates a new local keyword extractor.
func NewExtractor(cfg ExtractorConfig) (*Extractor, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Extractor{logger: cfg.Logger}, nil
}

// Descriptor returns the provider descriptor.
func (e *Extractor) Descriptor() provider.Descriptor {
	return provider.Descriptor{
		Name:         "local-keywords",
		Capabilities: []provider.Capability{provider.CapabilityKeywords},
	}
}

// Extract returns up to limit terms ordered by how often they appear in the
// script. Ties keep the order of first appearance so results are stable.
func (e *Extractor) Extract(ctx context.Context, script string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 3
	}

	words := strings.FieldsFunc(strings.ToLower(script), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	type wordCount struct {
		word  string
		count int
		first int
	}

	counts := map[string]*wordCount{}
	order := []*wordCount{}
	for i, w := range words {
		if len([]rune(w)) < 3 {
			continue
		}
		if _, ok := stopwords[w]; ok {
			continue
		}

		wc, ok := counts[w]
		if !ok {
			wc = &wordCount{word: w, first: i}
			counts[w] = wc
			order = append(order, wc)
		}
		wc.count++
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})

	if len(order) > limit {
		order = order[:limit]
	}

	terms := make([]string, 0, len(order))
	for _, wc := range order {
		terms = append(terms, wc.word)
	}

	e.logger.Debugf("Extracted %d terms from script", len(terms))

	return terms, nil
}
