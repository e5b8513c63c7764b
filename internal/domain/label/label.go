// Package label classifies free-text label/distributor strings into a fixed
// set of commercial-affiliation categories.
//
// Classification is keyword-table driven: the table is data, so covering a
// new imprint is a configuration change, not a code change. Matching is
// case-insensitive substring matching in a fixed priority order; the first
// category with a matching keyword wins. The classifier is pure: identical
// input always yields the identical category.
package label

import "strings"

// Category is a commercial affiliation bucket.
type Category string

const (
	UniversalMusicGroup Category = "universal_music_group"
	SonyMusic           Category = "sony_music"
	WarnerMusicGroup    Category = "warner_music_group"
	BMG                 Category = "bmg"
	BigIndieDistributor Category = "big_indie_distributor"
	OtherUnsigned       Category = "other_unsigned"
)

// ParseCategory maps a string onto a known category, defaulting to
// OtherUnsigned for anything unrecognized.
func ParseCategory(s string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case UniversalMusicGroup, SonyMusic, WarnerMusicGroup, BMG, BigIndieDistributor:
		return Category(strings.ToLower(strings.TrimSpace(s)))
	default:
		return OtherUnsigned
	}
}

// CategoryKeywords binds one category to its ordered keyword set. Compound
// licensing phrases live in the same set as bare brand names.
type CategoryKeywords struct {
	Category Category
	Keywords []string
}

// DefaultTable returns the shipped keyword table in priority order.
func DefaultTable() []CategoryKeywords {
	return []CategoryKeywords{
		{
			Category: UniversalMusicGroup,
			Keywords: []string{
				"universal music", "universal", "umg",
				"interscope", "republic", "island", "def jam", "geffen",
				"polydor", "capitol", "virgin", "emi",
				"under exclusive license to universal",
				"division of universal",
			},
		},
		{
			Category: SonyMusic,
			Keywords: []string{
				"sony music", "sony",
				"columbia", "rca", "epic", "arista",
				"division of sony",
				"under exclusive license to sony",
			},
		},
		{
			Category: WarnerMusicGroup,
			Keywords: []string{
				"warner music", "warner", "wmg",
				"atlantic", "elektra", "parlophone", "asylum",
				"division of warner",
				"under exclusive license to warner",
			},
		},
		{
			Category: BMG,
			Keywords: []string{"bmg", "bertelsmann"},
		},
		{
			Category: BigIndieDistributor,
			Keywords: []string{
				"distrokid", "tunecore", "cd baby", "cdbaby",
				"awal", "believe", "the orchard", "united masters",
				"unitedmasters", "amuse", "ditto", "routenote", "stem",
			},
		},
	}
}

// Classifier matches concatenated label text against a keyword table.
type Classifier struct {
	table []CategoryKeywords
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithTable replaces the default keyword table. Row order defines match
// priority; keywords are lowercased at construction.
func WithTable(table []CategoryKeywords) Option {
	return func(c *Classifier) {
		if len(table) > 0 {
			c.table = table
		}
	}
}

// NewClassifier creates a classifier with configuration options.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{table: DefaultTable()}

	for _, opt := range opts {
		opt(c)
	}

	// Normalize once so Classify stays allocation-light.
	normalized := make([]CategoryKeywords, len(c.table))
	for i, row := range c.table {
		keywords := make([]string, len(row.Keywords))
		for j, kw := range row.Keywords {
			keywords[j] = strings.ToLower(kw)
		}
		normalized[i] = CategoryKeywords{Category: row.Category, Keywords: keywords}
	}
	c.table = normalized

	return c
}

// Classify concatenates the given text fields and returns the first
// category whose keyword set matches; OtherUnsigned when nothing does.
func (c *Classifier) Classify(texts ...string) Category {
	joined := strings.ToLower(strings.Join(texts, " "))
	if strings.TrimSpace(joined) == "" {
		return OtherUnsigned
	}

	for _, row := range c.table {
		for _, kw := range row.Keywords {
			if kw != "" && strings.Contains(joined, kw) {
				return row.Category
			}
		}
	}
	return OtherUnsigned
}
