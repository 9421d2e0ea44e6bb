// Package ranker orders candidate documents by word overlap with a query.
package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/document"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/retrieval/tokenizer"
)

// Scored pairs a document with its overlap score.
type Scored struct {
	Doc   document.Document
	Score int
}

// Rank scores every candidate against query, sorts by score descending and
// returns at most limit results. Equal scores keep candidate order. A
// negative limit is treated as zero.
func Rank(query string, candidates []document.Document, limit int) []Scored {
	if limit < 0 {
		limit = 0
	}
	q := tokenizer.Words(query)
	scored := make([]Scored, len(candidates))
	for i, doc := range candidates {
		scored[i] = Scored{Doc: doc, Score: tokenizer.Overlap(q, tokenizer.Words(doc.Text))}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// Docs strips the scores from results.
func Docs(results []Scored) []document.Document {
	docs := make([]document.Document, len(results))
	for i, r := range results {
		docs[i] = r.Doc
	}
	return docs
}
