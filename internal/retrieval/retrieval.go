// Package retrieval selects the documents a section is built from: a
// tiered filter on company and section type followed by overlap ranking.
package retrieval

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/document"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/retrieval/ranker"
)

// Tier records which filter produced the candidate set.
type Tier string

const (
	TierExact   Tier = "exact"
	TierCompany Tier = "company"
	TierAll     Tier = "all"
)

// FilterExact keeps documents matching both companyID and sectionType.
func FilterExact(docs []document.Document, companyID, sectionType string) []document.Document {
	var out []document.Document
	for _, d := range docs {
		if d.CompanyID == companyID && d.SectionType == sectionType {
			out = append(out, d)
		}
	}
	return out
}

// FilterCompany keeps documents belonging to companyID.
func FilterCompany(docs []document.Document, companyID string) []document.Document {
	var out []document.Document
	for _, d := range docs {
		if d.CompanyID == companyID {
			out = append(out, d)
		}
	}
	return out
}

// SelectCandidates applies the filters in order and returns the first
// non-empty result with its tier. When neither filter matches, the whole
// input is returned under TierAll, including documents of other companies.
func SelectCandidates(docs []document.Document, companyID, sectionType string) ([]document.Document, Tier) {
	if exact := FilterExact(docs, companyID, sectionType); len(exact) > 0 {
		return exact, TierExact
	}
	if company := FilterCompany(docs, companyID); len(company) > 0 {
		return company, TierCompany
	}
	return docs, TierAll
}

// Query describes one retrieval.
type Query struct {
	CompanyID   string
	SectionType string
	Text        string
	TopK        int
}

// Result is the outcome of a retrieval.
type Result struct {
	Docs       []document.Document
	Scores     []int
	Tier       Tier
	Candidates int
}

// Engine runs retrievals and reports how broad each one had to be.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine() *Engine {
	return &Engine{logger: slog.Default().With("component", "retrieval")}
}

// Retrieve selects at most q.TopK documents from docs.
func (e *Engine) Retrieve(ctx context.Context, docs []document.Document, q Query) Result {
	candidates, tier := SelectCandidates(docs, q.CompanyID, q.SectionType)
	if tier == TierAll && len(docs) > 0 {
		e.logger.WarnContext(ctx, "no documents for company, ranking across all companies",
			"company_id", q.CompanyID,
			"section_type", q.SectionType,
		)
	}
	ranked := ranker.Rank(q.Text, candidates, q.TopK)
	res := Result{
		Docs:       ranker.Docs(ranked),
		Scores:     make([]int, len(ranked)),
		Tier:       tier,
		Candidates: len(candidates),
	}
	for i, r := range ranked {
		res.Scores[i] = r.Score
	}
	return res
}

// Select is Retrieve without the diagnostics.
func (e *Engine) Select(ctx context.Context, docs []document.Document, q Query) []document.Document {
	return e.Retrieve(ctx, docs, q).Docs
}
