package retrieval

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/document"
	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/retrieval/tokenizer"
)

func doc(id, company, section, text string) document.Document {
	return document.Document{ID: id, CompanyID: company, SectionType: section, Language: "en", Text: text}
}

var corpus = []document.Document{
	doc("d1", "acme", "summary", "alpha beta"),
	doc("d2", "acme", "summary", "beta gamma"),
	doc("d3", "acme", "budget", "beta beta beta"),
	doc("d4", "globex", "summary", "beta delta"),
}

func TestSelectCandidates(t *testing.T) {
	tests := []struct {
		name     string
		company  string
		section  string
		wantIDs  []string
		wantTier Tier
	}{
		{"exact", "acme", "summary", []string{"d1", "d2"}, TierExact},
		{"company fallback", "acme", "team", []string{"d1", "d2", "d3"}, TierCompany},
		{"all fallback", "initech", "summary", []string{"d1", "d2", "d3", "d4"}, TierAll},
		{"case sensitive", "ACME", "summary", []string{"d1", "d2", "d3", "d4"}, TierAll},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, tier := SelectCandidates(corpus, tt.company, tt.section)
			assert.Equal(t, tt.wantIDs, document.IDs(got))
			assert.Equal(t, tt.wantTier, tier)
		})
	}
}

func TestSelect_BetaExample(t *testing.T) {
	docs := []document.Document{
		doc("d1", "acme", "summary", "alpha beta"),
		doc("d2", "acme", "summary", "gamma"),
	}
	got := NewEngine().Select(context.Background(), docs, Query{
		CompanyID: "acme", SectionType: "summary", Text: "beta", TopK: 3,
	})
	assert.Equal(t, []string{"d1", "d2"}, document.IDs(got))
}

func TestRetrieve(t *testing.T) {
	e := NewEngine()
	ctx := context.Background()

	res := e.Retrieve(ctx, corpus, Query{CompanyID: "acme", SectionType: "budget", Text: "beta", TopK: 3})
	assert.Equal(t, TierExact, res.Tier)
	assert.Equal(t, []string{"d3"}, document.IDs(res.Docs))
	assert.Equal(t, []int{1}, res.Scores)
	assert.Equal(t, 1, res.Candidates)

	res = e.Retrieve(ctx, corpus, Query{CompanyID: "acme", SectionType: "team", Text: "gamma beta", TopK: 2})
	assert.Equal(t, TierCompany, res.Tier)
	assert.Equal(t, []string{"d2", "d1"}, document.IDs(res.Docs))
	assert.Equal(t, 3, res.Candidates)
}

func TestRetrieve_EdgeCases(t *testing.T) {
	e := NewEngine()
	ctx := context.Background()

	t.Run("empty query keeps filter order", func(t *testing.T) {
		got := e.Select(ctx, corpus, Query{CompanyID: "acme", SectionType: "team", TopK: 2})
		assert.Equal(t, []string{"d1", "d2"}, document.IDs(got))
	})
	t.Run("empty document set", func(t *testing.T) {
		res := e.Retrieve(ctx, nil, Query{CompanyID: "acme", SectionType: "summary", Text: "beta", TopK: 3})
		assert.Empty(t, res.Docs)
		assert.Equal(t, TierAll, res.Tier)
	})
	t.Run("top k zero", func(t *testing.T) {
		assert.Empty(t, e.Select(ctx, corpus, Query{CompanyID: "acme", SectionType: "summary", Text: "beta", TopK: 0}))
	})
	t.Run("negative top k", func(t *testing.T) {
		assert.Empty(t, e.Select(ctx, corpus, Query{CompanyID: "acme", SectionType: "summary", Text: "beta", TopK: -4}))
	})
	t.Run("fewer than top k", func(t *testing.T) {
		assert.Len(t, e.Select(ctx, corpus, Query{CompanyID: "globex", SectionType: "summary", TopK: 10}), 1)
	})
}

// randomCorpus builds documents over a small vocabulary so filters and
// scores collide often.
func randomCorpus(r *rand.Rand, n int) []document.Document {
	companies := []string{"acme", "globex", "initech"}
	sections := []string{"summary", "budget", "team"}
	vocab := []string{"alpha", "beta", "gamma", "delta", "Beta", "grant", "energy"}
	docs := make([]document.Document, n)
	for i := range docs {
		text := ""
		for w := 0; w < r.IntN(6); w++ {
			text += vocab[r.IntN(len(vocab))] + " "
		}
		docs[i] = doc(fmt.Sprintf("d%d", i), companies[r.IntN(3)], sections[r.IntN(3)], text)
	}
	return docs
}

func TestSelect_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	e := NewEngine()
	ctx := context.Background()

	for iter := 0; iter < 200; iter++ {
		docs := randomCorpus(r, r.IntN(12))
		q := Query{
			CompanyID:   []string{"acme", "globex", "initech", "umbrella"}[r.IntN(4)],
			SectionType: []string{"summary", "budget", "team", "risks"}[r.IntN(4)],
			Text:        []string{"", "beta", "alpha gamma", "BETA grant energy"}[r.IntN(4)],
			TopK:        r.IntN(5),
		}
		res := e.Retrieve(ctx, docs, q)

		require.LessOrEqual(t, len(res.Docs), q.TopK)

		byID := make(map[string]document.Document, len(docs))
		for _, d := range docs {
			byID[d.ID] = d
		}
		seen := make(map[string]bool)
		for _, d := range res.Docs {
			require.Contains(t, byID, d.ID, "result not drawn from input")
			require.False(t, seen[d.ID], "duplicate %s", d.ID)
			seen[d.ID] = true
		}

		exact := FilterExact(docs, q.CompanyID, q.SectionType)
		company := FilterCompany(docs, q.CompanyID)
		switch {
		case len(exact) > 0:
			require.Equal(t, TierExact, res.Tier)
			for _, d := range res.Docs {
				require.Equal(t, q.CompanyID, d.CompanyID)
				require.Equal(t, q.SectionType, d.SectionType)
			}
		case len(company) > 0:
			require.Equal(t, TierCompany, res.Tier)
			for _, d := range res.Docs {
				require.Equal(t, q.CompanyID, d.CompanyID)
			}
		default:
			require.Equal(t, TierAll, res.Tier)
		}

		qw := tokenizer.Words(q.Text)
		for i := range res.Docs {
			require.Equal(t, tokenizer.Overlap(qw, tokenizer.Words(res.Docs[i].Text)), res.Scores[i])
			if i > 0 {
				require.GreaterOrEqual(t, res.Scores[i-1], res.Scores[i])
			}
		}
	}
}
