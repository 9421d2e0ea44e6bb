package ranker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/document"
)

func doc(id, text string) document.Document {
	return document.Document{ID: id, Text: text}
}

func ids(results []Scored) []string {
	return document.IDs(Docs(results))
}

func TestRank_OrdersByOverlap(t *testing.T) {
	candidates := []document.Document{
		doc("d1", "alpha"),
		doc("d2", "alpha beta gamma"),
		doc("d3", "alpha beta"),
	}
	got := Rank("alpha beta gamma", candidates, 10)
	assert.Equal(t, []string{"d2", "d3", "d1"}, ids(got))
	assert.Equal(t, []int{3, 2, 1}, []int{got[0].Score, got[1].Score, got[2].Score})
}

func TestRank_TiesKeepInputOrder(t *testing.T) {
	candidates := []document.Document{
		doc("d1", "zeta"),
		doc("d2", "beta"),
		doc("d3", "eta"),
		doc("d4", "beta"),
	}
	assert.Equal(t, []string{"d2", "d4", "d1", "d3"}, ids(Rank("beta", candidates, 10)))
	// Empty query scores everything zero: input order survives.
	assert.Equal(t, []string{"d1", "d2", "d3", "d4"}, ids(Rank("", candidates, 10)))
}

func TestRank_Limit(t *testing.T) {
	candidates := []document.Document{doc("d1", "a"), doc("d2", "b"), doc("d3", "c")}
	assert.Len(t, Rank("a", candidates, 2), 2)
	assert.Len(t, Rank("a", candidates, 5), 3)
	assert.Empty(t, Rank("a", candidates, 0))
	assert.Empty(t, Rank("a", candidates, -1))
	assert.Empty(t, Rank("a", nil, 3))
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	candidates := []document.Document{doc("d1", "x"), doc("d2", "y")}
	Rank("y", candidates, 2)
	assert.Equal(t, "d1", candidates[0].ID)
}

func BenchmarkRank(b *testing.B) {
	candidates := make([]document.Document, 1000)
	for i := range candidates {
		candidates[i] = doc(fmt.Sprintf("d%d", i), strings.Repeat(fmt.Sprintf("word%d ", i%37), 40))
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Rank("word3 word7 word11 grant", candidates, 3)
	}
}
