package composer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/document"
)

func TestCompose_Empty(t *testing.T) {
	for _, userText := range []string{"", "beta", "anything at all"} {
		assert.Equal(t, EmptyMessage, Compose(userText, nil))
		assert.Equal(t, EmptyMessage, Compose(userText, []document.Document{}))
	}
}

func TestCompose(t *testing.T) {
	docs := []document.Document{
		{ID: "d1", Text: "alpha beta"},
		{ID: "d2", Text: "gamma"},
	}
	want := "Based on 2 relevant document(s), here is the compiled content:\n\n" +
		"--- Document 1 (ID: d1) ---\nalpha beta\n\n" +
		"--- Document 2 (ID: d2) ---\ngamma"
	assert.Equal(t, want, Compose("beta", docs))
}

func TestCompose_SingleAndEmptyText(t *testing.T) {
	got := Compose("", []document.Document{{ID: "x"}})
	assert.Equal(t, "Based on 1 relevant document(s), here is the compiled content:\n\n--- Document 1 (ID: x) ---\n", got)
}
