// Package composer assembles generated section text from ranked documents.
package composer

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/document"
)

// EmptyMessage is returned when no documents were selected.
const EmptyMessage = "No relevant documents found for the requested section."

// Compose concatenates docs under a header in rank order. userText is
// currently unused.
func Compose(userText string, docs []document.Document) string {
	if len(docs) == 0 {
		return EmptyMessage
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Based on %d relevant document(s), here is the compiled content:\n\n", len(docs))
	for i, d := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Document %d (ID: %s) ---\n%s", i+1, d.ID, d.Text)
	}
	return b.String()
}
