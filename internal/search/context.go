package search

import (
	"fmt"
	"strings"
)

// FormatSnippets renders results into the citation block handed to the
// downstream language-model context, one block per result:
//
//	[source] title
//	URL: ...
//	Snippet: ...
func FormatSnippets(results []ResultItem) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("[%s] %s\nURL: %s\nSnippet: %s", r.Source, r.Title, r.URL, r.Content))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}

// FormatContext wraps the snippet block in the summarization prompt
// the chat layer sends alongside the user's query.
func FormatContext(query string, results []ResultItem) string {
	return fmt.Sprintf(
		"Based on the following search results, write a clear, concise summary answering my latest prompt: %q.\n\nSearch Results:\n%s",
		query, FormatSnippets(results),
	)
}
