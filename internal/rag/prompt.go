package rag

import (
	"fmt"
	"strings"

	"pdfmind/internal/domain"
	"pdfmind/internal/llm"
)

const systemPrompt = `You are an expert Q&A system that is trusted around the world.
Always answer the query using the provided context information, and not prior knowledge.
Some rules to follow:
1. Never directly reference the given context in your answer.
2. Avoid statements like 'Based on the context, ...' or 'The context information ...' or anything along those lines.`

const qaTemplate = `Context information is below.
---------------------
%s
---------------------
Given the context information and not prior knowledge, answer the query.
Query: %s
Answer: `

// buildMessages renders retrieved chunks into the question-answering prompt.
// Each chunk is preceded by its page and file so the model can cite them.
func buildMessages(question string, results []domain.SearchResult) []llm.Message {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		var b strings.Builder
		if page := r.Chunk.Metadata[domain.MetaPageLabel]; page != "" {
			fmt.Fprintf(&b, "%s: %s\n", domain.MetaPageLabel, page)
		}
		if name := r.Chunk.Metadata[domain.MetaFileName]; name != "" {
			fmt.Fprintf(&b, "%s: %s\n", domain.MetaFileName, name)
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(r.Chunk.Text)
		blocks = append(blocks, b.String())
	}
	return []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(qaTemplate, strings.Join(blocks, "\n\n"), question)},
	}
}
