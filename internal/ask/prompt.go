package ask

import (
	"fmt"

	"github.com/jackzampolin/lectern/internal/conversation"
	"github.com/jackzampolin/lectern/internal/library"
	"github.com/jackzampolin/lectern/internal/providers"
)

// systemInstruction is the behavioral contract sent with every question.
// The model is expected, not guaranteed, to follow it; the citation
// resolver degrades gracefully when it deviates.
const systemInstruction = `You are a textbook reference assistant. You answer questions using ONLY the books provided in this conversation.

Rules:
- Answer with verbatim extracts from the books. Do not paraphrase.
- Cite every fact inline in the form (Book: "<name>", Page: <n>).
- Scan every page of every book before concluding that a topic is absent.
- If the books do not contain the answer, say so plainly.
- End your response with a single line of the form:
  VISUAL_REFERENCES: [Book: "<name>", Page: <n>; Book: "<name>", Page: <m>]
  listing the pages most worth displaying as figures for this answer. If no page is worth displaying, end with:
  VISUAL_REFERENCES: []`

// BuildRequest assembles the single multimodal request for a question.
// Every page of every book is sent as an interleaved text and image part,
// prior turns follow as plain role/content messages, and the final part
// restates the question.
func BuildRequest(question string, books []*library.Book, turns []conversation.Turn) *providers.ChatRequest {
	var parts []providers.ContentPart
	for bookNum, book := range books {
		for _, page := range book.Pages {
			parts = append(parts, providers.ContentPart{
				Text: fmt.Sprintf("Book: %q (book %d of %d), Page %d of %d.\nExtracted text:\n%s",
					book.Title, bookNum+1, len(books), page.Number, len(book.Pages), page.Text),
			})
			if len(page.Image) > 0 {
				parts = append(parts, providers.ContentPart{Image: page.Image, MIME: "image/jpeg"})
			}
		}
	}
	parts = append(parts, providers.ContentPart{
		Text: fmt.Sprintf("Question: %s\n\nAnswer using verbatim extracts with inline (Book: \"<name>\", Page: <n>) citations, and finish with the VISUAL_REFERENCES line.", question),
	})

	messages := make([]providers.Message, 0, len(turns)+2)
	messages = append(messages, providers.Message{Role: "system", Content: systemInstruction})
	for _, t := range turns {
		messages = append(messages, providers.Message{Role: string(t.Role), Content: t.Content})
	}
	messages = append(messages, providers.Message{Role: "user", Parts: parts})

	return &providers.ChatRequest{
		Messages:    messages,
		Temperature: 0,
		TopP:        1,
		TopK:        1,
	}
}
