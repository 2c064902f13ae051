package providers

import (
	"strings"
	"testing"

	"github.com/openai/openai-go/v3/responses"
)

func TestOpenAIInput(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "follow the rules"},
		{Role: "user", Content: "first question"},
		{Role: "assistant", Content: "first answer"},
		{Role: "user", Parts: []ContentPart{
			{Text: "page text"},
			{Image: []byte{0xff, 0xd8}, MIME: "image/jpeg"},
			{Text: "the question"},
		}},
	}

	items, instructions := openaiInput(messages)

	if instructions != "follow the rules" {
		t.Errorf("instructions = %q", instructions)
	}
	// system message is lifted out of the item list
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}

	wantRoles := []responses.EasyInputMessageRole{"user", "assistant", "user"}
	for i, want := range wantRoles {
		msg := items[i].OfMessage
		if msg == nil {
			t.Fatalf("item %d is not a message", i)
		}
		if msg.Role != want {
			t.Errorf("item %d role = %q, want %q", i, msg.Role, want)
		}
	}

	content := items[2].OfMessage.Content.OfInputItemContentList
	if len(content) != 3 {
		t.Fatalf("expected 3 content parts, got %d", len(content))
	}
	if content[0].OfInputText == nil || content[0].OfInputText.Text != "page text" {
		t.Errorf("unexpected first part: %+v", content[0])
	}
	if content[1].OfInputImage == nil {
		t.Fatal("expected image part in second position")
	}
	if url := content[1].OfInputImage.ImageURL.Value; !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Errorf("unexpected image URL: %q", url)
	}
	if content[2].OfInputText == nil || content[2].OfInputText.Text != "the question" {
		t.Errorf("unexpected final part: %+v", content[2])
	}
}

func TestOpenAIContentPlainMessage(t *testing.T) {
	content := openaiContent(Message{Role: "user", Content: "just text"})
	if len(content) != 1 {
		t.Fatalf("expected 1 content part, got %d", len(content))
	}
	if content[0].OfInputText == nil || content[0].OfInputText.Text != "just text" {
		t.Errorf("unexpected part: %+v", content[0])
	}
}
