// Package citation turns the model's free-text answer into validated page
// references. The model is prompted to cite inline as (Book: "<name>",
// Page: <n>) and to terminate with a VISUAL_REFERENCES block; both are soft
// contracts, so extraction degrades to fewer references instead of failing.
package citation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jackzampolin/lectern/internal/library"
)

// Reference is a resolved (book, page) pointer. Books are identified by
// their stable ID so a reference survives removal of other books; the
// title is carried for display.
type Reference struct {
	BookID    string `json:"book_id"`
	BookTitle string `json:"book_title"`
	Page      int    `json:"page"`
}

// Resolution is the output of Resolve: the text to display (markup
// stripped) and the ordered, deduplicated reference list.
type Resolution struct {
	Display    string      `json:"display"`
	References []Reference `json:"references,omitempty"`
}

var (
	// Trailing block: VISUAL_REFERENCES: [Book: "A", Page: 3; Book: "B", Page: 5]
	visualBlockRe = regexp.MustCompile(`(?is)VISUAL_REFERENCES:\s*\[(.*?)\]`)

	// Page citation, tolerating a missing colon: "Page 4" or "Page: 4".
	pageRe = regexp.MustCompile(`(?i)Page:?\s*(\d+)`)
)

// titlePrefixLen is how much of a book title a fragment must contain to be
// attributed to that book. Prefix matching tolerates the model abbreviating
// or mangling titles, at the cost of false positives when two titles share
// a long common prefix. Known limitation, kept deliberately.
const titlePrefixLen = 10

// Resolve parses a raw model answer against a library snapshot.
// It is a pure function of (raw, books): running it twice on the same
// inputs yields identical output, and it never invents a reference that
// has no textual pattern in the answer.
func Resolve(raw string, books []library.BookRef) Resolution {
	display := raw
	var refs []Reference
	seen := make(map[string]bool)

	add := func(book library.BookRef, page int) {
		key := book.ID + ":" + strconv.Itoa(page)
		if seen[key] {
			return
		}
		seen[key] = true
		refs = append(refs, Reference{BookID: book.ID, BookTitle: book.Title, Page: page})
	}

	// The visual block is internal tagging syntax and must never reach the
	// user, whether or not any of its entries resolve.
	if m := visualBlockRe.FindStringSubmatchIndex(raw); m != nil {
		display = strings.TrimSpace(raw[:m[0]] + raw[m[1]:])
		block := raw[m[2]:m[3]]

		for _, fragment := range strings.Split(block, ";") {
			book, ok := matchBook(fragment, books)
			if !ok {
				continue
			}
			if page, ok := extractPage(fragment); ok {
				add(book, page)
			}
		}
	} else {
		display = strings.TrimSpace(raw)
	}

	// Inline citations are scanned over the answer body only, deliberately
	// narrower than the full raw text: scanning the visual block here would
	// attribute every block page to every block book once their exact
	// titles appear. They are not always grouped near the book name, so
	// attribution uses the coarser whole-document check: the book's exact
	// title must appear somewhere in the body.
	for _, book := range books {
		if !strings.Contains(display, book.Title) {
			continue
		}
		for _, m := range pageRe.FindAllStringSubmatch(display, -1) {
			if page, err := strconv.Atoi(m[1]); err == nil {
				add(book, page)
			}
		}
	}

	return Resolution{Display: display, References: validate(refs, books)}
}

// matchBook attributes a block fragment to a book when the fragment
// contains a case-insensitive match of at least the first titlePrefixLen
// characters of the book's title.
func matchBook(fragment string, books []library.BookRef) (library.BookRef, bool) {
	lower := strings.ToLower(fragment)
	for _, book := range books {
		prefix := strings.ToLower(book.Title)
		if len(prefix) > titlePrefixLen {
			prefix = prefix[:titlePrefixLen]
		}
		if prefix != "" && strings.Contains(lower, prefix) {
			return book, true
		}
	}
	return library.BookRef{}, false
}

// extractPage pulls the first page number out of a block fragment.
// A fragment with no number contributes no reference.
func extractPage(fragment string) (int, bool) {
	m := pageRe.FindStringSubmatch(fragment)
	if m == nil {
		return 0, false
	}
	page, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return page, true
}

// validate drops references whose page number falls outside the cited
// book's page count. Book existence is guaranteed here because matching
// only ever runs against the snapshot, but page numbers come straight
// from model output and can exceed the book.
func validate(refs []Reference, books []library.BookRef) []Reference {
	counts := make(map[string]int, len(books))
	for _, b := range books {
		counts[b.ID] = b.PageCount
	}

	out := refs[:0]
	for _, r := range refs {
		if r.Page >= 1 && r.Page <= counts[r.BookID] {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
