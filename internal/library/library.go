// Package library holds the in-memory collection of loaded books.
package library

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Page is a single rendered page of a book. Immutable once created.
type Page struct {
	Number int    // 1-based, contiguous within a book
	Image  []byte // lossy-compressed raster (JPEG)
	Text   string // extracted plain text, reading order preserved
}

// Book is one uploaded document as an ordered sequence of pages.
type Book struct {
	ID    string // stable identifier, never reused across removals
	Title string // display name, not guaranteed unique
	Pages []Page
}

// PageCount returns the number of pages in the book.
func (b *Book) PageCount() int { return len(b.Pages) }

// Page returns the page with the given 1-based number.
func (b *Book) Page(num int) (Page, bool) {
	if num < 1 || num > len(b.Pages) {
		return Page{}, false
	}
	return b.Pages[num-1], true
}

// NewBook creates a book with a fresh stable ID.
func NewBook(title string, pages []Page) *Book {
	return &Book{
		ID:    uuid.New().String(),
		Title: title,
		Pages: pages,
	}
}

// Selection is the active preview position.
type Selection struct {
	BookID string `json:"book_id"`
	Page   int    `json:"page"`
}

// BookRef is a lightweight view of a book used for prompt building and
// citation resolution. It never holds page images.
type BookRef struct {
	ID        string
	Title     string
	PageCount int
}

// Store is the in-memory library. Insertion order is upload order.
// All methods are safe for concurrent use; the HTTP mux serves requests
// concurrently even though the product is single-user.
type Store struct {
	mu        sync.RWMutex
	books     []*Book
	selection Selection
}

// NewStore creates an empty library.
func NewStore() *Store {
	return &Store{}
}

// AddBooks appends books to the end of the library, preserving the
// insertion order of everything already present.
func (s *Store) AddBooks(books ...*Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = append(s.books, books...)

	// First upload becomes the active selection.
	if s.selection.BookID == "" && len(s.books) > 0 {
		s.selection = Selection{BookID: s.books[0].ID, Page: 1}
	}
}

// RemoveBook removes the book with the given ID. Insertion positions of
// subsequent books shift down by one; book IDs are stable and unaffected.
func (s *Store) RemoveBook(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, b := range s.books {
		if b.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("book not found: %s", id)
	}
	s.books = append(s.books[:idx], s.books[idx+1:]...)
	s.clampSelection()
	return nil
}

// Get returns the book with the given ID.
func (s *Store) Get(id string) (*Book, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.books {
		if b.ID == id {
			return b, true
		}
	}
	return nil, false
}

// Books returns all books in insertion order.
func (s *Store) Books() []*Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Book, len(s.books))
	copy(out, s.books)
	return out
}

// Len returns the number of books in the library.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}

// Refs returns a snapshot of book references in insertion order. The
// snapshot is what the answer requester and citation resolver operate on,
// so a question in flight keeps a consistent view even if books are
// removed mid-conversation.
func (s *Store) Refs() []BookRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	refs := make([]BookRef, len(s.books))
	for i, b := range s.books {
		refs[i] = BookRef{ID: b.ID, Title: b.Title, PageCount: len(b.Pages)}
	}
	return refs
}

// Selection returns the active preview selection.
func (s *Store) Selection() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

// SetSelection moves the active preview. The page is clamped into the
// book's range; selecting an unknown book is an error.
func (s *Store) SetSelection(sel Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.books {
		if b.ID == sel.BookID {
			if sel.Page < 1 {
				sel.Page = 1
			}
			if sel.Page > len(b.Pages) {
				sel.Page = len(b.Pages)
			}
			s.selection = sel
			return nil
		}
	}
	return fmt.Errorf("book not found: %s", sel.BookID)
}

// clampSelection repairs the selection after a removal. Must be called
// with the lock held.
func (s *Store) clampSelection() {
	for _, b := range s.books {
		if b.ID == s.selection.BookID {
			if s.selection.Page > len(b.Pages) {
				s.selection.Page = len(b.Pages)
			}
			return
		}
	}
	// Selected book is gone: fall back to the first book, if any.
	if len(s.books) > 0 {
		s.selection = Selection{BookID: s.books[0].ID, Page: 1}
	} else {
		s.selection = Selection{}
	}
}
