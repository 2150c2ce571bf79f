package changefeed

import (
	"context"
	"fmt"
	"sync"
)

// StaticFeed serves pre-built pages. Page i is returned for the i-th call
// of a read; the page token is the index of the next page. It is used by
// tests.
type StaticFeed struct {
	mu       sync.Mutex
	pages    []Page
	failures map[int]error
	requests []Request
	docs     map[string]*Document
}

// NewStaticFeed creates a feed over pages. NextPageToken values are filled in.
func NewStaticFeed(pages ...Page) *StaticFeed {
	f := &StaticFeed{
		failures: make(map[int]error),
		docs:     make(map[string]*Document),
	}
	f.SetPages(pages...)
	return f
}

// SetPages replaces the served pages.
func (f *StaticFeed) SetPages(pages ...Page) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pages = make([]Page, len(pages))
	copy(f.pages, pages)
	for i := range f.pages {
		f.pages[i].NextPageToken = ""
		if i < len(f.pages)-1 {
			f.pages[i].NextPageToken = fmt.Sprintf("%d", i+1)
		}
	}
}

// FailPage makes requests for page index fail with err. A nil err clears it.
func (f *StaticFeed) FailPage(index int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, index)
		return
	}
	f.failures[index] = err
}

// AddDocument registers a document body for fileID.
func (f *StaticFeed) AddDocument(fileID string, doc *Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[fileID] = doc
}

// Requests returns every request received so far.
func (f *StaticFeed) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.requests))
	copy(out, f.requests)
	return out
}

// ListChanges implements Feed.
func (f *StaticFeed) ListChanges(ctx context.Context, req Request) (*Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)

	index := 0
	if req.PageToken != "" {
		if _, err := fmt.Sscanf(req.PageToken, "%d", &index); err != nil {
			return nil, fmt.Errorf("%w: bad page token %q", ErrRemoteIO, req.PageToken)
		}
	}
	if err, ok := f.failures[index]; ok {
		return nil, err
	}
	if len(f.pages) == 0 {
		return &Page{}, nil
	}
	if index >= len(f.pages) {
		return nil, fmt.Errorf("%w: page %d out of range", ErrRemoteIO, index)
	}

	page := f.pages[index]
	// Honour the start bound the way the remote service does.
	items := make([]Entry, 0, len(page.Items))
	for _, e := range page.Items {
		if e.ChangeID == 0 || e.ChangeID >= req.StartChangeID {
			items = append(items, e)
		}
	}
	page.Items = items
	return &page, nil
}

// FetchDocument implements DocumentSource.
func (f *StaticFeed) FetchDocument(ctx context.Context, fileID string) (*Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[fileID]
	if !ok {
		return nil, nil
	}
	return doc, nil
}
