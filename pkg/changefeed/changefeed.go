// Package changefeed reads a paginated remote change feed and sorts its
// entries into deletions and upserts.
package changefeed

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	// ErrRemoteIO is returned when the remote service could not be reached or
	// returned a failure. The pass can be retried.
	ErrRemoteIO = errors.New("remote change feed unavailable")

	// ErrAuth is returned when the remote service rejects the credentials.
	ErrAuth = errors.New("remote change feed rejected credentials")
)

// FolderMimeType marks remote folders, which never become recipes.
const FolderMimeType = "application/vnd.google-apps.folder"

// File is the remote file metadata attached to a change entry.
type File struct {
	MimeType        string
	Title           string
	ParentFolderIDs []string

	// AppScoped is true when the file lives in storage private to this
	// application.
	AppScoped bool
}

// Entry is one change in the feed.
type Entry struct {
	ChangeID int64
	FileID   string
	Deleted  bool
	File     *File
}

// Request asks for one page of changes.
type Request struct {
	// StartChangeID is the first change to return. Zero means from the
	// beginning of the feed.
	StartChangeID int64
	PageToken     string
	PageSize      int64
}

// Page is one page of changes.
type Page struct {
	Items           []Entry
	LargestChangeID int64

	// NextPageToken is empty on the last page.
	NextPageToken string
}

// Feed is a remote change feed.
type Feed interface {
	ListChanges(ctx context.Context, req Request) (*Page, error)
}

// Document is the body of a remote recipe file.
type Document struct {
	Title        string               `json:"title"`
	Description  string               `json:"description"`
	Ingredients  []DocumentIngredient `json:"ingredients"`
	Instructions []string             `json:"instructions"`
}

// DocumentIngredient is an ingredient line of a Document.
type DocumentIngredient struct {
	Quantity            int64  `json:"quantity"`
	QuantityNumerator   int64  `json:"quantityNumerator"`
	QuantityDenominator int64  `json:"quantityDenominator"`
	Unit                string `json:"unit"`
	Item                string `json:"item"`
	Preparation         string `json:"preparation"`
}

// Validate checks that a document can be stored as recipe rows.
func (d Document) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Ingredients),
	)
}

// Validate checks the quantities of an ingredient line.
func (i DocumentIngredient) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Quantity, validation.Min(int64(0))),
		validation.Field(&i.QuantityNumerator, validation.Min(int64(0))),
		validation.Field(&i.QuantityDenominator, validation.Min(int64(0))),
	)
}

// DocumentSource downloads recipe documents. Feeds that can serve file bodies
// implement it.
type DocumentSource interface {
	FetchDocument(ctx context.Context, fileID string) (*Document, error)
}
