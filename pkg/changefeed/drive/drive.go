// Package drive reads the Google Drive v2 change feed.
package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-hclog"
	drive "google.golang.org/api/drive/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/hashicorp-forge/recipebox/pkg/changefeed"
)

// Scope is the OAuth scope the feed needs: app-private storage only.
const Scope = drive.DriveAppdataScope

// maxDocumentSize bounds downloaded recipe documents.
const maxDocumentSize = 4 << 20

const changeFields = "items(id,fileId,deleted,file(id,title,mimeType,appDataContents,parents(id))),largestChangeId,nextPageToken"

// Feed implements changefeed.Feed and changefeed.DocumentSource over a Drive
// service.
type Feed struct {
	service *drive.Service
	logger  hclog.Logger
}

var (
	_ changefeed.Feed           = (*Feed)(nil)
	_ changefeed.DocumentSource = (*Feed)(nil)
)

// New creates a Feed. opts are passed to drive.NewService, typically
// option.WithTokenSource or option.WithCredentialsFile.
func New(ctx context.Context, logger hclog.Logger, opts ...option.ClientOption) (*Feed, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &Feed{
		service: svc,
		logger:  logger.Named("drive"),
	}, nil
}

// ListChanges implements changefeed.Feed.
func (f *Feed) ListChanges(ctx context.Context, req changefeed.Request) (*changefeed.Page, error) {
	call := f.service.Changes.List().
		IncludeDeleted(true).
		Fields(changeFields).
		Context(ctx)
	if req.StartChangeID > 0 {
		call = call.StartChangeId(req.StartChangeID)
	}
	if req.PageToken != "" {
		call = call.PageToken(req.PageToken)
	}
	if req.PageSize > 0 {
		call = call.MaxResults(req.PageSize)
	}

	list, err := call.Do()
	if err != nil {
		return nil, classifyError("list changes", err)
	}

	page := &changefeed.Page{
		LargestChangeID: list.LargestChangeId,
		NextPageToken:   list.NextPageToken,
		Items:           make([]changefeed.Entry, 0, len(list.Items)),
	}
	for _, c := range list.Items {
		if c == nil {
			continue
		}
		page.Items = append(page.Items, convertChange(c))
	}

	f.logger.Trace("fetched change page",
		"start", req.StartChangeID,
		"items", len(page.Items),
		"largest_change_id", page.LargestChangeID,
		"has_next", page.NextPageToken != "",
	)
	return page, nil
}

// FetchDocument implements changefeed.DocumentSource. The file body must be
// a JSON recipe document.
func (f *Feed) FetchDocument(ctx context.Context, fileID string) (*changefeed.Document, error) {
	resp, err := f.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, classifyError("download "+fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", changefeed.ErrRemoteIO, fileID, err)
	}

	var doc changefeed.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		// Not every app file is a recipe document; keep the metadata only.
		f.logger.Debug("file is not a recipe document", "file_id", fileID, "error", err)
		return nil, nil
	}
	return &doc, nil
}

func convertChange(c *drive.Change) changefeed.Entry {
	e := changefeed.Entry{
		ChangeID: c.Id,
		FileID:   c.FileId,
		Deleted:  c.Deleted,
	}
	if c.File != nil {
		file := &changefeed.File{
			MimeType:  c.File.MimeType,
			Title:     c.File.Title,
			AppScoped: c.File.AppDataContents,
		}
		for _, p := range c.File.Parents {
			if p != nil {
				file.ParentFolderIDs = append(file.ParentFolderIDs, p.Id)
			}
		}
		e.File = file
		if e.FileID == "" {
			e.FileID = c.File.Id
		}
	}
	return e
}

// classifyError maps Drive failures onto the changefeed sentinels.
func classifyError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s: %v", changefeed.ErrAuth, op, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", changefeed.ErrRemoteIO, op, err)
}
