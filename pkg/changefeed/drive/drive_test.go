package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/hashicorp-forge/recipebox/pkg/changefeed"
)

func newTestFeed(t *testing.T, handler http.Handler) *Feed {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	f, err := New(context.Background(), nil,
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return f
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestFeed_ListChanges(t *testing.T) {
	var seen []string
	f := newTestFeed(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/changes", r.URL.Path)
		q := r.URL.Query()
		seen = append(seen, q.Get("startChangeId")+"|"+q.Get("pageToken")+"|"+q.Get("maxResults"))
		assert.Equal(t, "true", q.Get("includeDeleted"))

		writeJSON(w, map[string]any{
			"largestChangeId": "1207",
			"nextPageToken":   "next-1",
			"items": []map[string]any{
				{"id": "1200", "fileId": "gone", "deleted": true},
				{"id": "1201", "fileId": "dir", "file": map[string]any{
					"id": "dir", "title": "Recipes", "mimeType": changefeed.FolderMimeType,
					"appDataContents": true, "parents": []map[string]any{{"id": "appDataFolder"}},
				}},
				{"id": "1202", "fileId": "soup", "file": map[string]any{
					"id": "soup", "title": "Soup", "mimeType": "application/json",
					"appDataContents": true, "parents": []map[string]any{{"id": "dir"}},
				}},
			},
		})
	}))

	page, err := f.ListChanges(context.Background(), changefeed.Request{
		StartChangeID: 1200,
		PageToken:     "tok",
		PageSize:      50,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"1200|tok|50"}, seen)
	assert.EqualValues(t, 1207, page.LargestChangeID)
	assert.Equal(t, "next-1", page.NextPageToken)
	require.Len(t, page.Items, 3)

	assert.True(t, page.Items[0].Deleted)
	assert.Equal(t, "gone", page.Items[0].FileID)
	assert.EqualValues(t, 1200, page.Items[0].ChangeID)

	require.NotNil(t, page.Items[2].File)
	assert.True(t, page.Items[2].File.AppScoped)
	assert.Equal(t, []string{"dir"}, page.Items[2].File.ParentFolderIDs)

	plan := changefeed.Classify(page.Items)
	assert.Equal(t, []string{"gone"}, plan.Deletions)
	require.Len(t, plan.Upserts, 1)
	assert.Equal(t, "soup", plan.Upserts[0].FileID)
}

func TestFeed_ListChanges_Unbounded(t *testing.T) {
	f := newTestFeed(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("startChangeId"))
		assert.False(t, r.URL.Query().Has("pageToken"))
		writeJSON(w, map[string]any{"largestChangeId": "3"})
	}))

	page, err := f.ListChanges(context.Background(), changefeed.Request{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Empty(t, page.NextPageToken)
}

func TestFeed_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, changefeed.ErrAuth},
		{"server error", http.StatusInternalServerError, changefeed.ErrRemoteIO},
		{"rate limited", http.StatusTooManyRequests, changefeed.ErrRemoteIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFeed(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprintf(w, `{"error":{"code":%d,"message":"nope"}}`, tt.status)
			}))

			_, err := f.ListChanges(context.Background(), changefeed.Request{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFeed_FetchDocument(t *testing.T) {
	f := newTestFeed(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "media", r.URL.Query().Get("alt"))
		switch r.URL.Path {
		case "/files/soup":
			writeJSON(w, changefeed.Document{
				Title:       "Soup",
				Description: "Warm",
				Ingredients: []changefeed.DocumentIngredient{
					{Quantity: 1, Unit: "l", Item: "stock"},
				},
				Instructions: []string{"heat", "serve"},
			})
		case "/files/notes":
			_, _ = w.Write([]byte("plain text"))
		default:
			http.NotFound(w, r)
		}
	}))
	ctx := context.Background()

	doc, err := f.FetchDocument(ctx, "soup")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "Soup", doc.Title)
	assert.Equal(t, []string{"heat", "serve"}, doc.Instructions)
	require.Len(t, doc.Ingredients, 1)
	assert.Equal(t, "stock", doc.Ingredients[0].Item)

	doc, err = f.FetchDocument(ctx, "notes")
	require.NoError(t, err)
	assert.Nil(t, doc, "non-recipe files carry metadata only")

	_, err = f.FetchDocument(ctx, "missing")
	assert.ErrorIs(t, err, changefeed.ErrRemoteIO)
}
