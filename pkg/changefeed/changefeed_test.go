package changefeed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appFile(title string) *File {
	return &File{MimeType: "application/json", Title: title, AppScoped: true}
}

func TestCollect_FollowsPageTokens(t *testing.T) {
	feed := NewStaticFeed(
		Page{Items: []Entry{{ChangeID: 1, FileID: "a", File: appFile("a")}}, LargestChangeID: 40},
		Page{Items: []Entry{{ChangeID: 2, FileID: "b", File: appFile("b")}}, LargestChangeID: 42},
		Page{Items: []Entry{{ChangeID: 3, FileID: "c", Deleted: true}}, LargestChangeID: 41},
	)

	res, err := Collect(context.Background(), feed, 0, 100)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Pages)
	assert.Len(t, feed.Requests(), 3)
	assert.Len(t, res.Entries, 3)
	assert.EqualValues(t, 42, res.LargestChangeID, "largest id is the max over all pages")

	reqs := feed.Requests()
	assert.Equal(t, "", reqs[0].PageToken)
	assert.Equal(t, "1", reqs[1].PageToken)
	assert.Equal(t, "2", reqs[2].PageToken)
	for _, r := range reqs {
		assert.EqualValues(t, 100, r.PageSize)
	}
}

func TestCollect_FailureAbortsPass(t *testing.T) {
	feed := NewStaticFeed(Page{}, Page{}, Page{})
	feed.FailPage(1, ErrRemoteIO)

	res, err := Collect(context.Background(), feed, 0, 10)
	assert.ErrorIs(t, err, ErrRemoteIO)
	assert.Nil(t, res)
	assert.Len(t, feed.Requests(), 2, "no pages are fetched after a failure")
}

func TestCollect_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	feed := NewStaticFeed(Page{})
	_, err := Collect(ctx, feed, 0, 10)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, feed.Requests())
}

func TestStartFor(t *testing.T) {
	assert.EqualValues(t, 0, StartFor(0, false))
	assert.EqualValues(t, 0, StartFor(0, true))
	assert.EqualValues(t, 43, StartFor(42, true))
}

func TestDispose(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  Disposition
	}{
		{"tombstone", Entry{FileID: "x", Deleted: true}, DispositionDelete},
		{"tombstone wins over folder", Entry{FileID: "x", Deleted: true, File: &File{MimeType: FolderMimeType}}, DispositionDelete},
		{"folder", Entry{FileID: "x", File: &File{MimeType: FolderMimeType, AppScoped: true}}, DispositionDiscard},
		{"not app scoped", Entry{FileID: "x", File: &File{MimeType: "text/plain"}}, DispositionDiscard},
		{"no metadata", Entry{FileID: "x"}, DispositionDiscard},
		{"app file", Entry{FileID: "x", File: appFile("x")}, DispositionUpsert},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Dispose(tt.entry))
		})
	}
}

func TestClassify(t *testing.T) {
	t.Run("deleted, folder and app file", func(t *testing.T) {
		plan := Classify([]Entry{
			{FileID: "gone", Deleted: true},
			{FileID: "dir", File: &File{MimeType: FolderMimeType, AppScoped: true}},
			{FileID: "recipe", File: appFile("Soup")},
		})
		assert.Equal(t, []string{"gone"}, plan.Deletions)
		require.Len(t, plan.Upserts, 1)
		assert.Equal(t, "recipe", plan.Upserts[0].FileID)
		assert.Equal(t, 1, plan.Discarded)
	})

	t.Run("last entry for a file wins", func(t *testing.T) {
		plan := Classify([]Entry{
			{FileID: "a", File: appFile("v1")},
			{FileID: "b", Deleted: true},
			{FileID: "a", Deleted: true},
			{FileID: "b", File: appFile("back")},
			{FileID: "c", File: appFile("v1")},
			{FileID: "c", File: appFile("v2")},
		})
		assert.Equal(t, []string{"a"}, plan.Deletions)
		require.Len(t, plan.Upserts, 2)
		assert.Equal(t, "b", plan.Upserts[0].FileID)
		assert.Equal(t, "v2", plan.Upserts[1].File.Title)
	})
}

func TestDocument_Validate(t *testing.T) {
	doc := Document{
		Title:       "Tea",
		Ingredients: []DocumentIngredient{{Quantity: 1, Item: "leaves"}, {QuantityNumerator: 1, QuantityDenominator: 2}},
	}
	assert.NoError(t, doc.Validate())
	assert.NoError(t, Document{}.Validate())

	doc.Ingredients = append(doc.Ingredients, DocumentIngredient{QuantityDenominator: -4})
	err := doc.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingredients")
}
