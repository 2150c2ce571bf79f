package syncagent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/recipebox/internal/cmd/base"
	"github.com/hashicorp-forge/recipebox/internal/config"
	"github.com/hashicorp-forge/recipebox/pkg/changefeed"
	"github.com/hashicorp-forge/recipebox/pkg/cursor"
)

func newCommand(t *testing.T, feed changefeed.Feed) (*Command, *cli.MockUi) {
	t.Helper()
	ui := cli.NewMockUi()
	return &Command{
		Command: &base.Command{Log: hclog.NewNullLogger(), UI: ui},
		newFeed: func(context.Context, config.Account) (changefeed.Feed, error) {
			return feed, nil
		},
	}, ui
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "config.hcl")
	body := fmt.Sprintf(`
database {
  path = %q
}

sync {
  prefs_file = %q
  account "cook@example.com" {
    token_file = "unused.json"
  }
}
`, filepath.Join(dir, "data", "recipebox.db"), filepath.Join(dir, "prefs.json"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRun_Once(t *testing.T) {
	dir := t.TempDir()
	feed := changefeed.NewStaticFeed(changefeed.Page{
		Items: []changefeed.Entry{{
			ChangeID: 7,
			FileID:   "f1",
			File:     &changefeed.File{MimeType: "application/json", Title: "Chili", AppScoped: true},
		}},
		LargestChangeID: 7,
	})

	c, ui := newCommand(t, feed)
	code := c.Run([]string{"-config", writeConfig(t, dir), "-once"})
	require.Equal(t, 0, code, ui.ErrorWriter.String())
	assert.Contains(t, ui.OutputWriter.String(), "cook@example.com: cursor 7, 1 inserted")

	v, found, err := cursor.NewPrefsStore(afero.NewOsFs(), filepath.Join(dir, "prefs.json")).
		Load(context.Background(), "cook@example.com")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(7), v)
}

func TestRun_OnceFailure(t *testing.T) {
	feed := changefeed.NewStaticFeed(changefeed.Page{})
	feed.FailPage(0, fmt.Errorf("%w: offline", changefeed.ErrRemoteIO))

	c, ui := newCommand(t, feed)
	code := c.Run([]string{"-config", writeConfig(t, t.TempDir()), "-once"})
	assert.Equal(t, 1, code)
	assert.Contains(t, ui.ErrorWriter.String(), "sync failed")
}

func TestRun_UnknownAccount(t *testing.T) {
	c, ui := newCommand(t, changefeed.NewStaticFeed())
	code := c.Run([]string{"-config", writeConfig(t, t.TempDir()), "-once", "-account", "nobody"})
	assert.Equal(t, 1, code)
	assert.Contains(t, ui.ErrorWriter.String(), "no sync accounts")
}
