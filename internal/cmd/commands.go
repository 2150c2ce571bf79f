package cmd

import (
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"

	"github.com/hashicorp-forge/recipebox/internal/cmd/base"
	"github.com/hashicorp-forge/recipebox/internal/cmd/commands/migrate"
	"github.com/hashicorp-forge/recipebox/internal/cmd/commands/recipes"
	"github.com/hashicorp-forge/recipebox/internal/cmd/commands/syncagent"
	"github.com/hashicorp-forge/recipebox/internal/cmd/commands/version"
)

// Commands is the mapping of all available recipebox commands.
var Commands map[string]cli.CommandFactory

func initCommands(log hclog.Logger, ui cli.Ui) {
	b := &base.Command{
		Log: log,
		UI:  ui,
	}

	Commands = map[string]cli.CommandFactory{
		"migrate": func() (cli.Command, error) {
			return &migrate.Command{Command: b}, nil
		},
		"recipes": func() (cli.Command, error) {
			return &recipes.Command{Command: b}, nil
		},
		"sync": func() (cli.Command, error) {
			return &syncagent.Command{Command: b}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{Command: b}, nil
		},
	}
}
