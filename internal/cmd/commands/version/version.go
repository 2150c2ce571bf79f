package version

import (
	"github.com/hashicorp-forge/recipebox/internal/cmd/base"
	"github.com/hashicorp-forge/recipebox/internal/version"
)

type Command struct {
	*base.Command
}

func (c *Command) Synopsis() string {
	return "Print the recipebox version"
}

func (c *Command) Help() string {
	return `Usage: recipebox version

  Prints the version of this binary.`
}

func (c *Command) Run(args []string) int {
	c.UI.Output("recipebox " + version.FullVersion())
	return 0
}
