package main

import (
	"os"

	"github.com/hashicorp-forge/recipebox/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
