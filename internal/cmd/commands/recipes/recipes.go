package recipes

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/hashicorp-forge/recipebox/internal/cmd/base"
	"github.com/hashicorp-forge/recipebox/pkg/database"
	"github.com/hashicorp-forge/recipebox/pkg/resource"
	"github.com/hashicorp-forge/recipebox/pkg/router"
	"github.com/hashicorp-forge/recipebox/pkg/store"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

type Command struct {
	*base.Command

	flagConfig string
	flagFormat string
	flagOrder  string
}

func (c *Command) Synopsis() string {
	return "List stored recipes"
}

func (c *Command) Help() string {
	return `Usage: recipebox recipes [options] [id]

  Lists recipes in the local database. With an id, prints that recipe with
  its ingredients and instructions.` +
		c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSet {
	f := base.NewFlagSet(flag.NewFlagSet("recipes", flag.ContinueOnError))

	f.StringVar(
		&c.flagConfig, "config", "", "Path to recipebox config file",
	)
	f.StringVar(
		&c.flagFormat, "format", formatTable,
		"Output format: table, json or yaml.",
	)
	f.StringVar(
		&c.flagOrder, "order", "",
		`Sort order, for example "title ASC".`,
	)

	return f
}

// recipeView is a recipe with its children for detailed output.
type recipeView struct {
	Recipe       map[string]any   `json:"recipe" yaml:"recipe"`
	Ingredients  []map[string]any `json:"ingredients" yaml:"ingredients"`
	Instructions []map[string]any `json:"instructions" yaml:"instructions"`
}

func (c *Command) Run(args []string) int {
	ui := c.UI

	flags := c.Flags()
	if err := flags.Parse(args); err != nil {
		ui.Error(fmt.Sprintf("error parsing flags: %v", err))
		return 1
	}
	switch c.flagFormat {
	case formatTable, formatJSON, formatYAML:
	default:
		ui.Error(fmt.Sprintf("unknown format %q", c.flagFormat))
		return 1
	}

	var id int64
	if flags.NArg() > 0 {
		var err error
		id, err = strconv.ParseInt(flags.Arg(0), 10, 64)
		if err != nil || id <= 0 {
			ui.Error(fmt.Sprintf("invalid recipe id %q", flags.Arg(0)))
			return 1
		}
	}

	cfg, err := c.LoadConfig(c.flagConfig)
	if err != nil {
		ui.Error(fmt.Sprintf("error parsing config file: %v", err))
		return 1
	}

	db, err := c.OpenDatabase(cfg)
	if err != nil {
		ui.Error(fmt.Sprintf("error initializing database: %v", err))
		return 1
	}
	defer func() { _ = database.Close(db) }()

	r := router.New(store.New(db, c.Log), router.WithLogger(c.Log))
	ctx := context.Background()

	var out strings.Builder
	if id == 0 {
		res, err := r.Query(ctx, resource.CollectionAddress(resource.Recipes), router.Query{Order: c.flagOrder})
		if err != nil {
			ui.Error(fmt.Sprintf("error listing recipes: %v", err))
			return 1
		}
		err = c.render(&out, res.Rows, func(w io.Writer) error {
			return writeTable(w, res.Rows, []string{"_id", "title", "description", "remote_file_id"})
		})
		if err != nil {
			ui.Error(err.Error())
			return 1
		}
		ui.Output(strings.TrimRight(out.String(), "\n"))
		return 0
	}

	view, err := loadRecipe(ctx, r, id)
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	err = c.render(&out, view, func(w io.Writer) error {
		fmt.Fprintf(w, "%s\n%s\n\n", color.New(color.Bold).Sprint(view.Recipe["title"]), view.Recipe["description"])
		if err := writeTable(w, view.Ingredients, []string{"quantity", "quantity_numerator", "quantity_denominator", "unit", "item", "preparation"}); err != nil {
			return err
		}
		fmt.Fprintln(w)
		for i, step := range view.Instructions {
			fmt.Fprintf(w, "%d. %s\n", i+1, step["instruction"])
		}
		return nil
	})
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	ui.Output(strings.TrimRight(out.String(), "\n"))
	return 0
}

func loadRecipe(ctx context.Context, r *router.Router, id int64) (*recipeView, error) {
	recipe, err := r.Query(ctx, resource.ItemAddress(resource.Recipes, id), router.Query{})
	if err != nil {
		return nil, fmt.Errorf("error reading recipe: %w", err)
	}
	if len(recipe.Rows) == 0 {
		return nil, fmt.Errorf("recipe %d not found", id)
	}

	byRecipe := store.Predicate{Where: "recipe_id = ?", Args: []any{id}}
	ingredients, err := r.Query(ctx, resource.CollectionAddress(resource.Ingredients), router.Query{Predicate: byRecipe})
	if err != nil {
		return nil, fmt.Errorf("error reading ingredients: %w", err)
	}
	instructions, err := r.Query(ctx, resource.CollectionAddress(resource.Instructions), router.Query{Predicate: byRecipe})
	if err != nil {
		return nil, fmt.Errorf("error reading instructions: %w", err)
	}

	return &recipeView{
		Recipe:       recipe.Rows[0],
		Ingredients:  ingredients.Rows,
		Instructions: instructions.Rows,
	}, nil
}

// render writes v in the selected format, using table for the table format.
func (c *Command) render(w io.Writer, v any, table func(io.Writer) error) error {
	switch c.flagFormat {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return table(w)
	}
	return nil
}

func writeTable(w io.Writer, rows []map[string]any, columns []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := color.New(color.Bold)

	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = header.Sprint(strings.ToUpper(strings.TrimPrefix(col, "_")))
	}
	fmt.Fprintln(tw, strings.Join(names, "\t"))

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			if v := row[col]; v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
