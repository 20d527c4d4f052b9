package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mongo-catalog/internal/catalog"
)

var listSection string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog queries",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print the mongosh statement of a query and its SQL equivalent",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var scriptCmd = &cobra.Command{
	Use:   "script",
	Short: "Print the whole catalog as a mongosh script",
	Args:  cobra.NoArgs,
	RunE:  runScript,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every query is well formed and renders",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func runList(cmd *cobra.Command, args []string) error {
	queries := cat.All()
	if listSection != "" {
		section := catalog.Section(listSection)
		known := false
		for _, s := range catalog.Sections {
			known = known || s == section
		}
		if !known {
			return fmt.Errorf("unknown section %q", listSection)
		}
		queries = cat.BySection(section)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SECTION\tNAME\tCOLLECTION\tKIND")
	for _, q := range queries {
		collection := q.Collection
		if collection == "" {
			collection = "-"
		}
		name := q.Name
		if q.Destructive {
			name += " (destructive)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", q.Section, name, collection, q.Kind)
	}
	return w.Flush()
}

func runShow(cmd *cobra.Command, args []string) error {
	q, err := cat.Get(args[0])
	if err != nil {
		return err
	}
	stmt, err := catalog.Render(q)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "// %s\n%s\n", q.Comment, stmt)
	if q.Relational != nil {
		fmt.Fprintf(out, "\n-- sql\n%s;\n", q.Relational.SQL)
		if q.Relational.Matched != "" {
			fmt.Fprintf(out, "-- matched: %s;\n", q.Relational.Matched)
		}
		if len(q.Relational.Args) > 0 {
			fmt.Fprintf(out, "-- args: %v\n", q.Relational.Args)
		}
	}
	return nil
}

func runScript(cmd *cobra.Command, args []string) error {
	script, err := catalog.Script(cat, cfg.Catalog.Database)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), script)
	return err
}

func runValidate(cmd *cobra.Command, args []string) error {
	failed := 0
	for _, q := range cat.All() {
		err := catalog.Validate(q)
		if err == nil {
			_, err = catalog.Render(q)
		}
		if err != nil {
			failed++
			fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", q.Name, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok   %s\n", q.Name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d queries invalid", failed, cat.Len())
	}
	return nil
}
