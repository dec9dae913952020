// Package graphcmder provides the graph command for printing a document's
// knowledge map.
package graphcmder

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/cmd/studybuddy/cmdenv"
	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/config"
)

const graphLongDesc string = `Print the knowledge map of a document.

The knowledge map links the concepts a document covers. Concepts are listed
busiest first, each followed by the concepts it points to and how they
relate.

Examples:
  studybuddy graph --document 3f2a...
  studybuddy graph -D 3f2a... --json`

const graphShortDesc string = "Show the concepts a document covers"

type graphCommander struct {
	apiURL     string
	documentID string
	asJSON     bool
}

func NewGraphCmd() *cobra.Command {
	cmder := &graphCommander{}

	cmd := &cobra.Command{
		Use:     "graph",
		Aliases: []string{"map"},
		Short:   graphShortDesc,
		Long:    graphLongDesc,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.StudyFlags, config.FlagAPIURL, &cmder.apiURL)
	cmd.Flags().StringVarP(&cmder.documentID, "document", "D", "", "Document to map (required)")
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the raw nodes and links as JSON")
	_ = cmd.MarkFlagRequired("document")

	return cmd
}

func (c *graphCommander) run(cmd *cobra.Command) error {
	env, err := cmdenv.Load(cmd, config.FlagAPIURL)
	if err != nil {
		return err
	}
	if err := env.RequireAuth(); err != nil {
		return err
	}

	g, err := env.Client.Graph(cmd.Context(), c.documentID)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if c.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(g)
	}

	printGraph(w, g)
	return nil
}

func printGraph(w io.Writer, g *client.Graph) {
	if len(g.Nodes) == 0 && len(g.Links) == 0 {
		fmt.Fprintln(w, cliui.DimStyle.Render("No concepts mapped for this document yet."))
		return
	}

	names := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		names[n.ID] = n.Name
	}
	name := func(id string) string {
		if n := names[id]; n != "" {
			return n
		}
		return id
	}

	fmt.Fprintf(w, "\n  %s %s\n\n",
		cliui.HeaderStyle.Render("Knowledge map"),
		cliui.DimStyle.Render(fmt.Sprintf("(%d concepts, %d links)", len(g.Nodes), len(g.Links))),
	)

	for _, cl := range g.Adjacency() {
		fmt.Fprintf(w, "  %s %s\n", cliui.NameStyle.Render(name(cl.Concept)), cliui.DimStyle.Render(fmt.Sprintf("(%d)", cl.Degree)))
		for _, l := range cl.Links {
			line := "    → " + cliui.ValueStyle.Render(name(l.Target))
			if l.Label != "" {
				line += " " + cliui.DimStyle.Render(l.Label)
			}
			fmt.Fprintln(w, line)
		}
	}

	deg := g.Degree()
	var isolated []string
	for _, n := range g.Nodes {
		if deg[n.ID] == 0 {
			isolated = append(isolated, name(n.ID))
		}
	}
	if len(isolated) > 0 {
		sort.Strings(isolated)
		fmt.Fprintf(w, "\n  %s\n", cliui.KeyStyle.Render("Unlinked concepts"))
		for _, n := range isolated {
			fmt.Fprintf(w, "    %s\n", n)
		}
	}
	fmt.Fprintln(w)
}
