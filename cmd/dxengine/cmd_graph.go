package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dxengine/internal/btg"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect Binary Task Graph files",
}

var graphInspectCmd = &cobra.Command{
	Use:   "inspect <graph.btg>",
	Short: "Validate a graph file and print its structure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		g, err := btg.Decode(data)
		if err != nil {
			return err
		}

		fmt.Printf("tasks: %d, edges: %d\n", g.Len(), len(g.Edges()))
		for idx, t := range g.Tasks() {
			cacheable := ""
			if t.Cacheable {
				cacheable = " [cacheable]"
			}
			fmt.Printf("  %3d  pkg=%d %s%s\n       %s\n", idx, t.PackageIdx, t.Name, cacheable, t.Command)
		}
		for stage, group := range g.ParallelGroups() {
			fmt.Printf("stage %d: %v\n", stage, group)
		}
		return nil
	},
}

func init() {
	graphCmd.AddCommand(graphInspectCmd)
}
