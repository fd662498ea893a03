package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dxengine/internal/dxl"
)

var lockfileCmd = &cobra.Command{
	Use:   "lockfile",
	Short: "Inspect and merge DXL workspace lockfiles",
}

var lockfileShowCmd = &cobra.Command{
	Use:   "show <workspace.dxl>",
	Short: "Print a lockfile's packages and vector clock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := readLockfile(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("clock: %v\npackages: %d\n", l.Clock, len(l.Packages))
		for _, p := range l.Packages {
			fmt.Printf("  %s@%d.%d.%d (%d deps)\n", p.Name, p.Version.Major, p.Version.Minor, p.Version.Patch, len(p.Dependencies))
		}
		return nil
	},
}

var lockfileMergeOut string

var lockfileMergeCmd = &cobra.Command{
	Use:   "merge <ours.dxl> <theirs.dxl>",
	Short: "Merge two diverged lockfiles with CRDT semantics",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ours, err := readLockfile(args[0])
		if err != nil {
			return err
		}
		theirs, err := readLockfile(args[1])
		if err != nil {
			return err
		}

		merged, conflicts := dxl.Merge(ours, theirs)
		for _, c := range conflicts {
			fmt.Fprintf(os.Stderr, "conflict: %s (ours %d.%d.%d, theirs %d.%d.%d)\n",
				c.Name,
				c.Ours.Version.Major, c.Ours.Version.Minor, c.Ours.Version.Patch,
				c.Theirs.Version.Major, c.Theirs.Version.Minor, c.Theirs.Version.Patch)
		}

		data, err := dxl.Encode(merged)
		if err != nil {
			return err
		}
		if err := os.WriteFile(lockfileMergeOut, data, 0o644); err != nil {
			return err
		}

		fmt.Printf("merged %d packages into %s\n", len(merged.Packages), lockfileMergeOut)
		if len(conflicts) > 0 {
			return fmt.Errorf("%d package(s) in conflict", len(conflicts))
		}
		return nil
	},
}

func readLockfile(path string) (*dxl.Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return dxl.Decode(data)
}

func init() {
	lockfileMergeCmd.Flags().StringVarP(&lockfileMergeOut, "output", "o", "merged.dxl", "output lockfile path")
	lockfileCmd.AddCommand(lockfileShowCmd, lockfileMergeCmd)
}
