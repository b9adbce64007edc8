// Command exotool inspects and edits Exodus II mesh databases.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-exodus/exodus"
)

var verbose bool

func main() {
	root := &cobra.Command{
		Use:           "exotool",
		Short:         "Inspect and edit Exodus II mesh databases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(infoCmd(), setsCmd(), mergeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openOptions() []exodus.FileOption {
	if !verbose {
		return nil
	}
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	return []exodus.FileOption{exodus.WithLogger(log)}
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Print the database header and entity counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := exodus.Open(args[0], openOptions()...)
			if err != nil {
				return err
			}
			defer f.Close()

			fmt.Printf("Title:           %s\n", f.Title())
			fmt.Printf("Version:         %.2f (API %.2f)\n", f.Version(), f.APIVersion())
			fmt.Printf("Word size:       %d bytes\n", f.WordSize())
			fmt.Printf("Dimensions:      %d\n", f.NumDimensions())
			fmt.Printf("Nodes:           %d\n", f.NumNodes())
			fmt.Printf("Elements:        %d\n", f.NumElems())
			fmt.Printf("Element blocks:  %d\n", f.NumElemBlocks())
			fmt.Printf("Node sets:       %d\n", f.NumNodeSets())
			fmt.Printf("Side sets:       %d\n", f.NumSideSets())
			fmt.Printf("Time steps:      %d\n", f.NumTimeSteps())
			return nil
		},
	}
}

func setsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sets <file>",
		Short: "List the node sets and side sets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := exodus.Open(args[0], openOptions()...)
			if err != nil {
				return err
			}
			defer f.Close()

			fmt.Println("Node sets:")
			for _, id := range f.NodeSetIDs() {
				p, err := f.NodeSetParams(id)
				if err != nil {
					return err
				}
				fmt.Printf("  %d  %-24q  %d nodes, %d factors\n", p.ID, p.Name, p.NumNodes, p.NumDistFactors)
			}
			fmt.Println("Side sets:")
			for _, id := range f.SideSetIDs() {
				p, err := f.SideSetParams(id)
				if err != nil {
					return err
				}
				fmt.Printf("  %d  %-24q  %d sides, %d factors\n", p.ID, p.Name, p.NumSides, p.NumDistFactors)
			}
			return nil
		},
	}
}

func mergeCmd() *cobra.Command {
	var (
		out             string
		newID, idA, idB int64
		deleteOriginals bool
	)
	cmd := &cobra.Command{
		Use:   "merge <file>",
		Short: "Merge two node sets into a new set and save the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = args[0]
			}
			f, err := exodus.OpenAppend(args[0], openOptions()...)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := f.MergeNodeSets(newID, idA, idB, deleteOriginals); err != nil {
				return err
			}
			if err := f.Save(out); err != nil {
				return err
			}
			fmt.Printf("merged node sets %d and %d into %d, wrote %s\n", idA, idB, newID, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: overwrite the input)")
	cmd.Flags().Int64Var(&newID, "new-id", 0, "id of the merged set")
	cmd.Flags().Int64Var(&idA, "id-a", 0, "first source set id")
	cmd.Flags().Int64Var(&idB, "id-b", 0, "second source set id")
	cmd.Flags().BoolVar(&deleteOriginals, "delete-originals", false, "remove the source sets")
	cmd.MarkFlagRequired("new-id")
	cmd.MarkFlagRequired("id-a")
	cmd.MarkFlagRequired("id-b")
	return cmd
}
