package main

import "github.com/spf13/cobra"

func newRootCmd(open storeOpener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "admin",
		Short:        "Inspect and manage matchmaking rooms",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newRoomsCmd(open))
	return rootCmd
}
