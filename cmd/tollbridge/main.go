package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "tollbridge",
		Short:         "Settlement node of the token bridge",
		SilenceUsage:  true,
	}
	root.AddCommand(runCommand(), messageCommand())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
