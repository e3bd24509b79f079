package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configFile string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "nexstock",
		Short:         "Inventory dashboard server and CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "optional config file (yaml, json or toml)")

	root.AddCommand(
		newServeCommand(opts),
		newProductsCommand(opts),
		newSellCommand(opts),
		newRentCommand(opts),
		newRentalsCommand(opts),
		newStatsCommand(opts),
		newMigrateCommand(opts),
	)
	return root
}
