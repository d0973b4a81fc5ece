package cmd

import (
	"fmt"
	"os"

	"github.com/distproc/pstore/cmd/kv"
	"github.com/distproc/pstore/cmd/lock"
	"github.com/distproc/pstore/cmd/store"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "pstore",
		Short: "distributed process store",
		Long: fmt.Sprintf(`pstore (v%s)

A distributed process store: named key/value stores and distributed
locks shared by independent OS processes through a common storage
backend (in-memory or redis).`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of pstore",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pstore v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(store.StoreCommands)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(lock.LockCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
