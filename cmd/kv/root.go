package kv

import (
	"github.com/distproc/pstore/cmd/util"
	"github.com/distproc/pstore/lib/pstore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	ps      pstore.IProcessStore
	storeID uint64

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform data item operations on a store",
		PersistentPreRunE: setupKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common backend flags to the KV command
	util.SetupBackendFlags(KeyValueCommands)

	// All item operations target one store, selected by name
	KeyValueCommands.PersistentFlags().String("store", "default", util.WrapString("Name of the store to operate on (created on first use)"))

	// Add subcommands
	KeyValueCommands.AddCommand(putCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(hasCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(keysCmd)
	KeyValueCommands.AddCommand(listCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient connects the backend and resolves the target store
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	b, err := util.GetBackend()
	if err != nil {
		return err
	}
	ps = pstore.NewProcessStore(b)

	// Resolve (or lazily create) the target store
	storeID, err = ps.CreateOrGetStore(viper.GetString("store"), "bytes", "bytes")
	return err
}
