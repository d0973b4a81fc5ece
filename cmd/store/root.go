package store

import (
	"fmt"

	"github.com/distproc/pstore/cmd/util"
	"github.com/distproc/pstore/lib/pstore"
	"github.com/spf13/cobra"
)

var (
	ps pstore.IProcessStore

	// StoreCommands represents the store lifecycle command group
	StoreCommands = &cobra.Command{
		Use:               "store",
		Short:             "Manage named stores",
		PersistentPreRunE: setupClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common backend flags to the store command
	util.SetupBackendFlags(StoreCommands)

	// Add flags for create
	createCmd.Flags().String("key-type", "bytes", util.WrapString("Type tag recorded for the keys of the new store"))
	createCmd.Flags().String("value-type", "bytes", util.WrapString("Type tag recorded for the values of the new store"))

	// Add subcommands
	StoreCommands.AddCommand(createCmd)
	StoreCommands.AddCommand(findCmd)
	StoreCommands.AddCommand(infoCmd)
	StoreCommands.AddCommand(sizeCmd)
	StoreCommands.AddCommand(clearCmd)
	StoreCommands.AddCommand(removeCmd)
}

// setupClient connects the backend and creates the process store handle
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	b, err := util.GetBackend()
	if err != nil {
		return err
	}

	ps = pstore.NewProcessStore(b)
	return nil
}

var (
	createCmd = &cobra.Command{
		Use:   "create [name]",
		Short: "Creates a new named store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyType, _ := cmd.Flags().GetString("key-type")
			valueType, _ := cmd.Flags().GetString("value-type")

			id, err := ps.CreateStore(args[0], keyType, valueType)
			if err != nil {
				return err
			}
			fmt.Printf("created store %s with id %d\n", args[0], id)
			return nil
		},
	}
	findCmd = &cobra.Command{
		Use:   "find [name]",
		Short: "Resolves a store name to its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ps.FindStore(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("name=%s, id=%d\n", args[0], id)
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info [name]",
		Short: "Prints the metadata of a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ps.FindStore(args[0])
			if err != nil {
				return err
			}
			keyType, err := ps.GetKeyTypeName(id)
			if err != nil {
				return err
			}
			valueType, err := ps.GetValueTypeName(id)
			if err != nil {
				return err
			}
			size, err := ps.Size(id)
			if err != nil {
				return err
			}
			fmt.Printf("name=%s, id=%d, keyType=%s, valueType=%s, size=%d\n", args[0], id, keyType, valueType, size)
			return nil
		},
	}
	sizeCmd = &cobra.Command{
		Use:   "size [name]",
		Short: "Prints the number of items in a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ps.FindStore(args[0])
			if err != nil {
				return err
			}
			size, err := ps.Size(id)
			if err != nil {
				return err
			}
			fmt.Printf("name=%s, size=%d\n", args[0], size)
			return nil
		},
	}
	clearCmd = &cobra.Command{
		Use:   "clear [name]",
		Short: "Removes all items from a store, keeping the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ps.FindStore(args[0])
			if err != nil {
				return err
			}
			if err := ps.Clear(id); err != nil {
				return err
			}
			fmt.Println("cleared successfully")
			return nil
		},
	}
	removeCmd = &cobra.Command{
		Use:   "remove [name]",
		Short: "Deletes a store with all its items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ps.FindStore(args[0])
			if err != nil {
				return err
			}
			if err := ps.RemoveStore(id); err != nil {
				return err
			}
			fmt.Println("removed successfully")
			return nil
		},
	}
)
