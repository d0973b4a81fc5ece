package kv

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [key] [value]",
		Short: "Writes the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]
			safe, _ := cmd.Flags().GetBool("safe")

			var err error
			if safe {
				err = ps.PutSafe(storeID, []byte(key), []byte(value))
			} else {
				err = ps.Put(storeID, []byte(key), []byte(value))
			}
			if err != nil {
				return err
			}
			fmt.Println("put successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			safe, _ := cmd.Flags().GetBool("safe")

			var value []byte
			var found bool
			var err error
			if safe {
				value, found, err = ps.GetSafe(storeID, []byte(key))
			} else {
				value, found, err = ps.Get(storeID, []byte(key))
			}
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v, value=%s\n", key, found, value)
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks if a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			found, err := ps.Has(storeID, []byte(key))
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t\n", key, found)
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			if err := ps.Remove(storeID, []byte(key)); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Prints all keys of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := ps.GetKeys(storeID)
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Printf("%s\n", key)
			}
			fmt.Printf("(%d keys)\n", len(keys))
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Prints all key value pairs of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := ps.NewIterator(storeID)
			if err != nil {
				return err
			}

			count := 0
			for {
				key, value, ok, err := it.GetNext()
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				fmt.Printf("%s=%s\n", key, value)
				count++
			}
			fmt.Printf("(%d items)\n", count)
			return nil
		},
	}
	ttlPutCmd = &cobra.Command{
		Use:   "ttl-put [key] [value] [ttlSeconds]",
		Short: "Writes a store independent item that expires after ttlSeconds (0 for no expiry)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, err := strconv.ParseUint(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("ttlSeconds must be a number: %w", err)
			}
			if err := ps.PutTTL([]byte(args[0]), []byte(args[1]), ttl, true); err != nil {
				return err
			}
			fmt.Println("put successfully")
			return nil
		},
	}
	ttlGetCmd = &cobra.Command{
		Use:   "ttl-get [key]",
		Short: "Reads a store independent item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, found, err := ps.GetTTL([]byte(args[0]), true)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v, value=%s\n", args[0], found, value)
			return nil
		},
	}
	ttlHasCmd = &cobra.Command{
		Use:   "ttl-has [key]",
		Short: "Checks if a store independent item exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := ps.HasTTL([]byte(args[0]), true)
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%t\n", args[0], found)
			return nil
		},
	}
	ttlDelCmd = &cobra.Command{
		Use:   "ttl-del [key]",
		Short: "Deletes a store independent item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ps.RemoveTTL([]byte(args[0]), true); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
)

func init() {
	// Safe variants check store existence under the store lock
	putCmd.Flags().Bool("safe", false, "Verify store existence under the store lock")
	getCmd.Flags().Bool("safe", false, "Verify store existence under the store lock")

	// The TTL namespace commands ignore the --store flag
	KeyValueCommands.AddCommand(ttlPutCmd)
	KeyValueCommands.AddCommand(ttlGetCmd)
	KeyValueCommands.AddCommand(ttlHasCmd)
	KeyValueCommands.AddCommand(ttlDelCmd)
}
