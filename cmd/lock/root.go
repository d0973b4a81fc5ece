package lock

import (
	"fmt"
	"time"

	"github.com/distproc/pstore/cmd/util"
	"github.com/distproc/pstore/lib/lockmgr"
	"github.com/spf13/cobra"
)

var (
	lm lockmgr.ILockManager

	acquireLease   uint64
	acquireMaxWait uint64

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:               "lock",
		Short:             "Perform distributed lock operations",
		PersistentPreRunE: setupLockClient,
	}

	// createCmd represents the create command
	createCmd = &cobra.Command{
		Use:   "create [name]",
		Short: "Create a named lock (or resolve an existing one)",
		Args:  cobra.ExactArgs(1),
		RunE:  runCreate,
	}

	// acquireCmd represents the acquire command
	acquireCmd = &cobra.Command{
		Use:   "acquire [name]",
		Short: "Acquire a lock",
		Long:  "Acquire a named lock. The lease bounds how long the lock is held without release; the max-wait bounds how long the command waits for contenders.",
		Args:  cobra.ExactArgs(1),
		RunE:  runAcquire,
	}

	// releaseCmd represents the release command
	releaseCmd = &cobra.Command{
		Use:   "release [name]",
		Short: "Release a previously acquired lock",
		Args:  cobra.ExactArgs(1),
		RunE:  runRelease,
	}

	// removeCmd represents the remove command
	removeCmd = &cobra.Command{
		Use:   "remove [name]",
		Short: "Delete a lock with its metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  runRemove,
	}

	// pidCmd represents the pid command
	pidCmd = &cobra.Command{
		Use:   "pid [name]",
		Short: "Print the process id of the current lease holder",
		Args:  cobra.ExactArgs(1),
		RunE:  runPid,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add subcommands to lock command
	LockCommands.AddCommand(createCmd)
	LockCommands.AddCommand(acquireCmd)
	LockCommands.AddCommand(releaseCmd)
	LockCommands.AddCommand(removeCmd)
	LockCommands.AddCommand(pidCmd)

	// Add common backend flags to the lock command
	util.SetupBackendFlags(LockCommands)

	// Add flags specific to acquire
	acquireCmd.Flags().Uint64Var(&acquireLease, "lease", 30, "Lease time in seconds")
	acquireCmd.Flags().Uint64Var(&acquireMaxWait, "max-wait", 10, "How long to wait for the lock in seconds")
}

// setupLockClient connects the backend and creates the lock manager handle
func setupLockClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	b, err := util.GetBackend()
	if err != nil {
		return err
	}

	lm = lockmgr.NewLockManager(b)
	return nil
}

// runCreate handles the create lock command
func runCreate(_ *cobra.Command, args []string) error {
	lockID, err := lm.CreateOrGetLock(args[0])
	if err != nil {
		return fmt.Errorf("failed to create lock: %v", err)
	}
	fmt.Printf("name=%s, id=%d\n", args[0], lockID)
	return nil
}

// runAcquire handles the acquire lock command
func runAcquire(_ *cobra.Command, args []string) error {
	lockID, err := lm.CreateOrGetLock(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve lock: %v", err)
	}

	lease := time.Duration(acquireLease) * time.Second
	maxWait := time.Duration(acquireMaxWait) * time.Second

	if err := lm.AcquireLock(lockID, lease, maxWait); err != nil {
		return fmt.Errorf("failed to acquire lock: %v", err)
	}

	fmt.Printf("acquired=true, id=%d, lease=%v\n", lockID, lease)
	return nil
}

// runRelease handles the release lock command
func runRelease(_ *cobra.Command, args []string) error {
	lockID, err := lm.GetLockID(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve lock: %v", err)
	}

	if err := lm.ReleaseLock(lockID); err != nil {
		return fmt.Errorf("failed to release lock: %v", err)
	}

	fmt.Println("released=true")
	return nil
}

// runRemove handles the remove lock command
func runRemove(_ *cobra.Command, args []string) error {
	lockID, err := lm.GetLockID(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve lock: %v", err)
	}

	if err := lm.RemoveLock(lockID); err != nil {
		return fmt.Errorf("failed to remove lock: %v", err)
	}

	fmt.Println("removed=true")
	return nil
}

// runPid handles the pid command
func runPid(_ *cobra.Command, args []string) error {
	pid, err := lm.GetPidForLock(args[0])
	if err != nil {
		return fmt.Errorf("failed to look up lock holder: %v", err)
	}

	if pid == 0 {
		fmt.Println("held=false")
		return nil
	}
	fmt.Printf("held=true, pid=%d\n", pid)
	return nil
}
