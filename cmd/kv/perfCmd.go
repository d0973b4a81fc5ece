package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/distproc/pstore/cmd/util"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for pstore backends",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfOpsPerTest       = 1000
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of goroutines to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the put-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("How many operations to run per test"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfOpsPerTest = viper.GetInt("ops")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for pstore backends")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Backend: %s\n", viper.GetString("backend"))
	fmt.Printf("Servers: %s\n", viper.GetString("servers"))
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Printf("Ops per test: %d\n", perfOpsPerTest)
	fmt.Println()

	fmt.Println("starting tests...")

	// Each test gets its own timer so percentiles stay per operation type
	results := make(map[string]gometrics.Timer)

	runTest := func(name string, prepare func(), op func(i int), cleanup func()) {
		timer := gometrics.NewTimer()
		results[name] = timer

		if shouldSkip(name) {
			printResult(name, timer)
			return
		}
		if prepare != nil {
			prepare()
		}

		var wg sync.WaitGroup
		wg.Add(perfNumThreads)
		for t := 0; t < perfNumThreads; t++ {
			go func(offset int) {
				defer wg.Done()
				for i := offset; i < perfOpsPerTest; i += perfNumThreads {
					timer.Time(func() { op(i) })
				}
			}(t)
		}
		wg.Wait()

		if cleanup != nil {
			cleanup()
		}
		printResult(name, timer)
	}

	putKey, putIter := getKeys("put")
	runTest("put",
		nil,
		func(i int) {
			if err := ps.Put(storeID, putKey(i), []byte("test")); err != nil {
				log.Printf("(put) - error putting key: %v\n", err)
			}
		},
		func() { putIter(func(k []byte) { _ = ps.Remove(storeID, k) }) },
	)

	largeValue := make([]byte, perfLargeValueSizeKB*1024)
	largeKey, largeIter := getKeys("put-large")
	runTest("put-large",
		nil,
		func(i int) {
			if err := ps.Put(storeID, largeKey(i), largeValue); err != nil {
				log.Printf("(put-large) - error putting key: %v\n", err)
			}
		},
		func() { largeIter(func(k []byte) { _ = ps.Remove(storeID, k) }) },
	)

	getKey, getIter := getKeys("get")
	runTest("get",
		func() { getIter(func(k []byte) { _ = ps.Put(storeID, k, []byte("test")) }) },
		func(i int) {
			if _, _, err := ps.Get(storeID, getKey(i)); err != nil {
				log.Printf("(get) - error getting key: %v\n", err)
			}
		},
		func() { getIter(func(k []byte) { _ = ps.Remove(storeID, k) }) },
	)

	hasKey, hasIter := getKeys("has")
	runTest("has",
		func() { hasIter(func(k []byte) { _ = ps.Put(storeID, k, []byte("test")) }) },
		func(i int) {
			if _, err := ps.Has(storeID, hasKey(i)); err != nil {
				log.Printf("(has) - error checking key: %v\n", err)
			}
		},
		func() { hasIter(func(k []byte) { _ = ps.Remove(storeID, k) }) },
	)

	runTest("has-not",
		nil,
		func(i int) {
			key := []byte(fmt.Sprintf("%s/has-not-%d", perfKeyPrefix, i%perfKeySpread))
			if _, err := ps.Has(storeID, key); err != nil {
				log.Printf("(has-not) - error checking key: %v\n", err)
			}
		},
		nil,
	)

	delKey, delIter := getKeys("delete")
	runTest("delete",
		func() { delIter(func(k []byte) { _ = ps.Put(storeID, k, []byte("test")) }) },
		func(i int) {
			if err := ps.Remove(storeID, delKey(i)); err != nil {
				log.Printf("(delete) - error deleting key: %v\n", err)
			}
		},
		nil,
	)

	mixedKey, mixedIter := getKeys("mixed")
	runTest("mixed",
		func() { mixedIter(func(k []byte) { _ = ps.Put(storeID, k, []byte("test")) }) },
		func(i int) {
			var err error
			key := mixedKey(i)
			switch i % 4 {
			case 0:
				err = ps.Put(storeID, key, []byte("test"))
			case 1:
				_, _, err = ps.Get(storeID, key)
			case 2:
				err = ps.Remove(storeID, key)
			case 3:
				_, err = ps.Has(storeID, key)
			}
			if err != nil {
				log.Printf("(mixed) - error performing operation %d: %v\n", i%4, err)
			}
		},
		func() { mixedIter(func(k []byte) { _ = ps.Remove(storeID, k) }) },
	)

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) []byte, func(func([]byte))) {
	keys := make([][]byte, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = []byte(fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i))
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) []byte {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func([]byte)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, timer gometrics.Timer) {
	if timer.Count() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	mean := time.Duration(int64(timer.Mean()))
	p99 := time.Duration(int64(timer.Percentile(0.99)))
	fmt.Printf("%-20smean=%v\tp99=%v\t%.0f ops/sec\n", test, mean, p99, timer.RateMean())
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]gometrics.Timer) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Count", "MeanNs", "P50Ns", "P99Ns", "OpsPerSec", "Skipped",
		"Backend", "Servers", "Threads", "LargeValueSizeKB", "KeysCount", "OpsPerTest",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, timer := range results {
		row := []string{
			test,
			strconv.FormatInt(timer.Count(), 10),
			fmt.Sprintf("%.0f", timer.Mean()),
			fmt.Sprintf("%.0f", timer.Percentile(0.5)),
			fmt.Sprintf("%.0f", timer.Percentile(0.99)),
			fmt.Sprintf("%.0f", timer.RateMean()),
			strconv.FormatBool(timer.Count() == 0),
			viper.GetString("backend"),
			viper.GetString("servers"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
			strconv.Itoa(perfOpsPerTest),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
