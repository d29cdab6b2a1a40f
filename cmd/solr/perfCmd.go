package solr

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/dSolr/cmd/util"
	"github.com/ValentinKolb/dSolr/lib/solr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for solr deployments",
		Long:    "Runs read-only benchmarks (ping and query) against the leader and the follower.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfNumThreads = 10
	perfQuery      = map[string]any{"query": "*:*"}
	perfSkip       = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. ping-leader,query)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "query"
	perfTestCmd.Flags().String(key, `{"query":"*:*"}`, util.WrapString("JSON query used by the query benchmarks"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfNumThreads = viper.GetInt("threads")
	perfSkip = util.SplitList(viper.GetString("skip"))

	perfQuery = nil
	if err := json.Unmarshal([]byte(viper.GetString("query")), &perfQuery); err != nil {
		return fmt.Errorf("query must be a json object: %w", err)
	}

	return nil
}

// benchmark is a named operation that is run in parallel
type benchmark struct {
	name string
	op   func(ctx context.Context, counter int) error
}

func runPerf(cmd *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for solr deployments")

	// Print configuration
	config := solrClient.Config()
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("staring tests...")

	benchmarks := []benchmark{
		{"ping-leader", func(ctx context.Context, _ int) error {
			return solrClient.Ping(ctx, solr.Leader)
		}},
		{"ping-follower", func(ctx context.Context, _ int) error {
			return solrClient.Ping(ctx, solr.Follower)
		}},
		{"query", func(ctx context.Context, _ int) error {
			_, err := solrClient.Query(ctx, perfQuery)
			return err
		}},
		{"query-paged", func(ctx context.Context, counter int) error {
			_, err := solrClient.Query(ctx, perfQuery, solr.WithOffset((counter%10)*config.DefaultLimit))
			return err
		}},
		{"mixed", func(ctx context.Context, counter int) error {
			if counter%2 == 0 {
				return solrClient.Ping(ctx, solr.Follower)
			}
			_, err := solrClient.Query(ctx, perfQuery)
			return err
		}},
	}

	// Create results map
	results := make(map[string]testing.BenchmarkResult)
	for _, bm := range benchmarks {
		result, errCount := runBenchmark(cmd.Context(), bm)
		results[bm.name] = result
		printResult(bm.name, result, errCount)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runBenchmark runs the operation in parallel and returns the result and the number of failed operations
func runBenchmark(ctx context.Context, bm benchmark) (testing.BenchmarkResult, int64) {
	var errCount atomic.Int64

	result := testing.Benchmark(func(b *testing.B) {
		if shouldSkip(bm.name) {
			return
		}

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if err := bm.op(ctx, counter); err != nil {
					if errCount.Add(1) == 1 {
						Logger.Errorf("(%s) - error performing operation: %v", bm.name, err)
					}
				}
				counter++
			}
		})
	})

	return result, errCount.Load()
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	return slices.Contains(perfSkip, test)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult, errCount int64) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\t%d errors\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec, errCount)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config solr.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"LeaderURL", "FollowerURL", "TimeoutSec", "RetryTotal", "MaxRequestsPerSec",
		"Threads",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Sort for consistent output
	tests := make([]string, 0, len(results))
	for test := range results {
		tests = append(tests, test)
	}
	slices.Sort(tests)

	// Write test results
	for _, test := range tests {
		result := results[test]
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			config.LeaderURL,
			config.FollowerURL,
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryTotal),
			strconv.FormatFloat(config.MaxRequestsPerSecond, 'f', -1, 64),
			strconv.Itoa(perfNumThreads),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
