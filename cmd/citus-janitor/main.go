package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	u "github.com/araddon/gou"
	"github.com/spf13/cobra"

	"github.com/Alovez/citus/exec"
	"github.com/Alovez/citus/worker"
)

// Version is injected at build time.
var Version = "dev"

var (
	workerAddrs []string
	workerDSN   string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "citus-janitor",
	Short: "Maintenance tooling for repartition execution state",
	Long: `citus-janitor reclaims server side state left behind by aborted
repartition runs. A run that fails mid-flight skips its own teardown
step, leaving temporary job schemas and job directories on the workers;
the cleanup command removes all of them in one pass.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		u.SetupLogging(logLevel)
		u.SetColorOutput()
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove all temporary job schemas from every worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := buildRegistry(workerAddrs)
		if err != nil {
			return err
		}
		sender := worker.NewTxSender(workerDSN)
		defer sender.Close()

		conf := exec.NewRuntimeConfig()
		conf.WorkerDSN = workerDSN
		scheduler := exec.NewScheduler(conf, registry, sender, nil, nil)
		if err := scheduler.CleanUpSchemas(); err != nil {
			return err
		}
		fmt.Printf("cleaned up job schemas on %d workers\n", len(workerAddrs))
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("citus-janitor %s\n", Version)
	},
}

// buildRegistry turns host:port flags into a worker directory.
func buildRegistry(addrs []string) (*worker.Registry, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("at least one --workers host:port is required")
	}
	registry, err := worker.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		host, portStr, found := strings.Cut(addr, ":")
		if !found || host == "" {
			return nil, fmt.Errorf("worker %q must be host:port", addr)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("worker %q has invalid port: %v", addr, err)
		}
		if err := registry.AddNode(worker.NewNode(host, port)); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&workerAddrs, "workers", "w", nil,
		"worker nodes as host:port, repeatable or comma separated")
	rootCmd.PersistentFlags().StringVar(&workerDSN, "dsn", exec.DefaultWorkerDSN,
		"connection template rendered per worker")
	rootCmd.PersistentFlags().StringVar(&logLevel, "loglevel", "info",
		"log level: debug, info, warn, error")

	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
