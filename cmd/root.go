package cmd

import (
	"fmt"
	"github.com/ValentinKolb/smap/cmd/bench"
	"github.com/ValentinKolb/smap/cmd/util"
	"github.com/ValentinKolb/smap/lib/common"
	"github.com/ValentinKolb/smap/lib/lock"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"runtime"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "smap",
		Short: "reentrant locks and thread-safe maps",
		Long: fmt.Sprintf(`smap (v%s)

Reentrant reader/writer locks and thread-safe ordered and hashed maps for Go.
The CLI runs concurrent workloads against the maps and reports latency,
lock statistics and worker fairness.`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of smap",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("smap v%s (%s, deadlock detection: %v)\n", Version, runtime.Version(), lock.DeadlockDetection)
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(bench.BenchCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "log-level"
	RootCmd.PersistentFlags().String(key, "warning", util.WrapString("Log level of all packages (debug, info, warning, error)"))
}

// setup binds the flags of the executed command and configures the loggers
func setup(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
