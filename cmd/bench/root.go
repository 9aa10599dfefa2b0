package bench

import (
	"fmt"
	"github.com/ValentinKolb/smap/cmd/util"
	"github.com/ValentinKolb/smap/lib/sharedmap"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"time"
)

var (
	plog = logger.GetLogger("cmd")

	// BenchCmd runs a concurrent workload against a shared map
	BenchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Run a concurrent workload against a shared map",
		Long: `Run a concurrent workload against an ordered or hashed map.

Every worker picks random keys and performs lookups, sets, updates (which
read a second key from inside the update callback) and erases. With --keyed,
writes additionally take a per-key lock from a lock manager and perform a
separate read-modify-write under it.`,
		PreRunE: processConfig,
		RunE:    run,
	}

	benchConfig = DefaultConfig()
)

// Config configures one workload run
type Config struct {
	MapKind   sharedmap.Kind
	Workers   int
	Ops       int // per worker
	Keys      int
	ReadRatio float64
	Keyed     bool
	Metrics   bool
	WarnAfter time.Duration
	CSV       string
}

// DefaultConfig returns the default workload configuration
func DefaultConfig() *Config {
	return &Config{
		MapKind:   sharedmap.KindOrdered,
		Workers:   8,
		Ops:       100_000,
		Keys:      1_000,
		ReadRatio: 0.8,
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("map: %s | workers: %d | ops/worker: %d | keys: %d | read ratio: %.2f | keyed: %v",
		c.MapKind, c.Workers, c.Ops, c.Keys, c.ReadRatio, c.Keyed)
}

func init() {
	def := DefaultConfig()

	key := "map"
	BenchCmd.Flags().String(key, string(def.MapKind), util.WrapString("Map implementation to use (ordered, hashed)"))
	key = "workers"
	BenchCmd.Flags().Int(key, def.Workers, util.WrapString("Number of concurrent workers"))
	key = "ops"
	BenchCmd.Flags().Int(key, def.Ops, util.WrapString("Number of operations per worker"))
	key = "keys"
	BenchCmd.Flags().Int(key, def.Keys, util.WrapString("How many different keys to use"))
	key = "read-ratio"
	BenchCmd.Flags().Float64(key, def.ReadRatio, util.WrapString("Fraction of operations that are lookups (0 to 1)"))
	key = "keyed"
	BenchCmd.Flags().Bool(key, def.Keyed, util.WrapString("Guard writes with per-key locks from a lock manager"))
	key = "metrics"
	BenchCmd.Flags().Bool(key, def.Metrics, util.WrapString("Print lock statistics and timer details in text exposition format"))
	key = "warn-after"
	BenchCmd.Flags().Duration(key, def.WarnAfter, util.WrapString("Log a warning for lock waits longer than this (0 = never)"))
	key = "csv"
	BenchCmd.Flags().String(key, def.CSV, util.WrapString("Optional path to save the results as CSV"))
}

func processConfig(_ *cobra.Command, _ []string) error {
	benchConfig = &Config{
		MapKind:   sharedmap.Kind(viper.GetString("map")),
		Workers:   viper.GetInt("workers"),
		Ops:       viper.GetInt("ops"),
		Keys:      viper.GetInt("keys"),
		ReadRatio: viper.GetFloat64("read-ratio"),
		Keyed:     viper.GetBool("keyed"),
		Metrics:   viper.GetBool("metrics"),
		WarnAfter: viper.GetDuration("warn-after"),
		CSV:       viper.GetString("csv"),
	}
	return benchConfig.Validate()
}

// Validate checks the configuration
func (c *Config) Validate() error {
	switch {
	case c.MapKind != sharedmap.KindOrdered && c.MapKind != sharedmap.KindHashed:
		return fmt.Errorf("invalid map %q (valid: %s, %s)", c.MapKind, sharedmap.KindOrdered, sharedmap.KindHashed)
	case c.Workers < 1:
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	case c.Ops < 1:
		return fmt.Errorf("ops must be at least 1, got %d", c.Ops)
	case c.Keys < 1:
		return fmt.Errorf("keys must be at least 1, got %d", c.Keys)
	case c.ReadRatio < 0 || c.ReadRatio > 1:
		return fmt.Errorf("read-ratio must be between 0 and 1, got %v", c.ReadRatio)
	}
	return nil
}

func run(_ *cobra.Command, _ []string) error {
	fmt.Println("Concurrent workload against a shared map")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(benchConfig.String())
	fmt.Println()

	result := Run(benchConfig)
	result.Print(os.Stdout)

	if benchConfig.Metrics {
		fmt.Println()
		result.WriteMetrics(os.Stdout)
	}

	if benchConfig.CSV != "" {
		if err := result.WriteCSV(benchConfig.CSV); err != nil {
			return err
		}
		fmt.Printf("\nResults written to %s\n", benchConfig.CSV)
	}
	return nil
}
