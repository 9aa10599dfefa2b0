package bench

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/smap/lib/sharedmap"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func smallConfig(kind sharedmap.Kind) *Config {
	c := DefaultConfig()
	c.MapKind = kind
	c.Workers = 4
	c.Ops = 2_000
	c.Keys = 50
	c.ReadRatio = 0.5
	return c
}

func TestValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}

	for name, mutate := range map[string]func(c *Config){
		"map":        func(c *Config) { c.MapKind = "skiplist" },
		"workers":    func(c *Config) { c.Workers = 0 },
		"ops":        func(c *Config) { c.Ops = -1 },
		"keys":       func(c *Config) { c.Keys = 0 },
		"read-ratio": func(c *Config) { c.ReadRatio = 1.5 },
	} {
		t.Run(name, func(t *testing.T) {
			c := DefaultConfig()
			mutate(c)
			if err := c.Validate(); err == nil {
				t.Errorf("Expected invalid %s to be rejected", name)
			}
		})
	}
}

func TestRun(t *testing.T) {
	for _, kind := range []sharedmap.Kind{sharedmap.KindOrdered, sharedmap.KindHashed} {
		t.Run(string(kind), func(t *testing.T) {
			c := smallConfig(kind)
			r := Run(c)

			var total int64
			for _, op := range operations {
				total += r.PerOp[op].Count()
			}
			if total != int64(c.Workers*c.Ops) {
				t.Errorf("Expected %d timed operations, got %d", c.Workers*c.Ops, total)
			}
			if r.PerOp[opKeyed].Count() != 0 {
				t.Errorf("Expected no keyed operations without a lock manager")
			}
			if r.Map().Size() > c.Keys {
				t.Errorf("Expected at most %d keys, got %d", c.Keys, r.Map().Size())
			}
			if r.Fairness.Min != float64(c.Ops) || r.Fairness.Max != float64(c.Ops) {
				t.Errorf("Expected every worker to complete %d ops, got %s", c.Ops, r.Fairness)
			}
			if r.Map().Kind() != kind {
				t.Errorf("Expected map kind %s, got %s", kind, r.Map().Kind())
			}
		})
	}
}

func TestRunKeyed(t *testing.T) {
	c := smallConfig(sharedmap.KindHashed)
	c.Keyed = true
	c.ReadRatio = 0

	r := Run(c)

	// every keyed operation increments exactly one key by one
	sum := 0
	for _, v := range r.Map().All() {
		sum += v
	}
	if sum != c.Workers*c.Ops {
		t.Errorf("Expected sum %d (no lost updates), got %d", c.Workers*c.Ops, sum)
	}
	if r.PerOp[opKeyed].Count() != int64(c.Workers*c.Ops) {
		t.Errorf("Expected all operations to be keyed, got %d", r.PerOp[opKeyed].Count())
	}
}

func TestReport(t *testing.T) {
	c := smallConfig(sharedmap.KindOrdered)
	c.Ops = 200
	r := Run(c)

	var out bytes.Buffer
	r.Print(&out)
	if !strings.Contains(out.String(), "throughput") || !strings.Contains(out.String(), opLookup) {
		t.Errorf("Expected summary with throughput and lookup row, got:\n%s", out.String())
	}
	if want := fmt.Sprintf("ordered, %d keys", r.Map().Size()); !strings.Contains(out.String(), want) {
		t.Errorf("Expected summary to report the final map as %q, got:\n%s", want, out.String())
	}

	out.Reset()
	r.WriteMetrics(&out)
	if !strings.Contains(out.String(), `smap_lock_acquired_total{lock="bench"`) {
		t.Errorf("Expected lock statistics in metrics output, got:\n%s", out.String())
	}

	path := filepath.Join(t.TempDir(), "result.csv")
	if err := r.WriteCSV(path); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open CSV: %v", err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("failed to read CSV: %v", err)
	}
	if len(rows) != len(operations)+1 {
		t.Errorf("Expected header and %d rows, got %d rows", len(operations), len(rows))
	}
}
