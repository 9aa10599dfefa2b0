package bench

import (
	"encoding/csv"
	"fmt"
	gometrics "github.com/rcrowley/go-metrics"
	"io"
	"os"
	"strconv"
	"time"
)

// Print writes a human-readable summary of the result.
func (r *Result) Print(w io.Writer) {
	fmt.Fprintf(w, "%-12s%v\n", "duration", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "%-12s%.0f ops/sec\n", "throughput", r.Throughput())
	fmt.Fprintf(w, "%-12s%s, %d keys\n", "final map", r.Map().Kind(), r.Map().Size())
	fmt.Fprintf(w, "%-12s%s\n", "fairness", r.Fairness)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-12s%10s%12s%12s%12s%12s\n", "operation", "count", "mean", "p50", "p99", "max")
	for _, op := range operations {
		t := r.PerOp[op].Snapshot()
		if t.Count() == 0 {
			continue
		}
		ps := t.Percentiles([]float64{0.5, 0.99})
		fmt.Fprintf(w, "%-12s%10d%12v%12v%12v%12v\n", op, t.Count(),
			time.Duration(t.Mean()), time.Duration(ps[0]), time.Duration(ps[1]), time.Duration(t.Max()))
	}
}

// WriteMetrics writes the lock statistics and all timer details.
func (r *Result) WriteMetrics(w io.Writer) {
	fmt.Fprintln(w, "# lock statistics")
	r.lockInfo.WritePrometheus(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# operation timers")
	gometrics.WriteOnce(r.timers, w)
}

// WriteCSV writes one row per operation to path.
func (r *Result) WriteCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"Operation", "Count", "MeanNs", "P50Ns", "P99Ns", "MaxNs",
		"Map", "Workers", "OpsPerWorker", "Keys", "ReadRatio", "Keyed",
		"OpsPerSec", "DistributionQuality",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, op := range operations {
		t := r.PerOp[op].Snapshot()
		ps := t.Percentiles([]float64{0.5, 0.99})
		row := []string{
			op,
			strconv.FormatInt(t.Count(), 10),
			strconv.FormatFloat(t.Mean(), 'f', 0, 64),
			strconv.FormatFloat(ps[0], 'f', 0, 64),
			strconv.FormatFloat(ps[1], 'f', 0, 64),
			strconv.FormatInt(t.Max(), 10),
			string(r.Config.MapKind),
			strconv.Itoa(r.Config.Workers),
			strconv.Itoa(r.Config.Ops),
			strconv.Itoa(r.Config.Keys),
			strconv.FormatFloat(r.Config.ReadRatio, 'f', 2, 64),
			strconv.FormatBool(r.Config.Keyed),
			strconv.FormatFloat(r.Throughput(), 'f', 0, 64),
			strconv.FormatFloat(r.Fairness.DistributionQuality, 'f', 4, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
