//Package cellMetrics counts generated cells with prometheus collectors, so runs can be inspected with the
//usual prometheus tooling (e.g. the node exporter textfile collector)
package cellMetrics

import (
	"cellSim/cellGenerator"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cellsim"

//Collector implements cellGenerator.Observer. All methods are safe for concurrent use
type Collector struct {
	records  *prometheus.CounterVec
	clamps   *prometheus.CounterVec
	duration prometheus.Gauge
}

//NewCollector creates the collectors and registers them with reg
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_generated_total",
			Help:      "Number of generated cell records by donor and cytokine dose.",
		}, []string{"donor", "dose"}),
		clamps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responder_values_clamped_total",
			Help:      "Number of negative responder values that were clamped to zero, by channel.",
		}, []string{"channel"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Wall clock time of the last generation run.",
		}),
	}
	for _, collector := range []prometheus.Collector{c.records, c.clamps, c.duration} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("failed to register collector : %v", err)
		}
	}
	return c, nil
}

func doseLabel(dose float64) string {
	return strconv.FormatFloat(dose, 'f', -1, 64)
}

func (c *Collector) ObserveRecord(r cellGenerator.CellRecord) {
	c.records.WithLabelValues(r.DonorID, doseLabel(r.CytokineDose)).Inc()
}

func (c *Collector) ObserveClamp(channel string) {
	c.clamps.WithLabelValues(channel).Inc()
}

//ObserveDuration records the wall clock time of a generation run
func (c *Collector) ObserveDuration(d time.Duration) {
	c.duration.Set(d.Seconds())
}

//WriteTextfile writes all metrics gathered by g to path in the prometheus text format
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics to %v : %v", path, err)
	}
	return nil
}
