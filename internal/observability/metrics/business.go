package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"delivery-metrics/internal/domain/entity"
)

// DeliveryMetrics holds the delivery metrics published on every cycle.
//
// Metrics:
//   - total_deliveries: Gauge, pending + on the way + delivered of the last sample
//   - pending_deliveries: Gauge, pending count of the last sample
//   - on_the_way_deliveries: Gauge, in-transit count of the last sample
//   - average_delivery_time_seconds: Summary (count and sum only), one observation per sample
type DeliveryMetrics struct {
	TotalDeliveries     prometheus.Gauge
	PendingDeliveries   prometheus.Gauge
	OnTheWayDeliveries  prometheus.Gauge
	AverageDeliveryTime prometheus.Summary
}

// NewDeliveryMetrics creates the delivery metrics and registers them with reg.
func NewDeliveryMetrics(reg prometheus.Registerer) *DeliveryMetrics {
	factory := promauto.With(reg)

	return &DeliveryMetrics{
		TotalDeliveries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "total_deliveries",
			Help: "Total number of deliveries",
		}),
		PendingDeliveries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pending_deliveries",
			Help: "Number of pending deliveries",
		}),
		OnTheWayDeliveries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "on_the_way_deliveries",
			Help: "Number of deliveries on the way",
		}),
		// No objectives: the summary exports _count and _sum only.
		AverageDeliveryTime: factory.NewSummary(prometheus.SummaryOpts{
			Name: "average_delivery_time_seconds",
			Help: "Average delivery time in seconds",
		}),
	}
}

// Publish overwrites the gauges with s and records s.AvgTime on the summary.
// Each metric is updated independently; a concurrent scrape may see a mix of
// the previous and the current sample.
func (m *DeliveryMetrics) Publish(s entity.Sample) {
	m.TotalDeliveries.Set(float64(s.Total()))
	m.PendingDeliveries.Set(float64(s.Pending))
	m.OnTheWayDeliveries.Set(float64(s.OnTheWay))
	m.AverageDeliveryTime.Observe(s.AvgTime)
}

// Snapshot is a point-in-time read of the delivery metrics.
type Snapshot struct {
	Total        float64
	Pending      float64
	OnTheWay     float64
	AvgTimeCount uint64
	AvgTimeSum   float64
}

// Snapshot reads the current values of all delivery metrics.
func (m *DeliveryMetrics) Snapshot() (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.Total, err = gaugeValue(m.TotalDeliveries); err != nil {
		return Snapshot{}, fmt.Errorf("read total_deliveries: %w", err)
	}
	if snap.Pending, err = gaugeValue(m.PendingDeliveries); err != nil {
		return Snapshot{}, fmt.Errorf("read pending_deliveries: %w", err)
	}
	if snap.OnTheWay, err = gaugeValue(m.OnTheWayDeliveries); err != nil {
		return Snapshot{}, fmt.Errorf("read on_the_way_deliveries: %w", err)
	}

	var pb dto.Metric
	if err := m.AverageDeliveryTime.Write(&pb); err != nil {
		return Snapshot{}, fmt.Errorf("read average_delivery_time_seconds: %w", err)
	}
	snap.AvgTimeCount = pb.GetSummary().GetSampleCount()
	snap.AvgTimeSum = pb.GetSummary().GetSampleSum()

	return snap, nil
}

func gaugeValue(g prometheus.Gauge) (float64, error) {
	var pb dto.Metric
	if err := g.Write(&pb); err != nil {
		return 0, err
	}
	return pb.GetGauge().GetValue(), nil
}
