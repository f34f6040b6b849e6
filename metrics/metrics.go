package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics mencatat hasil recognition, enrollment, dan ukuran gallery.
type Metrics struct {
	Outcomes            *prometheus.CounterVec
	RecognitionDuration prometheus.Histogram
	Enrollments         *prometheus.CounterVec
	GallerySize         prometheus.Gauge
	CorruptDescriptors  prometheus.Counter
}

// New mendaftarkan semua metric ke reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_recognition_outcomes_total",
			Help: "Recognition requests by outcome",
		}, []string{"outcome"}),
		RecognitionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "attendance_recognition_duration_seconds",
			Help:    "Duration of recognition requests, extraction and storage included",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		Enrollments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_enrollments_total",
			Help: "Enrollment attempts by status",
		}, []string{"status"}),
		GallerySize: f.NewGauge(prometheus.GaugeOpts{
			Name: "attendance_gallery_students",
			Help: "Students currently held in the in-memory gallery",
		}),
		CorruptDescriptors: f.NewCounter(prometheus.CounterOpts{
			Name: "attendance_corrupt_descriptors_total",
			Help: "Stored descriptors skipped during matching because of wrong dimensionality",
		}),
	}
}

func (m *Metrics) ObserveOutcome(outcome string, start time.Time) {
	m.Outcomes.WithLabelValues(outcome).Inc()
	m.RecognitionDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveEnrollment(status string) {
	m.Enrollments.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveCorrupt(n int) {
	m.CorruptDescriptors.Add(float64(n))
}

func (m *Metrics) SetGallerySize(n int) {
	m.GallerySize.Set(float64(n))
}
