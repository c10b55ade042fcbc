package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	admissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "servebeer_admissions_total",
		Help: "Admission outcomes by operation.",
	}, []string{"operation", "outcome"})

	admittedBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "servebeer_admitted_bytes_total",
		Help: "Bytes admitted to the storage ledger.",
	}, []string{"operation"})
)

// ObserveAdmission records one terminal admission outcome.
func ObserveAdmission(operation, outcome string) {
	admissionsTotal.WithLabelValues(operation, outcome).Inc()
}

// AddAdmittedBytes records bytes charged to a user's ledger.
func AddAdmittedBytes(operation string, n int64) {
	if n > 0 {
		admittedBytesTotal.WithLabelValues(operation).Add(float64(n))
	}
}
