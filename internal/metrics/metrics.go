package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus counters for the kiosk core.
type Metrics struct {
	OTPIssued              prometheus.Counter
	OTPVerified            prometheus.Counter
	OTPFailed              *prometheus.CounterVec
	ApplicationsSubmitted  prometheus.Counter
	TransitionsApplied     prometheus.Counter
	ConfirmationsApplied   prometheus.Counter
	ConfirmationsDuplicate prometheus.Counter
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OTPIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "sevasetu_otp_issued_total",
			Help: "Total number of OTP codes issued",
		}),
		OTPVerified: factory.NewCounter(prometheus.CounterOpts{
			Name: "sevasetu_otp_verified_total",
			Help: "Total number of successful OTP verifications",
		}),
		OTPFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sevasetu_otp_failed_total",
			Help: "Total number of failed OTP verifications by reason",
		}, []string{"reason"}),
		ApplicationsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "sevasetu_applications_submitted_total",
			Help: "Total number of applications created",
		}),
		TransitionsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "sevasetu_transitions_applied_total",
			Help: "Total number of application status transitions",
		}),
		ConfirmationsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "sevasetu_confirmations_applied_total",
			Help: "Total number of confirmations applied",
		}),
		ConfirmationsDuplicate: factory.NewCounter(prometheus.CounterOpts{
			Name: "sevasetu_confirmations_duplicate_total",
			Help: "Total number of confirmations rejected as already finalized",
		}),
	}
}
