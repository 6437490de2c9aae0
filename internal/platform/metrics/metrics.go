// Package metrics registers the Prometheus instruments for the verification
// and governance workflows.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	OTPIssued            *prometheus.CounterVec
	OTPVerified          *prometheus.CounterVec
	OTPRejected          *prometheus.CounterVec
	Logins               *prometheus.CounterVec
	Logouts              prometheus.Counter
	RateProposals        prometheus.Counter
	RateApprovals        prometheus.Counter
	RateRejections       prometheus.Counter
	NotificationsCreated *prometheus.CounterVec
	NotifierFailures     prometheus.Counter
}

// New creates and registers all Prometheus metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		OTPIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taxgate_otp_issued_total",
			Help: "OTP challenges issued, by login flow",
		}, []string{"flow"}),
		OTPVerified: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taxgate_otp_verified_total",
			Help: "Successful OTP verifications, by login flow",
		}, []string{"flow"}),
		OTPRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taxgate_otp_rejected_total",
			Help: "Failed OTP verifications, by failure kind",
		}, []string{"reason"}),
		Logins: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taxgate_logins_total",
			Help: "Completed logins, by principal role",
		}, []string{"role"}),
		Logouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taxgate_logouts_total",
			Help: "Explicit token revocations",
		}),
		RateProposals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taxgate_rate_proposals_total",
			Help: "Rate change proposals submitted",
		}),
		RateApprovals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taxgate_rate_approvals_total",
			Help: "Rate change proposals approved and applied",
		}),
		RateRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taxgate_rate_rejections_total",
			Help: "Rate change proposals rejected",
		}),
		NotificationsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "taxgate_notifications_created_total",
			Help: "Workflow notifications created, by target role",
		}, []string{"role"}),
		NotifierFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "taxgate_notifier_failures_total",
			Help: "Best-effort out-of-band deliveries that failed",
		}),
	}
}

// The increment helpers below are nil-safe so services can run without a
// metrics registry in tests.

func (m *Metrics) IncOTPIssued(flow string) {
	if m == nil {
		return
	}
	m.OTPIssued.WithLabelValues(flow).Inc()
}

func (m *Metrics) IncOTPVerified(flow string) {
	if m == nil {
		return
	}
	m.OTPVerified.WithLabelValues(flow).Inc()
}

func (m *Metrics) IncOTPRejected(reason string) {
	if m == nil {
		return
	}
	m.OTPRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncLogin(role string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(role).Inc()
}

func (m *Metrics) IncLogout() {
	if m == nil {
		return
	}
	m.Logouts.Inc()
}

func (m *Metrics) IncRateProposal() {
	if m == nil {
		return
	}
	m.RateProposals.Inc()
}

func (m *Metrics) IncRateApproval() {
	if m == nil {
		return
	}
	m.RateApprovals.Inc()
}

func (m *Metrics) IncRateRejection() {
	if m == nil {
		return
	}
	m.RateRejections.Inc()
}

func (m *Metrics) IncNotificationCreated(role string) {
	if m == nil {
		return
	}
	m.NotificationsCreated.WithLabelValues(role).Inc()
}

func (m *Metrics) IncNotifierFailure() {
	if m == nil {
		return
	}
	m.NotifierFailures.Inc()
}
