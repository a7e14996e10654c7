// Package metrics registers the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Logins counts login attempts by result: ok, invalid_credentials,
	// upstream_error, error.
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "authcore_logins_total",
		Help: "Login attempts by result.",
	}, []string{"result"})

	// TokenValidations counts access-token validations by result: ok,
	// expired, invalid.
	TokenValidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "authcore_token_validations_total",
		Help: "Access token validations by result.",
	}, []string{"result"})

	// PermissionDenials counts authorization denials by kind: matrix,
	// entitlement.
	PermissionDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "authcore_permission_denials_total",
		Help: "Authorization denials by kind.",
	}, []string{"kind"})

	// BatchGrantFailures counts per-user failures tolerated during batch
	// assign/remove operations.
	BatchGrantFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "authcore_batch_grant_failures_total",
		Help: "Per-user failures tolerated during batch feature operations.",
	})
)
