// Package metrics exposes the login-flow counters on the default
// Prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	loginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sso_logins_total",
		Help: "Login callbacks by provider and result",
	}, []string{"provider", "result"})

	loginStartsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sso_login_starts_total",
		Help: "Login starts by provider",
	}, []string{"provider"})

	codeExchangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sso_code_exchanges_total",
		Help: "One-time login code exchanges by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(loginsTotal, loginStartsTotal, codeExchangesTotal)
}

// LoginResult counts a callback outcome. Results: ok, exchange_failed,
// exchange_error, profile_failed, profile_error, reconcile_error.
func LoginResult(provider, result string) {
	loginsTotal.WithLabelValues(provider, result).Inc()
}

func LoginStart(provider string) {
	loginStartsTotal.WithLabelValues(provider).Inc()
}

// CodeExchange counts a login-code exchange. Results: ok, miss.
func CodeExchange(result string) {
	codeExchangesTotal.WithLabelValues(result).Inc()
}
