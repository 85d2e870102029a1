package provider

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codesense_provider_requests_total",
		Help: "Provider API calls issued, including retries.",
	})

	providerRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codesense_provider_retries_total",
		Help: "Provider API calls retried after a transient failure.",
	})

	providerRateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codesense_provider_rate_limited_total",
		Help: "Provider API calls rejected with HTTP 429.",
	})

	embedFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codesense_embed_failures_total",
		Help: "Embedding batches that failed after all retries.",
	})

	generateFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codesense_generate_failures_total",
		Help: "Text generation calls that failed after all retries.",
	})
)
