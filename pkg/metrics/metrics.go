package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ProvisioningRuns counts completed provisioning batches by outcome
// (success, configuration_error, generation_failed, persist_failed).
var ProvisioningRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "walletcore_provisioning_runs_total",
		Help: "Total number of address provisioning batches by outcome",
	},
	[]string{"outcome"},
)

// ProviderRequests counts outbound custodial wallet API calls
var ProviderRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "walletcore_provider_requests_total",
		Help: "Total number of custodial wallet API requests by operation and status",
	},
	[]string{"operation", "status"},
)

// AddressCacheLookups counts address-id cache lookups by result (hit/miss)
var AddressCacheLookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "walletcore_address_cache_lookups_total",
		Help: "Total number of address-id cache lookups by result",
	},
	[]string{"result"},
)

// TriggerDropped counts provisioning jobs dropped because the queue was full
var TriggerDropped = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "walletcore_trigger_dropped_total",
		Help: "Total number of provisioning jobs dropped by the trigger queue",
	},
)

func init() {
	prometheus.MustRegister(ProvisioningRuns, ProviderRequests)
	prometheus.MustRegister(AddressCacheLookups, TriggerDropped)
}
