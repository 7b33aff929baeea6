// Package metrics defines and registers all custom Prometheus metrics for
// the accounts API. It is the single source of truth for metric names,
// labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accounts"

// LoginsTotal counts login attempts by outcome.
// Label:
//   - result: "success", "invalid", "throttled" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, labelled by result.",
	},
	[]string{"result"},
)

// TokensIssuedTotal counts bearer tokens issued on successful logins.
var TokensIssuedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_issued_total",
		Help:      "Total number of bearer tokens issued.",
	},
)

// UserOpsTotal counts successful user-management operations.
// Label:
//   - op: "get", "list", "search", "register", "update", "delete", "set_photo", "remove_photo"
var UserOpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "user_operations_total",
		Help:      "Total number of successful user operations, by operation.",
	},
	[]string{"op"},
)

// AuthzDeniedTotal counts forbidden outcomes from ownership/role checks.
// Label:
//   - op: the operation that was denied
var AuthzDeniedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_denied_total",
		Help:      "Total number of authorization denials, by operation.",
	},
	[]string{"op"},
)
