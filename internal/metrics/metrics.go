package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CodeExchangesTotal counts authorization-code exchanges by path and outcome
	CodeExchangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_code_exchanges_total",
			Help: "Total number of authorization code exchange attempts",
		},
		[]string{"path", "outcome"},
	)

	// HandoffRedirectsTotal counts shell-handoff redirects issued by the callback
	HandoffRedirectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_handoff_redirects_total",
			Help: "Total number of mobile shell-handoff redirects",
		},
	)

	// WalletCreationsTotal counts wallet creations by kind and status
	WalletCreationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_creations_total",
			Help: "Total number of wallet creations",
		},
		[]string{"kind", "status"},
	)

	// TransactionsTotal counts submitted transactions by wallet kind and status
	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_transactions_total",
			Help: "Total number of submitted transactions",
		},
		[]string{"kind", "status"},
	)

	// ReceiptPollDuration tracks how long receipt polling ran before a terminal state
	ReceiptPollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wallet_receipt_poll_duration_seconds",
			Help:    "Time from submission until the receipt poll stopped",
			Buckets: []float64{3, 6, 12, 30, 60, 90, 120},
		},
	)

	// FaucetRequestsTotal counts faucet requests by status
	FaucetRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_faucet_requests_total",
			Help: "Total number of faucet requests",
		},
		[]string{"status"},
	)

	// BalanceFetchFailures counts degraded balance reads (served as "0.0")
	BalanceFetchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wallet_balance_fetch_failures_total",
			Help: "Total number of balance reads that degraded to the zero default",
		},
	)
)
