package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"partner-bot/internal/utils"
)

var (
	ReferralsAttributed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "partner_referrals_attributed_total",
		Help: "Referral edges created",
	})

	ReferralsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "partner_referrals_confirmed_total",
		Help: "Referral edges confirmed after the referred user signed",
	})

	PayoutRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partner_payout_requests_total",
			Help: "Payout requests by outcome",
		},
		[]string{"outcome"},
	)

	PayoutDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partner_payout_decisions_total",
			Help: "Administrator payout decisions",
		},
		[]string{"decision"},
	)

	BroadcastDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partner_broadcast_deliveries_total",
			Help: "Broadcast delivery attempts by result",
		},
		[]string{"result"},
	)
)

// Handler serves /metrics to clients from the allowed networks only.
func Handler(allowedCIDRs []string) http.Handler {
	next := promhttp.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !utils.IsAllowedIP(host, allowedCIDRs) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
