package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

var (
	accessDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evaluation",
		Name:      "access_decisions_total",
		Help:      "Access decisions broken down by principal role, entity kind and result.",
	}, []string{"role", "kind", "result"})

	lifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evaluation",
		Name:      "lifecycle_transitions_total",
		Help:      "Evaluation status transitions by target status.",
	}, []string{"status"})

	commentsAdded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "evaluation",
		Name:      "comments_added_total",
		Help:      "Comments attached to evaluation scores.",
	})

	cascadeRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evaluation",
		Name:      "cascade_rows_total",
		Help:      "Rows flipped or removed by cascade operations, by root kind and operation.",
	}, []string{"kind", "operation"})
)

func recordDecision(p domain.Principal, kind domain.Kind, allowed bool) {
	role := string(p.Role)
	if !p.Valid() {
		role = "none"
	}
	result := "denied"
	if allowed {
		result = "allowed"
	}
	accessDecisions.WithLabelValues(role, string(kind), result).Inc()
}
