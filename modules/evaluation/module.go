// Package evaluation wires the access, scoring, lifecycle and cascade services
// over one store.
package evaluation

import (
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
	"github.com/iota-uz/perfeval/modules/evaluation/services"
	"github.com/iota-uz/perfeval/pkg/eventbus"
)

// Module holds the evaluation services sharing one store, capability checker and bus.
type Module struct {
	Store      domain.Store
	Bus        eventbus.EventBus
	Graph      *services.AssignmentGraph
	Access     *services.AccessResolver
	Weights    *services.WeightValidator
	Aggregator *services.ScoreAggregator
	Lifecycle  *services.EvaluationLifecycle
	Cascade    *services.CascadeDeactivator
}

// New builds the module and registers the audit subscribers on bus.
func New(store domain.Store, checker services.CapabilityChecker, bus eventbus.EventBus, logger *logrus.Logger) *Module {
	if bus == nil {
		bus = eventbus.NewEventPublisher(logger)
	}
	services.RegisterAuditSubscribers(bus, logger)

	graph := services.NewAssignmentGraph(store)
	access := services.NewAccessResolver(store, graph, logger)
	aggregator := services.NewScoreAggregator(store)

	return &Module{
		Store:      store,
		Bus:        bus,
		Graph:      graph,
		Access:     access,
		Weights:    services.NewWeightValidator(store, checker, bus, logger),
		Aggregator: aggregator,
		Lifecycle:  services.NewEvaluationLifecycle(store, access, graph, aggregator, checker, bus, logger),
		Cascade:    services.NewCascadeDeactivator(store, checker, bus, logger),
	}
}
