package usecase

import (
	"context"
	"fmt"

	"github.com/sparksai/insight-server/internal/domain/entity"
	domainerrors "github.com/sparksai/insight-server/internal/domain/errors"
)

// Resolver produces the data and meta of one report kind from the
// merged filter document.
type Resolver func(ctx context.Context, filters Filters) (*entity.ReportResult, error)

// ReportRegistry maps data source names to resolvers. Registration
// order is preserved so introspection lists sources deterministically.
type ReportRegistry struct {
	order     []string
	resolvers map[string]Resolver
}

// NewReportRegistry creates an empty registry
func NewReportRegistry() *ReportRegistry {
	return &ReportRegistry{
		resolvers: map[string]Resolver{},
	}
}

// Register binds a resolver to a data source name. Re-registering a
// name replaces the resolver but keeps its original position.
func (r *ReportRegistry) Register(name string, resolver Resolver) {
	if _, exists := r.resolvers[name]; !exists {
		r.order = append(r.order, name)
	}
	r.resolvers[name] = resolver
}

// DataSources lists the registered names in registration order.
func (r *ReportRegistry) DataSources() []string {
	sources := make([]string, len(r.order))
	copy(sources, r.order)
	return sources
}

// Resolve dispatches to the named resolver.
func (r *ReportRegistry) Resolve(ctx context.Context, name string, filters Filters) (*entity.ReportResult, error) {
	resolver, ok := r.resolvers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domainerrors.ErrUnknownDataSource, name)
	}
	return resolver(ctx, filters)
}
