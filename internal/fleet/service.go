// Package fleet exposes the caller-facing surface of the sync subsystem:
// entity creation for the fixed fleet collections, queue draining, and
// read-only snapshots of the local mirror.
//
// The UI layer consumes these functions and nothing deeper; it learns
// whether a creation was confirmed remotely or merely queued from the
// Synced flag on the result.
package fleet

import (
	"context"
	"fmt"

	"fleetsync/internal/queue"
)

// Entity types of the fleet collections.
const (
	EntityTypeVehicles  = "vehicles"
	EntityTypeCompanies = "companies"
)

// companyRefField is the vehicle payload key referencing the owning company.
const companyRefField = "company_id"

// Service wraps the sync engine with the fleet domain's fixed collections.
type Service struct {
	engine *queue.Engine
}

// NewService creates a Service over the given engine.
func NewService(engine *queue.Engine) *Service {
	return &Service{engine: engine}
}

// CreateCompany creates a company, online or offline.
func (s *Service) CreateCompany(ctx context.Context, fields map[string]any) (queue.CreateResult, error) {
	return s.engine.CreateEntity(ctx, EntityTypeCompanies, fields, queue.CreateOptions{})
}

// CreateVehicle creates a vehicle, optionally owned by the company with the
// given local id.
//
// When the company has already synced, its server id is substituted into the
// payload up front and the normal online-or-queue path runs. When it has
// not, the vehicle cannot reference it remotely yet, so the creation is
// queued with an explicit dependency: the drain holds the vehicle back until
// the company syncs, then rewrites the reference to the company's server id.
func (s *Service) CreateVehicle(ctx context.Context, fields map[string]any, companyLocalID string) (queue.CreateResult, error) {
	if companyLocalID == "" {
		return s.engine.CreateEntity(ctx, EntityTypeVehicles, fields, queue.CreateOptions{})
	}

	company, ok := s.engine.GetEntity(ctx, companyLocalID)
	if !ok {
		return queue.CreateResult{}, fmt.Errorf("create vehicle: unknown company %q", companyLocalID)
	}
	if company.EntityType != EntityTypeCompanies {
		return queue.CreateResult{}, fmt.Errorf("create vehicle: %q is not a company", companyLocalID)
	}

	withRef := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		withRef[k] = v
	}

	if company.Synced {
		withRef[companyRefField] = company.ServerID
		return s.engine.CreateEntity(ctx, EntityTypeVehicles, withRef, queue.CreateOptions{})
	}

	// Placeholder reference; the drain replaces it once the company syncs.
	withRef[companyRefField] = company.ID
	return s.engine.QueueCreation(ctx, EntityTypeVehicles, withRef, queue.CreateOptions{
		DependsOn: company.ID,
		RefField:  companyRefField,
	})
}

// SyncQueue drains all pending queue items against the remote store.
func (s *Service) SyncQueue(ctx context.Context) (queue.DrainResult, error) {
	return s.engine.DrainQueue(ctx)
}

// PendingSyncCount returns the number of queue items awaiting sync.
func (s *Service) PendingSyncCount(ctx context.Context) int {
	return s.engine.PendingCount(ctx)
}

// FailedItems returns the dead-lettered queue items.
func (s *Service) FailedItems(ctx context.Context) []queue.QueueItem {
	return s.engine.ListFailed(ctx)
}

// LocalVehicles returns the local mirror of vehicles, synced and unsynced.
func (s *Service) LocalVehicles(ctx context.Context) []queue.LocalEntity {
	return s.engine.ListEntities(ctx, EntityTypeVehicles)
}

// LocalCompanies returns the local mirror of companies, synced and unsynced.
func (s *Service) LocalCompanies(ctx context.Context) []queue.LocalEntity {
	return s.engine.ListEntities(ctx, EntityTypeCompanies)
}
