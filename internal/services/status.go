package services

import (
	"context"

	"github.com/vvka-141/vload/internal/marker"
)

// StatusService answers completion queries and prepares the marker table.
type StatusService struct {
	store *marker.Store
}

// NewStatusService creates a StatusService. Panics if store is nil.
func NewStatusService(store *marker.Store) *StatusService {
	if store == nil {
		panic("store cannot be nil")
	}
	return &StatusService{store: store}
}

// Exists reports whether updateID is marked complete.
func (s *StatusService) Exists(ctx context.Context, updateID string) (bool, error) {
	return s.store.Target(updateID, "").Exists(ctx)
}

// InitMarker creates the marker table if it does not exist yet.
func (s *StatusService) InitMarker(ctx context.Context) error {
	return s.store.CreateIfAbsent(ctx)
}
