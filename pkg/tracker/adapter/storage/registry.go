package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	"github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

// Registry resolves the storage connection serving a location type.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]StorageConnection
}

// NewRegistry creates a registry holding conns, keyed by their Type.
func NewRegistry(conns ...StorageConnection) *Registry {
	r := &Registry{connections: make(map[string]StorageConnection)}
	for _, c := range conns {
		r.Register(c)
	}
	return r
}

// Register adds conn, replacing any connection of the same type.
func (r *Registry) Register(conn StorageConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[conn.Type()] = conn
	logger.Debugf("Storage connection registered for location type '%s'.", conn.Type())
}

// Get returns the connection serving locationType.
func (r *Registry) Get(locationType string) (StorageConnection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[locationType]
	if !ok {
		return nil, fmt.Errorf("no storage connection registered for location type '%s'", locationType)
	}
	return conn, nil
}

// Types returns the registered location types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.connections))
	for t := range r.connections {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// CloseAll closes every registered connection.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result *multierror.Error
	for t, conn := range r.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close storage connection '%s': %w", t, err))
		}
		delete(r.connections, t)
	}
	return result.ErrorOrNil()
}

// RegistryParams collects the connections provided by the adapter modules.
type RegistryParams struct {
	fx.In

	Lifecycle   fx.Lifecycle
	Connections []StorageConnection `group:"storage_connections"`
}

// NewRegistryFromParams builds the registry from the Fx group and closes it on stop.
func NewRegistryFromParams(p RegistryParams) *Registry {
	r := NewRegistry(p.Connections...)
	p.Lifecycle.Append(fx.StopHook(r.CloseAll))
	return r
}

// Module provides the Registry. Adapter modules contribute to the
// "storage_connections" group.
var Module = fx.Options(
	fx.Provide(NewRegistryFromParams),
)
