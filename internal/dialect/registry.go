package dialect

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Registry manages loaded dialect packs.
type Registry struct {
	sync.RWMutex
	packs    map[string]*Pack   // name -> pack
	byEngine map[string][]*Pack // engine -> packs
	logger   *zap.Logger
}

// NewRegistry creates a new pack registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		packs:    make(map[string]*Pack),
		byEngine: make(map[string][]*Pack),
		logger:   logger.With(zap.String("component", "dialect-registry")),
	}
}

// Register adds a pack to the registry.
func (r *Registry) Register(pack *Pack) error {
	r.Lock()
	defer r.Unlock()

	name := pack.Name()

	if _, exists := r.packs[name]; exists {
		return &PackAlreadyRegisteredError{Name: name}
	}

	r.packs[name] = pack

	engine := pack.Engine()
	r.byEngine[engine] = append(r.byEngine[engine], pack)

	r.logger.Info("Dialect pack registered",
		zap.String("name", name),
		zap.String("engine", engine),
		zap.String("version", pack.Version()),
	)

	return nil
}

// Get retrieves a pack by name.
func (r *Registry) Get(name string) (*Pack, bool) {
	r.RLock()
	defer r.RUnlock()

	pack, ok := r.packs[name]
	return pack, ok
}

// LookupByEngine finds packs for a database engine in registration order.
func (r *Registry) LookupByEngine(engine string) []*Pack {
	r.RLock()
	defer r.RUnlock()

	packs := r.byEngine[engine]
	result := make([]*Pack, len(packs))
	copy(result, packs)
	return result
}

// List returns all registered packs ordered by name.
func (r *Registry) List() []*Pack {
	r.RLock()
	defer r.RUnlock()

	result := make([]*Pack, 0, len(r.packs))
	for _, pack := range r.packs {
		result = append(result, pack)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Unregister removes a pack from the registry.
func (r *Registry) Unregister(name string) {
	r.Lock()
	defer r.Unlock()

	pack, ok := r.packs[name]
	if !ok {
		return
	}

	engine := pack.Engine()
	packs := r.byEngine[engine]
	for i, p := range packs {
		if p.Name() == name {
			r.byEngine[engine] = append(packs[:i], packs[i+1:]...)
			break
		}
	}

	delete(r.packs, name)

	r.logger.Info("Dialect pack unregistered", zap.String("name", name))
}

// Count returns the number of registered packs.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.packs)
}

// Keywords returns the keyword dictionary for engine: the built-in entries
// overlaid with every registered pack for the engine, in registration order.
// A nil registry yields the built-in entries.
func (r *Registry) Keywords(engine string) map[string]string {
	out := BaseKeywords(engine)
	if r == nil {
		return out
	}
	for _, pack := range r.LookupByEngine(engine) {
		merge(out, pack.Keywords)
	}
	return out
}

// LoadRegistry discovers packs under paths and registers them. Missing
// paths and invalid packs are logged, never fatal.
func LoadRegistry(paths []string, logger *zap.Logger) *Registry {
	reg := NewRegistry(logger)
	packs, err := NewLoader(logger).Discover(paths)
	if err != nil {
		logger.Debug("No dialect packs loaded", zap.Error(err))
		return reg
	}
	for _, p := range packs {
		if err := reg.Register(p); err != nil {
			logger.Warn("Skipping dialect pack", zap.Error(err))
		}
	}
	return reg
}
