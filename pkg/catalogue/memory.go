package catalogue

import (
	"context"
	"sync"

	"github.com/mosaicdash/mosaic/pkg/models"
)

// MemProvider is an in-memory Provider. It backs tests and single-node
// deployments; a real deployment fronts the remote catalogue service.
type MemProvider struct {
	mu        sync.RWMutex
	resources map[string]*ResourceInfo
	installed map[string]map[string]struct{} // user id -> qualified names
	public    bool
}

// NewMemProvider returns an empty provider. When public is true every
// registered resource is available to every user without installation.
func NewMemProvider(public bool) *MemProvider {
	return &MemProvider{
		resources: map[string]*ResourceInfo{},
		installed: map[string]map[string]struct{}{},
		public:    public,
	}
}

// Register adds or replaces a resource.
func (p *MemProvider) Register(info *ResourceInfo) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resources[info.Name] = info
}

func (p *MemProvider) ResourceInfo(_ context.Context, name string) (*ResourceInfo, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	info, ok := p.resources[name]
	if !ok {
		return nil, ErrResourceNotFound
	}

	return info, nil
}

func (p *MemProvider) IsAvailable(_ context.Context, user models.User, name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if _, ok := p.resources[name]; !ok {
		return false
	}

	if p.public {
		return true
	}

	_, ok := p.installed[user.ResolutionID()][name]

	return ok
}

func (p *MemProvider) Install(_ context.Context, user models.User, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.resources[name]; !ok {
		return ErrResourceNotFound
	}

	userID := user.ResolutionID()
	if p.installed[userID] == nil {
		p.installed[userID] = map[string]struct{}{}
	}

	p.installed[userID][name] = struct{}{}

	return nil
}
