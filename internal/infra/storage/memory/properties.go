package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"pgnest/internal/domain/property"
)

// PropertyRepository is the in-memory property catalog.
type PropertyRepository struct {
	mu    sync.RWMutex
	items map[property.PropertyID]*property.Property
}

func NewPropertyRepository() *PropertyRepository {
	return &PropertyRepository{
		items: make(map[property.PropertyID]*property.Property),
	}
}

func (r *PropertyRepository) ByID(ctx context.Context, id property.PropertyID) (*property.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prop, ok := r.items[id]
	if !ok {
		return nil, property.ErrNotFound
	}
	return cloneProperty(prop), nil
}

func (r *PropertyRepository) ByOwner(ctx context.Context, owner property.OwnerID) ([]*property.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*property.Property, 0)
	for _, prop := range r.items {
		if prop.Owner == owner {
			matches = append(matches, cloneProperty(prop))
		}
	}
	sortByCreated(matches)
	return matches, nil
}

func (r *PropertyRepository) Search(ctx context.Context, params property.SearchParams) ([]*property.Property, error) {
	opts := params.Normalized()
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*property.Property, 0)
	for _, prop := range r.items {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		if opts.Matches(prop) {
			matches = append(matches, cloneProperty(prop))
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].MonthlyRent == matches[j].MonthlyRent {
			return matches[i].Rating > matches[j].Rating
		}
		return matches[i].MonthlyRent < matches[j].MonthlyRent
	})
	total := len(matches)
	start := opts.Offset
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}
	return matches[start:end], nil
}

func (r *PropertyRepository) Save(ctx context.Context, prop *property.Property) error {
	if prop == nil || strings.TrimSpace(string(prop.ID)) == "" {
		return property.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[prop.ID] = cloneProperty(prop)
	return nil
}

func cloneProperty(p *property.Property) *property.Property {
	if p == nil {
		return nil
	}
	copied := *p
	copied.Amenities = append([]string(nil), p.Amenities...)
	copied.HouseRules = append([]string(nil), p.HouseRules...)
	return &copied
}

func sortByCreated(props []*property.Property) {
	sort.Slice(props, func(i, j int) bool {
		return props[i].CreatedAt.After(props[j].CreatedAt)
	})
}
