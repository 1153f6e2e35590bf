// resolver.go legacy-id to target-id mapping with cold-start reconstruction
package migration

import (
	"strconv"

	gocache "github.com/patrickmn/go-cache"

	"github.com/kitabu/kitabu-go/internal/datastore"
	"github.com/kitabu/kitabu-go/internal/errors"
)

// EntityType names one mapped entity family.
type EntityType string

const (
	EntityCategory EntityType = "category"
	EntityBook     EntityType = "book"
	EntityStudent  EntityType = "student"
)

// Resolver maintains legacy-id to target-id mappings per entity type. It is
// shared mutable state across all importers but is only ever accessed from
// the single pipeline goroutine, so it carries no locking of its own beyond
// what the cache provides.
//
// Resolution is three-tiered: the session cache, a persisted lookup for
// entity types that carry a first-class legacy-reference column, and a full
// reconstruction scan over the target store's annotation fields.
type Resolver struct {
	store datastore.Interface

	// cache holds entity/legacyID -> targetID for the duration of one run.
	cache *gocache.Cache

	// counts tracks cached entries per entity so reconstruction can detect
	// a cold cache without enumerating keys.
	counts map[EntityType]int

	// rebuilt guards reconstruction to at most once per entity type per
	// process lifetime.
	rebuilt map[EntityType]bool
}

// NewResolver creates a resolver backed by the given target store.
func NewResolver(store datastore.Interface) *Resolver {
	return &Resolver{
		store:   store,
		cache:   gocache.New(gocache.NoExpiration, 0),
		counts:  make(map[EntityType]int),
		rebuilt: make(map[EntityType]bool),
	}
}

func cacheKey(entity EntityType, legacyID string) string {
	return string(entity) + "/" + legacyID
}

// Register records a legacy-id to target-id mapping in the session cache.
func (r *Resolver) Register(entity EntityType, legacyID, targetID string) {
	if legacyID == "" || targetID == "" {
		return
	}
	key := cacheKey(entity, legacyID)
	if _, exists := r.cache.Get(key); !exists {
		r.counts[entity]++
	}
	r.cache.Set(key, targetID, gocache.NoExpiration)
}

// Resolve returns the target id for a legacy id, or "" when no mapping
// exists. Resolution is idempotent: a resolved id is cached before return,
// so resolving the same legacy id twice never issues a second store query.
func (r *Resolver) Resolve(entity EntityType, legacyID string) (string, error) {
	if legacyID == "" {
		return "", nil
	}

	// Tier 1: session cache.
	if targetID, ok := r.cache.Get(cacheKey(entity, legacyID)); ok {
		return targetID.(string), nil
	}

	// Tier 2: persisted lookup for entities with a first-class legacy
	// reference column. Book copies reference their legacy book id.
	if entity == EntityBook {
		if numericID, err := strconv.Atoi(legacyID); err == nil {
			copy, err := r.store.CopyByLegacyBookID(numericID)
			if err != nil {
				return "", err
			}
			if copy != nil && copy.BookID != "" {
				r.Register(entity, legacyID, copy.BookID)
				return copy.BookID, nil
			}
		}
	}

	// Tier 3: reconstruction from annotation fields, run at most once per
	// entity type when the cache is cold.
	if r.counts[entity] == 0 && !r.rebuilt[entity] {
		if _, err := r.Reconstruct(entity); err != nil {
			return "", err
		}
		if targetID, ok := r.cache.Get(cacheKey(entity, legacyID)); ok {
			return targetID.(string), nil
		}
	}

	return "", nil
}

// MappingCount returns the number of cached mappings for an entity type.
func (r *Resolver) MappingCount(entity EntityType) int {
	return r.counts[entity]
}

// EnsureMappings triggers reconstruction for an entity type if its cache is
// cold. Called at the start of a dependent import phase so a resumed run
// can recover mappings built by an earlier process.
func (r *Resolver) EnsureMappings(entity EntityType) error {
	if r.counts[entity] > 0 || r.rebuilt[entity] {
		return nil
	}
	_, err := r.Reconstruct(entity)
	return err
}

// Reconstruct scans every existing target record of the given entity type
// and recovers legacy ids embedded in their annotation fields, populating
// the session cache. The scan is O(records) and runs at most once per
// entity type per process lifetime. It returns the number of mappings
// recovered.
func (r *Resolver) Reconstruct(entity EntityType) (int, error) {
	if r.rebuilt[entity] {
		return 0, nil
	}
	r.rebuilt[entity] = true

	type annotated struct {
		targetID string
		notes    string
	}
	var records []annotated

	switch entity {
	case EntityCategory:
		categories, err := r.store.AllCategories()
		if err != nil {
			return 0, err
		}
		for i := range categories {
			records = append(records, annotated{categories[i].ID, categories[i].Notes})
		}
	case EntityBook:
		books, err := r.store.AllBooks()
		if err != nil {
			return 0, err
		}
		for i := range books {
			records = append(records, annotated{books[i].ID, books[i].Notes})
		}
	case EntityStudent:
		students, err := r.store.AllStudents()
		if err != nil {
			return 0, err
		}
		for i := range students {
			records = append(records, annotated{students[i].ID, students[i].Notes})
		}
	default:
		return 0, errors.Newf("unknown entity type: %s", entity).
			Component("migration").
			Category(errors.CategoryEntityResolution).
			Build()
	}

	log := getLogger()
	recovered := 0
	for _, record := range records {
		legacyID, ok := datastore.ExtractLegacyID(record.notes)
		if !ok {
			continue
		}
		key := cacheKey(entity, strconv.Itoa(legacyID))
		if existing, exists := r.cache.Get(key); exists {
			// Never silently map one legacy id to two target ids; keep the
			// first and surface the collision for manual review.
			if existing.(string) != record.targetID {
				log.Warn("conflicting legacy id during reconstruction",
					"entity", string(entity),
					"legacy_id", legacyID,
					"kept", existing.(string),
					"ignored", record.targetID)
			}
			continue
		}
		r.cache.Set(key, record.targetID, gocache.NoExpiration)
		r.counts[entity]++
		recovered++
	}

	log.Info("reconstructed entity mappings",
		"entity", string(entity),
		"records_scanned", len(records),
		"mappings_recovered", recovered)
	return recovered, nil
}
