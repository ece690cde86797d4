package identity

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/photo-ranker/internal/constants"
)

// GlobalPerson is a named identity shared across every album. It is created
// on first explicit naming and removed only by direct removal, never by
// album operations.
type GlobalPerson struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Embedding []float32 `json:"embedding"`
	CropRef   string    `json:"crop_ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// registryDoc is the persisted registry document.
type registryDoc struct {
	SchemaVersion int            `json:"schema_version"`
	People        []GlobalPerson `json:"people"`
}

// Registry is the global person store. Writes are serialized by a mutex and
// persisted with an atomic temp-file promote; reads run lock-free against the
// last committed in-memory snapshot.
type Registry struct {
	path     string
	writeMu  sync.Mutex
	snapshot atomic.Pointer[registryDoc]
}

// NewRegistry opens (or initializes) the registry document at path. A
// missing, unreadable or incompatible document starts empty; corruption is
// logged, not fatal.
func NewRegistry(path string) *Registry {
	r := &Registry{path: path}
	r.snapshot.Store(loadRegistryDoc(path))
	return r
}

func loadRegistryDoc(path string) *registryDoc {
	empty := &registryDoc{SchemaVersion: constants.RegistrySchemaVersion}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("registry: unreadable %s: %v (starting empty)", path, err)
		}
		return empty
	}
	var doc registryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("registry: corrupt %s: %v (starting empty)", path, err)
		return empty
	}
	if doc.SchemaVersion != constants.RegistrySchemaVersion {
		log.Printf("registry: %s has schema %d, want %d (starting empty)", path, doc.SchemaVersion, constants.RegistrySchemaVersion)
		return empty
	}
	return &doc
}

// List returns every global person, earliest created first (ties by id).
func (r *Registry) List() []GlobalPerson {
	doc := r.snapshot.Load()
	out := make([]GlobalPerson, len(doc.People))
	copy(out, doc.People)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get returns one person by id, or nil.
func (r *Registry) Get(id string) *GlobalPerson {
	doc := r.snapshot.Load()
	for i := range doc.People {
		if doc.People[i].ID == id {
			p := doc.People[i]
			return &p
		}
	}
	return nil
}

// FindByName returns the person whose name matches after normalization
// (case and diacritics insensitive), or nil.
func (r *Registry) FindByName(name string) *GlobalPerson {
	want := NormalizePersonName(name)
	if want == "" {
		return nil
	}
	for _, p := range r.List() {
		if NormalizePersonName(p.Name) == want {
			person := p
			return &person
		}
	}
	return nil
}

// Add creates a new global person from a representative embedding and
// returns it. The embedding must already be L2-normalized.
func (r *Registry) Add(name string, embedding []float32, cropRef string) (GlobalPerson, error) {
	if len(embedding) == 0 {
		return GlobalPerson{}, fmt.Errorf("embedding required for person %q", name)
	}
	person := GlobalPerson{
		ID:        uuid.NewString(),
		Name:      cleanName(name),
		Embedding: embedding,
		CropRef:   cropRef,
		CreatedAt: time.Now().UTC(),
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	doc := r.copyDoc()
	doc.People = append(doc.People, person)
	if err := r.commit(doc); err != nil {
		return GlobalPerson{}, err
	}
	return person, nil
}

// SetName updates a person's display name.
func (r *Registry) SetName(id, name string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	doc := r.copyDoc()
	for i := range doc.People {
		if doc.People[i].ID == id {
			doc.People[i].Name = cleanName(name)
			return r.commit(doc)
		}
	}
	return fmt.Errorf("person %s: %w", id, ErrPersonNotFound)
}

// SetCrop records the stored crop filename for a person.
func (r *Registry) SetCrop(id, cropRef string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	doc := r.copyDoc()
	for i := range doc.People {
		if doc.People[i].ID == id {
			doc.People[i].CropRef = cropRef
			return r.commit(doc)
		}
	}
	return fmt.Errorf("person %s: %w", id, ErrPersonNotFound)
}

// Delete removes a person from the registry.
func (r *Registry) Delete(id string) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	doc := r.copyDoc()
	for i := range doc.People {
		if doc.People[i].ID == id {
			doc.People = append(doc.People[:i], doc.People[i+1:]...)
			return r.commit(doc)
		}
	}
	return fmt.Errorf("person %s: %w", id, ErrPersonNotFound)
}

// copyDoc clones the current snapshot for mutation. Callers hold writeMu.
func (r *Registry) copyDoc() *registryDoc {
	cur := r.snapshot.Load()
	doc := &registryDoc{
		SchemaVersion: constants.RegistrySchemaVersion,
		People:        make([]GlobalPerson, len(cur.People)),
	}
	copy(doc.People, cur.People)
	return doc
}

// commit persists the document atomically and publishes it as the new
// snapshot. Callers hold writeMu.
func (r *Registry) commit(doc *registryDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}
	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp registry: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("promote registry: %w", err)
	}
	r.snapshot.Store(doc)
	return nil
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Unnamed"
	}
	return name
}
