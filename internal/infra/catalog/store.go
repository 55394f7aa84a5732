package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"mcpdex/internal/domain"
)

// Store persists manually registered tool servers in a local bbolt file.
// Discovered servers never enter the store; they live only inside a
// discovery cycle.
type Store struct {
	mu     sync.RWMutex
	db     *bolt.DB
	path   string
	closed bool
}

// storedServer is the on-disk record. Seq preserves creation order so
// List can return entries in store order regardless of key ordering.
type storedServer struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"displayName,omitempty"`
	Endpoint    string            `json:"endpoint"`
	Arguments   map[string]string `json:"arguments,omitempty"`
	Seq         uint64            `json:"seq"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func OpenStore(path string) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure store dir: %w", err)
	}
	options := &bolt.Options{Timeout: time.Second}
	base, err := bolt.Open(trimmed, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("open directory db: %w", err)
	}
	if err := ensureSchema(base); err != nil {
		_ = base.Close()
		return nil, err
	}
	return &Store{db: base, path: trimmed}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

// List returns all manual servers in creation order.
func (s *Store) List() ([]domain.ToolServer, error) {
	var records []storedServer
	err := s.view(func(tx *bolt.Tx) error {
		bucket, err := serversBucket(tx)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(_, value []byte) error {
			var record storedServer
			if err := json.Unmarshal(value, &record); err != nil {
				return fmt.Errorf("decode server record: %w", err)
			}
			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Seq < records[j].Seq
	})

	servers := make([]domain.ToolServer, 0, len(records))
	for _, record := range records {
		servers = append(servers, record.toolServer())
	}
	return servers, nil
}

// Get returns one manual server by name.
func (s *Store) Get(name string) (domain.ToolServer, error) {
	var record storedServer
	err := s.view(func(tx *bolt.Tx) error {
		bucket, err := serversBucket(tx)
		if err != nil {
			return err
		}
		raw := bucket.Get([]byte(name))
		if raw == nil {
			return domain.E(domain.CodeNotFound, "", fmt.Sprintf("tool server %q not found", name), domain.ErrServerNotFound)
		}
		return json.Unmarshal(raw, &record)
	})
	if err != nil {
		return domain.ToolServer{}, err
	}
	return record.toolServer(), nil
}

// Create adds a new manual server. Names already present in the store
// are rejected; shadowing a discovered identifier is allowed because
// discovered entries never live here.
func (s *Store) Create(server domain.ToolServer) (domain.ToolServer, error) {
	server.Provenance = domain.ProvenanceManual
	if err := server.Validate(); err != nil {
		return domain.ToolServer{}, err
	}

	var created storedServer
	err := s.update(func(tx *bolt.Tx) error {
		bucket, err := serversBucket(tx)
		if err != nil {
			return err
		}
		key := []byte(server.Name)
		if bucket.Get(key) != nil {
			return domain.E(domain.CodeAlreadyExists, "", fmt.Sprintf("tool server %q already exists", server.Name), domain.ErrServerExists)
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return fmt.Errorf("allocate sequence: %w", err)
		}
		now := time.Now().UTC()
		created = storedServer{
			Name:        server.Name,
			DisplayName: server.DisplayName,
			Endpoint:    server.Endpoint,
			Arguments:   server.Arguments,
			Seq:         seq,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return putServer(bucket, created)
	})
	if err != nil {
		return domain.ToolServer{}, err
	}
	return created.toolServer(), nil
}

// Update replaces the mutable fields of an existing manual server.
// Creation order is preserved.
func (s *Store) Update(name string, server domain.ToolServer) (domain.ToolServer, error) {
	server.Name = name
	server.Provenance = domain.ProvenanceManual
	if err := server.Validate(); err != nil {
		return domain.ToolServer{}, err
	}

	var updated storedServer
	err := s.update(func(tx *bolt.Tx) error {
		bucket, err := serversBucket(tx)
		if err != nil {
			return err
		}
		raw := bucket.Get([]byte(name))
		if raw == nil {
			return domain.E(domain.CodeNotFound, "", fmt.Sprintf("tool server %q not found", name), domain.ErrServerNotFound)
		}
		var existing storedServer
		if err := json.Unmarshal(raw, &existing); err != nil {
			return fmt.Errorf("decode server record: %w", err)
		}
		updated = storedServer{
			Name:        name,
			DisplayName: server.DisplayName,
			Endpoint:    server.Endpoint,
			Arguments:   server.Arguments,
			Seq:         existing.Seq,
			CreatedAt:   existing.CreatedAt,
			UpdatedAt:   time.Now().UTC(),
		}
		return putServer(bucket, updated)
	})
	if err != nil {
		return domain.ToolServer{}, err
	}
	return updated.toolServer(), nil
}

// Delete removes a manual server by name.
func (s *Store) Delete(name string) error {
	return s.update(func(tx *bolt.Tx) error {
		bucket, err := serversBucket(tx)
		if err != nil {
			return err
		}
		key := []byte(name)
		if bucket.Get(key) == nil {
			return domain.E(domain.CodeNotFound, "", fmt.Sprintf("tool server %q not found", name), domain.ErrServerNotFound)
		}
		return bucket.Delete(key)
	})
}

// Count reports the number of manual servers, for seed-import and
// validate summaries.
func (s *Store) Count() (int, error) {
	var count int
	err := s.view(func(tx *bolt.Tx) error {
		bucket, err := serversBucket(tx)
		if err != nil {
			return err
		}
		count = bucket.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) view(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return s.db.View(fn)
}

func (s *Store) update(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return s.db.Update(fn)
}

func putServer(bucket *bolt.Bucket, record storedServer) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode server record: %w", err)
	}
	return bucket.Put([]byte(record.Name), raw)
}

func (r storedServer) toolServer() domain.ToolServer {
	server := domain.ToolServer{
		Name:        r.Name,
		DisplayName: r.DisplayName,
		Endpoint:    r.Endpoint,
		Provenance:  domain.ProvenanceManual,
		Arguments:   r.Arguments,
		SourceRef:   "store",
		ObservedAt:  r.UpdatedAt,
	}
	return server.Clone()
}
