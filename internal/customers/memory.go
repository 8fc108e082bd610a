package customers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Seed is the YAML document loaded into a MemoryStore.
type Seed struct {
	Workers   []string   `yaml:"workers"`
	Customers []Customer `yaml:"customers"`
}

// MemoryStore is a Directory held in process memory. Used for local development
// and tests; consent writes are lost on restart.
type MemoryStore struct {
	mu        sync.RWMutex
	customers []Customer
	roster    []string
}

// NewMemoryStore builds a store from seed. Customers without a record id use
// their customer id as record id.
func NewMemoryStore(seed Seed) *MemoryStore {
	s := &MemoryStore{}
	seen := map[string]struct{}{}
	addWorker := func(worker string) {
		worker = strings.TrimSpace(worker)
		if worker == "" {
			return
		}
		if _, ok := seen[worker]; ok {
			return
		}
		seen[worker] = struct{}{}
		s.roster = append(s.roster, worker)
	}
	for _, w := range seed.Workers {
		addWorker(w)
	}
	for _, c := range seed.Customers {
		if c.Details.RecordID == "" {
			c.Details.RecordID = c.CustomerID
		}
		s.customers = append(s.customers, c)
		addWorker(c.Worker)
	}
	return s
}

// ReadSeed parses a YAML seed file.
func ReadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read directory seed: %w", err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("parse directory seed: %w", err)
	}
	return seed, nil
}

// LoadMemoryStore reads a YAML seed file. An empty path yields an empty store.
func LoadMemoryStore(path string) (*MemoryStore, error) {
	if strings.TrimSpace(path) == "" {
		return NewMemoryStore(Seed{}), nil
	}
	seed, err := ReadSeed(path)
	if err != nil {
		return nil, err
	}
	return NewMemoryStore(seed), nil
}

func (s *MemoryStore) GetByID(ctx context.Context, customerID string) (Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.CustomerID == customerID {
			return c, nil
		}
	}
	return Customer{}, ErrNotFound
}

func (s *MemoryStore) GetByNumber(ctx context.Context, address string) (Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.HasAddress(address) {
			return c, nil
		}
	}
	return Customer{}, ErrNotFound
}

func (s *MemoryStore) List(ctx context.Context, worker string, pageSize int, anchor string) ([]Customer, error) {
	assigned := make([]Customer, 0)
	if worker == "" {
		return assigned, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.Worker == worker {
			assigned = append(assigned, c)
		}
	}
	if pageSize <= 0 {
		return assigned, nil
	}
	start := 0
	if !isFirstPage(anchor) {
		start = len(assigned)
		for i, c := range assigned {
			if c.CustomerID == anchor {
				start = i + 1
				break
			}
		}
	}
	end := min(start+pageSize, len(assigned))
	return assigned[start:end], nil
}

func (s *MemoryStore) FindWorkerForCustomer(ctx context.Context, address string) (string, error) {
	if address == "" {
		return "", nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.customers {
		if c.HasAddress(address) {
			return c.Worker, nil
		}
	}
	return "", nil
}

func (s *MemoryStore) Workers(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.roster))
	copy(out, s.roster)
	return out, nil
}

func (s *MemoryStore) UpdateConsent(ctx context.Context, recordID string, consent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.customers {
		if s.customers[i].Details.RecordID == recordID {
			s.customers[i].Details.Consent = consent
			return nil
		}
	}
	return ErrNotFound
}
