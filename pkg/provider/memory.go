package provider

import (
	"context"
	"sync"
)

// MemoryProvider keeps A records in a map. It backs local development and tests; failures can
// be injected per hostname.
type MemoryProvider struct {
	lock     sync.Mutex
	records  map[string]string
	failures map[string]error
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		records:  make(map[string]string),
		failures: make(map[string]error),
	}
}

func (m *MemoryProvider) Name() string {
	return Memory
}

func (m *MemoryProvider) UpsertRecord(_ context.Context, hostname, ipAddress string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.failures[hostname]; err != nil {
		return err
	}
	m.records[hostname] = ipAddress
	return nil
}

func (m *MemoryProvider) DeleteRecord(_ context.Context, hostname string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.failures[hostname]; err != nil {
		return err
	}
	if _, ok := m.records[hostname]; !ok {
		return ErrRecordNotFound
	}
	delete(m.records, hostname)
	return nil
}

// Lookup returns the address held for hostname.
func (m *MemoryProvider) Lookup(hostname string) (string, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	ip, ok := m.records[hostname]
	return ip, ok
}

// FailOn makes every call for hostname return err. A nil err clears the failure.
func (m *MemoryProvider) FailOn(hostname string, err error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err == nil {
		delete(m.failures, hostname)
		return
	}
	m.failures[hostname] = err
}
