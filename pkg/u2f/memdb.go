package u2f

import (
	"crypto/ecdsa"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// DemoMemDB is a minimal in-memory KeyDatabase and is not intended for
// production use: it has no persistence and no eviction.
type DemoMemDB struct {
	db   map[string]*demoMemDBEntry
	lock sync.RWMutex
}

type demoMemDBEntry struct {
	pubKey    []byte
	keyHandle []byte
}

// NewMemDB returns an empty DemoMemDB.
func NewMemDB() *DemoMemDB {
	return &DemoMemDB{db: map[string]*demoMemDBEntry{}}
}

func (m *DemoMemDB) Register(identifier string, keyHandle []byte, pubKey []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, ok := m.db[identifier]; ok {
		return fmt.Errorf("the identifier %q is already registered", identifier)
	}
	m.db[identifier] = &demoMemDBEntry{pubKey: pubKey, keyHandle: keyHandle}
	log.Infof("registered new key for id %s", identifier)
	return nil
}

func (m *DemoMemDB) GetKeyHandle(identifier string) ([]byte, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	data, ok := m.db[identifier]
	if !ok {
		return nil, fmt.Errorf("no key handle registered for identifier %q", identifier)
	}
	return data.keyHandle, nil
}

func (m *DemoMemDB) GetPublicKey(identifier string) (*ecdsa.PublicKey, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	data, ok := m.db[identifier]
	if !ok {
		return nil, fmt.Errorf("no public key registered for identifier %q", identifier)
	}
	return decodeUserKey(data.pubKey)
}
