package session

import (
	"sort"
	"strings"
	"sync"
)

// KV is the persistence collaborator: a flat string-to-string store.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Lister is implemented by KVs that can enumerate their keys.
type Lister interface {
	// Keys returns the keys starting with prefix in lexical order.
	Keys(prefix string) ([]string, error)
}

// Keys used in the KV.
const (
	chatPrefix   = "chat_"
	keyRecent    = "recentSessions"
	keyCompleted = "completedChapters"
	keyActive    = "activeSession"
)

func chatKey(id string) string     { return chatPrefix + id }
func lastReadKey(id string) string { return "lastRead_" + id }

// MemoryKV is an in-process KV.
type MemoryKV struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{m: make(map[string]string)}
}

// Get implements KV.
func (kv *MemoryKV) Get(key string) (string, bool, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	v, ok := kv.m[key]
	return v, ok, nil
}

// Set implements KV.
func (kv *MemoryKV) Set(key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.m[key] = value
	return nil
}

// Keys implements Lister.
func (kv *MemoryKV) Keys(prefix string) ([]string, error) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	var keys []string
	for k := range kv.m {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
