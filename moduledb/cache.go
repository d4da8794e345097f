package moduledb

import (
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"

	bolt "go.etcd.io/bbolt"
)

// Bucket names for the discovery cache.
const (
	bucketNames = "names"
	bucketCRC   = "root_crc"
)

// DiscoveryCache is a pure performance optimisation over
// Database.Populate/FindModule, never a correctness dependency. A
// missing or stale entry silently falls back to a live filesystem
// walk; a cache file that cannot be opened is reported by the
// dispatcher as a warning and discovery then walks live.
type DiscoveryCache struct {
	db *bolt.DB
}

// OpenDiscoveryCache opens or creates a bbolt database at path.
func OpenDiscoveryCache(path string) (*DiscoveryCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketNames)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(bucketCRC))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &DiscoveryCache{db: db}, nil
}

// Close closes the underlying bbolt database.
func (c *DiscoveryCache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Lookup returns the cached name→path map for root if its stored CRC32
// still matches a fresh listing of root's entries; (nil, false)
// otherwise, in which case the caller should fall back to a live walk.
func (c *DiscoveryCache) Lookup(root string) (map[ModuleName]string, bool) {
	crc, err := rootListingCRC(root)
	if err != nil {
		return nil, false
	}

	var names map[ModuleName]string
	err = c.db.View(func(tx *bolt.Tx) error {
		crcBucket := tx.Bucket([]byte(bucketCRC))
		stored := crcBucket.Get([]byte(root))
		if len(stored) != 4 || binary.LittleEndian.Uint32(stored) != crc {
			return errCacheStale
		}
		raw := tx.Bucket([]byte(bucketNames)).Get([]byte(root))
		if raw == nil {
			return errCacheStale
		}
		var flat map[string]string
		if err := json.Unmarshal(raw, &flat); err != nil {
			return err
		}
		names = make(map[ModuleName]string, len(flat))
		for k, v := range flat {
			names[ModuleName(k)] = v
		}
		return nil
	})
	if err != nil {
		return nil, false
	}
	return names, true
}

var errCacheStale = &cacheStaleError{}

type cacheStaleError struct{}

func (*cacheStaleError) Error() string { return "discovery cache: stale or missing entry" }

// Store records root's current listing CRC and discovered names.
func (c *DiscoveryCache) Store(root string, names map[ModuleName]string) error {
	crc, err := rootListingCRC(root)
	if err != nil {
		return err
	}
	flat := make(map[string]string, len(names))
	for k, v := range names {
		flat[string(k)] = v
	}
	raw, err := json.Marshal(flat)
	if err != nil {
		return err
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		crcBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(crcBytes, crc)
		if err := tx.Bucket([]byte(bucketCRC)).Put([]byte(root), crcBytes); err != nil {
			return err
		}
		return tx.Bucket([]byte(bucketNames)).Put([]byte(root), raw)
	})
}

// rootListingCRC hashes the sorted relative paths of every entry under
// root, descending into symlinked directories the same way discovery's
// walk does. Cheap enough to run on every invocation, and changes
// whenever a recipe file is added, removed, or renamed anywhere in the
// tree.
func rootListingCRC(root string) (uint32, error) {
	var names []string
	if err := listEntries(root, "", &names); err != nil {
		return 0, err
	}
	sort.Strings(names)

	hash := crc32.NewIEEE()
	for _, n := range names {
		hash.Write([]byte(n))
		hash.Write([]byte{0})
	}
	return hash.Sum32(), nil
}

// listEntries collects the relative paths under dir, following
// symlinked directories via os.Stat like the discovery walk.
func listEntries(dir, prefix string, names *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		rel := filepath.Join(prefix, entry.Name())
		*names = append(*names, rel)
		path := filepath.Join(dir, entry.Name())
		resolved, err := os.Stat(path)
		if err != nil {
			continue
		}
		if resolved.IsDir() {
			if err := listEntries(path, rel, names); err != nil {
				return err
			}
		}
	}
	return nil
}
