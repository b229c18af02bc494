package tslh

import (
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/bwesterb/byteswriter"
	"github.com/cespare/xxhash"
	mmap "github.com/edsrzf/mmap-go"
	"github.com/hashicorp/errwrap"
	"github.com/hashicorp/go-multierror"
	"github.com/nightlyone/lockfile"
)

// SubtreeKey addresses one hypertree subtree: the layer-Tree Merkle tree
// whose leaves are WOTS+ public keys. Layer 0 trees vastly outnumber
// layer D-1's single tree, so caching pays off mostly for the upper
// layers, which a given private key revisits on almost every signature.
type SubtreeKey struct {
	Layer uint32
	Tree  uint64
}

func (k SubtreeKey) hash() uint64 {
	var buf [12]byte
	binary.BigEndian.PutUint32(buf[0:4], k.Layer)
	binary.BigEndian.PutUint64(buf[4:12], k.Tree)
	return xxhash.Sum64(buf[:])
}

// SubtreeCache stores the full leaf array of a computed hypertree subtree
// (2^TreeHeight WOTS+ leaves, N bytes each) so that repeated signing
// operations that land in the same subtree skip leaf regeneration. It
// replaces the teacher's PrivateKeyContainer, dropping its signature
// sequence-number bookkeeping (BorrowSeqNos/SetSeqNo/DangerousSetSeqNo):
// SLH-DSA signatures are randomized and stateless, so there is no leaf
// index to reserve or lose across a crash. What remains worth persisting
// is purely the expensive-to-recompute subtree contents.
type SubtreeCache interface {
	// Get returns the cached leaf array for key, if present.
	Get(key SubtreeKey) (leaves [][]byte, ok bool)
	// Put stores leaves (2^treeHeight n-byte leaves) for key.
	Put(key SubtreeKey, leaves [][]byte) error
	// Close releases any underlying resources.
	Close() error
}

// memSubtreeCache is an in-memory, process-lifetime-only SubtreeCache.
type memSubtreeCache struct {
	mu    sync.RWMutex
	trees map[uint64][][]byte
}

// NewMemSubtreeCache returns a SubtreeCache backed by a plain map, useful
// for short-lived processes (the CLI) that gain nothing from a persistent
// cache file.
func NewMemSubtreeCache() SubtreeCache {
	return &memSubtreeCache{trees: make(map[uint64][][]byte)}
}

func (c *memSubtreeCache) Get(key SubtreeKey) ([][]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	leaves, ok := c.trees[key.hash()]
	return leaves, ok
}

func (c *memSubtreeCache) Put(key SubtreeKey, leaves [][]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trees[key.hash()] = leaves
	return nil
}

func (c *memSubtreeCache) Close() error { return nil }

const (
	// First bytes (in hex) of the subtree cache file, mirroring the
	// teacher's FS_CONTAINER_CACHE_MAGIC convention.
	fsSubtreeCacheMagic = "7453484c4453411a"

	fsSubtreeHeaderSize = 4 + 8 + 4 // layer, tree, leaf count
)

// fsSubtreeCache persists subtrees to an append-only, mmap'd file guarded
// by a lockfile, grounded on the teacher's container.go fsContainer.
type fsSubtreeCache struct {
	mu sync.Mutex

	path  string
	flock lockfile.Lockfile
	file  *os.File
	data  mmap.MMap

	n         int
	leafCount int
	slotSize  int
	allocated int
	index     map[uint64]int // key hash -> slot index
}

// OpenFSSubtreeCache opens (or creates) a persistent subtree cache at
// path for a given Params, guarded by path+".lock".
func OpenFSSubtreeCache(path string, p Params) (SubtreeCache, Error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, wrapErrorf(err, "could not resolve %s", path)
	}

	flock, err := lockfile.New(absPath + ".lock")
	if err != nil {
		return nil, wrapErrorf(err, "failed to create lockfile for %s", absPath)
	}
	if err := flock.TryLock(); err != nil {
		if _, ok := err.(interface{ Temporary() bool }); ok {
			return nil, lockedErrorf("%s is locked", absPath)
		}
		return nil, wrapErrorf(err, "failed to lock %s", absPath)
	}

	leafCount := int(uint32(1) << p.TreeHeight)
	slotSize := fsSubtreeHeaderSize + leafCount*int(p.N)

	c := &fsSubtreeCache{
		path:      absPath,
		flock:     flock,
		n:         int(p.N),
		leafCount: leafCount,
		slotSize:  slotSize,
		index:     make(map[uint64]int),
	}

	f, err := os.OpenFile(absPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		flock.Unlock()
		return nil, wrapErrorf(err, "failed to open subtree cache %s", absPath)
	}
	c.file = f

	if fe := c.loadOrInit(); fe != nil {
		f.Close()
		flock.Unlock()
		return nil, fe
	}

	return c, nil
}

func (c *fsSubtreeCache) loadOrInit() Error {
	info, err := c.file.Stat()
	if err != nil {
		return wrapErrorf(err, "failed to stat subtree cache")
	}

	headerLen := len(fsSubtreeCacheMagic) / 2
	if info.Size() == 0 {
		magic, _ := hex.DecodeString(fsSubtreeCacheMagic)
		w := byteswriter.NewWriter(make([]byte, len(magic)))
		if _, err := w.Write(magic); err != nil {
			return wrapErrorf(err, "failed to build cache header")
		}
		if _, err := c.file.Write(w.Bytes()); err != nil {
			return wrapErrorf(err, "failed to write cache header")
		}
	}

	data, err := mmap.Map(c.file, mmap.RDWR, 0)
	if err != nil {
		return wrapErrorf(err, "failed to mmap subtree cache")
	}
	c.data = data

	body := len(data) - headerLen
	if body > 0 {
		c.allocated = body / c.slotSize
		for i := 0; i < c.allocated; i++ {
			off := headerLen + i*c.slotSize
			layer := binary.BigEndian.Uint32(data[off : off+4])
			tree := binary.BigEndian.Uint64(data[off+4 : off+12])
			key := SubtreeKey{Layer: layer, Tree: tree}
			c.index[key.hash()] = i
		}
	}
	return nil
}

func (c *fsSubtreeCache) Get(key SubtreeKey) ([][]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.index[key.hash()]
	if !ok {
		return nil, false
	}
	headerLen := len(fsSubtreeCacheMagic) / 2
	off := headerLen + idx*c.slotSize + fsSubtreeHeaderSize
	leaves := make([][]byte, c.leafCount)
	for i := range leaves {
		leaves[i] = append([]byte(nil), c.data[off+i*c.n:off+(i+1)*c.n]...)
	}
	return leaves, true
}

func (c *fsSubtreeCache) Put(key SubtreeKey, leaves [][]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[key.hash()]; ok {
		return nil
	}

	idx := c.allocated
	c.allocated++
	headerLen := len(fsSubtreeCacheMagic) / 2
	newSize := int64(headerLen + c.allocated*c.slotSize)
	if err := c.file.Truncate(newSize); err != nil {
		return wrapErrorf(err, "failed to grow subtree cache")
	}
	if err := c.data.Unmap(); err != nil {
		return wrapErrorf(err, "failed to remap subtree cache")
	}
	data, err := mmap.Map(c.file, mmap.RDWR, 0)
	if err != nil {
		return wrapErrorf(err, "failed to remap subtree cache")
	}
	c.data = data

	off := headerLen + idx*c.slotSize
	binary.BigEndian.PutUint32(c.data[off:off+4], key.Layer)
	binary.BigEndian.PutUint64(c.data[off+4:off+12], key.Tree)
	binary.BigEndian.PutUint32(c.data[off+12:off+16], uint32(c.leafCount))
	body := off + fsSubtreeHeaderSize
	for i, leaf := range leaves {
		copy(c.data[body+i*c.n:body+(i+1)*c.n], leaf)
	}
	c.index[key.hash()] = idx
	return nil
}

func (c *fsSubtreeCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.data != nil {
		if e := c.data.Unmap(); e != nil {
			err = multierror.Append(err, errwrap.Wrapf("failed to unmap subtree cache: {{err}}", e))
		}
	}
	if c.file != nil {
		if e := c.file.Close(); e != nil {
			err = multierror.Append(err, errwrap.Wrapf("failed to close subtree cache file: {{err}}", e))
		}
	}
	if e := c.flock.Unlock(); e != nil {
		err = multierror.Append(err, errwrap.Wrapf("failed to release subtree cache lock: {{err}}", e))
	}
	return err
}
