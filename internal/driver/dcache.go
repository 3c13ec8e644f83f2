package driver

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"quill/internal/abi"
	"quill/internal/diag"
	"quill/internal/project"
	"quill/internal/source"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// DiskCache хранит результаты проверки проекта по хешу всего графа пакетов.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// CachedPos is a span stored by file path, since file ids are per session.
type CachedPos struct {
	Path  string
	Start uint32
	End   uint32
}

type CachedNote struct {
	At  CachedPos
	Msg string
}

type CachedDiagnostic struct {
	Severity uint8
	Code     uint16
	Message  string
	At       CachedPos
	Notes    []CachedNote
}

// DiskPayload stores the outcome of checking one project.
type DiskPayload struct {
	// Schema version for safe invalidation when format changes
	Schema uint16

	Package  string
	Hash     project.Digest
	Packages []string // зависимости раньше зависящих

	Diagnostics []CachedDiagnostic
	ABI         []byte // abi.Program in msgpack, empty when the root was not checked
}

// OpenDiskCache initializes and returns a disk cache at the standard location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return NewDiskCache(filepath.Join(base, app))
}

// NewDiskCache uses dir as the cache directory, creating it when needed.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key project.Digest) string {
	hexKey := hex.EncodeToString(key[:])
	// Для удобства читаемости/очистки — подкаталог "pkgs".
	return filepath.Join(c.dir, "pkgs", hexKey+".mp")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key project.Digest, payload *DiskPayload) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err = os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	renamed := false
	defer func() {
		if renamed {
			return
		}
		if rmErr := os.Remove(f.Name()); rmErr != nil && err == nil {
			err = fmt.Errorf("failed to remove temp file: %w", rmErr)
		}
	}()

	enc := msgpack.NewEncoder(f)
	if err = enc.Encode(payload); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	if err = os.Rename(f.Name(), p); err != nil {
		return err
	}
	renamed = true
	return nil
}

// Get reads and deserializes a payload from the disk cache.
// Payloads of another schema version are reported as misses.
func (c *DiskCache) Get(key project.Digest, out *DiskPayload) (ok bool, err error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	p := c.pathFor(key)
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(out); err != nil {
		return false, err
	}
	if out.Schema != diskCacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// тривиально: переименуем каталог и удалим
	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}

// store saves res under key.
func (s *Session) store(key project.Digest, res *Result) error {
	if s.opts.Cache == nil {
		return nil
	}
	payload := &DiskPayload{
		Schema:  diskCacheSchemaVersion,
		Package: res.Root.Name(),
		Hash:    res.Root.Meta.Hash,
	}
	for _, p := range res.Packages {
		payload.Packages = append(payload.Packages, p.Name())
	}
	for _, d := range res.Bag.Items() {
		cd := CachedDiagnostic{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Message:  d.Message,
			At:       s.cachedPos(d.Primary),
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, CachedNote{At: s.cachedPos(n.Span), Msg: n.Msg})
		}
		payload.Diagnostics = append(payload.Diagnostics, cd)
	}
	if res.ABI != nil {
		data, err := res.ABI.MarshalMsgpack()
		if err != nil {
			return err
		}
		payload.ABI = data
	}
	return s.opts.Cache.Put(key, payload)
}

// restore fills res from the cache. Read failures count as misses.
func (s *Session) restore(key project.Digest, res *Result) bool {
	if s.opts.Cache == nil {
		return false
	}
	var payload DiskPayload
	ok, err := s.opts.Cache.Get(key, &payload)
	if err != nil || !ok || payload.Hash != res.Root.Meta.Hash {
		return false
	}
	if len(payload.ABI) > 0 {
		var prog abi.Program
		if err := prog.UnmarshalMsgpack(payload.ABI); err != nil {
			return false
		}
		res.ABI = &prog
	}
	bag := diag.NewBag(0)
	for _, cd := range payload.Diagnostics {
		d := diag.New(diag.Severity(cd.Severity), diag.Code(cd.Code), s.spanOf(cd.At), cd.Message)
		for _, n := range cd.Notes {
			d = d.WithNote(s.spanOf(n.At), n.Msg)
		}
		bag.Add(d)
	}
	res.Bag = bag
	res.Cached = true
	return true
}

func (s *Session) cachedPos(sp source.Span) CachedPos {
	f := s.Files.Get(sp.File)
	if f == nil {
		return CachedPos{}
	}
	return CachedPos{Path: f.Path, Start: sp.Start, End: sp.End}
}

func (s *Session) spanOf(pos CachedPos) source.Span {
	if pos.Path == "" {
		return source.Span{}
	}
	f, ok := s.Files.GetByPath(pos.Path)
	if !ok {
		return source.Span{}
	}
	return source.Span{File: f.ID, Start: pos.Start, End: pos.End}
}
