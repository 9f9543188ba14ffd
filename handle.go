package czdb

import (
	"bytes"
	"log/slog"
	"math/bits"
	"net/netip"
	"sort"
	"sync"
	"time"
)

// Handle is an open, read-only database. It is safe for concurrent use by
// multiple goroutines: the mmap and memory backends are inherently
// read-only and need no locking, and the disk backend serializes all reads
// through an internal mutex, since its single seek/read cursor is shared
// (spec §4.3, §5).
type Handle struct {
	src    byteSource
	layout *Layout

	// diskMu serializes access to src when the backend is diskSource. It is
	// nil for the mmap and memory backends, which need no locking.
	diskMu *sync.Mutex

	// pool is non-nil only for memory-backed Handles (spec §4.5, §9): a
	// deduplicated, pre-decoded record cache built once at Open so the
	// query hot path never re-validates UTF-8.
	pool *stringPool

	logger  *slog.Logger
	metrics Metrics

	closeOnce sync.Once
	closeErr  error
}

// SearchResult is one answer from SearchMany or SearchManyScan. Unlike
// Search, a single failing query never fails the whole batch: Err is set
// on that entry only, and every other entry is still populated.
type SearchResult struct {
	Record string
	Found  bool
	Err    error
}

// OpenDisk opens the database at path using the buffered-disk backend: a
// single file descriptor, read via seek+read on every query, with no
// up-front copy of the file. This backend has the smallest memory
// footprint and the highest per-query I/O cost; it is appropriate when a
// process opens many databases it rarely queries.
func OpenDisk(path string, key string, opts ...Option) (*Handle, error) {
	src, err := openDiskSource(path)
	if err != nil {
		return nil, err
	}
	return open(src, key, &sync.Mutex{}, opts)
}

// OpenMmap opens the database at path using the memory-mapped backend: the
// file is mapped once at Open, and queries read directly out of the
// mapping with no further syscalls. This backend gives the best balance of
// startup cost and query latency for large databases.
func OpenMmap(path string, key string, opts ...Option) (*Handle, error) {
	src, err := openMmapSource(path)
	if err != nil {
		return nil, err
	}
	return open(src, key, nil, opts)
}

// OpenMemory opens the database at path by reading it entirely into one
// heap-owned buffer. This backend has the highest startup cost and memory
// footprint, and the lowest per-query latency; it is appropriate for small
// databases queried at high rates.
func OpenMemory(path string, key string, opts ...Option) (*Handle, error) {
	src, err := openMemorySource(path)
	if err != nil {
		return nil, err
	}

	h, err := open(src, key, nil, opts)
	if err != nil {
		return nil, err
	}

	pool, err := buildStringPool(src, h.layout)
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	h.pool = pool

	return h, nil
}

// open is the shared Open path for all three backends: decode the key,
// build and validate the Layout, and assemble the Handle. diskMu is
// non-nil only for the disk backend.
func open(src byteSource, key string, diskMu *sync.Mutex, opts []Option) (*Handle, error) {
	cfg := newConfig(opts)

	rawKey, err := decodeKey(key)
	if err != nil {
		_ = src.close()
		return nil, err
	}

	layout, err := buildLayout(src, rawKey)
	if err != nil {
		_ = src.close()
		return nil, err
	}

	h := &Handle{
		src:     src,
		layout:  layout,
		diskMu:  diskMu,
		logger:  cfg.logger,
		metrics: cfg.metrics,
	}

	h.logger.Info("czdb: opened database", "version", layout.version, "entries", layout.totalEntries)

	return h, nil
}

// Close releases the resources the Handle holds. It is safe to call more
// than once; only the first call does any work.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.src.close()
	})
	return h.closeErr
}

// Version returns the address family this database was built for.
func (h *Handle) Version() Version { return h.layout.version }

// Search looks up ip and returns the associated record, or found=false if
// ip is not covered by any range in the database. An IP whose family does
// not match the database's Version is an *IPVersionMismatchError, not a
// miss.
func (h *Handle) Search(ip netip.Addr) (record string, found bool, err error) {
	start := time.Now()

	record, found, err = h.search(ip)

	if err != nil {
		h.metrics.ObserveLookupError(err)
	} else {
		h.metrics.ObserveLookup(found, time.Since(start))
	}

	return record, found, err
}

func (h *Handle) search(ip netip.Addr) (string, bool, error) {
	ipBytes, version, err := addrBytes(ip)
	if err != nil {
		return "", false, err
	}
	if version != h.layout.version {
		return "", false, &IPVersionMismatchError{Want: h.layout.version, Got: version}
	}

	if h.diskMu != nil {
		h.diskMu.Lock()
		defer h.diskMu.Unlock()
	}

	idx, found, err := locateEntry(h.src, h.layout, ipBytes)
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, nil
	}

	return h.recordFor(idx)
}

// recordFor reads range-index entry idx and decodes its record. The
// caller must already hold diskMu, if the backend requires it. On a
// memory-backed Handle this never touches src: the record was already
// decoded into h.pool at Open.
func (h *Handle) recordFor(idx uint32) (string, bool, error) {
	if h.pool != nil {
		record, err := h.pool.recordFor(idx)
		if err != nil {
			return "", false, err
		}
		return record, true, nil
	}

	e, err := readRangeEntry(h.src, h.layout, idx)
	if err != nil {
		return "", false, err
	}

	record, err := decodeRecordAt(h.src, h.layout.recordSectionOrigin, e.ptr, e.length)
	if err != nil {
		return "", false, err
	}

	return record, true, nil
}

// SearchMany looks up every address in ips independently, via per-address
// binary search. Results are returned in the same order as ips. A failing
// query never affects any other entry; see SearchResult.
func (h *Handle) SearchMany(ips []netip.Addr) []SearchResult {
	start := time.Now()

	results := make([]SearchResult, len(ips))

	if h.diskMu != nil {
		h.diskMu.Lock()
		defer h.diskMu.Unlock()
	}

	for i, ip := range ips {
		record, found, err := h.searchLocked(ip)
		results[i] = SearchResult{Record: record, Found: found, Err: err}
	}

	h.metrics.ObserveBatch(len(ips), false, time.Since(start))

	return results
}

// searchLocked is search without its own diskMu acquisition, for callers
// that already hold the lock across a whole batch.
func (h *Handle) searchLocked(ip netip.Addr) (string, bool, error) {
	ipBytes, version, err := addrBytes(ip)
	if err != nil {
		return "", false, err
	}
	if version != h.layout.version {
		return "", false, &IPVersionMismatchError{Want: h.layout.version, Got: version}
	}

	idx, found, err := locateEntry(h.src, h.layout, ipBytes)
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, nil
	}

	return h.recordFor(idx)
}

// scanCrossoverThreshold reports whether, for n queries against an index of
// m entries, a single sorted linear merge scan is expected to do less work
// than n independent binary searches. Each binary search costs O(log2 m);
// the break-even point is n >= m/log2(m) (spec §4.6).
func scanCrossoverThreshold(n, m int) bool {
	if m <= 1 {
		return false
	}
	logM := bits.Len(uint(m))
	return n >= m/logM
}

// SearchManyScan looks up every address in ips, choosing between
// per-address binary search and a single linear merge scan over the sorted
// range index depending on the size of ips relative to the database (spec
// §4.6). The returned results are in the same order as ips regardless of
// which strategy was used internally.
func (h *Handle) SearchManyScan(ips []netip.Addr) []SearchResult {
	start := time.Now()

	scan := scanCrossoverThreshold(len(ips), int(h.layout.totalEntries))

	if h.diskMu != nil {
		h.diskMu.Lock()
		defer h.diskMu.Unlock()
	}

	var results []SearchResult
	if scan {
		results = h.scanMany(ips)
	} else {
		results = make([]SearchResult, len(ips))
		for i, ip := range ips {
			record, found, err := h.searchLocked(ip)
			results[i] = SearchResult{Record: record, Found: found, Err: err}
		}
	}

	h.metrics.ObserveBatch(len(ips), scan, time.Since(start))

	return results
}

// queryOrder is one entry of the permutation scanMany sorts ips into, so
// that the single forward pass over the range index can answer every query
// in sorted order while still producing results in the caller's original
// order.
type queryOrder struct {
	origIdx int
	ipBytes []byte
}

// scanMany answers every query in ips with a single forward pass over the
// sorted range index, interleaved with a single forward pass over ips
// sorted by address. This amortizes index traversal across all queries
// instead of re-searching from scratch for each one (spec §4.6).
func (h *Handle) scanMany(ips []netip.Addr) []SearchResult {
	results := make([]SearchResult, len(ips))

	orders := make([]queryOrder, 0, len(ips))
	for i, ip := range ips {
		ipBytes, version, err := addrBytes(ip)
		if err != nil {
			results[i] = SearchResult{Err: err}
			continue
		}
		if version != h.layout.version {
			results[i] = SearchResult{Err: &IPVersionMismatchError{Want: h.layout.version, Got: version}}
			continue
		}
		orders = append(orders, queryOrder{origIdx: i, ipBytes: ipBytes})
	}

	sort.Slice(orders, func(a, b int) bool {
		return bytes.Compare(orders[a].ipBytes, orders[b].ipBytes) < 0
	})

	var entryIdx uint32
	total := h.layout.totalEntries

	var cur rangeEntry
	haveCur := false

	for _, qo := range orders {
		for {
			if !haveCur {
				if entryIdx >= total {
					break
				}
				e, rerr := readRangeEntry(h.src, h.layout, entryIdx)
				if rerr != nil {
					results[qo.origIdx] = SearchResult{Err: rerr}
					haveCur = false
					break
				}
				cur, haveCur = e, true
			}

			if bytes.Compare(qo.ipBytes, cur.endIP) > 0 {
				entryIdx++
				haveCur = false
				continue
			}

			break
		}

		if !haveCur {
			continue
		}
		if results[qo.origIdx].Err != nil {
			continue
		}

		if bytes.Compare(qo.ipBytes, cur.startIP) < 0 {
			continue
		}

		var record string
		var err error
		if h.pool != nil {
			record, err = h.pool.recordFor(entryIdx)
		} else {
			record, err = decodeRecordAt(h.src, h.layout.recordSectionOrigin, cur.ptr, cur.length)
		}
		if err != nil {
			results[qo.origIdx] = SearchResult{Err: err}
			continue
		}

		results[qo.origIdx] = SearchResult{Record: record, Found: true}
	}

	return results
}
