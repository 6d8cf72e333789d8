//go:build stats

package tlsf

import "github.com/nmxmxh/guerrero/internal/blockhdr"

// Stats is the pool-wide allocation summary returned by GetStatistics
// when the module is built with the stats tag.
type Stats struct {
	PoolSize        uint32
	UsedBytes       uint32
	FreeBytes       uint32
	AllocationCount uint32
	FreeBlockCount  uint32
	FailedAllocs    uint32
}

// statsState holds the running counters embedded in Allocator. Present
// only in stats builds; see stats_disabled.go for the no-op twin.
type statsState struct {
	poolSize        uint32
	allocationCount uint32
	failedAllocs    uint32
}

func (a *Allocator) statsInit(payload uint32) {
	a.stats.poolSize = payload
}

func (a *Allocator) statsAlloc(payloadSize uint32) {
	a.stats.allocationCount++
}

func (a *Allocator) statsFree(payloadSize uint32) {
	a.stats.allocationCount--
}

func (a *Allocator) statsRealloc(oldPayload, newPayload uint32) {}

func (a *Allocator) statsFail() {
	a.stats.failedAllocs++
}

// GetStatistics walks the pool and reports its current occupancy.
func (a *Allocator) GetStatistics() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st := Stats{
		PoolSize:        a.stats.poolSize,
		AllocationCount: a.stats.allocationCount,
		FailedAllocs:    a.stats.failedAllocs,
	}
	a.walkBlocks(func(h blockhdr.Header) bool {
		if h.PayloadSize() == 0 {
			return true
		}
		if h.IsFree() {
			st.FreeBytes += h.PayloadSize()
			st.FreeBlockCount++
		} else {
			st.UsedBytes += h.PayloadSize()
		}
		return true
	})
	return st
}

// PoolBlock describes one physical block, for WalkPool.
type PoolBlock struct {
	Offset  uint32
	Size    uint32
	IsFree  bool
	IsFinal bool
}

// WalkPool visits every physical block in address order, including the
// terminating sentinel (IsFinal true, Size 0).
func (a *Allocator) WalkPool(visit func(PoolBlock)) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	a.walkBlocks(func(h blockhdr.Header) bool {
		visit(PoolBlock{
			Offset:  h.Offset(),
			Size:    h.PayloadSize(),
			IsFree:  h.IsFree(),
			IsFinal: h.PayloadSize() == 0,
		})
		return true
	})
}
