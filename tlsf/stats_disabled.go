//go:build !stats

package tlsf

// statsState is empty when the module is not built with the stats tag;
// see stats_enabled.go for the real counters and GetStatistics/WalkPool.
type statsState struct{}

func (a *Allocator) statsInit(payload uint32)                  {}
func (a *Allocator) statsAlloc(payloadSize uint32)             {}
func (a *Allocator) statsFree(payloadSize uint32)              {}
func (a *Allocator) statsRealloc(oldPayload, newPayload uint32) {}
func (a *Allocator) statsFail()                                {}
