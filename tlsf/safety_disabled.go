//go:build !safety

package tlsf

import "github.com/nmxmxh/guerrero/internal/blockhdr"

// safetyState is empty outside safety builds; see safety_enabled.go for
// the bloom-filter-backed checks and the stomp pattern.
type safetyState struct{}

func (a *Allocator) safetyTrackAlloc(ptr uint32)               {}
func (a *Allocator) safetyUntrackAlloc(ptr uint32)              {}
func (a *Allocator) safetyCheckFree(ptr uint32) error           { return nil }
func (a *Allocator) safetyStomp(h blockhdr.Header)              {}
