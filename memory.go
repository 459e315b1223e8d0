package mutprox

// MemoryProbe reports the memory available for the rescaling. It only
// steers strategy selection.
type MemoryProbe interface {
	FreeMemory() (uint64, error)
}

// StaticMemory reports a fixed amount of free memory.
type StaticMemory uint64

// FreeMemory implements MemoryProbe.
func (s StaticMemory) FreeMemory() (uint64, error) { return uint64(s), nil }

// SystemMemory asks the operating system for free memory.
type SystemMemory struct{}
