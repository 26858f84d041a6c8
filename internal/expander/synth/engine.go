// Package synth defines the synthesis engine driven by the bridge and a registry
// of engine backends selected by name.
package synth

import (
	"sort"
	"sync"
)

// Engine renders audio from note and controller events. Event methods and Process
// are called from the audio thread and must not block or allocate. Load and
// SetSampleRate are called before the audio driver is activated.
type Engine interface {
	SetSampleRate(rate uint32)
	// SetProgressFunc installs a callback receiving load progress in 0..1.
	SetProgressFunc(fn func(fraction float64))
	Load(path string) error

	NoteOn(offset uint32, channel, key, velocity uint8)
	NoteOff(offset uint32, channel, key uint8)
	ControlChange(offset uint32, channel, controller, value uint8)
	// PitchBend takes the 14-bit bend value, 8192 being the center.
	PitchBend(offset uint32, channel uint8, value uint16)

	// Process renders frames samples into each of the two channel buffers.
	Process(out [2][]float32, frames uint32)
	Close() error
}

// Factory creates a new engine instance.
type Factory func() (Engine, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes an engine available under name. It panics if the name is taken
// or the factory is nil.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		panic("synth: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("synth: Register called twice for engine " + name)
	}
	registry[name] = f
}

// New creates an engine of the named backend.
func New(name string) (Engine, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, ErrUnknownEngine.Msg("unknown synthesis engine " + name)
	}
	e, err := f()
	if err != nil {
		return nil, ErrEngineCreate.Err(err)
	}
	return e, nil
}

// Engines returns the registered engine names in sorted order.
func Engines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ClampProgress maps a progress report into 0..1.
func ClampProgress(fraction float64) float64 {
	switch {
	case fraction != fraction:
		return 0
	case fraction < 0:
		return 0
	case fraction > 1:
		return 1
	}
	return fraction
}
