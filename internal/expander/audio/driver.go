// Package audio defines the contract between the expander and the audio/MIDI
// transport: a client with one MIDI input and two audio outputs that calls a
// single process function once per block on its real-time thread.
//
// Backends register themselves by name from an init function, the way MIDI
// drivers register with gomidi, and are selected with Open.
package audio

import (
	"sort"
	"sync"
)

// MidiMessage is one raw MIDI message of a block, stamped with its frame offset
// from the start of the block.
type MidiMessage struct {
	Time uint32
	Data []byte
}

// MidiBuffer is the MIDI input of one block, ordered by frame offset.
// At reports false when the driver fails to decode message i; the caller skips
// that message only.
type MidiBuffer interface {
	Len() int
	At(i int) (MidiMessage, bool)
}

// ProcessFunc renders one block. It is called by the driver on its real-time
// thread, never concurrently with itself, from Activate until Deactivate returns.
// It must not block, allocate, lock or perform I/O. out holds the left and
// right channel buffers, each at least frames long.
type ProcessFunc func(frames uint32, in MidiBuffer, out [2][]float32)

// Ports names the ports a driver registers when opened.
type Ports struct {
	MidiIn   string
	OutLeft  string
	OutRight string
}

// Driver is an opened audio client with its ports registered. All methods are
// called from the orchestration goroutine.
type Driver interface {
	// SampleRate returns the rate the driver runs at.
	SampleRate() uint32
	// SetProcessFunc registers fn. It must be called before Activate.
	SetProcessFunc(fn ProcessFunc) error
	// Activate starts calling the process function.
	Activate() error
	// Deactivate stops calling the process function. When it returns no call is
	// in progress.
	Deactivate() error
	// Close releases the client and its ports.
	Close() error
}

// Opener opens a client named clientName and registers ports.
type Opener func(clientName string, ports Ports) (Driver, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Opener)
)

// Register makes a driver available under name. It panics if name is already
// taken or open is nil.
func Register(name string, open Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if open == nil {
		panic("audio: Register opener is nil")
	}
	if _, dup := registry[name]; dup {
		panic("audio: Register called twice for driver " + name)
	}
	registry[name] = open
}

// Open opens the driver registered under name.
func Open(name, clientName string, ports Ports) (Driver, error) {
	registryMu.RLock()
	open, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, ErrUnknownDriver.Msg("unknown audio driver: " + name)
	}
	return open(clientName, ports)
}

// Drivers returns the names of the registered drivers, sorted.
func Drivers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Messages is a MidiBuffer over a slice of messages, for drivers that deliver
// MIDI already decoded.
type Messages []MidiMessage

func (m Messages) Len() int { return len(m) }

func (m Messages) At(i int) (MidiMessage, bool) {
	if i < 0 || i >= len(m) {
		return MidiMessage{}, false
	}
	return m[i], true
}
