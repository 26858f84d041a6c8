// Package dummy is an audio driver that runs without any sound server. It
// renders into private buffers, either on its own clock goroutine or one block
// at a time through Step, and takes MIDI from Inject. It is used for headless
// runs and by tests.
package dummy

import (
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/TomatoPi/5FX-Expander/internal/expander/audio"
)

// Name is the registry name of the driver.
const Name = "dummy"

const (
	DefaultSampleRate = 48000
	DefaultBlockSize  = 256
	// MaxPending bounds the MIDI messages queued between two blocks.
	MaxPending = 512
)

// Options configures a Driver.
type Options struct {
	SampleRate uint32
	BlockSize  uint32
	// Clocked runs blocks from a goroutine at the pace of the sample rate once
	// activated. Without it blocks only run through Step.
	Clocked bool
}

func init() {
	audio.Register(Name, func(clientName string, ports audio.Ports) (audio.Driver, error) {
		return New(clientName, ports, Options{Clocked: true})
	})
}

// Driver is the dummy audio client.
type Driver struct {
	name  string
	ports audio.Ports
	opts  Options

	mu      sync.Mutex // serialises blocks and state changes
	process audio.ProcessFunc
	active  bool
	closed  bool
	out     [2][]float32
	midi    audio.Messages

	pending chan audio.MidiMessage
	stop    chan struct{}
	done    chan struct{}
	blocks  atomic.Uint64
}

// New opens a dummy client with the given ports.
func New(clientName string, ports audio.Ports, opts Options) (*Driver, error) {
	if clientName == "" {
		return nil, audio.ErrDriverOpen.Msg("client name is empty")
	}
	for _, p := range []string{ports.MidiIn, ports.OutLeft, ports.OutRight} {
		if p == "" {
			return nil, audio.ErrPortRegister.Msg("port name is empty")
		}
	}
	if ports.OutLeft == ports.OutRight || ports.MidiIn == ports.OutLeft || ports.MidiIn == ports.OutRight {
		return nil, audio.ErrPortRegister.Msg("port names must be unique")
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.BlockSize == 0 {
		opts.BlockSize = DefaultBlockSize
	}
	return &Driver{
		name:    clientName,
		ports:   ports,
		opts:    opts,
		out:     [2][]float32{make([]float32, opts.BlockSize), make([]float32, opts.BlockSize)},
		midi:    make(audio.Messages, 0, MaxPending),
		pending: make(chan audio.MidiMessage, MaxPending),
	}, nil
}

func (d *Driver) SampleRate() uint32 {
	return d.opts.SampleRate
}

// BlockSize returns the frames rendered per block.
func (d *Driver) BlockSize() uint32 {
	return d.opts.BlockSize
}

func (d *Driver) SetProcessFunc(fn audio.ProcessFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case fn == nil:
		return audio.ErrCallbackRegister.Msg("process function is nil")
	case d.closed:
		return audio.ErrCallbackRegister.Msg("client is closed")
	case d.active:
		return audio.ErrCallbackRegister.Msg("client is active")
	}
	d.process = fn
	return nil
}

func (d *Driver) Activate() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.closed:
		return audio.ErrActivate.Msg("client is closed")
	case d.process == nil:
		return audio.ErrActivate.Msg("no process function registered")
	case d.active:
		return nil
	}
	d.active = true
	if d.opts.Clocked {
		d.stop = make(chan struct{})
		d.done = make(chan struct{})
		go d.clock(d.stop, d.done)
	}
	return nil
}

func (d *Driver) Deactivate() error {
	d.mu.Lock()
	if !d.active {
		d.mu.Unlock()
		return nil
	}
	d.active = false
	stop, done := d.stop, d.done
	d.stop, d.done = nil, nil
	d.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

func (d *Driver) Close() error {
	if err := d.Deactivate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Inject queues a raw MIDI message for the next block at the given frame
// offset. It reports false when the queue is full or the message is empty.
func (d *Driver) Inject(msg midi.Message, offset uint32) bool {
	if len(msg) == 0 {
		return false
	}
	select {
	case d.pending <- audio.MidiMessage{Time: offset, Data: append([]byte(nil), msg...)}:
		return true
	default:
		return false
	}
}

// Step runs one block synchronously and reports whether the client was active.
func (d *Driver) Step() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return false
	}
	d.runBlock()
	return true
}

// Blocks returns the number of blocks rendered so far.
func (d *Driver) Blocks() uint64 {
	return d.blocks.Load()
}

// Output returns a copy of the last rendered block.
func (d *Driver) Output() [2][]float32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return [2][]float32{
		append([]float32(nil), d.out[0]...),
		append([]float32(nil), d.out[1]...),
	}
}

// runBlock must be called with d.mu held.
func (d *Driver) runBlock() {
	d.midi = d.midi[:0]
drain:
	for len(d.midi) < cap(d.midi) {
		select {
		case m := <-d.pending:
			if m.Time >= d.opts.BlockSize {
				m.Time = d.opts.BlockSize - 1
			}
			d.midi = append(d.midi, m)
		default:
			break drain
		}
	}
	for c := range d.out {
		clear(d.out[c])
	}
	d.process(d.opts.BlockSize, &d.midi, d.out)
	d.blocks.Add(1)
}

func (d *Driver) clock(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	period := time.Duration(d.opts.BlockSize) * time.Second / time.Duration(d.opts.SampleRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.mu.Lock()
			if d.active {
				d.runBlock()
			}
			d.mu.Unlock()
		}
	}
}
