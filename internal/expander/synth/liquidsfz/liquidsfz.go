// Package liquidsfz binds the liquidsfz SFZ sampler through its C API.
// Importing it registers the "liquidsfz" engine.
package liquidsfz

/*
#cgo pkg-config: liquidsfz
#include <stdint.h>
#include <stdlib.h>
#include <liquidsfz.h>

void expander_set_progress(LiquidSFZ *synth, uintptr_t handle);
void expander_process(LiquidSFZ *synth, float *left, float *right, unsigned int n_frames);
*/
import "C"

import (
	"runtime/cgo"
	"sync"
	"unsafe"

	"github.com/TomatoPi/5FX-Expander/internal/expander/synth"
)

// Name is the registry name of the engine.
const Name = "liquidsfz"

func init() {
	synth.Register(Name, func() (synth.Engine, error) { return New() })
}

// Engine wraps one liquidsfz synth instance.
type Engine struct {
	synth *C.LiquidSFZ

	mu       sync.Mutex
	progress func(float64)
	handle   cgo.Handle
}

// New creates a synth instance.
func New() (*Engine, error) {
	s := C.liquidsfz_synth_new()
	if s == nil {
		return nil, synth.ErrEngineCreate.Msg("liquidsfz_synth_new returned NULL")
	}
	e := &Engine{synth: s}
	e.handle = cgo.NewHandle(e)
	C.expander_set_progress(s, C.uintptr_t(e.handle))
	return e, nil
}

func (e *Engine) SetSampleRate(rate uint32) {
	C.liquidsfz_set_sample_rate(e.synth, C.uint(rate))
}

func (e *Engine) SetProgressFunc(fn func(fraction float64)) {
	e.mu.Lock()
	e.progress = fn
	e.mu.Unlock()
}

func (e *Engine) Load(path string) error {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	if !bool(C.liquidsfz_load(e.synth, cpath)) {
		return synth.ErrLoad.Msg("failed to load " + path)
	}
	return nil
}

func (e *Engine) NoteOn(offset uint32, channel, key, velocity uint8) {
	C.liquidsfz_add_event_note_on(e.synth, C.uint(offset), C.int(channel), C.int(key), C.int(velocity))
}

func (e *Engine) NoteOff(offset uint32, channel, key uint8) {
	C.liquidsfz_add_event_note_off(e.synth, C.uint(offset), C.int(channel), C.int(key))
}

func (e *Engine) ControlChange(offset uint32, channel, controller, value uint8) {
	C.liquidsfz_add_event_cc(e.synth, C.uint(offset), C.int(channel), C.int(controller), C.int(value))
}

func (e *Engine) PitchBend(offset uint32, channel uint8, value uint16) {
	C.liquidsfz_add_event_pitch_bend(e.synth, C.uint(offset), C.int(channel), C.int(value))
}

func (e *Engine) Process(out [2][]float32, frames uint32) {
	if frames == 0 || uint32(len(out[0])) < frames || uint32(len(out[1])) < frames {
		return
	}
	C.expander_process(e.synth,
		(*C.float)(unsafe.Pointer(&out[0][0])),
		(*C.float)(unsafe.Pointer(&out[1][0])),
		C.uint(frames))
}

func (e *Engine) Close() error {
	if e.synth == nil {
		return nil
	}
	C.liquidsfz_synth_free(e.synth)
	e.synth = nil
	e.handle.Delete()
	return nil
}

func (e *Engine) reportProgress(percent float64) {
	e.mu.Lock()
	fn := e.progress
	e.mu.Unlock()
	if fn != nil {
		fn(synth.ClampProgress(percent / 100))
	}
}

//export expanderLiquidsfzProgress
func expanderLiquidsfzProgress(handle C.uintptr_t, percent C.double) {
	e, ok := cgo.Handle(handle).Value().(*Engine)
	if !ok {
		return
	}
	e.reportProgress(float64(percent))
}
