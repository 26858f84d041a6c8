// Package jackdriver implements audio.Driver on top of the JACK audio connection
// kit. Importing it registers the "jack" driver.
package jackdriver

import (
	"fmt"
	"unsafe"

	"github.com/xthexder/go-jack"

	"github.com/TomatoPi/5FX-Expander/internal/expander/audio"
)

// Name is the registry name of the driver.
const Name = "jack"

func init() {
	audio.Register(Name, Open)
}

// Driver is a JACK client with one MIDI input and two audio outputs.
type Driver struct {
	client   *jack.Client
	midiIn   *jack.Port
	outLeft  *jack.Port
	outRight *jack.Port

	process audio.ProcessFunc
	events  midiEvents
}

// Open connects to a running JACK server and registers the ports. The server
// is never started on demand.
func Open(clientName string, ports audio.Ports) (audio.Driver, error) {
	client, status := jack.ClientOpen(clientName, jack.NoStartServer)
	if client == nil {
		return nil, audio.ErrDriverOpen.Msg(fmt.Sprintf("jack_client_open failed, status 0x%x", status))
	}

	d := &Driver{client: client}
	d.midiIn = client.PortRegister(ports.MidiIn, jack.DEFAULT_MIDI_TYPE, jack.PortIsInput, 0)
	d.outLeft = client.PortRegister(ports.OutLeft, jack.DEFAULT_AUDIO_TYPE, jack.PortIsOutput, 0)
	d.outRight = client.PortRegister(ports.OutRight, jack.DEFAULT_AUDIO_TYPE, jack.PortIsOutput, 0)
	registered := []struct {
		name string
		port *jack.Port
	}{
		{ports.MidiIn, d.midiIn},
		{ports.OutLeft, d.outLeft},
		{ports.OutRight, d.outRight},
	}
	for _, r := range registered {
		if r.port == nil {
			client.Close()
			return nil, audio.ErrPortRegister.Msg("failed to register port " + r.name)
		}
	}
	return d, nil
}

func (d *Driver) SampleRate() uint32 {
	return d.client.GetSampleRate()
}

func (d *Driver) SetProcessFunc(fn audio.ProcessFunc) error {
	if fn == nil {
		return audio.ErrCallbackRegister.Msg("process function is nil")
	}
	d.process = fn
	if code := d.client.SetProcessCallback(d.onProcess); code != 0 {
		return audio.ErrCallbackRegister.Msg(fmt.Sprintf("jack_set_process_callback returned %d", code))
	}
	return nil
}

func (d *Driver) Activate() error {
	if code := d.client.Activate(); code != 0 {
		return audio.ErrActivate.Msg(fmt.Sprintf("jack_activate returned %d", code))
	}
	return nil
}

func (d *Driver) Deactivate() error {
	if code := d.client.Deactivate(); code != 0 {
		return audio.ErrDeactivate.Msg(fmt.Sprintf("jack_deactivate returned %d", code))
	}
	return nil
}

func (d *Driver) Close() error {
	if code := d.client.Close(); code != 0 {
		return audio.ErrClose.Msg(fmt.Sprintf("jack_client_close returned %d", code))
	}
	return nil
}

// onProcess runs on the JACK thread.
func (d *Driver) onProcess(nframes uint32) int {
	d.events.data = d.midiIn.GetMidiEvents(nframes)
	out := [2][]float32{
		samples(d.outLeft.GetBuffer(nframes)),
		samples(d.outRight.GetBuffer(nframes)),
	}
	d.process(nframes, &d.events, out)
	d.events.data = nil
	return 0
}

// samples views a JACK audio buffer as float32 without copying.
func samples(buf []jack.AudioSample) []float32 {
	if len(buf) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&buf[0])), len(buf))
}

type midiEvents struct {
	data []*jack.MidiData
}

func (m *midiEvents) Len() int {
	return len(m.data)
}

func (m *midiEvents) At(i int) (audio.MidiMessage, bool) {
	if i < 0 || i >= len(m.data) || m.data[i] == nil {
		return audio.MidiMessage{}, false
	}
	ev := m.data[i]
	return audio.MidiMessage{Time: ev.Time, Data: ev.Buffer}, true
}
