package nsm

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomatoPi/5FX-Expander/internal/expander/config"
	"github.com/TomatoPi/5FX-Expander/internal/expander/configstore"
)

// fakeManager is a session manager speaking OSC over loopback UDP.
type fakeManager struct {
	t      *testing.T
	conn   net.PacketConn
	client net.Addr
}

func newFakeManager(t *testing.T) *fakeManager {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &fakeManager{t: t, conn: conn}
}

func (m *fakeManager) URL() string {
	return "osc.udp://" + m.conn.LocalAddr().String() + "/"
}

// expect reads messages until one with the given address arrives.
func (m *fakeManager) expect(addr string) *osc.Message {
	m.t.Helper()
	buf := make([]byte, maxPacket)
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(m.t, m.conn.SetReadDeadline(deadline))
		n, from, err := m.conn.ReadFrom(buf)
		require.NoError(m.t, err, "waiting for %s", addr)
		m.client = from
		p, err := osc.ParsePacket(string(buf[:n]))
		require.NoError(m.t, err)
		for _, msg := range flatten(p) {
			if msg.Address == addr {
				return msg
			}
		}
	}
}

// silent reports whether nothing arrives within d.
func (m *fakeManager) silent(d time.Duration) bool {
	buf := make([]byte, maxPacket)
	require.NoError(m.t, m.conn.SetReadDeadline(time.Now().Add(d)))
	_, _, err := m.conn.ReadFrom(buf)
	return err != nil
}

func (m *fakeManager) send(addr string, args ...interface{}) {
	m.t.Helper()
	require.NotNil(m.t, m.client, "client has not announced yet")
	data, err := osc.NewMessage(addr, args...).MarshalBinary()
	require.NoError(m.t, err)
	_, err = m.conn.WriteTo(data, m.client)
	require.NoError(m.t, err)
}

func testSettings() *config.Settings {
	s := config.Default()
	s.Session.ListenHost = "127.0.0.1"
	s.Session.OpenTimeout = "2s"
	return s
}

func startController(t *testing.T, m *fakeManager, home string) *Controller {
	t.Helper()
	c, err := New(testSettings(), m.URL(), home)
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(c.Stop)

	announce := m.expect(AddrAnnounce)
	require.Len(t, announce.Arguments, 6)
	assert.Equal(t, config.DefaultClientName, announce.Arguments[0])
	assert.Equal(t, ":progress:", announce.Arguments[1])
	assert.Equal(t, int32(1), announce.Arguments[3])
	assert.Equal(t, int32(2), announce.Arguments[4])
	assert.Equal(t, int32(os.Getpid()), announce.Arguments[5])
	assert.Equal(t, Announcing, c.State())
	return c
}

func TestSessionScenario(t *testing.T) {
	home := t.TempDir()
	inst := filepath.Join(t.TempDir(), "inst1")
	m := newFakeManager(t)
	c := startController(t, m, home)

	m.send(AddrReply, AddrAnnounce, "hi", "Fake Session Manager", ":server-control:")
	m.send(AddrOpen, inst, "My Display", "cid1")

	s, err := c.WaitOpen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Session{InstancePath: inst, DisplayName: "My Display", ClientID: "cid1"}, s)
	assert.Equal(t, AwaitingOpen, c.State())

	require.NoError(t, c.Negotiate())
	assert.Equal(t, Negotiated, c.State())
	assert.DirExists(t, inst)
	cfg, err := configstore.Load(inst)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".5FX", "default.sfz"), cfg.SoundBankPath)
	assert.Equal(t, cfg, c.Config())

	assert.True(t, m.silent(50*time.Millisecond), "open must not be acknowledged before activation")

	c.ReportProgress(1.5)
	progress := m.expect(AddrProgress)
	assert.Equal(t, []interface{}{float32(1)}, progress.Arguments)

	require.NoError(t, c.Activated())
	assert.Equal(t, Running, c.State())
	reply := m.expect(AddrReply)
	assert.Equal(t, []interface{}{AddrOpen, "OK"}, reply.Arguments)

	m.send(AddrOpen, "/elsewhere", "Other", "cid2")
	e := m.expect(AddrError)
	assert.Equal(t, []interface{}{AddrOpen, CodeNotNow, "not now"}, e.Arguments)
	assert.Equal(t, inst, c.Session().InstancePath)
}

func TestNegotiateLoadsExistingConfig(t *testing.T) {
	inst := t.TempDir()
	require.NoError(t, configstore.Save(configstore.Config{SoundBankPath: "/banks/piano.sfz"}, inst))

	m := newFakeManager(t)
	c := startController(t, m, t.TempDir())
	m.send(AddrOpen, inst, "Piano", "cid3")
	_, err := c.WaitOpen(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Negotiate())
	assert.Equal(t, "/banks/piano.sfz", c.Config().SoundBankPath)
}

func TestSaveScenario(t *testing.T) {
	inst := filepath.Join(t.TempDir(), "inst")
	m := newFakeManager(t)
	c := startController(t, m, t.TempDir())

	m.send(AddrSave)
	e := m.expect(AddrError)
	assert.Equal(t, []interface{}{AddrSave, CodeNoSessionOpen, "no session open"}, e.Arguments)

	m.send(AddrOpen, inst, "Saver", "cid4")
	_, err := c.WaitOpen(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Negotiate())

	c.SetConfig(configstore.Config{SoundBankPath: "/banks/strings.sfz"})
	m.send(AddrSave)
	reply := m.expect(AddrReply)
	assert.Equal(t, []interface{}{AddrSave, "OK"}, reply.Arguments)

	cfg, err := configstore.Load(inst)
	require.NoError(t, err)
	assert.Equal(t, "/banks/strings.sfz", cfg.SoundBankPath)
	assert.Equal(t, Negotiated, c.State())
}

func TestSaveFailureIsFatal(t *testing.T) {
	inst := filepath.Join(t.TempDir(), "inst")
	m := newFakeManager(t)
	c := startController(t, m, t.TempDir())
	m.send(AddrOpen, inst, "Broken", "cid5")
	_, err := c.WaitOpen(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Negotiate())

	// Replace the instance directory with a file so the save cannot write.
	require.NoError(t, os.RemoveAll(inst))
	require.NoError(t, os.WriteFile(inst, []byte("x"), 0o644))

	m.send(AddrSave)
	e := m.expect(AddrError)
	require.Len(t, e.Arguments, 3)
	assert.Equal(t, AddrSave, e.Arguments[0])
	assert.Equal(t, CodeGeneral, e.Arguments[1])

	select {
	case err := <-c.Fatal():
		assert.ErrorIs(t, err, configstore.ErrPersistence)
	case <-time.After(2 * time.Second):
		t.Fatal("save failure was not reported as fatal")
	}
}

func TestLateMessagesIgnoredAfterStop(t *testing.T) {
	inst := filepath.Join(t.TempDir(), "inst")
	m := newFakeManager(t)
	c := startController(t, m, t.TempDir())
	m.send(AddrOpen, inst, "Late", "cid6")
	_, err := c.WaitOpen(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Negotiate())

	c.Stop()
	assert.Equal(t, Closing, c.State())
	c.Stop()

	m.send(AddrSave)
	assert.True(t, m.silent(100*time.Millisecond))
	c.ReportProgress(0.5)
	assert.True(t, m.silent(50*time.Millisecond))
}

func TestWaitOpenTimeout(t *testing.T) {
	m := newFakeManager(t)
	s := testSettings()
	s.Session.OpenTimeout = "50ms"
	c, err := New(s, m.URL(), t.TempDir())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()
	m.expect(AddrAnnounce)

	_, err = c.WaitOpen(context.Background())
	assert.ErrorIs(t, err, ErrOpenTimeout)
	assert.ErrorIs(t, c.Negotiate(), ErrBadState)
}

func TestAnnounceRejected(t *testing.T) {
	m := newFakeManager(t)
	c := startController(t, m, t.TempDir())
	m.send(AddrError, AddrAnnounce, int32(-2), "incompatible api")

	_, err := c.WaitOpen(context.Background())
	assert.ErrorIs(t, err, ErrAnnounceRejected)
}

func TestMalformedOpenIsRejected(t *testing.T) {
	m := newFakeManager(t)
	c := startController(t, m, t.TempDir())
	m.send(AddrOpen, "/only/path", int32(4), "cid")
	e := m.expect(AddrError)
	assert.Equal(t, AddrOpen, e.Arguments[0])
	assert.Equal(t, CodeGeneral, e.Arguments[1])

	select {
	case <-c.opened:
		t.Fatal("malformed open must not complete the handshake")
	default:
	}
}

func TestStateOrder(t *testing.T) {
	m := newFakeManager(t)
	c, err := New(testSettings(), m.URL(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Idle, c.State())
	_, err = c.WaitOpen(context.Background())
	assert.ErrorIs(t, err, ErrBadState)
	assert.ErrorIs(t, c.Activated(), ErrBadState)
}

func TestStandalone(t *testing.T) {
	home := t.TempDir()
	c := NewStandalone(config.Default(), home)
	require.NoError(t, c.Start(context.Background()))

	s, err := c.WaitOpen(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5FX-Expander", s.ClientID)
	assert.Equal(t, "5FX Expander", s.DisplayName)
	assert.Equal(t, filepath.Join(home, ".5FX", "5FX-Expander"), s.InstancePath)
	assert.Equal(t, filepath.Join(home, ".5FX", "default.sfz"), c.Config().SoundBankPath)
	assert.True(t, c.IsStandalone())
	assert.Nil(t, c.Addr())

	require.NoError(t, c.Negotiate())
	require.NoError(t, c.Activated())
	assert.Equal(t, Running, c.State())
	c.ReportProgress(0.5)
	c.Stop()
	assert.Equal(t, Closing, c.State())
	assert.NoDirExists(t, s.InstancePath)
}

func TestParseURL(t *testing.T) {
	addr, err := ParseURL("osc.udp://127.0.0.1:15000/")
	require.NoError(t, err)
	assert.Equal(t, 15000, addr.Port)

	for _, bad := range []string{"http://127.0.0.1:15000/", "osc.udp://127.0.0.1/", "::"} {
		_, err := ParseURL(bad)
		assert.ErrorIs(t, err, ErrBadURL, bad)
	}
}

func TestListenCandidates(t *testing.T) {
	busy, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	busyPort := busy.LocalAddr().(*net.UDPAddr).Port

	m := newFakeManager(t)
	s := testSettings()
	s.Session.ListenPorts = []int{busyPort, 0}
	c, err := New(s, m.URL(), t.TempDir())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	defer c.Stop()
	assert.NotEqual(t, busyPort, c.Addr().(*net.UDPAddr).Port)

	s = testSettings()
	s.Session.ListenPorts = []int{busyPort}
	c2, err := New(s, m.URL(), t.TempDir())
	require.NoError(t, err)
	assert.ErrorIs(t, c2.Start(context.Background()), ErrEndpointOpen)
}

func TestNoSendAfterStop(t *testing.T) {
	m := newFakeManager(t)
	c := startController(t, m, t.TempDir())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			c.ReportProgress(float64(i) / 200)
		}
	}()
	c.Stop()
	<-done

	assert.ErrorIs(t, c.send(AddrProgress, float32(1)), ErrEndpointClosed)
	assert.ErrorIs(t, c.Activated(), ErrBadState)
}
