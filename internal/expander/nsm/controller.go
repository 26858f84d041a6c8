// Package nsm implements the client side of the Non Session Manager protocol.
//
// A Controller announces the expander to the session manager named by NSM_URL,
// waits for the manager to assign a session through /nsm/client/open, loads or
// creates the per-session Config and answers save requests. Messages are handled
// one at a time on the controller's own goroutine. The startup sequence waits for
// the open request through a channel that is closed only after the Session has
// been written.
package nsm

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/hypebeast/go-osc/osc"
	"github.com/rs/zerolog"

	"github.com/TomatoPi/5FX-Expander/internal/common/logtrace"
	"github.com/TomatoPi/5FX-Expander/internal/expander/config"
	"github.com/TomatoPi/5FX-Expander/internal/expander/configstore"
	"github.com/TomatoPi/5FX-Expander/internal/expander/versions"
)

// Session is the identity assigned by the session manager.
type Session struct {
	InstancePath string
	DisplayName  string
	ClientID     string
}

type handlerFunc func(msg *osc.Message)

// Controller owns the Session and Config of the process.
type Controller struct {
	settings   *config.Settings
	home       string
	standalone bool
	manager    *net.UDPAddr
	logger     zerolog.Logger

	mu      sync.Mutex // guards state, session and cfg
	state   State
	session Session
	cfg     configstore.Config
	saving  atomic.Bool

	conn     net.PacketConn
	sendMu   sync.Mutex // guards writes to conn and sendStop
	sendStop bool
	handlers map[string]handlerFunc

	opened   chan struct{}
	openOnce sync.Once
	rejected chan error
	fatal    chan error
	done     chan struct{}
	stopOnce sync.Once
}

// New returns a controller talking to the session manager at managerURL. home is
// the user's home directory, used for the default sound bank.
func New(settings *config.Settings, managerURL, home string) (*Controller, error) {
	addr, err := ParseURL(managerURL)
	if err != nil {
		return nil, err
	}
	c := newController(settings, home)
	c.manager = addr
	c.logger = c.logger.With().Str("manager", addr.String()).Logger()
	c.handlers = map[string]handlerFunc{
		AddrOpen:            c.handleOpen,
		AddrSave:            c.handleSave,
		AddrSessionIsLoaded: c.handleSessionIsLoaded,
		AddrReply:           c.handleReply,
		AddrError:           c.handleError,
	}
	return c, nil
}

// NewStandalone returns a controller for runs without a session manager. It
// starts out Negotiated with the standalone Session and default Config and never
// touches the network.
func NewStandalone(settings *config.Settings, home string) *Controller {
	c := newController(settings, home)
	c.standalone = true
	c.session, c.cfg = Standalone(home, settings)
	c.state = Negotiated
	c.openOnce.Do(func() { close(c.opened) })
	close(c.done)
	return c
}

func newController(settings *config.Settings, home string) *Controller {
	return &Controller{
		settings: settings,
		home:     home,
		logger:   logtrace.Component("nsm"),
		opened:   make(chan struct{}),
		rejected: make(chan error, 1),
		fatal:    make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Standalone returns the Session and Config used when no session manager is
// present.
func Standalone(home string, settings *config.Settings) (Session, configstore.Config) {
	sa := settings.Standalone
	return Session{
		InstancePath: filepath.Join(home, sa.AppDir, sa.ClientID),
		DisplayName:  sa.DisplayName,
		ClientID:     sa.ClientID,
	}, configstore.Default(home, sa.AppDir)
}

// IsStandalone reports whether the controller runs without a session manager.
func (c *Controller) IsStandalone() bool {
	return c.standalone
}

// State returns the current handshake state.
func (c *Controller) State() State {
	if c.saving.Load() {
		return Saving
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the session identity.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Config returns the current Config.
func (c *Controller) Config() configstore.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// SetConfig replaces the in-memory Config. It is persisted on the next save
// request.
func (c *Controller) SetConfig(cfg configstore.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

// Fatal delivers errors that must terminate the process, such as a failed save.
func (c *Controller) Fatal() <-chan error {
	return c.fatal
}

// Addr returns the local address of the message endpoint, nil before Start.
func (c *Controller) Addr() net.Addr {
	if c.conn == nil {
		return nil
	}
	return c.conn.LocalAddr()
}

// transition moves from one state to another and fails if the controller is not
// in the expected state.
func (c *Controller) transition(from, to State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != from {
		return ErrBadState.Msg("expected state " + from.String() + ", controller is " + c.state.String())
	}
	c.state = to
	return nil
}

// Start opens the message endpoint, starts the message goroutine and announces
// the client to the session manager.
func (c *Controller) Start(ctx context.Context) error {
	if c.standalone {
		return nil
	}
	if err := c.transition(Idle, Announcing); err != nil {
		return err
	}

	conn, err := c.listen(ctx)
	if err != nil {
		return err
	}
	c.conn = conn
	c.logger = c.logger.With().Str("endpoint", conn.LocalAddr().String()).Logger()
	go c.serve()

	major, minor := versions.NSMAPI()
	err = c.send(AddrAnnounce,
		c.settings.ClientName,
		c.settings.Session.Capabilities,
		filepath.Base(os.Args[0]),
		major,
		minor,
		int32(os.Getpid()),
	)
	if err != nil {
		return err
	}
	c.logger.Info().Msg("announced to session manager")
	return nil
}

// listen binds the first free candidate port.
func (c *Controller) listen(ctx context.Context) (net.PacketConn, error) {
	ports := c.settings.Session.ListenPorts
	if len(ports) == 0 {
		ports = []int{0}
	}
	var conn net.PacketConn
	attempt := 0
	err := retry.Do(
		func() error {
			addr := net.JoinHostPort(c.settings.Session.ListenHost, strconv.Itoa(ports[attempt]))
			attempt++
			pc, err := net.ListenPacket("udp", addr)
			if err != nil {
				c.logger.Debug().Err(err).Str("addr", addr).Msg("endpoint candidate unavailable")
				return err
			}
			conn = pc
			return nil
		},
		retry.Attempts(uint(len(ports))),
		retry.Delay(10*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		return nil, ErrEndpointOpen.Err(err)
	}
	return conn, nil
}

// WaitOpen blocks until the session manager has sent the open request, the open
// timeout expires, the manager rejects the announce or ctx is done.
func (c *Controller) WaitOpen(ctx context.Context) (Session, error) {
	if c.standalone {
		return c.Session(), nil
	}
	if err := c.transition(Announcing, AwaitingOpen); err != nil {
		return Session{}, err
	}
	timeout := c.settings.Session.GetOpenTimeout()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.opened:
		s := c.Session()
		c.logger.Info().
			Str("instance_path", s.InstancePath).
			Str("display_name", s.DisplayName).
			Str("client_id", s.ClientID).
			Msg("session opened")
		return s, nil
	case err := <-c.rejected:
		return Session{}, err
	case <-timer.C:
		return Session{}, ErrOpenTimeout.Msg("no open request after " + timeout.String())
	case <-ctx.Done():
		return Session{}, ctx.Err()
	}
}

// Negotiate loads the Config stored in the session's instance path, or saves the
// default Config there when none exists yet.
func (c *Controller) Negotiate() error {
	if c.standalone {
		return nil
	}
	select {
	case <-c.opened:
	default:
		return ErrBadState.Msg("no open request received")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != AwaitingOpen {
		return ErrBadState.Msg("expected state " + AwaitingOpen.String() + ", controller is " + c.state.String())
	}

	dir := c.session.InstancePath
	if configstore.Exists(dir) {
		cfg, err := configstore.Load(dir)
		if err != nil {
			return err
		}
		c.cfg = cfg
		c.logger.Info().Str("sound_bank", cfg.SoundBankPath).Msg("loaded session config")
	} else {
		cfg := configstore.Default(c.home, c.settings.Standalone.AppDir)
		if err := configstore.Save(cfg, dir); err != nil {
			return err
		}
		c.cfg = cfg
		c.logger.Info().Str("sound_bank", cfg.SoundBankPath).Msg("created session config")
	}
	c.state = Negotiated
	return nil
}

// Activated marks the client ready and sends the deferred reply to the open
// request.
func (c *Controller) Activated() error {
	if err := c.transition(Negotiated, Running); err != nil {
		return err
	}
	if c.standalone {
		return nil
	}
	return c.send(AddrReply, AddrOpen, replyOK)
}

// ReportProgress sends the load progress in 0..1 to the session manager.
func (c *Controller) ReportProgress(fraction float64) {
	if c.standalone || c.conn == nil || c.State() == Closing {
		return
	}
	switch {
	case fraction < 0 || fraction != fraction:
		fraction = 0
	case fraction > 1:
		fraction = 1
	}
	if err := c.send(AddrProgress, float32(fraction)); err != nil && !errors.Is(err, ErrEndpointClosed) {
		c.logger.Warn().Err(err).Msg("failed to report progress")
	}
}

// Stop closes the message endpoint and waits for the message goroutine. Messages
// arriving afterwards are ignored.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.state = Closing
		c.mu.Unlock()
		if c.conn == nil {
			return
		}
		c.sendMu.Lock()
		c.sendStop = true
		c.sendMu.Unlock()
		c.conn.Close()
		<-c.done
		c.logger.Info().Msg("session endpoint closed")
	})
}

func (c *Controller) closing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Closing
}

func (c *Controller) serve() {
	defer close(c.done)
	buf := make([]byte, maxPacket)
	for {
		n, from, err := c.conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || c.closing() {
				return
			}
			c.logger.Warn().Err(err).Msg("failed to read session message")
			continue
		}
		if c.closing() {
			return
		}
		packet, err := osc.ParsePacket(string(buf[:n]))
		if err != nil {
			c.logger.Warn().Err(err).Str("from", from.String()).Msg("dropping malformed packet")
			continue
		}
		for _, msg := range flatten(packet) {
			c.dispatch(msg)
		}
	}
}

func (c *Controller) dispatch(msg *osc.Message) {
	if c.closing() {
		return
	}
	h, ok := c.handlers[msg.Address]
	if !ok {
		c.logger.Warn().Str("address", msg.Address).Msg("unhandled session message")
		return
	}
	h(msg)
}

func (c *Controller) send(addr string, args ...interface{}) error {
	data, err := osc.NewMessage(addr, args...).MarshalBinary()
	if err != nil {
		return ErrSend.Err(err)
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendStop {
		return ErrEndpointClosed
	}
	if _, err := c.conn.WriteTo(data, c.manager); err != nil {
		return ErrSend.Err(err)
	}
	return nil
}

func (c *Controller) pushFatal(err error) {
	select {
	case c.fatal <- err:
	default:
	}
}
