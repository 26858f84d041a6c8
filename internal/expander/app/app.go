// Package app wires the expander together: environment, session negotiation,
// audio driver, synthesis engine and the real-time bridge.
package app

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/TomatoPi/5FX-Expander/internal/common/logtrace"
	"github.com/TomatoPi/5FX-Expander/internal/expander/audio"
	"github.com/TomatoPi/5FX-Expander/internal/expander/bridge"
	"github.com/TomatoPi/5FX-Expander/internal/expander/config"
	"github.com/TomatoPi/5FX-Expander/internal/expander/configstore"
	"github.com/TomatoPi/5FX-Expander/internal/expander/envresolve"
	"github.com/TomatoPi/5FX-Expander/internal/expander/nsm"
	"github.com/TomatoPi/5FX-Expander/internal/expander/synth"
)

// QuitCommand ends the console loop.
const QuitCommand = "quit"

// Options configures an App. Only Settings is required.
type Options struct {
	Settings *config.Settings
	// Environ is the environment listing to resolve HOME and the session url
	// from. Nil means the process environment at the time Run is called.
	Environ []string
	// SoundBank overrides the sound bank of the session Config.
	SoundBank string
	// OpenDriver and NewEngine replace the registry lookups by name.
	OpenDriver audio.Opener
	NewEngine  synth.Factory
}

// Context is the state of one expander process. It is built once by New and
// filled in by Run as the startup sequence progresses.
type Context struct {
	Settings   *config.Settings
	Logger     zerolog.Logger
	Home       string
	Controller *nsm.Controller
	Driver     audio.Driver
	Engine     synth.Engine
	Bridge     *bridge.Bridge
	Monitor    *bridge.Monitor
}

// App runs the expander.
type App struct {
	ctx        *Context
	environ    []string
	soundBank  string
	openDriver audio.Opener
	newEngine  synth.Factory
}

// New validates the options and returns an App ready to Run.
func New(opts Options) (*App, error) {
	if opts.Settings == nil {
		return nil, ErrInvalidOptions.Msg("settings are required")
	}
	if err := config.Validate(opts.Settings); err != nil {
		return nil, ErrInvalidOptions.Err(err)
	}
	a := &App{
		ctx: &Context{
			Settings: opts.Settings,
			Logger:   logtrace.Component("app"),
		},
		environ:    opts.Environ,
		soundBank:  opts.SoundBank,
		openDriver: opts.OpenDriver,
		newEngine:  opts.NewEngine,
	}
	if a.openDriver == nil {
		driver := opts.Settings.Driver
		a.openDriver = func(clientName string, ports audio.Ports) (audio.Driver, error) {
			return audio.Open(driver, clientName, ports)
		}
	}
	if a.newEngine == nil {
		engine := opts.Settings.Engine
		a.newEngine = func() (synth.Engine, error) {
			return synth.New(engine)
		}
	}
	return a, nil
}

// Context returns the process context.
func (a *App) Context() *Context {
	return a.ctx
}

// Run performs the startup sequence, then reads commands from console until
// quit, end of input, ctx cancellation or a fatal session error. Everything
// started is torn down before Run returns.
func (a *App) Run(ctx context.Context, console io.Reader) (err error) {
	c := a.ctx
	environ := a.environ
	if environ == nil {
		environ = os.Environ()
	}

	c.Home, err = envresolve.Home(environ)
	if err != nil {
		return err
	}

	if err := a.negotiate(ctx, environ); err != nil {
		return err
	}
	defer c.Controller.Stop()

	c.Engine, err = a.newEngine()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Engine.Close(); cerr != nil {
			c.Logger.Warn().Err(cerr).Msg("failed to close engine")
		}
	}()

	s := c.Settings
	c.Driver, err = a.openDriver(s.ClientName, audio.Ports{
		MidiIn:   s.Ports.MidiIn,
		OutLeft:  s.Ports.OutLeft,
		OutRight: s.Ports.OutRight,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Driver.Close(); cerr != nil {
			c.Logger.Warn().Err(cerr).Msg("failed to close audio driver")
		}
	}()

	if err := a.loadSoundBank(); err != nil {
		return err
	}

	if s.Monitor.Enabled {
		c.Monitor = bridge.NewMonitor(s.Monitor.Capacity)
	}
	c.Bridge = bridge.New(c.Engine, c.Monitor)
	if err := c.Driver.SetProcessFunc(c.Bridge.Process); err != nil {
		return err
	}
	if err := c.Driver.Activate(); err != nil {
		return err
	}
	c.Logger.Info().Uint32("sample_rate", c.Driver.SampleRate()).Msg("audio client activated")

	monitorCtx, stopMonitor := context.WithCancel(ctx)
	monitorDone := make(chan struct{})
	if c.Monitor != nil {
		go func() {
			defer close(monitorDone)
			c.Monitor.Run(monitorCtx, s.Monitor.GetInterval(), logtrace.Component("midi"))
		}()
	} else {
		close(monitorDone)
	}
	defer func() {
		stopMonitor()
		<-monitorDone
	}()

	if err := c.Controller.Activated(); err != nil {
		_ = c.Driver.Deactivate()
		return err
	}

	runErr := a.consoleLoop(ctx, console)

	if derr := c.Driver.Deactivate(); derr != nil && runErr == nil {
		runErr = ErrShutdown.Err(derr)
	}
	c.Logger.Info().Msg("audio client deactivated")
	return runErr
}

// negotiate obtains the Session and Config, from the session manager when one is
// bound in the environment, otherwise from the standalone defaults.
func (a *App) negotiate(ctx context.Context, environ []string) error {
	c := a.ctx
	url, managed := envresolve.SessionURL(c.Settings.Session.URLEnv, environ)
	if !managed {
		c.Controller = nsm.NewStandalone(c.Settings, c.Home)
		c.Logger.Info().Str("instance_path", c.Controller.Session().InstancePath).Msg("no session manager, running standalone")
		return nil
	}

	ctrl, err := nsm.New(c.Settings, url, c.Home)
	if err != nil {
		return err
	}
	c.Controller = ctrl
	if err := ctrl.Start(ctx); err != nil {
		ctrl.Stop()
		return err
	}
	if _, err := ctrl.WaitOpen(ctx); err != nil {
		ctrl.Stop()
		return err
	}
	if err := ctrl.Negotiate(); err != nil {
		ctrl.Stop()
		return err
	}
	return nil
}

func (a *App) loadSoundBank() error {
	c := a.ctx
	cfg := c.Controller.Config()
	if a.soundBank != "" && a.soundBank != cfg.SoundBankPath {
		cfg = configstore.Config{SoundBankPath: a.soundBank}
		c.Controller.SetConfig(cfg)
	}

	c.Engine.SetSampleRate(c.Driver.SampleRate())
	c.Engine.SetProgressFunc(c.Controller.ReportProgress)
	c.Logger.Info().Str("sound_bank", cfg.SoundBankPath).Msg("loading sound bank")
	if err := c.Engine.Load(cfg.SoundBankPath); err != nil {
		return ErrSoundBankLoad.MsgErr("unable to load sound bank "+cfg.SoundBankPath, err)
	}
	c.Logger.Info().Msg("sound bank loaded")
	return nil
}
