package nsm

import (
	"github.com/hypebeast/go-osc/osc"

	"github.com/TomatoPi/5FX-Expander/internal/common/apperrors"
	"github.com/TomatoPi/5FX-Expander/internal/expander/configstore"
)

func (c *Controller) handleOpen(msg *osc.Message) {
	var req openRequest
	if err := decodeArgs(msg.Arguments, &req, "instance_path", "display_name", "client_id"); err != nil {
		c.logger.Warn().Err(err).Msg("bad open request")
		c.replyError(AddrOpen, CodeGeneral, apperrors.Describe(err))
		return
	}

	first := false
	c.openOnce.Do(func() {
		c.mu.Lock()
		c.session = Session(req)
		c.mu.Unlock()
		close(c.opened)
		first = true
	})
	if !first {
		c.logger.Warn().Str("instance_path", req.InstancePath).Msg("ignoring repeated open request")
		c.replyError(AddrOpen, CodeNotNow, "not now")
	}
}

func (c *Controller) handleSave(msg *osc.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Negotiated && c.state != Running {
		c.logger.Warn().Str("state", c.state.String()).Msg("save requested before the session is ready")
		c.replyError(AddrSave, CodeNoSessionOpen, "no session open")
		return
	}

	c.saving.Store(true)
	err := configstore.Save(c.cfg, c.session.InstancePath)
	c.saving.Store(false)
	if err != nil {
		c.logger.Error().Err(err).Str("instance_path", c.session.InstancePath).Msg("failed to save session config")
		c.replyError(AddrSave, CodeGeneral, apperrors.Describe(err))
		c.pushFatal(err)
		return
	}
	c.logger.Info().Str("sound_bank", c.cfg.SoundBankPath).Msg("saved session config")
	if err := c.send(AddrReply, AddrSave, replyOK); err != nil {
		c.logger.Warn().Err(err).Msg("failed to reply to save")
	}
}

func (c *Controller) handleSessionIsLoaded(*osc.Message) {
	c.logger.Info().Msg("session is loaded")
}

func (c *Controller) handleReply(msg *osc.Message) {
	var r replyMessage
	if err := decodeArgs(msg.Arguments, &r, "address", "message"); err != nil {
		c.logger.Warn().Err(err).Msg("bad reply")
		return
	}
	ev := c.logger.Info().Str("address", r.Address).Str("message", r.Message)
	if r.Address == AddrAnnounce && len(msg.Arguments) >= 4 {
		if name, ok := msg.Arguments[2].(string); ok {
			ev = ev.Str("manager_name", name)
		}
		if caps, ok := msg.Arguments[3].(string); ok {
			ev = ev.Str("manager_capabilities", caps)
		}
	}
	ev.Msg("session manager reply")
}

func (c *Controller) handleError(msg *osc.Message) {
	var e errorMessage
	if err := decodeArgs(msg.Arguments, &e, "address", "code", "message"); err != nil {
		c.logger.Warn().Err(err).Msg("bad error reply")
		return
	}
	c.logger.Error().Str("address", e.Address).Int32("code", e.Code).Str("message", e.Message).Msg("session manager error")
	if e.Address == AddrAnnounce {
		select {
		case c.rejected <- ErrAnnounceRejected.Msg(e.Message):
		default:
		}
	}
}

func (c *Controller) replyError(addr string, code int32, text string) {
	if err := c.send(AddrError, addr, code, text); err != nil {
		c.logger.Warn().Err(err).Str("address", addr).Msg("failed to send error reply")
	}
}
