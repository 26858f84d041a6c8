package nsm

import (
	"fmt"
	"net"
	"net/url"

	"github.com/hypebeast/go-osc/osc"
	"github.com/mitchellh/mapstructure"
)

// OSC addresses of the NSM client protocol.
const (
	AddrAnnounce        = "/nsm/server/announce"
	AddrOpen            = "/nsm/client/open"
	AddrSave            = "/nsm/client/save"
	AddrSessionIsLoaded = "/nsm/client/session_is_loaded"
	AddrProgress        = "/nsm/client/progress"
	AddrReply           = "/reply"
	AddrError           = "/error"
)

// Error codes of the NSM protocol.
const (
	CodeGeneral       int32 = -1
	CodeNoSessionOpen int32 = -6
	CodeNotNow        int32 = -8
)

const replyOK = "OK"

// maxPacket is the largest UDP payload.
const maxPacket = 65507

type openRequest struct {
	InstancePath string `mapstructure:"instance_path"`
	DisplayName  string `mapstructure:"display_name"`
	ClientID     string `mapstructure:"client_id"`
}

type replyMessage struct {
	Address string `mapstructure:"address"`
	Message string `mapstructure:"message"`
}

type errorMessage struct {
	Address string `mapstructure:"address"`
	Code    int32  `mapstructure:"code"`
	Message string `mapstructure:"message"`
}

// decodeArgs binds positional OSC arguments to the fields of out, in the order
// given by names. Extra arguments are ignored; types must match exactly.
func decodeArgs(args []interface{}, out interface{}, names ...string) error {
	if len(args) < len(names) {
		return ErrBadArguments.Msg(fmt.Sprintf("expected %d arguments, got %d", len(names), len(args)))
	}
	fields := make(map[string]interface{}, len(names))
	for i, name := range names {
		fields[name] = args[i]
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: out})
	if err != nil {
		return ErrBadArguments.Err(err)
	}
	if err := dec.Decode(fields); err != nil {
		return ErrBadArguments.Err(err)
	}
	return nil
}

// ParseURL resolves an NSM url of the form osc.udp://host:port/.
func ParseURL(raw string) (*net.UDPAddr, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, ErrBadURL.Err(err)
	}
	if u.Scheme != "osc.udp" {
		return nil, ErrBadURL.Msg("unsupported scheme " + u.Scheme)
	}
	if u.Port() == "" {
		return nil, ErrBadURL.Msg("missing port in " + raw)
	}
	addr, err := net.ResolveUDPAddr("udp", u.Host)
	if err != nil {
		return nil, ErrBadURL.Err(err)
	}
	return addr, nil
}

// flatten lists the messages of a packet in order, descending into bundles.
func flatten(p osc.Packet) []*osc.Message {
	switch v := p.(type) {
	case *osc.Message:
		return []*osc.Message{v}
	case *osc.Bundle:
		msgs := append([]*osc.Message(nil), v.Messages...)
		for _, b := range v.Bundles {
			msgs = append(msgs, flatten(b)...)
		}
		return msgs
	}
	return nil
}
