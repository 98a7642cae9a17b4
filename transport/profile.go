// Package transport binds Jupyter's five logical channels onto ZeroMQ
// sockets and manages the connection-file profile that describes them.
package transport

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/nb-kernel/jupyter/wire"
)

// ErrUnsupportedSignatureScheme is returned by Load when a connection
// file names a signature_scheme other than hmac-sha256.
var ErrUnsupportedSignatureScheme = errors.New("transport: unsupported signature scheme")

// Profile is the bit-compatible Go form of a Jupyter connection file.
type Profile struct {
	Transport       string `json:"transport"`
	IP              string `json:"ip"`
	SignatureScheme string `json:"signature_scheme"`
	Key             []byte `json:"-"`
	ShellPort       int    `json:"shell_port"`
	IOPubPort       int    `json:"iopub_port"`
	ControlPort     int    `json:"control_port"`
	StdinPort       int    `json:"stdin_port"`
	HBPort          int    `json:"hb_port"`
}

type wireProfile struct {
	Transport       string `json:"transport"`
	IP              string `json:"ip"`
	SignatureScheme string `json:"signature_scheme"`
	Key             string `json:"key"`
	ShellPort       int    `json:"shell_port"`
	IOPubPort       int    `json:"iopub_port"`
	ControlPort     int    `json:"control_port"`
	StdinPort       int    `json:"stdin_port"`
	HBPort          int    `json:"hb_port"`
}

// Load reads and validates a connection file at path.
func Load(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, errors.Wrapf(err, "transport: read connection file %s", path)
	}
	return Decode(raw)
}

// Decode parses connection-file JSON already held in memory.
func Decode(raw []byte) (Profile, error) {
	var w wireProfile
	if err := json.Unmarshal(raw, &w); err != nil {
		return Profile{}, errors.Wrap(err, "transport: decode connection file")
	}

	if w.SignatureScheme != "" && w.SignatureScheme != wire.SignatureSchemeHMACSHA256 {
		return Profile{}, ErrUnsupportedSignatureScheme
	}

	var key []byte
	if w.Key != "" {
		var err error
		key, err = hex.DecodeString(w.Key)
		if err != nil {
			return Profile{}, errors.Wrap(err, "transport: decode hex key")
		}
	}

	return Profile{
		Transport:       w.Transport,
		IP:              w.IP,
		SignatureScheme: w.SignatureScheme,
		Key:             key,
		ShellPort:       w.ShellPort,
		IOPubPort:       w.IOPubPort,
		ControlPort:     w.ControlPort,
		StdinPort:       w.StdinPort,
		HBPort:          w.HBPort,
	}, nil
}

// Save writes p as a connection file at path.
func (p Profile) Save(path string) error {
	raw, err := p.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

// Encode renders p as connection-file JSON.
func (p Profile) Encode() ([]byte, error) {
	return json.Marshal(wireProfile{
		Transport:       p.Transport,
		IP:              p.IP,
		SignatureScheme: p.SignatureScheme,
		Key:             hex.EncodeToString(p.Key),
		ShellPort:       p.ShellPort,
		IOPubPort:       p.IOPubPort,
		ControlPort:     p.ControlPort,
		StdinPort:       p.StdinPort,
		HBPort:          p.HBPort,
	})
}

// Endpoint builds the dial/bind address for one of p's ports, e.g.
// "tcp://127.0.0.1:5555". For ipc the port becomes a path suffix,
// "ipc:///tmp/kernel-5555", matching how Jupyter names its ipc
// sockets.
func (p Profile) Endpoint(port int) string {
	if p.Transport == "ipc" {
		return fmt.Sprintf("%s://%s-%d", p.Transport, p.IP, port)
	}
	return fmt.Sprintf("%s://%s:%d", p.Transport, p.IP, port)
}
