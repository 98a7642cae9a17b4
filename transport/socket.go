package transport

import (
	"context"
	"net"

	"github.com/go-zeromq/zmq4"
	"github.com/pkg/errors"
)

// Role names the five logical Jupyter channels.
type Role int

const (
	RoleShell Role = iota
	RoleControl
	RoleIOPub
	RoleStdin
	RoleHeartbeat
)

func (r Role) String() string {
	return [...]string{"shell", "control", "iopub", "stdin", "heartbeat"}[r]
}

// KernelSockets is the five sockets a kernel-side engine owns:
// shell/control/stdin are ROUTER, iopub is PUB, heartbeat is REP.
type KernelSockets struct {
	Shell     zmq4.Socket
	Control   zmq4.Socket
	IOPub     zmq4.Socket
	Stdin     zmq4.Socket
	Heartbeat zmq4.Socket
}

// Close closes all five sockets, returning the first error seen.
func (s KernelSockets) Close() error {
	return closeAll(s.Shell, s.Control, s.IOPub, s.Stdin, s.Heartbeat)
}

// ClientSockets is the five sockets a client-side engine owns:
// shell/control/stdin are DEALER, iopub is SUB, heartbeat is REQ.
type ClientSockets struct {
	Shell     zmq4.Socket
	Control   zmq4.Socket
	IOPub     zmq4.Socket
	Stdin     zmq4.Socket
	Heartbeat zmq4.Socket
}

// Close closes all five sockets, returning the first error seen.
func (s ClientSockets) Close() error {
	return closeAll(s.Shell, s.Control, s.IOPub, s.Stdin, s.Heartbeat)
}

func closeAll(socks ...zmq4.Socket) error {
	var first error
	for _, s := range socks {
		if s == nil {
			continue
		}
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// BindKernelSockets binds the five kernel sockets against profile. A
// port of 0 means "pick a free port"; on return the Profile reflects
// the actual bound ports.
func BindKernelSockets(ctx context.Context, profile Profile) (KernelSockets, Profile, error) {
	var sockets KernelSockets
	effective := profile

	bind := func(sock zmq4.Socket, port *int, role Role) error {
		addr := profile.Endpoint(*port)
		if err := sock.Listen(addr); err != nil {
			return errors.Wrapf(err, "transport: bind %s socket", role)
		}
		actual, err := actualPort(sock, *port)
		if err != nil {
			return errors.Wrapf(err, "transport: read back %s port", role)
		}
		*port = actual
		return nil
	}

	sockets.Shell = zmq4.NewRouter(ctx)
	if err := bind(sockets.Shell, &effective.ShellPort, RoleShell); err != nil {
		_ = sockets.Close()
		return KernelSockets{}, Profile{}, err
	}

	sockets.Control = zmq4.NewRouter(ctx)
	if err := bind(sockets.Control, &effective.ControlPort, RoleControl); err != nil {
		_ = sockets.Close()
		return KernelSockets{}, Profile{}, err
	}

	sockets.Stdin = zmq4.NewRouter(ctx)
	if err := bind(sockets.Stdin, &effective.StdinPort, RoleStdin); err != nil {
		_ = sockets.Close()
		return KernelSockets{}, Profile{}, err
	}

	sockets.IOPub = zmq4.NewPub(ctx)
	if err := bind(sockets.IOPub, &effective.IOPubPort, RoleIOPub); err != nil {
		_ = sockets.Close()
		return KernelSockets{}, Profile{}, err
	}

	sockets.Heartbeat = zmq4.NewRep(ctx)
	if err := bind(sockets.Heartbeat, &effective.HBPort, RoleHeartbeat); err != nil {
		_ = sockets.Close()
		return KernelSockets{}, Profile{}, err
	}

	return sockets, effective, nil
}

// DialClientSockets connects the five client sockets against profile.
// The iopub socket is subscribed to every topic.
//
// identity is announced on the shell, control, and stdin dealers. A
// kernel addresses its stdin input_requests using the routing frames it
// saw on shell, so all three dealers must share one identity for those
// sends to route; passing the client's session ID matches what Jupyter
// frontends do. An empty identity lets the kernel assign ephemeral
// per-connection IDs, which is fine for shell/control round trips but
// leaves stdin unroutable.
func DialClientSockets(ctx context.Context, profile Profile, identity string) (ClientSockets, error) {
	var sockets ClientSockets

	dial := func(sock zmq4.Socket, port int, role Role) error {
		if err := sock.Dial(profile.Endpoint(port)); err != nil {
			return errors.Wrapf(err, "transport: dial %s socket", role)
		}
		return nil
	}

	newDealer := func() zmq4.Socket {
		if identity == "" {
			return zmq4.NewDealer(ctx)
		}
		return zmq4.NewDealer(ctx, zmq4.WithID(zmq4.SocketIdentity(identity)))
	}

	sockets.Shell = newDealer()
	if err := dial(sockets.Shell, profile.ShellPort, RoleShell); err != nil {
		_ = sockets.Close()
		return ClientSockets{}, err
	}

	sockets.Control = newDealer()
	if err := dial(sockets.Control, profile.ControlPort, RoleControl); err != nil {
		_ = sockets.Close()
		return ClientSockets{}, err
	}

	sockets.Stdin = newDealer()
	if err := dial(sockets.Stdin, profile.StdinPort, RoleStdin); err != nil {
		_ = sockets.Close()
		return ClientSockets{}, err
	}

	sockets.IOPub = zmq4.NewSub(ctx)
	if err := dial(sockets.IOPub, profile.IOPubPort, RoleIOPub); err != nil {
		_ = sockets.Close()
		return ClientSockets{}, err
	}
	if err := sockets.IOPub.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		_ = sockets.Close()
		return ClientSockets{}, errors.Wrap(err, "transport: subscribe iopub")
	}

	sockets.Heartbeat = zmq4.NewReq(ctx)
	if err := dial(sockets.Heartbeat, profile.HBPort, RoleHeartbeat); err != nil {
		_ = sockets.Close()
		return ClientSockets{}, err
	}

	return sockets, nil
}

// actualPort reads back the port a socket bound to. When the caller
// asked for a fixed (non-zero) port we trust that value; dynamic
// allocation (port 0) is resolved from the socket's bound TCP address.
func actualPort(sock zmq4.Socket, requested int) (int, error) {
	if requested != 0 {
		return requested, nil
	}

	tcpAddr, ok := sock.Addr().(*net.TCPAddr)
	if !ok || tcpAddr == nil {
		return 0, errors.New("transport: socket has no bound tcp address")
	}
	return tcpAddr.Port, nil
}
