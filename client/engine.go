// Package client implements the client-side dispatch engine: the
// iopub/stdin listeners and the main-thread request/comm senders a
// frontend uses to talk to a kernel.
package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-zeromq/zmq4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/nb-kernel/jupyter/id"
	"github.com/nb-kernel/jupyter/internal/logging"
	"github.com/nb-kernel/jupyter/message"
	"github.com/nb-kernel/jupyter/transport"
	"github.com/nb-kernel/jupyter/wire"
)

// HandlerError wraps a panic recovered from a user-supplied handler. It
// terminates the listener that invoked the handler and surfaces from
// Wait.
type HandlerError struct {
	Value interface{}
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("client: handler panicked: %v", e.Value)
}

// KernelRequestHandler answers a KernelRequest arriving on stdin (an
// input_request).
type KernelRequestHandler func(sendReplyComm SendReplyComm, req message.KernelRequest) message.ClientReply

// CommHandler reacts to an inbound Comm seen on iopub.
type CommHandler func(sendReplyComm SendReplyComm, comm message.Comm)

// KernelOutputHandler reacts to an inbound KernelOutput seen on iopub.
type KernelOutputHandler func(sendReplyComm SendReplyComm, output message.KernelOutput)

// SendReplyComm emits a Comm on shell, parented to the header of
// whichever message is currently being handled. Clients publish comms
// upstream on shell, not iopub.
type SendReplyComm func(comm message.Comm) error

// Handlers bundles the three callbacks an Engine dispatches inbound
// traffic to.
type Handlers struct {
	OnKernelRequest KernelRequestHandler
	OnComm          CommHandler
	OnKernelOutput  KernelOutputHandler
}

// Engine owns a client's five sockets and runs its listener loops.
type Engine struct {
	Profile  transport.Profile
	Sockets  transport.ClientSockets
	Log      logging.Logger
	Handlers Handlers

	session  id.UUID
	username string

	shellMu sync.Mutex

	group  *errgroup.Group
	cancel context.CancelFunc
}

// New constructs an Engine. Use transport.DialClientSockets to obtain
// sockets connected to a running kernel's profile.
func New(profile transport.Profile, sockets transport.ClientSockets, session id.UUID, username string, handlers Handlers, log logging.Logger) *Engine {
	if log == nil {
		log = logging.Nop
	}
	if handlers.OnKernelRequest == nil {
		handlers.OnKernelRequest = func(SendReplyComm, message.KernelRequest) message.ClientReply {
			return message.InputReply{}
		}
	}
	if handlers.OnComm == nil {
		handlers.OnComm = func(SendReplyComm, message.Comm) {}
	}
	if handlers.OnKernelOutput == nil {
		handlers.OnKernelOutput = func(SendReplyComm, message.KernelOutput) {}
	}
	return &Engine{
		Profile:  profile,
		Sockets:  sockets,
		Log:      log,
		Handlers: handlers,
		session:  session,
		username: username,
	}
}

// Start spawns the iopub and stdin listener tasks.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	group, ctx := errgroup.WithContext(ctx)
	e.group = group

	group.Go(func() error { return e.runIOPub(ctx) })
	group.Go(func() error { return e.runStdin(ctx) })

	// Closing the sockets is what unblocks listeners parked in Recv, so
	// the engine releases them as soon as its context ends.
	group.Go(func() error {
		<-ctx.Done()
		_ = e.Sockets.Close()
		return nil
	})
}

// Wait blocks until both listener tasks have exited, returning the
// first non-nil error either produced. On normal termination of the
// caller's program, pair this with Shutdown.
func (e *Engine) Wait() error {
	if e.group == nil {
		return nil
	}
	return e.group.Wait()
}

// Shutdown cancels both listener tasks cooperatively.
func (e *Engine) Shutdown() {
	if e.cancel != nil {
		e.cancel()
	}
}

// Close shuts the listeners down, waits for them, and closes all five
// sockets. It returns the listeners' terminal error, if any.
func (e *Engine) Close() error {
	e.Shutdown()
	err := e.Wait()
	_ = e.Sockets.Close()
	return err
}

func (e *Engine) runIOPub(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		zmsg, err := e.Sockets.IOPub.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		decoded, err := wire.Decode(zmsg.Frames, e.Profile.SignatureScheme, e.Profile.Key)
		if err != nil {
			if errors.Is(err, wire.ErrBadSignature) || errors.Is(err, wire.ErrMalformedEnvelope) {
				e.Log.Warn("iopub: discarding malformed message: %v", err)
				continue
			}
			// Unrecoverable: ordering on iopub can no longer be
			// trusted once a frame fails to parse.
			return err
		}

		reply := func(comm message.Comm) error { return e.sendOnShell(decoded.Header, comm) }

		if comm, err := message.DecodeComm(decoded.Header.MsgType, decoded.Content); err == nil {
			if err := invoke(func() { e.Handlers.OnComm(reply, comm) }); err != nil {
				return err
			}
			continue
		}

		out, err := message.DecodeKernelOutput(decoded.Header.MsgType, decoded.Content)
		if err != nil {
			return err
		}
		if err := invoke(func() { e.Handlers.OnKernelOutput(reply, out) }); err != nil {
			return err
		}
	}
}

// invoke runs a user handler, converting a panic into a HandlerError
// that tears the listener down.
func invoke(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WithStack(&HandlerError{Value: r})
		}
	}()
	fn()
	return nil
}

func (e *Engine) runStdin(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		zmsg, err := e.Sockets.Stdin.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		decoded, err := wire.Decode(zmsg.Frames, e.Profile.SignatureScheme, e.Profile.Key)
		if err != nil {
			e.Log.Warn("stdin: discarding malformed message: %v", err)
			continue
		}

		req, err := message.DecodeKernelRequest(decoded.Header.MsgType, decoded.Content)
		if err != nil {
			// Fatal, as on iopub: a request that cannot be decoded
			// cannot be answered.
			return err
		}

		reply := func(comm message.Comm) error { return e.sendOnShell(decoded.Header, comm) }
		var clientReply message.ClientReply
		if err := invoke(func() { clientReply = e.Handlers.OnKernelRequest(reply, req) }); err != nil {
			return err
		}
		if clientReply == nil {
			e.Log.Warn("stdin: handler returned no reply for %s", req.Tag())
			continue
		}

		header := message.MakeReplyHeader(decoded.Header, clientReply)
		raw, err := wire.Encode(decoded.Identities, header, decoded.Header, nil, clientReply, e.Profile.SignatureScheme, e.Profile.Key)
		if err != nil {
			return err
		}
		if err := e.Sockets.Stdin.Send(zmq4.NewMsgFrom(raw...)); err != nil {
			return err
		}
	}
}

func (e *Engine) sendOnShell(parent message.Header, comm message.Comm) error {
	e.shellMu.Lock()
	defer e.shellMu.Unlock()

	header := message.MakeReplyHeader(parent, comm)
	raw, err := wire.Encode(nil, header, parent, nil, comm, e.Profile.SignatureScheme, e.Profile.Key)
	if err != nil {
		return err
	}
	return e.Sockets.Shell.Send(zmq4.NewMsgFrom(raw...))
}

// SendClientRequest sends req on shell and blocks for the matching
// KernelReply.
func (e *Engine) SendClientRequest(req message.ClientRequest) (message.KernelReply, error) {
	e.shellMu.Lock()
	defer e.shellMu.Unlock()

	header := message.MakeRequestHeader(e.session, e.username, req)
	raw, err := wire.Encode(nil, header, message.Header{}, nil, req, e.Profile.SignatureScheme, e.Profile.Key)
	if err != nil {
		return nil, err
	}
	if err := e.Sockets.Shell.Send(zmq4.NewMsgFrom(raw...)); err != nil {
		return nil, err
	}

	zmsg, err := e.Sockets.Shell.Recv()
	if err != nil {
		return nil, err
	}

	decoded, err := wire.Decode(zmsg.Frames, e.Profile.SignatureScheme, e.Profile.Key)
	if err != nil {
		return nil, err
	}

	return message.DecodeKernelReply(decoded.Header.MsgType, decoded.Content)
}

// SendClientComm sends comm on shell without waiting for any reply.
func (e *Engine) SendClientComm(comm message.Comm) error {
	e.shellMu.Lock()
	defer e.shellMu.Unlock()

	header := message.MakeRequestHeader(e.session, e.username, comm)
	raw, err := wire.Encode(nil, header, message.Header{}, nil, comm, e.Profile.SignatureScheme, e.Profile.Key)
	if err != nil {
		return err
	}
	return e.Sockets.Shell.Send(zmq4.NewMsgFrom(raw...))
}
