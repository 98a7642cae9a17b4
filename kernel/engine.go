// Package kernel implements the kernel-side dispatch engine: the
// supervised worker set that owns a kernel's five sockets, decodes
// inbound requests, invokes caller-supplied handlers, and publishes
// their outputs.
package kernel

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

// ErrShutdown is returned from an in-flight SendKernelRequest when the
// engine is shut down before the client's reply arrives.
var ErrShutdown = errors.New("kernel: engine shut down")

// HandlerError wraps a panic recovered from a user-supplied handler. It
// terminates the worker that invoked the handler and surfaces from Wait.
type HandlerError struct {
	Value interface{}
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("kernel: handler panicked: %v", e.Value)
}

// RequestHandler answers a ClientRequest. It is invoked once per
// inbound shell/control message; concurrent invocations across sockets
// must be safe.
type RequestHandler func(cb Callbacks, req message.ClientRequest) message.KernelReply

// CommHandler reacts to an inbound Comm. It has no reply; any outbound
// traffic it wants to produce goes through cb.
type CommHandler func(cb Callbacks, comm message.Comm)

// Callbacks is handed to both handlers, bound to the header of the
// inbound message currently being handled.
type Callbacks interface {
	// SendKernelOutput publishes output on iopub, parented to the
	// current inbound header.
	SendKernelOutput(output message.KernelOutput) error
	// SendComm publishes a comm on iopub, parented to the current
	// inbound header.
	SendComm(comm message.Comm) error
	// SendKernelRequest sends req on stdin and blocks for the
	// matching ClientReply. At most one outstanding round trip is
	// allowed per stdin socket at a time; concurrent callers are
	// serialized.
	SendKernelRequest(req message.KernelRequest) (message.ClientReply, error)
}

// Engine owns a kernel's five sockets and runs its dispatch loops.
type Engine struct {
	Profile transport.Profile
	Sockets transport.KernelSockets
	Log     logging.Logger

	OnRequest RequestHandler
	OnComm    CommHandler

	session id.UUID
	stdinMu sync.Mutex
	iopubMu sync.Mutex

	ctx    context.Context
	group  *errgroup.Group
	cancel context.CancelFunc
}

// New constructs an Engine bound to the given profile and sockets. Use
// transport.BindKernelSockets to obtain sockets with dynamic ports
// already resolved.
func New(profile transport.Profile, sockets transport.KernelSockets, session id.UUID, onRequest RequestHandler, onComm CommHandler, log logging.Logger) *Engine {
	if log == nil {
		log = logging.Nop
	}
	if onComm == nil {
		onComm = func(Callbacks, message.Comm) {}
	}
	return &Engine{
		Profile:   profile,
		Sockets:   sockets,
		Log:       log,
		OnRequest: onRequest,
		OnComm:    onComm,
		session:   session,
	}
}

// Start spawns the heartbeat, shell, and control worker tasks. It
// returns immediately; call Wait to block for completion or Shutdown to
// cancel.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	group, ctx := errgroup.WithContext(ctx)
	e.group = group
	e.ctx = ctx

	group.Go(func() error { return e.runHeartbeat(ctx) })
	group.Go(func() error { return e.runRouter(ctx, e.Sockets.Shell, "shell") })
	group.Go(func() error { return e.runRouter(ctx, e.Sockets.Control, "control") })

	// Closing the sockets is what unblocks workers parked in Recv, so
	// the engine releases them as soon as its context ends, whether
	// through Shutdown, a failed sibling, or the caller's cancellation.
	group.Go(func() error {
		<-ctx.Done()
		_ = e.Sockets.Close()
		return nil
	})
}

// Wait blocks until every worker task has exited, returning the first
// non-nil error any of them produced.
func (e *Engine) Wait() error {
	if e.group == nil {
		return nil
	}
	return e.group.Wait()
}

// Shutdown cancels all worker tasks. It does not wait for in-flight
// handler invocations to finish; any outstanding SendKernelRequest
// round trip is aborted with ErrShutdown.
func (e *Engine) Shutdown() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) runHeartbeat(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		msg, err := e.Sockets.Heartbeat.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := e.Sockets.Heartbeat.Send(msg); err != nil {
			return err
		}
	}
}

// runRouter is the shell/control worker: receive, classify as comm or
// request, dispatch, and for requests, reply on the same socket with
// the identities copied from the inbound message.
func (e *Engine) runRouter(ctx context.Context, sock zmq4.Socket, name string) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		zmsg, err := sock.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		decoded, err := wire.Decode(zmsg.Frames, e.Profile.SignatureScheme, e.Profile.Key)
		if err != nil {
			e.Log.Warn("%s: discarding malformed message: %v", name, err)
			continue
		}

		cb := &callbacks{engine: e, parent: decoded.Header, identities: decoded.Identities}

		if comm, err := message.DecodeComm(decoded.Header.MsgType, decoded.Content); err == nil {
			if err := e.dispatchComm(cb, comm); err != nil {
				return err
			}
			continue
		}

		req, err := message.DecodeClientRequest(decoded.Header.MsgType, decoded.Content)
		if err != nil {
			e.Log.Warn("%s: decode error for %s: %v", name, decoded.Header.MsgType, err)
			continue
		}

		bracket := req.Tag() == message.TagExecuteRequest
		if bracket {
			_ = cb.SendKernelStatus(message.KernelStatusBusy)
		}

		reply, err := e.dispatchRequest(cb, req)

		if bracket {
			_ = cb.SendKernelStatus(message.KernelStatusIdle)
		}

		if err != nil {
			return err
		}
		if reply == nil {
			e.Log.Warn("%s: handler returned no reply for %s", name, req.Tag())
			continue
		}

		if execReq, ok := req.(message.ExecuteRequest); ok && execReq.Options.Silent {
			continue
		}

		if err := e.sendReply(sock, decoded.Identities, decoded.Header, reply); err != nil {
			return err
		}
	}
}

// dispatchRequest invokes the request handler, converting a panic into
// a HandlerError that tears the worker down.
func (e *Engine) dispatchRequest(cb Callbacks, req message.ClientRequest) (reply message.KernelReply, err error) {
	defer func() {
		if r := recover(); r != nil {
			reply, err = nil, errors.WithStack(&HandlerError{Value: r})
		}
	}()
	return e.OnRequest(cb, req), nil
}

func (e *Engine) dispatchComm(cb Callbacks, comm message.Comm) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WithStack(&HandlerError{Value: r})
		}
	}()
	e.OnComm(cb, comm)
	return nil
}

func (e *Engine) sendReply(sock zmq4.Socket, identities [][]byte, parent message.Header, reply message.KernelReply) error {
	header := message.MakeReplyHeader(parent, reply)
	raw, err := wire.Encode(identities, header, parent, nil, reply, e.Profile.SignatureScheme, e.Profile.Key)
	if err != nil {
		return err
	}
	return sock.Send(zmq4.NewMsgFrom(raw...))
}
