package kernel

import (
	"github.com/go-zeromq/zmq4"

	"github.com/nb-kernel/jupyter/message"
	"github.com/nb-kernel/jupyter/wire"
)

// callbacks implements Callbacks, bound to the header and routing
// identities of whichever inbound message is currently being handled.
type callbacks struct {
	engine     *Engine
	parent     message.Header
	identities [][]byte
}

func (c *callbacks) SendKernelOutput(output message.KernelOutput) error {
	return c.publish(output)
}

func (c *callbacks) SendComm(comm message.Comm) error {
	return c.publish(comm)
}

// SendKernelStatus is an engine-internal helper publishing the
// busy/idle brackets around ExecuteRequest handling; it is not part of
// the Callbacks interface handlers see.
func (c *callbacks) SendKernelStatus(status message.KernelStatus) error {
	return c.publish(message.KernelStatusOutput{Status: status})
}

// publish emits on iopub under a mutex: the shell and control workers
// run in parallel and the pub socket must not be written from both at
// once.
func (c *callbacks) publish(payload message.Tagged) error {
	header := message.MakeReplyHeader(c.parent, payload)
	raw, err := wire.Encode(nil, header, c.parent, nil, payload, c.engine.Profile.SignatureScheme, c.engine.Profile.Key)
	if err != nil {
		return err
	}

	c.engine.iopubMu.Lock()
	defer c.engine.iopubMu.Unlock()
	return c.engine.Sockets.IOPub.Send(zmq4.NewMsgFrom(raw...))
}

// SendKernelRequest sends an input_request on stdin and blocks for the
// client's reply. The stdin mutex holds the socket for the whole round
// trip so interleaved request/reply pairs from concurrent handlers
// cannot cross. The routing identities are the ones the inbound shell
// message carried; the client announces the same identity on its stdin
// dealer, so the stdin router can deliver on them.
func (c *callbacks) SendKernelRequest(req message.KernelRequest) (message.ClientReply, error) {
	c.engine.stdinMu.Lock()
	defer c.engine.stdinMu.Unlock()

	if c.engine.ctx != nil && c.engine.ctx.Err() != nil {
		return nil, ErrShutdown
	}

	header := message.MakeReplyHeader(c.parent, req)
	raw, err := wire.Encode(c.identities, header, c.parent, nil, req, c.engine.Profile.SignatureScheme, c.engine.Profile.Key)
	if err != nil {
		return nil, err
	}
	if err := c.engine.Sockets.Stdin.Send(zmq4.NewMsgFrom(raw...)); err != nil {
		return nil, err
	}

	zmsg, err := c.recvStdin()
	if err != nil {
		return nil, err
	}

	decoded, err := wire.Decode(zmsg.Frames, c.engine.Profile.SignatureScheme, c.engine.Profile.Key)
	if err != nil {
		return nil, err
	}

	return message.DecodeClientReply(decoded.Header.MsgType, decoded.Content)
}

// recvStdin blocks on the stdin socket but gives up with ErrShutdown
// when the engine is cancelled mid round trip.
func (c *callbacks) recvStdin() (zmq4.Msg, error) {
	type result struct {
		msg zmq4.Msg
		err error
	}

	ch := make(chan result, 1)
	go func() {
		msg, err := c.engine.Sockets.Stdin.Recv()
		ch <- result{msg: msg, err: err}
	}()

	if c.engine.ctx == nil {
		r := <-ch
		return r.msg, r.err
	}

	select {
	case <-c.engine.ctx.Done():
		return zmq4.Msg{}, ErrShutdown
	case r := <-ch:
		return r.msg, r.err
	}
}
