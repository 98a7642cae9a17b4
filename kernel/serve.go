package kernel

import (
	"context"

	"github.com/nb-kernel/jupyter/id"
	"github.com/nb-kernel/jupyter/internal/logging"
	"github.com/nb-kernel/jupyter/transport"
)

// Serve binds the five kernel sockets against profile (allocating
// dynamic ports where a port is 0), runs the dispatch engine until it
// fails or ctx is cancelled, and closes the sockets on every exit path.
//
// onReady is invoked once with the effective profile, after the sockets
// are bound but before any message is handled. This is where a kernel
// writes its connection file so frontends can find the allocated ports.
// A nil onReady is allowed; an error from onReady is returned without
// starting the engine.
func Serve(ctx context.Context, profile transport.Profile, onRequest RequestHandler, onComm CommHandler, log logging.Logger, onReady func(effective transport.Profile) error) error {
	sockets, effective, err := transport.BindKernelSockets(ctx, profile)
	if err != nil {
		return err
	}
	defer sockets.Close()

	if onReady != nil {
		if err := onReady(effective); err != nil {
			return err
		}
	}

	engine := New(effective, sockets, id.New(), onRequest, onComm, log)
	engine.Start(ctx)
	return engine.Wait()
}

// ServeConnectionFile is Serve with the connection file handled for the
// caller: the effective profile is written to path before any message
// is handled.
func ServeConnectionFile(ctx context.Context, profile transport.Profile, path string, onRequest RequestHandler, onComm CommHandler, log logging.Logger) error {
	return Serve(ctx, profile, onRequest, onComm, log, func(effective transport.Profile) error {
		return effective.Save(path)
	})
}
