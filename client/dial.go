package client

import (
	"context"

	"github.com/nb-kernel/jupyter/id"
	"github.com/nb-kernel/jupyter/internal/logging"
	"github.com/nb-kernel/jupyter/transport"
)

// Dial connects the five client sockets against profile, announcing a
// fresh session ID as the dealer identity, and starts the iopub and
// stdin listeners. Callers drive the kernel through the returned
// engine's SendClientRequest/SendClientComm and should Close it when
// done.
func Dial(ctx context.Context, profile transport.Profile, username string, handlers Handlers, log logging.Logger) (*Engine, error) {
	session := id.New()

	sockets, err := transport.DialClientSockets(ctx, profile, session.String())
	if err != nil {
		return nil, err
	}

	engine := New(profile, sockets, session, username, handlers, log)
	engine.Start(ctx)
	return engine, nil
}

// DialConnectionFile reads a kernel's connection file at path and
// dials it.
func DialConnectionFile(ctx context.Context, path, username string, handlers Handlers, log logging.Logger) (*Engine, error) {
	profile, err := transport.Load(path)
	if err != nil {
		return nil, err
	}
	return Dial(ctx, profile, username, handlers, log)
}
