package client_test

import (
	"context"
	"time"

	"github.com/go-zeromq/zmq4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nb-kernel/jupyter/client"
	"github.com/nb-kernel/jupyter/id"
	"github.com/nb-kernel/jupyter/kernel"
	"github.com/nb-kernel/jupyter/message"
	"github.com/nb-kernel/jupyter/transport"
	"github.com/nb-kernel/jupyter/wire"
)

var _ = Describe("Engine", func() {
	It("completes a connect round trip against the negotiated profile (S2)", func() {
		ctx := context.Background()
		profile := transport.Profile{Transport: "tcp", IP: "127.0.0.1"}

		kernelSockets, effective, err := transport.BindKernelSockets(ctx, profile)
		Expect(err).NotTo(HaveOccurred())
		defer kernelSockets.Close()

		go func() {
			zmsg, err := kernelSockets.Shell.Recv()
			if err != nil {
				return
			}
			decoded, err := wire.Decode(zmsg.Frames, "", nil)
			if err != nil {
				return
			}
			reply := message.ConnectReply{Info: message.ConnectInfo{
				ShellPort: effective.ShellPort, IOPubPort: effective.IOPubPort,
				StdinPort: effective.StdinPort, HBPort: effective.HBPort,
			}}
			header := message.MakeReplyHeader(decoded.Header, reply)
			raw, err := wire.Encode(decoded.Identities, header, decoded.Header, nil, reply, "", nil)
			if err != nil {
				return
			}
			_ = kernelSockets.Shell.Send(zmq4.NewMsgFrom(raw...))
		}()

		session := id.New()
		clientSockets, err := transport.DialClientSockets(ctx, effective, session.String())
		Expect(err).NotTo(HaveOccurred())
		defer clientSockets.Close()

		engine := client.New(effective, clientSockets, session, "tester", client.Handlers{
			OnKernelRequest: func(client.SendReplyComm, message.KernelRequest) message.ClientReply { return nil },
			OnComm:          func(client.SendReplyComm, message.Comm) {},
			OnKernelOutput:  func(client.SendReplyComm, message.KernelOutput) {},
		}, nil)

		reply, err := engine.SendClientRequest(message.ConnectRequest{})
		Expect(err).NotTo(HaveOccurred())

		connectReply, ok := reply.(message.ConnectReply)
		Expect(ok).To(BeTrue())
		Expect(connectReply.Info.ShellPort).To(Equal(effective.ShellPort))
		Expect(connectReply.Info.IOPubPort).To(Equal(effective.IOPubPort))
		Expect(connectReply.Info.StdinPort).To(Equal(effective.StdinPort))
		Expect(connectReply.Info.HBPort).To(Equal(effective.HBPort))
	})

	It("drives a served kernel end to end, including the stdin round trip", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		onRequest := func(cb kernel.Callbacks, req message.ClientRequest) message.KernelReply {
			switch req.(type) {
			case message.ExecuteRequest:
				reply, err := cb.SendKernelRequest(message.InputRequest{
					Options: message.InputOptions{Prompt: "color? "},
				})
				if err != nil {
					return message.ExecuteReply{Result: message.ErrResult[message.ExecuteReplyOk](message.ErrorInfo{
						ErrName: "InputError", ErrValue: err.Error(),
					})}
				}
				_ = cb.SendKernelOutput(message.StreamOutput{
					Name: message.StreamStdout,
					Text: reply.(message.InputReply).Text,
				})
				return message.ExecuteReply{Result: message.OK(message.ExecuteReplyOk{ExecutionCount: 1})}
			default:
				return message.KernelInfoReply{ProtocolVersion: "5.3", Implementation: "go-jupyter"}
			}
		}

		ready := make(chan transport.Profile, 1)
		served := make(chan error, 1)
		go func() {
			served <- kernel.Serve(ctx, transport.Profile{Transport: "tcp", IP: "127.0.0.1"}, onRequest, nil, nil,
				func(effective transport.Profile) error {
					ready <- effective
					return nil
				})
		}()

		var effective transport.Profile
		Eventually(ready).Should(Receive(&effective))

		streams := make(chan string, 4)
		engine, err := client.Dial(ctx, effective, "tester", client.Handlers{
			OnKernelRequest: func(_ client.SendReplyComm, req message.KernelRequest) message.ClientReply {
				return message.InputReply{Text: "blue"}
			},
			OnKernelOutput: func(_ client.SendReplyComm, out message.KernelOutput) {
				if s, ok := out.(message.StreamOutput); ok {
					streams <- s.Text
				}
			},
		}, nil)
		Expect(err).NotTo(HaveOccurred())
		defer engine.Close()

		// Give the pub side a moment to register the iopub
		// subscription before outputs start flowing.
		time.Sleep(50 * time.Millisecond)

		reply, err := engine.SendClientRequest(message.ExecuteRequest{
			Code: "input()", Options: message.ExecuteOptions{AllowStdin: true},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.(message.ExecuteReply).Result.Status).To(Equal(message.StatusOK))

		Eventually(streams).Should(Receive(Equal("blue")))

		cancel()
		Eventually(served).Should(Receive())
	})
})
