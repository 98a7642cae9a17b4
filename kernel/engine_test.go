package kernel_test

import (
	"context"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nb-kernel/jupyter/id"
	"github.com/nb-kernel/jupyter/kernel"
	"github.com/nb-kernel/jupyter/message"
	"github.com/nb-kernel/jupyter/transport"
	"github.com/nb-kernel/jupyter/wire"
)

func sendRequest(sock zmq4.Socket, session id.UUID, req message.Tagged) message.Header {
	header := message.MakeRequestHeader(session, "", req)
	raw, err := wire.Encode(nil, header, message.Header{}, nil, req, "", nil)
	Expect(err).NotTo(HaveOccurred())
	Expect(sock.Send(zmq4.NewMsgFrom(raw...))).To(Succeed())
	return header
}

func recvDecoded(sock zmq4.Socket) wire.Decoded {
	zmsg, err := sock.Recv()
	Expect(err).NotTo(HaveOccurred())
	decoded, err := wire.Decode(zmsg.Frames, "", nil)
	Expect(err).NotTo(HaveOccurred())
	return decoded
}

var _ = Describe("Engine", func() {
	var (
		ctx           context.Context
		engine        *kernel.Engine
		kernelSockets transport.KernelSockets
		client        transport.ClientSockets
		session       id.UUID
		commSeen      chan message.Comm
	)

	BeforeEach(func() {
		ctx = context.Background()
		session = id.New()
		commSeen = make(chan message.Comm, 1)

		profile := transport.Profile{Transport: "tcp", IP: "127.0.0.1"}
		sockets, effective, err := transport.BindKernelSockets(ctx, profile)
		Expect(err).NotTo(HaveOccurred())
		kernelSockets = sockets

		onRequest := func(cb kernel.Callbacks, req message.ClientRequest) message.KernelReply {
			switch r := req.(type) {
			case message.KernelInfoRequest:
				return message.KernelInfoReply{ProtocolVersion: "5.3", Implementation: "go-jupyter"}
			case message.ExecuteRequest:
				if r.Code == "input()" {
					reply, err := cb.SendKernelRequest(message.InputRequest{
						Options: message.InputOptions{Prompt: "> "},
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
				} else {
					_ = cb.SendKernelOutput(message.StreamOutput{Name: message.StreamStdout, Text: "x"})
				}
				return message.ExecuteReply{Result: message.OK(message.ExecuteReplyOk{ExecutionCount: 1})}
			case message.ShutdownRequest:
				return message.ShutdownReply{Restart: r.Restart}
			default:
				return message.KernelInfoReply{}
			}
		}

		onComm := func(cb kernel.Callbacks, comm message.Comm) {
			commSeen <- comm
			_ = cb.SendComm(message.CommMessage{ID: comm.CommID(), Data: message.CommData{"ack": true}})
		}

		engine = kernel.New(effective, sockets, session, onRequest, onComm, nil)
		engine.Start(ctx)

		client, err = transport.DialClientSockets(ctx, effective, session.String())
		Expect(err).NotTo(HaveOccurred())

		// Give the pub side a moment to register the iopub
		// subscription, or early status messages are dropped.
		time.Sleep(50 * time.Millisecond)
	})

	AfterEach(func() {
		engine.Shutdown()
		client.Close()
		kernelSockets.Close()
	})

	It("pairs every ClientRequest with exactly one correctly-tagged KernelReply (property 4)", func() {
		sendRequest(client.Shell, session, message.KernelInfoRequest{})
		decoded := recvDecoded(client.Shell)
		Expect(decoded.Header.MsgType).To(Equal(message.TagKernelInfoReply))
	})

	It("answers requests on the control socket the same way as shell", func() {
		sendRequest(client.Control, session, message.ShutdownRequest{Restart: true})
		decoded := recvDecoded(client.Control)
		Expect(decoded.Header.MsgType).To(Equal(message.TagShutdownReply))

		reply, err := message.DecodeKernelReply(decoded.Header.MsgType, decoded.Content)
		Expect(err).NotTo(HaveOccurred())
		Expect(reply.(message.ShutdownReply).Restart).To(Equal(message.Restart(true)))
	})

	It("parents every reply on the inbound header (property 3)", func() {
		reqHeader := sendRequest(client.Shell, session, message.KernelInfoRequest{})
		decoded := recvDecoded(client.Shell)
		Expect(decoded.ParentHeader.MessageID).To(Equal(reqHeader.MessageID))
	})

	It("brackets ExecuteRequest with busy then idle around the handler's output (S5/property 5)", func() {
		var wg sync.WaitGroup
		var statuses []message.KernelStatus
		var streamSeen bool
		wg.Add(1)

		go func() {
			defer wg.Done()
			for i := 0; i < 3; i++ {
				decoded := recvDecoded(client.IOPub)
				switch decoded.Header.MsgType {
				case message.TagStatus:
					out, err := message.DecodeKernelOutput(message.TagStatus, decoded.Content)
					Expect(err).NotTo(HaveOccurred())
					statuses = append(statuses, out.(message.KernelStatusOutput).Status)
				case message.TagStream:
					streamSeen = true
				}
			}
		}()

		sendRequest(client.Shell, session, message.ExecuteRequest{Code: "print('x')"})
		recvDecoded(client.Shell) // the execute_reply

		wg.Wait()
		Expect(statuses).To(Equal([]message.KernelStatus{message.KernelStatusBusy, message.KernelStatusIdle}))
		Expect(streamSeen).To(BeTrue())
	})

	It("does not bracket ShutdownRequest with status messages", func() {
		shutdownHeader := sendRequest(client.Shell, session, message.ShutdownRequest{Restart: false})
		decoded := recvDecoded(client.Shell)
		Expect(decoded.Header.MsgType).To(Equal(message.TagShutdownReply))

		// Any status for the shutdown would have been published before
		// its reply, so the first iopub message must instead belong to
		// the execute_request sent afterwards.
		execHeader := sendRequest(client.Shell, session, message.ExecuteRequest{Code: "x"})
		first := recvDecoded(client.IOPub)
		Expect(first.ParentHeader.MessageID).NotTo(Equal(shutdownHeader.MessageID))
		Expect(first.ParentHeader.MessageID).To(Equal(execHeader.MessageID))
	})

	It("suppresses the reply for a silent ExecuteRequest", func() {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			// busy, stream, idle: the handler still runs and emits
			// output, only the shell reply is suppressed.
			for i := 0; i < 3; i++ {
				recvDecoded(client.IOPub)
			}
		}()

		sendRequest(client.Shell, session, message.ExecuteRequest{
			Code: "x", Options: message.ExecuteOptions{Silent: true},
		})
		wg.Wait()

		// No execute_reply was queued for the silent request: the next
		// thing to arrive on shell is the reply to a request sent
		// afterwards, not a stale execute_reply.
		sendRequest(client.Shell, session, message.KernelInfoRequest{})
		decoded := recvDecoded(client.Shell)
		Expect(decoded.Header.MsgType).To(Equal(message.TagKernelInfoReply))
	})

	It("round trips an input_request over stdin mid-execution", func() {
		var wg sync.WaitGroup
		wg.Add(2)

		// Answer the kernel's input_request like a frontend would.
		go func() {
			defer wg.Done()
			decoded := recvDecoded(client.Stdin)
			Expect(decoded.Header.MsgType).To(Equal(message.TagInputRequest))

			reply := message.InputReply{Text: "42"}
			header := message.MakeReplyHeader(decoded.Header, reply)
			raw, err := wire.Encode(nil, header, decoded.Header, nil, reply, "", nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(client.Stdin.Send(zmq4.NewMsgFrom(raw...))).To(Succeed())
		}()

		var echoed string
		go func() {
			defer wg.Done()
			for i := 0; i < 3; i++ {
				decoded := recvDecoded(client.IOPub)
				if decoded.Header.MsgType == message.TagStream {
					out, err := message.DecodeKernelOutput(message.TagStream, decoded.Content)
					Expect(err).NotTo(HaveOccurred())
					echoed = out.(message.StreamOutput).Text
				}
			}
		}()

		sendRequest(client.Shell, session, message.ExecuteRequest{Code: "input()"})
		decoded := recvDecoded(client.Shell)
		Expect(decoded.Header.MsgType).To(Equal(message.TagExecuteReply))

		wg.Wait()
		Expect(echoed).To(Equal("42"))
	})

	It("dispatches an inbound comm to the comm handler and publishes its reply on iopub", func() {
		commID := id.New()

		iopubDone := make(chan wire.Decoded, 1)
		go func() {
			iopubDone <- recvDecoded(client.IOPub)
		}()

		reqHeader := sendRequest(client.Shell, session, message.CommOpen{
			ID: commID, Target: "my_target", Data: message.CommData{},
		})

		Eventually(commSeen).Should(Receive(WithTransform(message.Comm.CommID, Equal(commID))))

		var published wire.Decoded
		Eventually(iopubDone).Should(Receive(&published))
		Expect(published.Header.MsgType).To(Equal(message.TagCommMsg))
		Expect(published.ParentHeader.MessageID).To(Equal(reqHeader.MessageID))

		echoed, err := message.DecodeComm(published.Header.MsgType, published.Content)
		Expect(err).NotTo(HaveOccurred())
		Expect(echoed.CommID()).To(Equal(commID))
	})

	It("discards a tampered message without producing a reply (S6)", func() {
		keyed := transport.Profile{Transport: "tcp", IP: "127.0.0.1", SignatureScheme: "hmac-sha256", Key: []byte("secret")}
		sockets, effective, err := transport.BindKernelSockets(ctx, keyed)
		Expect(err).NotTo(HaveOccurred())
		defer sockets.Close()

		signedEngine := kernel.New(effective, sockets, session, engine.OnRequest, nil, nil)
		signedEngine.Start(ctx)
		defer signedEngine.Shutdown()

		signedClient, err := transport.DialClientSockets(ctx, effective, session.String())
		Expect(err).NotTo(HaveOccurred())
		defer signedClient.Close()

		// A correctly signed message whose content frame is swapped
		// after signing.
		header := message.MakeRequestHeader(session, "", message.KernelInfoRequest{})
		raw, err := wire.Encode(nil, header, message.Header{}, nil, message.KernelInfoRequest{}, effective.SignatureScheme, effective.Key)
		Expect(err).NotTo(HaveOccurred())
		raw[len(raw)-1] = []byte(`{"tampered":true}`)
		Expect(signedClient.Shell.Send(zmq4.NewMsgFrom(raw...))).To(Succeed())

		// The tampered message is dropped: the next reply on shell
		// answers the well-signed request sent after it.
		header = message.MakeRequestHeader(session, "", message.KernelInfoRequest{})
		raw, err = wire.Encode(nil, header, message.Header{}, nil, message.KernelInfoRequest{}, effective.SignatureScheme, effective.Key)
		Expect(err).NotTo(HaveOccurred())
		Expect(signedClient.Shell.Send(zmq4.NewMsgFrom(raw...))).To(Succeed())

		zmsg, err := signedClient.Shell.Recv()
		Expect(err).NotTo(HaveOccurred())
		decoded, err := wire.Decode(zmsg.Frames, effective.SignatureScheme, effective.Key)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Header.MsgType).To(Equal(message.TagKernelInfoReply))
		Expect(decoded.ParentHeader.MessageID).To(Equal(header.MessageID))
	})
})
