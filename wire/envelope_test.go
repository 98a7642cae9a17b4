package wire_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nb-kernel/jupyter/id"
	"github.com/nb-kernel/jupyter/message"
	"github.com/nb-kernel/jupyter/wire"
)

var _ = Describe("Envelope", func() {
	It("round trips a signed message end to end", func() {
		session := id.New()
		req := message.ExecuteRequest{Code: "1+1", Options: message.ExecuteOptions{StoreHistory: true}}
		header := message.MakeRequestHeader(session, "", req)

		raw, err := wire.Encode(nil, header, message.Header{}, nil, req, wire.SignatureSchemeHMACSHA256, []byte("secret"))
		Expect(err).NotTo(HaveOccurred())

		decoded, err := wire.Decode(raw, wire.SignatureSchemeHMACSHA256, []byte("secret"))
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Header.MsgType).To(Equal(message.TagExecuteRequest))
		Expect(decoded.Header.Session).To(Equal(session))
		Expect(decoded.ParentHeader.MessageID.IsNil()).To(BeTrue())

		got, err := message.DecodeClientRequest(decoded.Header.MsgType, decoded.Content)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(req))
	})

	It("refuses to decode when the content was tampered with under an unchanged signature", func() {
		req := message.KernelInfoRequest{}
		header := message.MakeRequestHeader(id.New(), "", req)

		raw, err := wire.Encode(nil, header, message.Header{}, nil, req, wire.SignatureSchemeHMACSHA256, []byte("secret"))
		Expect(err).NotTo(HaveOccurred())

		raw[len(raw)-1] = []byte(`{"tampered":true}`)

		_, err = wire.Decode(raw, wire.SignatureSchemeHMACSHA256, []byte("secret"))
		Expect(err).To(MatchError(wire.ErrBadSignature))
	})

	It("carries reply identities for ROUTER routing", func() {
		req := message.KernelInfoRequest{}
		header := message.MakeRequestHeader(id.New(), "", req)
		raw, err := wire.Encode([][]byte{[]byte("peer-1")}, header, message.Header{}, nil, req, "", nil)
		Expect(err).NotTo(HaveOccurred())

		decoded, err := wire.Decode(raw, "", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Identities).To(Equal([][]byte{[]byte("peer-1")}))
	})
})
