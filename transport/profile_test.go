package transport_test

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nb-kernel/jupyter/transport"
)

var _ = Describe("Profile", func() {
	It("decodes a Jupyter-compatible connection file", func() {
		raw := []byte(`{"transport":"tcp","ip":"127.0.0.1","signature_scheme":"hmac-sha256",
			"key":"2a2a2a2a",
			"shell_port":60001,"iopub_port":60002,"control_port":60003,"stdin_port":60004,
			"hb_port":60005}`)

		p, err := transport.Decode(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Transport).To(Equal("tcp"))
		Expect(p.IP).To(Equal("127.0.0.1"))
		Expect(p.ShellPort).To(Equal(60001))
		Expect(p.IOPubPort).To(Equal(60002))
		Expect(p.ControlPort).To(Equal(60003))
		Expect(p.StdinPort).To(Equal(60004))
		Expect(p.HBPort).To(Equal(60005))
		Expect(p.Key).To(Equal([]byte{0x2a, 0x2a, 0x2a, 0x2a}))
	})

	It("rejects an unsupported signature scheme", func() {
		raw := []byte(`{"signature_scheme":"hmac-md5"}`)
		_, err := transport.Decode(raw)
		Expect(err).To(MatchError(transport.ErrUnsupportedSignatureScheme))
	})

	It("round trips through Save/Load", func() {
		dir := GinkgoT().TempDir()
		path := filepath.Join(dir, "connection.json")

		p := transport.Profile{
			Transport: "tcp", IP: "127.0.0.1", SignatureScheme: "hmac-sha256",
			Key: []byte("abc"), ShellPort: 1, IOPubPort: 2, ControlPort: 3, StdinPort: 4, HBPort: 5,
		}
		Expect(p.Save(path)).To(Succeed())

		loaded, err := transport.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(p))
	})

	It("builds a tcp endpoint string", func() {
		p := transport.Profile{Transport: "tcp", IP: "127.0.0.1"}
		Expect(p.Endpoint(5555)).To(Equal("tcp://127.0.0.1:5555"))
	})

	It("builds an ipc endpoint with the port as a path suffix", func() {
		p := transport.Profile{Transport: "ipc", IP: "/tmp/kernel"}
		Expect(p.Endpoint(7)).To(Equal("ipc:///tmp/kernel-7"))
	})
})
