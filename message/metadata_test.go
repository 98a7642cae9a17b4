package message_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nb-kernel/jupyter/message"
)

var _ = Describe("Metadata", func() {
	It("decodes known keys and preserves unrecognized ones in Extra", func() {
		raw := json.RawMessage(`{"deletedCells":["a","b"],"cellId":"cell-1","trusted":true}`)

		var meta message.ExecuteRequestMetadata
		Expect(message.DecodeMetadata(raw, &meta)).To(Succeed())

		Expect(meta.DeletedCells).To(Equal([]string{"a", "b"}))
		Expect(meta.CellID).To(Equal("cell-1"))
		Expect(meta.Extra).To(HaveKeyWithValue("trusted", true))
	})

	It("is a no-op on an empty metadata frame", func() {
		var meta message.ExecuteRequestMetadata
		Expect(message.DecodeMetadata(nil, &meta)).To(Succeed())
		Expect(meta.DeletedCells).To(BeEmpty())
	})

	It("round trips encode back through decode", func() {
		meta := message.ExecuteRequestMetadata{
			CellID: "cell-2",
			Extra:  map[string]interface{}{"trusted": true},
		}
		raw, err := message.EncodeMetadata(meta)
		Expect(err).NotTo(HaveOccurred())

		var decoded map[string]interface{}
		Expect(json.Unmarshal(raw, &decoded)).To(Succeed())
		Expect(decoded).To(HaveKeyWithValue("cellId", "cell-2"))
		Expect(decoded).To(HaveKeyWithValue("trusted", true))
		Expect(decoded).NotTo(HaveKey("Extra"))
	})
})
