package message_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nb-kernel/jupyter/message"
)

var _ = Describe("KernelOutput", func() {
	DescribeTable("round trips through JSON", func(out message.KernelOutput) {
		encoded, err := json.Marshal(out)
		Expect(err).NotTo(HaveOccurred())

		decoded, err := message.DecodeKernelOutput(out.Tag(), encoded)
		Expect(err).NotTo(HaveOccurred())

		reencoded, err := json.Marshal(decoded)
		Expect(err).NotTo(HaveOccurred())
		Expect(reencoded).To(MatchJSON(encoded))
	},
		Entry("stream", message.StreamOutput{Name: message.StreamStdout, Text: "hello\n"}),
		Entry("execute_input", message.ExecuteInputOutput{Code: "1+1", Count: 4}),
		Entry("status busy", message.KernelStatusOutput{Status: message.KernelStatusBusy}),
		Entry("status idle", message.KernelStatusOutput{Status: message.KernelStatusIdle}),
		Entry("clear_output", message.ClearOutput{Wait: true}),
		Entry("error", message.ExecuteErrorOutput{Err: message.ErrorInfo{ErrName: "E", ErrValue: "v", Traceback: []string{"t"}}}),
	)

	It("carries image dimensions under the metadata sibling of a display_data", func() {
		dd := message.NewDisplayData()
		dd.SetImage(message.MimePNG, "aGk=", message.ImageDimensions{Width: 640, Height: 480})
		out := message.DisplayDataOutput{DisplayData: dd}

		encoded, err := json.Marshal(out)
		Expect(err).NotTo(HaveOccurred())
		Expect(encoded).To(MatchJSON(`{
			"data": {"image/png": "aGk="},
			"metadata": {"image/png": {"width": 640, "height": 480}}
		}`))

		decoded, err := message.DecodeKernelOutput(message.TagDisplayData, encoded)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.(message.DisplayDataOutput).DisplayData.ImageMeta).To(
			HaveKeyWithValue(message.MimePNG, message.ImageDimensions{Width: 640, Height: 480}))
	})

	It("encodes an execute_result's display data as data/metadata siblings", func() {
		dd := message.NewDisplayData()
		dd.Set(message.MimeTextPlain, "2")
		out := message.ExecuteResultOutput{Count: 1, DisplayData: dd}

		encoded, err := json.Marshal(out)
		Expect(err).NotTo(HaveOccurred())
		Expect(encoded).To(MatchJSON(`{
			"execution_count": 1,
			"data": {"text/plain": "2"},
			"metadata": {}
		}`))
	})
})
