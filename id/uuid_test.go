package id_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nb-kernel/jupyter/id"
)

var _ = Describe("UUID", func() {
	It("generates 32 lowercase hex characters with no dashes", func() {
		u := id.New()
		Expect(u.String()).To(HaveLen(32))
		Expect(u.String()).To(MatchRegexp(`^[0-9a-f]{32}$`))
	})

	It("generates distinct values", func() {
		Expect(id.New()).NotTo(Equal(id.New()))
	})

	It("parses its own output", func() {
		u := id.New()
		parsed, err := id.Parse(u.String())
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed).To(Equal(u))
	})

	It("rejects the dashed RFC-4122 form", func() {
		_, err := id.Parse("123e4567-e89b-12d3-a456-426614174000")
		Expect(err).To(HaveOccurred())
	})

	It("rejects uppercase hex", func() {
		_, err := id.Parse("123E4567E89B12D3A456426614174000")
		Expect(err).To(HaveOccurred())
	})

	It("rejects short and long strings", func() {
		_, err := id.Parse("abc")
		Expect(err).To(HaveOccurred())
		_, err = id.Parse("123e4567e89b12d3a4564266141740001")
		Expect(err).To(HaveOccurred())
	})

	It("treats the empty UUID as nil", func() {
		Expect(id.Nil.IsNil()).To(BeTrue())
		Expect(id.New().IsNil()).To(BeFalse())
	})
})
