package id

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Generator", func() {
	AfterEach(func() {
		UseSequential()
	})

	It("should generate increasing IDs", func() {
		UseSequential()

		Expect(Generate()).To(Equal("1"))
		Expect(Generate()).To(Equal("2"))
	})

	It("should generate unique IDs", func() {
		UseGlobal()

		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			id := Generate()
			Expect(seen).NotTo(HaveKey(id))
			seen[id] = true
		}
	})

	It("should generate session IDs independently of the generator", func() {
		UseSequential()

		Expect(NewSessionID()).To(HaveLen(20))
		Expect(Generate()).To(Equal("1"))
	})
})
