package target_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/health-validator/internal/target"
)

var _ = Describe("Registry", func() {
	Describe("NewRegistry", func() {
		It("should keep targets in registration order", func() {
			reg, err := target.NewRegistry([]target.Target{
				{Name: "python", URL: "http://metrics:8000/health"},
				{Name: "go", URL: "http://load:8002/health"},
				{Name: "java", URL: "https://rules:8080/health"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(reg.Len()).To(Equal(3))
			Expect(reg.Names()).To(Equal([]string{"python", "go", "java"}))
		})

		It("should accept an empty target list", func() {
			reg, err := target.NewRegistry(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(reg.Len()).To(BeZero())
			Expect(reg.Targets()).To(BeEmpty())
		})

		It("should reject an empty URL", func() {
			reg, err := target.NewRegistry([]target.Target{{Name: "python"}})
			Expect(err).To(MatchError(target.ErrEmptyURL))
			Expect(reg).To(BeNil())
		})

		It("should reject an empty name", func() {
			_, err := target.NewRegistry([]target.Target{{URL: "http://metrics:8000/health"}})
			Expect(err).To(MatchError(target.ErrEmptyName))
		})

		It("should reject duplicate names", func() {
			_, err := target.NewRegistry([]target.Target{
				{Name: "go", URL: "http://load:8002/health"},
				{Name: "go", URL: "http://load:8003/health"},
			})
			Expect(err).To(MatchError(target.ErrDuplicateName))
		})

		DescribeTable("should reject URLs that cannot be probed",
			func(raw string) {
				_, err := target.NewRegistry([]target.Target{{Name: "x", URL: raw}})
				Expect(err).To(MatchError(target.ErrInvalidURL))
			},
			Entry("missing scheme", "metrics:8000/health"),
			Entry("unsupported scheme", "ftp://metrics/health"),
			Entry("missing host", "http:///health"),
			Entry("unparseable", "://invalid"),
		)
	})

	Describe("Targets", func() {
		It("should return a copy that callers cannot mutate", func() {
			reg, err := target.NewRegistry([]target.Target{{Name: "go", URL: "http://load:8002/health"}})
			Expect(err).NotTo(HaveOccurred())

			list := reg.Targets()
			list[0].Name = "changed"

			Expect(reg.Names()).To(Equal([]string{"go"}))
		})
	})
})
