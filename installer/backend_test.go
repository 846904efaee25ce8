package installer

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Package backends", func() {
	Context("Backend selection", func() {
		It("Should pick apt for Debian-family hosts", func() {
			b, err := backendFor(Environment{Arch: "x86_64", OSID: "ubuntu"})
			Expect(err).ShouldNot(HaveOccurred())
			Expect(b).To(BeAssignableToTypeOf(&aptBackend{}))
		})

		It("Should pick yum for RPM-family hosts", func() {
			for _, id := range []string{"centos", "rhel", "fedora", "amzn"} {
				b, err := backendFor(Environment{Arch: "x86_64", OSID: id})
				Expect(err).ShouldNot(HaveOccurred(), "os %s", id)
				Expect(b).To(BeAssignableToTypeOf(&yumBackend{}), "os %s", id)
			}
		})

		It("Should refuse unknown families with manual-install guidance", func() {
			_, err := backendFor(Environment{Arch: "x86_64", OSID: "arch"})
			Expect(err).Should(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("manually"))
		})
	})

	Context("apt", func() {
		var b *aptBackend

		BeforeEach(func() {
			b = &aptBackend{}
		})

		It("Should render index refresh and install commands", func() {
			Expect(b.RefreshIndex().Cmd).To(Equal("sudo apt-get update -q"))
			Expect(b.InstallPackage("jq").Cmd).To(Equal("sudo apt-get install -y jq"))
		})

		It("Should register a keyring-backed repository", func() {
			steps := b.AddRepository(RepositorySpec{
				Name:           "vendor",
				KeyURL:         "https://example.com/gpg",
				KeyringPath:    "/usr/share/keyrings/vendor.gpg",
				SourceEntry:    "deb [signed-by=/usr/share/keyrings/vendor.gpg] https://example.com/apt stable main",
				SourceListPath: "/etc/apt/sources.list.d/vendor.list",
			})
			Expect(steps).To(HaveLen(2))
			Expect(steps[0].Cmd).To(Equal(
				"curl -fsSL https://example.com/gpg | sudo gpg --dearmor -o /usr/share/keyrings/vendor.gpg"))
			Expect(steps[1].Cmd).To(ContainSubstring("sudo tee /etc/apt/sources.list.d/vendor.list"))
		})
	})

	Context("yum", func() {
		var b *yumBackend

		BeforeEach(func() {
			b = &yumBackend{}
		})

		It("Should render cache refresh and install commands", func() {
			Expect(b.RefreshIndex().Cmd).To(Equal("sudo yum makecache -q"))
			Expect(b.InstallPackage("jq").Cmd).To(Equal("sudo yum install -y jq"))
		})

		It("Should register a repo definition through yum-config-manager", func() {
			steps := b.AddRepository(RepositorySpec{
				Name:    "vendor",
				RepoURL: "https://example.com/vendor.repo",
			})
			Expect(steps).To(HaveLen(2))
			Expect(steps[0].Cmd).To(Equal("sudo yum install -y yum-utils"))
			Expect(steps[1].Cmd).To(Equal("sudo yum-config-manager --add-repo https://example.com/vendor.repo"))
		})
	})
})
