package installer

import (
	"github.com/pkg/errors"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func renderCmds(steps []Step) []string {
	cmds := make([]string, 0, len(steps))
	for _, s := range steps {
		cmds = append(cmds, s.Cmd)
	}
	return cmds
}

var _ = Describe("Tool installers", func() {
	var (
		cfg    *Config
		ubuntu Environment
		centos Environment
		amazon Environment
	)

	BeforeEach(func() {
		cfg = (&Config{DownloadDir: "/tmp", BinDir: "/usr/local/bin"}).withDefaults()
		ubuntu = Environment{Arch: "x86_64", OSID: "ubuntu"}
		centos = Environment{Arch: "x86_64", OSID: "centos"}
		amazon = Environment{Arch: "aarch64", OSID: "amzn"}
	})

	Context("aws cli", func() {
		It("Should download the archive matching the raw machine architecture", func() {
			a := &awsCliInstaller{cfg: cfg}
			steps, err := a.Steps(amazon)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(renderCmds(steps)[0]).To(ContainSubstring("awscli-exe-linux-aarch64.zip"))
		})

		It("Should clean up the archive and extracted tree", func() {
			a := &awsCliInstaller{cfg: cfg}
			cleanup := a.CleanupSteps(ubuntu)
			Expect(cleanup).To(HaveLen(1))
			Expect(cleanup[0].Cmd).To(ContainSubstring("rm -rf '/tmp/aws' '/tmp/awscliv2.zip'"))
		})
	})

	Context("eksctl", func() {
		It("Should derive the platform from the kernel name with the fixed amd64 suffix", func() {
			e := &eksctlInstaller{cfg: cfg}
			steps, err := e.Steps(ubuntu)
			Expect(err).ShouldNot(HaveOccurred())
			cmds := renderCmds(steps)
			Expect(cmds[0]).To(ContainSubstring(`eksctl_$(uname -s)_amd64.tar.gz`))
			Expect(cmds[len(cmds)-1]).To(ContainSubstring("/usr/local/bin/eksctl"))
		})
	})

	Context("kubectl", func() {
		It("Should map x86_64 to the amd64 binary", func() {
			k := &kubectlInstaller{cfg: cfg}
			steps, err := k.Steps(ubuntu)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(renderCmds(steps)[0]).To(ContainSubstring("/bin/linux/amd64/kubectl"))
		})

		It("Should map aarch64 to the arm64 binary", func() {
			k := &kubectlInstaller{cfg: cfg}
			steps, err := k.Steps(amazon)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(renderCmds(steps)[0]).To(ContainSubstring("/bin/linux/arm64/kubectl"))
		})

		It("Should reject any other architecture on its own", func() {
			k := &kubectlInstaller{cfg: cfg}
			_, err := k.Steps(Environment{Arch: "mips", OSID: "ubuntu"})
			Expect(err).Should(HaveOccurred())
			Expect(errors.Is(err, ErrArchNotSupported)).To(BeTrue())
		})

		It("Should resolve the stable marker at install time by default", func() {
			k := &kubectlInstaller{cfg: cfg}
			steps, err := k.Steps(ubuntu)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(renderCmds(steps)[0]).To(ContainSubstring("$(curl -L -s https://dl.k8s.io/release/stable.txt)"))
		})

		It("Should honor a pinned version", func() {
			cfg.KubectlVersion = "v1.27.3"
			k := &kubectlInstaller{cfg: cfg}
			steps, err := k.Steps(ubuntu)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(renderCmds(steps)[0]).To(ContainSubstring("release/v1.27.3/bin"))
			Expect(renderCmds(steps)[0]).NotTo(ContainSubstring("stable.txt"))
		})

		It("Should install with root ownership and 0755", func() {
			k := &kubectlInstaller{cfg: cfg}
			steps, err := k.Steps(ubuntu)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(renderCmds(steps)[1]).To(ContainSubstring("install -o root -g root -m 0755"))
		})
	})

	Context("terraform", func() {
		It("Should register the apt keyring and source on Debian-family hosts", func() {
			t := &terraformInstaller{}
			steps, err := t.Steps(ubuntu)
			Expect(err).ShouldNot(HaveOccurred())
			cmds := renderCmds(steps)
			Expect(cmds).To(HaveLen(4))
			Expect(cmds[0]).To(ContainSubstring("apt.releases.hashicorp.com/gpg"))
			Expect(cmds[0]).To(ContainSubstring("gpg --dearmor"))
			Expect(cmds[1]).To(ContainSubstring("signed-by=/usr/share/keyrings/hashicorp-archive-keyring.gpg"))
			Expect(cmds[2]).To(Equal("sudo apt-get update -q"))
			Expect(cmds[3]).To(Equal("sudo apt-get install -y terraform"))
		})

		It("Should use the RHEL repo definition on centos and rhel", func() {
			t := &terraformInstaller{}
			steps, err := t.Steps(centos)
			Expect(err).ShouldNot(HaveOccurred())
			cmds := renderCmds(steps)
			Expect(cmds).To(HaveLen(3))
			Expect(cmds[0]).To(Equal("sudo yum install -y yum-utils"))
			Expect(cmds[1]).To(ContainSubstring("rpm.releases.hashicorp.com/RHEL/hashicorp.repo"))
			Expect(cmds[2]).To(Equal("sudo yum install -y terraform"))
		})

		It("Should use the AmazonLinux repo definition on amzn", func() {
			t := &terraformInstaller{}
			steps, err := t.Steps(amazon)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(renderCmds(steps)[1]).To(ContainSubstring("AmazonLinux/hashicorp.repo"))
		})

		It("Should offer manual-install advice on failure", func() {
			t := &terraformInstaller{}
			Expect(t.AdviseOnFailure()).To(ContainSubstring("manually"))
		})
	})

	Context("jq", func() {
		It("Should refresh the index before installing on Debian-family hosts", func() {
			j := &jqInstaller{}
			steps, err := j.Steps(ubuntu)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(renderCmds(steps)).To(Equal([]string{
				"sudo apt-get update -q",
				"sudo apt-get install -y jq",
			}))
		})

		It("Should install directly on RPM-family hosts", func() {
			j := &jqInstaller{}
			steps, err := j.Steps(centos)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(renderCmds(steps)).To(Equal([]string{"sudo yum install -y jq"}))
		})

		It("Should fail with manual-install guidance off the supported families", func() {
			j := &jqInstaller{}
			_, err := j.Steps(Environment{Arch: "x86_64", OSID: "gentoo"})
			Expect(err).Should(HaveOccurred())
			Expect(errors.Is(err, ErrOsNotSupported)).To(BeTrue())
		})
	})
})
