package theme_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/studybuddy/pkg/authstore"
	"github.com/papercomputeco/studybuddy/pkg/theme"
)

type fakeUpdater struct {
	got []string
	err error
}

func (f *fakeUpdater) UpdateTheme(_ context.Context, t string) error {
	f.got = append(f.got, t)
	return f.err
}

var _ = Describe("Parse", func() {
	It("accepts the three preferences", func() {
		for _, s := range []string{"light", "dark", "system"} {
			p, err := theme.Parse(s)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(p)).To(Equal(s))
		}
	})

	It("rejects anything else", func() {
		_, err := theme.Parse("sepia")
		Expect(err).To(MatchError(ContainSubstring("invalid theme")))
	})
})

var _ = Describe("Effective", func() {
	It("follows the terminal background for system", func() {
		restore := theme.SetDarkBackground(false)
		Expect(theme.Effective(theme.System)).To(Equal(theme.Light))
		Expect(theme.GlamourStyle(theme.System)).To(Equal("light"))
		restore()

		restore = theme.SetDarkBackground(true)
		defer restore()
		Expect(theme.Effective(theme.System)).To(Equal(theme.Dark))
		Expect(theme.GlamourStyle(theme.System)).To(Equal("dark"))
	})

	It("passes explicit choices through", func() {
		Expect(theme.Effective(theme.Light)).To(Equal(theme.Light))
		Expect(theme.Effective(theme.Dark)).To(Equal(theme.Dark))
		Expect(theme.Effective("")).To(Equal(theme.Dark))
	})
})

var _ = Describe("Manager", func() {
	var (
		auth   *authstore.Manager
		remote *fakeUpdater
		saved  []theme.Preference
		mgr    *theme.Manager
	)

	BeforeEach(func() {
		var err error
		auth, err = authstore.NewManager(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())
		remote = &fakeUpdater{}
		saved = nil
		mgr = theme.NewManager(auth, remote, func(p theme.Preference) error {
			saved = append(saved, p)
			return nil
		}, nil)
	})

	It("saves locally only when signed out", func() {
		Expect(mgr.Apply(context.Background(), theme.Dark)).To(Succeed())

		Expect(saved).To(Equal([]theme.Preference{theme.Dark}))
		Expect(remote.got).To(BeEmpty())
		Expect(mgr.Current(theme.Light)).To(Equal(theme.Light))
	})

	It("updates the stored user and the backend when signed in", func() {
		Expect(auth.SetToken("jwt", &authstore.User{Email: "a@b.c", ThemePreference: "light"})).To(Succeed())

		Expect(mgr.Apply(context.Background(), theme.System)).To(Succeed())

		Expect(remote.got).To(Equal([]string{"system"}))
		Expect(auth.Current().User.ThemePreference).To(Equal("system"))
		Expect(mgr.Current(theme.Dark)).To(Equal(theme.System))
	})

	It("keeps the change when the backend fails", func() {
		Expect(auth.SetToken("jwt", &authstore.User{})).To(Succeed())
		remote.err = errors.New("503")

		Expect(mgr.Apply(context.Background(), theme.Light)).To(Succeed())
		Expect(auth.Current().User.ThemePreference).To(Equal("light"))
	})

	It("rejects invalid preferences before saving anything", func() {
		Expect(mgr.Apply(context.Background(), "sepia")).To(HaveOccurred())
		Expect(saved).To(BeEmpty())
	})

	It("defaults to system", func() {
		Expect(mgr.Current("")).To(Equal(theme.System))
	})
})
