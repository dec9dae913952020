package client_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/studybuddy/pkg/client"
)

var _ = Describe("Personas", func() {
	It("lists the six tutor personas", func() {
		Expect(client.Personas()).To(HaveLen(6))
		Expect(client.PersonaName("star_wars")).To(Equal("Yoda / Star Wars"))
		Expect(client.PersonaName("unknown")).To(Equal("unknown"))
	})

	It("forces the general persona when there is no document", func() {
		Expect(client.EffectivePersona("", "socratic")).To(Equal(client.PersonaGeneral))
		Expect(client.EffectivePersona("d1", "")).To(Equal(client.PersonaDefault))
		Expect(client.EffectivePersona("d1", "socratic")).To(Equal("socratic"))
	})
})
