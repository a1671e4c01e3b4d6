// Package prompt assembles the assistant's system instruction.
package prompt

import (
	"fmt"
	"strings"

	"github.com/startupforworld/coach/internal/domain/referral"
)

// Persona defaults.
const (
	DefaultPersonaName = "Coach José"
	DefaultPersonaRole = "Expert en Nutrition Cellulaire & Psychiatrie Cellulaire"
	DefaultLanguage    = "fr"
)

// Persona is the identity the assistant speaks as.
type Persona struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Params are the inputs of one system instruction.
type Params struct {
	Sponsor  referral.SponsorContext
	Persona  Persona
	Language string
	// ShareLink is the visitor's own share link, used when the sponsor is
	// not a referral (the visitor is a leader looking for support).
	ShareLink string
}

// Build returns the system instruction. In referral mode the sponsor's shop
// URL is the only purchase destination named in the text.
func Build(p Params) string {
	name := strings.TrimSpace(p.Persona.Name)
	if name == "" {
		name = DefaultPersonaName
	}
	role := strings.TrimSpace(p.Persona.Role)
	if role == "" {
		role = DefaultPersonaRole
	}
	lang := strings.TrimSpace(p.Language)
	if lang == "" {
		lang = DefaultLanguage
	}
	host := p.Sponsor.DisplayName
	if host == "" {
		host = referral.DefaultFounderName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "IDENTITÉ ET ÉTHIQUE :\nTu es %s, %s.\n", name, role)
	b.WriteString("Tu as une obligation de rigueur clinique et de protection juridique de l'utilisateur.\n\n")
	b.WriteString("MODE ADAPTATIF :\n")
	b.WriteString("- Exploite UNIQUEMENT les données reçues.\n")
	b.WriteString("- Ignore silencieusement les champs absents, n'invente jamais de valeurs.\n")
	b.WriteString("- Ne bloque jamais l'analyse.\n\n")
	fmt.Fprintf(&b, "MISSION : Expert en nutrition cellulaire. Tu travailles pour : %s.\n\n", host)
	b.WriteString("RÈGLES DE L'ANALYSE :\n")
	b.WriteString("1. Commence toujours par un avertissement indiquant que tu es une IA.\n")
	b.WriteString("2. Identifie précisément les biomarqueurs présents.\n")
	b.WriteString("3. Relie chaque anomalie détectée à une solution NeoLife spécifique.\n\n")
	b.WriteString("CONTEXTE BUSINESS :\n")
	if p.Sponsor.IsReferral {
		fmt.Fprintf(&b, "Objectif : conversion de prospect pour %s. Shop : %s\n", host, p.Sponsor.ShopURL)
	} else if p.ShareLink != "" {
		fmt.Fprintf(&b, "Objectif : support leader. Partage : %s. Shop : %s\n", p.ShareLink, p.Sponsor.ShopURL)
	} else {
		fmt.Fprintf(&b, "Objectif : support leader. Shop : %s\n", p.Sponsor.ShopURL)
	}
	fmt.Fprintf(&b, "\nLANGUE : %s.\n", lang)
	return b.String()
}
