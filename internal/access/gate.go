// Package access decides, for a request path and the caller's session, whether a page
// renders, waits for the session, or shows an access-denied fallback.
package access

import (
	"strings"

	"eco/pkg/types"
)

type Reason string

const (
	ReasonUnauthenticated     Reason = "unauthenticated"
	ReasonMissingNeighborhood Reason = "missing_neighborhood"
	ReasonForbiddenRole       Reason = "forbidden_role"
)

type Outcome string

const (
	OutcomeRender  Outcome = "render"
	OutcomeLoading Outcome = "loading"
	OutcomeDeny    Outcome = "deny"
)

var (
	operatorPrefixes  = []string{"/operador", "/admin"}
	cooperadoPrefixes = []string{"/cooperado"}

	protectedExact = map[string]bool{
		"/pedir-coleta": true,
		"/pedidos":      true,
		"/notificacoes": true,
		"/recorrencia":  true,
	}

	publicPrefixes = []string{
		"/entrar",
		"/sair",
		"/mural",
		"/transparencia",
		"/recibo",
		"/pontos",
		"/aprender",
		"/piloto",
		"/comecar",
		"/começar",
		"/static",
		"/robots.txt",
	}
)

// Requirement is what a path demands from the caller. The zero value demands nothing.
type Requirement struct {
	RequiresAuth         bool
	RequiresNeighborhood bool
	// Roles is empty when any authenticated role is accepted.
	Roles []types.Role
}

type Decision struct {
	Outcome     Outcome
	Reason      Reason
	Requirement Requirement
}

func (d Decision) Allowed() bool {
	return d.Outcome == OutcomeRender
}

// CallToAction returns the label and target of the link shown with a denial.
func (d Decision) CallToAction() (label, href string) {
	switch d.Reason {
	case ReasonUnauthenticated:
		return "Entrar", "/entrar"
	case ReasonMissingNeighborhood:
		return "Completar perfil", "/começar/bairro"
	case ReasonForbiddenRole:
		return "Voltar ao perfil", "/perfil"
	}
	return "", ""
}

func (d Decision) Message() string {
	switch d.Reason {
	case ReasonUnauthenticated:
		return "Entre na sua conta para acessar esta página."
	case ReasonMissingNeighborhood:
		return "Complete seu perfil escolhendo seu bairro para continuar."
	case ReasonForbiddenRole:
		return "Seu perfil não tem permissão para acessar esta página."
	}
	return ""
}

// GetAuthRequirement classifies path. Rules are evaluated in order: operator prefixes,
// cooperado prefixes, protected exact paths, public prefixes, then public by default.
func GetAuthRequirement(path string) Requirement {
	path = normalize(path)

	if hasAnyPrefix(path, operatorPrefixes) {
		return Requirement{RequiresAuth: true, RequiresNeighborhood: true, Roles: []types.Role{types.RoleOperator}}
	}

	if hasAnyPrefix(path, cooperadoPrefixes) {
		return Requirement{RequiresAuth: true, RequiresNeighborhood: true, Roles: []types.Role{types.RoleCooperado, types.RoleOperator}}
	}

	if protectedExact[path] {
		return Requirement{RequiresAuth: true, RequiresNeighborhood: true}
	}

	if hasAnyPrefix(path, publicPrefixes) {
		return Requirement{}
	}

	return Requirement{}
}

// Decide is a pure function of its inputs. loading wins over any allow or deny outcome
// whenever the path carries a requirement.
func Decide(path string, user *types.User, profile *types.Profile, loading bool) Decision {
	req := GetAuthRequirement(path)
	if !req.RequiresAuth {
		return Decision{Outcome: OutcomeRender, Requirement: req}
	}

	if loading {
		return Decision{Outcome: OutcomeLoading, Requirement: req}
	}

	if user == nil || user.ID == "" {
		return deny(req, ReasonUnauthenticated)
	}

	if req.RequiresNeighborhood && !profile.HasNeighborhood() {
		return deny(req, ReasonMissingNeighborhood)
	}

	if len(req.Roles) > 0 && (profile == nil || !roleIn(profile.Role, req.Roles)) {
		return deny(req, ReasonForbiddenRole)
	}

	return Decision{Outcome: OutcomeRender, Requirement: req}
}

func deny(req Requirement, reason Reason) Decision {
	return Decision{Outcome: OutcomeDeny, Reason: reason, Requirement: req}
}

func roleIn(role types.Role, roles []types.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// hasAnyPrefix matches whole path segments, so "/operadores" is not under "/operador".
func hasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}

func normalize(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
