// Package roles defines the closed set of roles recognized by the
// authorization core.
//
// The hierarchy is Master > Inspetor > {Diretor, Secretario} >
// {Coordenador, Pedagogo} > {Professor, Aluno}. It is not a total order:
// Diretor and Secretario are peers, as are Coordenador and Pedagogo.
package roles

import (
	"fmt"

	"github.com/sgescolar/authcore/internal/common"
)

type Role string

const (
	Master      Role = "Master"
	Inspetor    Role = "Inspetor"
	Diretor     Role = "Diretor"
	Secretario  Role = "Secretario"
	Coordenador Role = "Coordenador"
	Pedagogo    Role = "Pedagogo"
	Professor   Role = "Professor"
	Aluno       Role = "Aluno"
)

// All lists every recognized role. Order follows the hierarchy top-down.
var All = []Role{Master, Inspetor, Diretor, Secretario, Coordenador, Pedagogo, Professor, Aluno}

var known = func() map[Role]struct{} {
	m := make(map[Role]struct{}, len(All))
	for _, r := range All {
		m[r] = struct{}{}
	}
	return m
}()

// IsValid reports whether r belongs to the closed role set.
func IsValid(r Role) bool {
	_, ok := known[r]
	return ok
}

// Parse converts an external role string into a Role. Values outside the
// known set are rejected rather than defaulted; the directory service is an
// external system and its role strings are not trusted.
func Parse(s string) (Role, error) {
	r := Role(s)
	if !IsValid(r) {
		return "", fmt.Errorf("%w: unknown role %q", common.ErrValidation, s)
	}
	return r, nil
}

func (r Role) String() string {
	return string(r)
}
