// Package permissions holds the static role matrix governing user-management
// operations. The matrix is data, initialized once at package load; there is
// no runtime mutation path.
package permissions

import (
	"fmt"

	"github.com/sgescolar/authcore/internal/server/roles"
)

// Decision is the outcome of a permission check. Reason is human-readable and
// safe to return to callers; it never carries internal identifiers.
type Decision struct {
	Allowed bool
	Reason  string
}

type roleSet map[roles.Role]struct{}

func set(rs ...roles.Role) roleSet {
	s := make(roleSet, len(rs))
	for _, r := range rs {
		s[r] = struct{}{}
	}
	return s
}

// Per-operation tables: actor role → roles the actor may target.
// Master manages everyone including other Masters; each remaining tier
// manages the tiers strictly below it. Professor may register and correct
// Aluno records but may not delete them.
var (
	createMatrix = map[roles.Role]roleSet{
		roles.Master:      set(roles.All...),
		roles.Inspetor:    set(roles.Diretor, roles.Secretario, roles.Coordenador, roles.Pedagogo, roles.Professor, roles.Aluno),
		roles.Diretor:     set(roles.Coordenador, roles.Pedagogo, roles.Professor, roles.Aluno),
		roles.Secretario:  set(roles.Coordenador, roles.Pedagogo, roles.Professor, roles.Aluno),
		roles.Coordenador: set(roles.Professor, roles.Aluno),
		roles.Pedagogo:    set(roles.Professor, roles.Aluno),
		roles.Professor:   set(roles.Aluno),
		roles.Aluno:       set(),
	}

	editMatrix = map[roles.Role]roleSet{
		roles.Master:      set(roles.All...),
		roles.Inspetor:    set(roles.Diretor, roles.Secretario, roles.Coordenador, roles.Pedagogo, roles.Professor, roles.Aluno),
		roles.Diretor:     set(roles.Coordenador, roles.Pedagogo, roles.Professor, roles.Aluno),
		roles.Secretario:  set(roles.Coordenador, roles.Pedagogo, roles.Professor, roles.Aluno),
		roles.Coordenador: set(roles.Professor, roles.Aluno),
		roles.Pedagogo:    set(roles.Professor, roles.Aluno),
		roles.Professor:   set(roles.Aluno),
		roles.Aluno:       set(),
	}

	deleteMatrix = map[roles.Role]roleSet{
		roles.Master:      set(roles.All...),
		roles.Inspetor:    set(roles.Diretor, roles.Secretario, roles.Coordenador, roles.Pedagogo, roles.Professor, roles.Aluno),
		roles.Diretor:     set(roles.Coordenador, roles.Pedagogo, roles.Professor, roles.Aluno),
		roles.Secretario:  set(roles.Coordenador, roles.Pedagogo, roles.Professor, roles.Aluno),
		roles.Coordenador: set(roles.Professor, roles.Aluno),
		roles.Pedagogo:    set(roles.Professor, roles.Aluno),
		roles.Professor:   set(),
		roles.Aluno:       set(),
	}
)

func check(matrix map[roles.Role]roleSet, operation string, actor, target roles.Role) Decision {
	allowed, ok := matrix[actor]
	if !ok {
		return Decision{Allowed: false, Reason: "invalid actor role"}
	}
	if _, ok := allowed[target]; !ok {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("role %s may not %s users with role %s", actor, operation, target),
		}
	}
	return Decision{Allowed: true, Reason: "allowed by role matrix"}
}

// CanCreate reports whether actor may create a user with the target role.
func CanCreate(actor, target roles.Role) Decision {
	return check(createMatrix, "create", actor, target)
}

// CanEdit reports whether actor may edit the target user's record.
// Editing one's own record is always allowed, regardless of the matrix.
func CanEdit(actor, target roles.Role, actorID, targetID string) Decision {
	if actorID != "" && actorID == targetID {
		return Decision{Allowed: true, Reason: "users may edit their own record"}
	}
	return check(editMatrix, "edit", actor, target)
}

// CanDelete reports whether actor may delete a user with the target role.
func CanDelete(actor, target roles.Role) Decision {
	return check(deleteMatrix, "delete", actor, target)
}
