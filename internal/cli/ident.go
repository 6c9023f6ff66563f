package cli

import (
	"github.com/poollabs/goamm/internal/core/ident"
)

// resolveIdentity accepts either a full hex identity or a human label, which
// is derived into an identity under the given role. Labels and hex forms of
// the same entity are interchangeable across invocations.
func resolveIdentity(role ident.Role, s string) (ident.Identity, error) {
	if len(s) == 64 {
		if id, err := ident.Parse(s); err == nil {
			return id, nil
		}
	}
	return ident.Derive(role, []byte(s)), nil
}

func resolveAsset(s string) (ident.Identity, error) {
	return resolveIdentity(ident.RoleAsset, s)
}

func resolveAccount(s string) (ident.Identity, error) {
	return resolveIdentity(ident.RoleAccount, s)
}
