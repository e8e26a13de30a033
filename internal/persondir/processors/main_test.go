package processors

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pmarasse/cas-persondir-ldap/internal/persondir"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// personRecord returns an unlocked record resembling a typical directory person.
func personRecord(t *testing.T) *persondir.Record {
	t.Helper()

	rec, err := persondir.NewRecordFromMap("pmarasse", map[string][]any{
		"givenName": {"Philippe"},
		"sn":        {"Marasse"},
		"cn":        {"Philippe Marasse"},
		"mail":      {"pmarasse@test.archigny.net"},
		"ssn":       {"No Match Marasse"},
		"memberOf": {
			"cn=Groupe 1, ou=Groupes, dc=archigny, dc=net",
			"cn=Groupe, deux, ou=Groupes, dc=archigny, dc=net",
			"cn=Groupe à accents, ou=Groupes, dc=archigny, dc=net",
			"cn=Groupe 4, ou=Groupes, dc=archigny, dc=net",
			"cn=Groupe 5, ou=Groupes, dc=archigny, dc=net",
		},
	})
	require.NoError(t, err)
	return rec
}

func ptr[T any](v T) *T {
	return &v
}
