package processors

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmarasse/cas-persondir-ldap/internal/persondir"
)

var expectedGroups = []any{
	"Groupe 1",
	"Groupe, deux",
	"Groupe à accents",
	"Groupe 4",
	"Groupe 5",
}

func TestRegexReplace(t *testing.T) {
	p, err := NewRegexReplace(RegexReplaceConfig{
		KeyMatch:     `^.n`,
		ValueMatch:   `^(.+)sse`,
		ValueReplace: "$1t",
	})
	require.NoError(t, err)

	rec := personRecord(t)
	require.NoError(t, p.Process(t.Context(), rec))

	cn, _ := rec.GetAll("cn")
	assert.Equal(t, []any{"Philippe Marat"}, cn)
	sn, _ := rec.GetAll("sn")
	assert.Equal(t, []any{"Marat"}, sn)
	ssn, _ := rec.GetAll("ssn")
	assert.Equal(t, []any{"No Match Marasse"}, ssn, "name does not match the key pattern")
	givenName, _ := rec.GetAll("givenName")
	assert.Equal(t, []any{"Philippe"}, givenName)

	assert.Nil(t, p.AttributeNames())
}

func TestRegexReplace_LeavesBinaryValues(t *testing.T) {
	p, err := NewRegexReplace(RegexReplaceConfig{KeyMatch: "GUID", ValueMatch: ".", ValueReplace: "x"})
	require.NoError(t, err)

	rec := persondir.NewRecord("id")
	require.NoError(t, rec.Set("objectGUID", []byte{1, 2}, "ab"))
	require.NoError(t, p.Process(t.Context(), rec))

	all, _ := rec.GetAll("objectGUID")
	assert.Equal(t, []any{[]byte{1, 2}, "xx"}, all)
}

func TestNewRegexReplace_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  RegexReplaceConfig
	}{
		{name: "empty", cfg: RegexReplaceConfig{}},
		{name: "no value match", cfg: RegexReplaceConfig{KeyMatch: "cn"}},
		{name: "bad key pattern", cfg: RegexReplaceConfig{KeyMatch: "(", ValueMatch: "a"}},
		{name: "bad value pattern", cfg: RegexReplaceConfig{KeyMatch: "cn", ValueMatch: "["}},
		{name: "bad replacement", cfg: RegexReplaceConfig{KeyMatch: "cn", ValueMatch: "a", ValueReplace: "$3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegexReplace(tt.cfg)
			assert.ErrorIs(t, err, persondir.ErrInvalidConfig)
		})
	}
}

func TestRegexValueReplace(t *testing.T) {
	tests := []struct {
		name          string
		key           string
		valueMatch    string
		caseSensitive *bool
	}{
		{
			name:       "case sensitive pattern",
			key:        "memberof",
			valueMatch: `cn=(.+),\s*ou=.*`,
		},
		{
			name:          "case insensitive pattern",
			key:           "memberof",
			valueMatch:    `CN=(.+),\s*OU=.*`,
			caseSensitive: ptr(false),
		},
		{
			name:       "exact key case",
			key:        "memberOf",
			valueMatch: `cn=(.+),\s*ou=.*`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewRegexValueReplace(RegexValueReplaceConfig{
				Key:           tt.key,
				ValueMatch:    tt.valueMatch,
				ValueReplace:  "$1",
				CaseSensitive: tt.caseSensitive,
			})
			require.NoError(t, err)

			rec := personRecord(t)
			require.NoError(t, p.Process(t.Context(), rec))

			got, _ := rec.GetAll("memberOf")
			if diff := cmp.Diff(expectedGroups, got); diff != "" {
				t.Errorf("memberOf mismatch (-want +got):\n%s", diff)
			}
			assert.False(t, rec.Has("memberof"), "the record key keeps its original case")
		})
	}
}

func TestRegexValueReplace_CaseSensitiveMismatch(t *testing.T) {
	p, err := NewRegexValueReplace(RegexValueReplaceConfig{
		Key:          "memberOf",
		ValueMatch:   `CN=(.+),\s*OU=.*`,
		ValueReplace: "$1",
	})
	require.NoError(t, err)

	rec := personRecord(t)
	before, _ := rec.GetAll("memberOf")
	require.NoError(t, p.Process(t.Context(), rec))

	after, _ := rec.GetAll("memberOf")
	assert.Equal(t, before, after)
}

func TestRegexValueReplace_StopsAtFirstKey(t *testing.T) {
	p, err := NewRegexValueReplace(RegexValueReplaceConfig{Key: "mail", ValueMatch: "old", ValueReplace: "new"})
	require.NoError(t, err)

	rec := persondir.NewRecord("id")
	require.NoError(t, rec.Set("MAIL", "old"))
	require.NoError(t, rec.Set("mail", "old"))
	require.NoError(t, p.Process(t.Context(), rec))

	upper, _ := rec.GetString("MAIL")
	lower, _ := rec.GetString("mail")
	assert.Equal(t, "new", upper, "MAIL sorts first")
	assert.Equal(t, "old", lower)
}

func TestRegexValueDelete(t *testing.T) {
	p, err := NewRegexValueDelete(RegexValueDeleteConfig{Key: "cn", ValueMatch: `^(.+)sse`})
	require.NoError(t, err)

	rec := personRecord(t)
	require.NoError(t, p.Process(t.Context(), rec))

	cn, ok := rec.GetAll("cn")
	assert.True(t, ok, "the attribute stays, emptied")
	assert.Empty(t, cn)

	sn, _ := rec.GetAll("sn")
	assert.Equal(t, []any{"Marasse"}, sn)
	ssn, _ := rec.GetAll("ssn")
	assert.Equal(t, []any{"No Match Marasse"}, ssn)
	assert.Nil(t, p.AttributeNames())
}

func TestRegexValueDelete_FullMatchOnly(t *testing.T) {
	tests := []struct {
		name          string
		valueMatch    string
		caseSensitive *bool
		want          []any
	}{
		{
			name:       "partial match kept",
			valueMatch: `Groupe \d`,
			want:       []any{"Groupe 1 bis", "groupe 3"},
		},
		{
			name:       "full match removed",
			valueMatch: `Groupe \d.*`,
			want:       []any{"groupe 3"},
		},
		{
			name:          "case insensitive",
			valueMatch:    `GROUPE \d`,
			caseSensitive: ptr(false),
			want:          []any{"Groupe 1 bis"},
		},
		{
			name:       "alternation is anchored as a whole",
			valueMatch: `Groupe 1|Groupe 2`,
			want:       []any{"Groupe 1 bis", "groupe 3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewRegexValueDelete(RegexValueDeleteConfig{
				Key:           "groups",
				ValueMatch:    tt.valueMatch,
				CaseSensitive: tt.caseSensitive,
			})
			require.NoError(t, err)

			rec := persondir.NewRecord("id")
			require.NoError(t, rec.Set("Groups", "Groupe 1 bis", "Groupe 2", "groupe 3"))
			require.NoError(t, p.Process(t.Context(), rec))

			got, _ := rec.GetAll("Groups")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegexValue_Validation(t *testing.T) {
	_, err := NewRegexValueDelete(RegexValueDeleteConfig{})
	assert.ErrorIs(t, err, persondir.ErrInvalidConfig)

	_, err = NewRegexValueDelete(RegexValueDeleteConfig{Key: "cn"})
	assert.ErrorIs(t, err, persondir.ErrInvalidConfig)

	_, err = NewRegexValueDelete(RegexValueDeleteConfig{Key: "cn", ValueMatch: "("})
	assert.ErrorIs(t, err, persondir.ErrInvalidConfig)

	_, err = NewRegexValueReplace(RegexValueReplaceConfig{ValueMatch: "a"})
	assert.ErrorIs(t, err, persondir.ErrInvalidConfig)

	_, err = NewRegexValueReplace(RegexValueReplaceConfig{Key: "cn", ValueMatch: "a", ValueReplace: "${name}"})
	assert.ErrorIs(t, err, persondir.ErrInvalidConfig)
}

func TestRegexProcessors_LockedRecord(t *testing.T) {
	p, err := NewRegexValueDelete(RegexValueDeleteConfig{Key: "cn", ValueMatch: ".*"})
	require.NoError(t, err)

	rec := personRecord(t)
	rec.Lock()
	assert.ErrorIs(t, p.Process(t.Context(), rec), persondir.ErrRecordLocked)
}
