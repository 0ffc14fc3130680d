package branch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kardex/backend/internal/domain"
)

func TestResolveDestination(t *testing.T) {
	dir := Default()

	cases := []struct {
		name      string
		reference string
		want      string
	}{
		{"abbreviated with number", "A SUC. #2 BAJA", "baja"},
		{"full word with number", "A SUCURSAL #3 MEXICO", "mexico"},
		{"lowercase", "traspaso a sucursal econofarma", "econofarma"},
		{"multi word alias", "A SUC #2 BAJA CALIFORNIA", "baja"},
		{"code alias", "A SUCURSAL SUC4", "centro"},
		{"trailing punctuation", "A SUC 4 CENTRO. urgente", "centro"},
		{"empty", "", domain.UnknownBranch},
		{"blank", "   ", domain.UnknownBranch},
		{"no pattern", "DEVOLUCION PROVEEDOR", domain.UnknownBranch},
		{"alias not in table", "A SUC. #9 TIJUANA", domain.UnknownBranch},
		{"only number", "A SUC #2", domain.UnknownBranch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, dir.ResolveDestination(tc.reference))
		})
	}
}

func TestParseSupportsManyAliasesPerBranch(t *testing.T) {
	dir, err := Parse([]byte(`
movement_types: {outgoing: 2, incoming: 1}
branches:
  - id: Norte
    table: kardex_norte
    aliases: ["norte", "Suc 5", "Farmacia Norte"]
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"norte"}, dir.IDs())
	assert.Equal(t, "norte", dir.ResolveDestination("A SUC NORTE"))
	assert.Equal(t, "norte", dir.ResolveDestination("A SUCURSAL suc 5"))
	assert.Equal(t, "norte", dir.ResolveDestination("A SUC. FARMACIA NORTE"))
	assert.Equal(t, 2, dir.OutgoingType())
	assert.Equal(t, 1, dir.IncomingType())

	b, ok := dir.Branch("norte")
	require.True(t, ok)
	assert.Equal(t, "norte", b.Name)
}

func TestParseRejectsInvalidDirectories(t *testing.T) {
	cases := map[string]string{
		"same movement codes": `
movement_types: {outgoing: 1, incoming: 1}
branches: [{id: a, table: kardex_a}]`,
		"no branches": `
movement_types: {outgoing: 2, incoming: 1}`,
		"duplicate id": `
movement_types: {outgoing: 2, incoming: 1}
branches: [{id: a, table: kardex_a}, {id: A, table: kardex_b}]`,
		"alias collision": `
movement_types: {outgoing: 2, incoming: 1}
branches: [{id: a, table: kardex_a, aliases: [X]}, {id: b, table: kardex_b, aliases: [x]}]`,
		"unsafe table": `
movement_types: {outgoing: 2, incoming: 1}
branches: [{id: a, table: "kardex; drop table x"}]`,
		"reserved id": `
movement_types: {outgoing: 2, incoming: 1}
branches: [{id: unknown, table: kardex_a}]`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			assert.ErrorIs(t, err, ErrInvalidDirectory)
		})
	}
}

func TestOthersExcludesOrigin(t *testing.T) {
	dir := Default()
	others := dir.Others("mexico")
	assert.NotContains(t, others, "mexico")
	assert.Len(t, others, len(dir.IDs())-1)
	assert.False(t, dir.Valid("tijuana"))
}
