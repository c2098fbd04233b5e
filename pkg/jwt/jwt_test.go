package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

var ana = Identity{UserID: "u-1", CompanyID: "c-1", Role: RoleSupervisor}

func TestGenerateAndParse(t *testing.T) {
	tok, err := Generate(secret, "inventario-flujo", ana, 60)
	require.NoError(t, err)

	got, err := Parse(secret, "inventario-flujo", tok)
	require.NoError(t, err)
	assert.Equal(t, ana, got)
}

func TestParse_Rechaza(t *testing.T) {
	tok, err := Generate(secret, "inventario-flujo", ana, 60)
	require.NoError(t, err)

	_, err = Parse("otro", "inventario-flujo", tok)
	assert.Error(t, err, "secret incorrecto")

	_, err = Parse(secret, "otro-emisor", tok)
	assert.Error(t, err, "emisor distinto")

	expired, err := Generate(secret, "inventario-flujo", ana, -1)
	require.NoError(t, err)
	_, err = Parse(secret, "", expired)
	assert.Error(t, err, "token expirado")

	noCompany, err := Generate(secret, "", Identity{UserID: "u-1"}, 60)
	require.NoError(t, err)
	_, err = Parse(secret, "", noCompany)
	assert.Error(t, err, "token sin empresa")
}

func TestGenerate_SinSecret(t *testing.T) {
	_, err := Generate("", "x", ana, 60)
	assert.Error(t, err)
	_, err = Parse("", "", "abc")
	assert.Error(t, err)
}
