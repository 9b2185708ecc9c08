package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway_Key_Namespacing(t *testing.T) {
	g := &Gateway{prefix: "wa"}
	assert.Equal(t, "wa:cache:team-1", g.key("cache", "team-1"))
	assert.Equal(t, "wa:session:abc", g.key("session", "abc"))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
		N    int    `json:"n"`
	}
	encoded, err := encode(payload{Name: "bob", N: 7})
	require.NoError(t, err)

	var out payload
	require.NoError(t, decode(encoded, &out))
	assert.Equal(t, payload{Name: "bob", N: 7}, out)
}

func TestZMember_CarriesScoreAndMember(t *testing.T) {
	z := zMember(3.5, "m1")
	assert.Equal(t, 3.5, z.Score)
	assert.Equal(t, "m1", z.Member)
}
