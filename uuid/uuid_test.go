package uuid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dnsNamespace = MustFromString("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

func TestFromString(t *testing.T) {
	s := "a588f90b-7d07-4789-8d16-7cf01015c461"
	uid, err := FromString(s)
	require.NoError(t, err)
	t.Logf("UID: %s", uid.EncodeBase64())
	assert.Equal(t, s, uid.String())
}

func TestToUID(t *testing.T) {
	s := UIDb64("pYj5C30HR4mNFnzwEBXEYQ==")
	uid, err := DecodeBase64(s)
	require.NoError(t, err)
	assert.Equal(t, "a588f90b-7d07-4789-8d16-7cf01015c461", uid.String())
}

func TestFromSCTIDMatchesPublishedRoot(t *testing.T) {
	// SNOMED CT root concept
	assert.Equal(t, "ee9ac5d2-a07c-3981-a57a-f7f26baf38d8", FromSCTID("138875005").String())
}

func TestFromSCTIDDeterministic(t *testing.T) {
	a := FromSCTID("900000000000207008")
	b := FromSCTID("900000000000207008")
	assert.Equal(t, []byte(a), []byte(b))
	assert.NotEqual(t, []byte(a), []byte(FromSCTID("900000000000012004")))
}

func TestFromAssemblage(t *testing.T) {
	u, err := FromAssemblage(dnsNamespace, "www.example.com")
	require.NoError(t, err)
	assert.Equal(t, "2ed6657d-e927-568b-95e1-2665a8aea6a2", u.String())

	again, err := FromAssemblage(dnsNamespace, "www.example.com")
	require.NoError(t, err)
	assert.True(t, u.Equal(again))
}

func TestFromAssemblageComposite(t *testing.T) {
	u, err := FromAssemblage(dnsNamespace, Composite("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, "8fe6bd88-d4f5-562c-bac2-7fe1827ccf33", u.String())
}

func TestFromAssemblageEncodingError(t *testing.T) {
	_, err := FromAssemblage(dnsNamespace, string([]byte{0xff, 0xfe}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEncoding))

	_, err = FromAssemblage(UID{1, 2, 3}, "x")
	assert.True(t, errors.Is(err, ErrEncoding))
}
