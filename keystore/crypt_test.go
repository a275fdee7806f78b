package keystore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Osamakahen/freo-wallet-sub001/core"
)

// lightKDF keeps test unlocks cheap; production params are exercised the
// same code path.
var lightKDF = KDFParams{N: 16, R: 8, P: 1}

func TestSealOpenRoundTrip(t *testing.T) {
	secrets := []string{
		"abandon ability able about above absent absorb abstract absurd abuse access accident",
		"short",
		"with spaces and punctuation: !?",
		"ünïcödé phrase",
	}
	for _, secret := range secrets {
		blob, err := sealSecret([]byte(secret), []byte("correct horse"), lightKDF)
		require.NoError(t, err)

		got, err := openSecret(blob, []byte("correct horse"))
		require.NoError(t, err)
		require.Equal(t, secret, string(got))
	}
}

func TestOpenWrongPasswordFailsClosed(t *testing.T) {
	blob, err := sealSecret([]byte("the secret"), []byte("right"), lightKDF)
	require.NoError(t, err)

	got, err := openSecret(blob, []byte("wrong"))
	require.ErrorIs(t, err, core.ErrInvalidPassword)
	require.Nil(t, got)
}

func TestOpenTamperedCiphertextFailsClosed(t *testing.T) {
	blob, err := sealSecret([]byte("the secret"), []byte("right"), lightKDF)
	require.NoError(t, err)

	var sealed EncryptedSecret
	require.NoError(t, json.Unmarshal(blob, &sealed))
	// Flip the first ciphertext character.
	if sealed.Ciphertext[0] == 'A' {
		sealed.Ciphertext = "B" + sealed.Ciphertext[1:]
	} else {
		sealed.Ciphertext = "A" + sealed.Ciphertext[1:]
	}
	tampered, err := json.Marshal(sealed)
	require.NoError(t, err)

	_, err = openSecret(tampered, []byte("right"))
	require.ErrorIs(t, err, core.ErrInvalidPassword)
}

func TestSealProducesFreshSaltAndNonce(t *testing.T) {
	first, err := sealSecret([]byte("secret"), []byte("pw"), lightKDF)
	require.NoError(t, err)
	second, err := sealSecret([]byte("secret"), []byte("pw"), lightKDF)
	require.NoError(t, err)
	require.NotEqual(t, string(first), string(second))
}
