package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheusHen/SM2/sm2"
	"github.com/TheusHen/SM2/sm2/ec"
	"github.com/TheusHen/SM2/sm2/identity"
	"github.com/TheusHen/SM2/sm2/keyex"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *c)
	assert.Equal(t, []byte(sm2.DefaultUID), c.DefaultUID())
	assert.Equal(t, ec.BackendAccelerated, c.Backend)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "sm2.yaml", `
backend: accelerated
uid: ALICE123@YAHOO.COM
max_attempts: 4
keyex:
  key_length: 32
  confirm: false
log:
  level: debug
  format: console
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ec.BackendAccelerated, c.Backend)
	assert.Equal(t, "ALICE123@YAHOO.COM", c.UID)
	assert.Equal(t, 4, c.MaxAttempts)
	assert.Equal(t, 32, c.KeyExchange.KeyLength)
	assert.False(t, c.KeyExchange.Confirm)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "console", c.Log.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeFile(t, "sm2.yaml", "keyex:\n  key_length: 32\n")
	t.Setenv("SM2_KEYEX_KEY_LENGTH", "48")
	t.Setenv("SM2_BACKEND", "accelerated")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 48, c.KeyExchange.KeyLength)
	assert.Equal(t, ec.BackendAccelerated, c.Backend)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidation(t *testing.T) {
	cases := map[string]string{
		"backend":      "backend: p256\n",
		"max_attempts": "max_attempts: 0\n",
		"key_length":   "keyex:\n  key_length: 0\n",
		"log level":    "log:\n  level: loud\n",
		"log format":   "log:\n  format: xml\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "sm2.yaml", body))
			assert.Error(t, err)
		})
	}

	c := Default()
	c.UID = string(make([]byte, sm2.MaxUIDLength+1))
	assert.Error(t, c.Validate())
}

func TestUIDLengthCountsBytes(t *testing.T) {
	c := Default()
	// 5000 two-byte runes: under the limit in characters, over it in bytes.
	c.UID = strings.Repeat("é", 5000)
	require.Greater(t, len(c.UID), sm2.MaxUIDLength)
	assert.Error(t, c.Validate())

	c.UID = strings.Repeat("é", sm2.MaxUIDLength/2)
	require.NoError(t, c.Validate())
	dom, err := c.Domain(zerolog.Nop())
	require.NoError(t, err)
	key, err := sm2.GenerateKey(dom, nil)
	require.NoError(t, err)
	_, err = sm2.ComputeZ(&key.PublicKey, c.DefaultUID())
	assert.NoError(t, err)
}

func TestBuild(t *testing.T) {
	c := Default()
	c.Backend = ec.BackendAccelerated
	c.Log.Level = "warn"

	var buf bytes.Buffer
	l, err := c.Logger(&buf)
	require.NoError(t, err)
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	dom, err := c.Domain(l)
	require.NoError(t, err)
	assert.Equal(t, ec.BackendAccelerated, dom.Arithmetic().Name())
	assert.Equal(t, c.MaxAttempts, dom.MaxAttempts())
	assert.Len(t, c.KeyExchangeOptions(), 2)
}

func TestConfiguredExchange(t *testing.T) {
	c := Default()
	c.KeyExchange.KeyLength = 24
	c.KeyExchange.Confirm = false
	dom, err := c.Domain(zerolog.Nop())
	require.NoError(t, err)

	alice, err := identity.GenerateKeyPair(dom, nil, c.DefaultUID())
	require.NoError(t, err)
	bob, err := identity.GenerateKeyPair(dom, nil, []byte("bob@example.org"))
	require.NoError(t, err)

	initiator, err := keyex.NewInitiator(alice, bob.Peer(), c.KeyExchangeOptions()...)
	require.NoError(t, err)
	responder, err := keyex.NewResponder(bob, alice.Peer(), c.KeyExchangeOptions()...)
	require.NoError(t, err)

	ra, err := initiator.Start()
	require.NoError(t, err)
	rb, err := responder.Respond(ra)
	require.NoError(t, err)
	sa, err := initiator.Finish(rb)
	require.NoError(t, err)
	assert.Nil(t, sa)

	ka, err := initiator.Key()
	require.NoError(t, err)
	kb, err := responder.Key()
	require.NoError(t, err)
	assert.Len(t, ka, 24)
	assert.Equal(t, ka, kb)
	assert.Equal(t, keyex.StateDone, responder.State())
}
