package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"interviewprep/internal/errors"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *errors.Logger {
	return errors.NewNopLogger()
}

type fakeSecretReader struct {
	secrets map[string]*api.Secret
	err     error
}

func (f *fakeSecretReader) Read(path string) (*api.Secret, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.secrets[path], nil
}

func kv2(data map[string]any, version any) *api.Secret {
	return &api.Secret{
		Data: map[string]any{
			"data":     data,
			"metadata": map[string]any{"version": version},
		},
	}
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64 value", input: int64(42), expected: 42},
		{name: "float64 value", input: float64(7), expected: 7},
		{name: "string value", input: "42", expected: 42},
		{name: "invalid string value", input: "not-a-number", expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/data/test")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestResolveVaultToken(t *testing.T) {
	t.Run("token from config", func(t *testing.T) {
		token, err := resolveVaultToken(VaultConfig{Token: "direct-token"})
		assert.NoError(t, err)
		assert.Equal(t, "direct-token", token)
	})

	t.Run("token from file is trimmed", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "vault-token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token  \n"), 0600))

		token, err := resolveVaultToken(VaultConfig{TokenFile: tokenFile})
		assert.NoError(t, err)
		assert.Equal(t, "file-token", token)
	})

	t.Run("missing token file", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{TokenFile: "/nonexistent/token/file"})
		assert.ErrorContains(t, err, "failed to read vault token file")
	})

	t.Run("no token provided", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{})
		assert.ErrorContains(t, err, "vault token is required")
	})
}

func TestGetSecretV2(t *testing.T) {
	reader := &fakeSecretReader{secrets: map[string]*api.Secret{
		"secret/data/ok":          kv2(map[string]any{"api_key": "abc"}, "3"),
		"secret/data/no-data":     {Data: map[string]any{"metadata": map[string]any{}}},
		"secret/data/no-metadata": {Data: map[string]any{"data": map[string]any{}}},
		"secret/data/no-version":  {Data: map[string]any{"data": map[string]any{}, "metadata": map[string]any{}}},
	}}
	vc := &VaultClient{reader: reader, logger: newTestLogger()}

	secret, err := vc.GetSecretV2("secret/data/ok")
	require.NoError(t, err)
	assert.Equal(t, int64(3), secret.Version)
	assert.Equal(t, "abc", secret.Data["api_key"])

	for _, path := range []string{"secret/data/missing", "secret/data/no-data", "secret/data/no-metadata", "secret/data/no-version"} {
		t.Run(path, func(t *testing.T) {
			_, err := vc.GetSecretV2(path)
			assert.Error(t, err)
		})
	}

	var nilClient *VaultClient
	_, err = nilClient.GetSecretV2("secret/data/ok")
	assert.ErrorContains(t, err, "not initialized")
}

func TestGetStringSecrets(t *testing.T) {
	reader := &fakeSecretReader{secrets: map[string]*api.Secret{
		"secret/data/keys":  kv2(map[string]any{"keys": "k1, k2 ,,k3"}, int64(1)),
		"secret/data/empty": kv2(map[string]any{"keys": ""}, int64(1)),
		"secret/data/num":   kv2(map[string]any{"keys": 12}, int64(1)),
	}}
	vc := &VaultClient{reader: reader, logger: newTestLogger()}

	keys, err := vc.GetStringSliceSecret("secret/data/keys", "keys")
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2", "k3"}, keys)

	keys, err = vc.GetStringSliceSecret("secret/data/empty", "keys")
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = vc.GetStringSecret("secret/data/num", "keys")
	assert.ErrorContains(t, err, "is not a string")

	_, err = vc.GetStringSecret("secret/data/keys", "missing")
	assert.ErrorContains(t, err, "not found")
}

func TestApplySecrets(t *testing.T) {
	reader := &fakeSecretReader{secrets: map[string]*api.Secret{
		"secret/data/server": kv2(map[string]any{"keys": "alpha,beta"}, int64(2)),
		"secret/data/gemini": kv2(map[string]any{"api_key": "AIza-vault-key"}, int64(5)),
	}}
	vc := &VaultClient{reader: reader, logger: newTestLogger()}

	cfg := Default()
	cfg.Vault.Secrets = VaultSecrets{APIKeys: "secret/data/server", GeminiKey: "secret/data/gemini"}

	require.NoError(t, applySecrets(vc, cfg, newTestLogger()))
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Server.APIKeys)
	assert.Equal(t, "AIza-vault-key", cfg.AI.APIKey)

	failing := &VaultClient{reader: &fakeSecretReader{err: fmt.Errorf("permission denied")}, logger: newTestLogger()}
	err := applySecrets(failing, cfg, newTestLogger())
	assert.ErrorContains(t, err, "permission denied")
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := Default()
	cfg.AI.APIKey = "unchanged"
	client, err := ApplyVaultSecrets(cfg, newTestLogger())
	require.NoError(t, err)
	assert.Nil(t, client)
	assert.Equal(t, "unchanged", cfg.AI.APIKey)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "AIza****wxyz", MaskSecret("AIzaSyabcdwxyz"))
	assert.Equal(t, "****", MaskSecret("short"))
	assert.Equal(t, "", MaskSecret(""))
}
