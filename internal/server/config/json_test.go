package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	full := writeTempJSON(t, dir, "full.json", map[string]any{
		"env":                             "prod",
		"endpoint_addr_grpc":              "www.example:9000",
		"database_dsn":                    "postgres://db/tk",
		"token_store":                     "redis",
		"redis_addr":                      "redis:6379",
		"redis_password":                  "pw",
		"redis_db":                        2,
		"redis_expiry_grace":              "1h",
		"signing_method":                  "ed25519",
		"secret_key":                      "my_secret_key",
		"private_key_source":              "s3://keys/private.pem",
		"public_key_source":               "file:///etc/tk/public.pem",
		"issuer":                          "iss",
		"audience":                        "aud",
		"access_token_validity_duration":  "90s",
		"refresh_token_validity_duration": "48h",
		"sweep_interval":                  float64(time.Minute),
		"bcrypt_cost":                     10,
		"s3_root_user":                    "user",
		"s3_root_password":                "password",
		"s3_region":                       "region",
		"s3_base_endpoint":                "base_endpoint",
	})

	t.Run("loads every key", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, parseJson(cfg, []string{"-config", full}))

		assert.Equal(t, Config{
			Env:                          "prod",
			EndpointAddrGRPC:             "www.example:9000",
			DatabaseDSN:                  "postgres://db/tk",
			TokenStore:                   "redis",
			RedisAddr:                    "redis:6379",
			RedisPassword:                "pw",
			RedisDB:                      2,
			RedisExpiryGrace:             time.Hour,
			SigningMethod:                "ed25519",
			SecretKey:                    "my_secret_key",
			PrivateKeySource:             "s3://keys/private.pem",
			PublicKeySource:              "file:///etc/tk/public.pem",
			Issuer:                       "iss",
			Audience:                     "aud",
			AccessTokenValidityDuration:  90 * time.Second,
			RefreshTokenValidityDuration: 48 * time.Hour,
			SweepInterval:                time.Minute,
			BcryptCost:                   10,
			S3RootUser:                   "user",
			S3RootPassword:               "password",
			S3Region:                     "region",
			S3BaseEndpoint:               "base_endpoint",
		}, *cfg)
	})

	t.Run("missing keys keep current values", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{
			"secret_key": "from-file",
		})

		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg, []string{"-c", partial}))

		assert.Equal(t, "from-file", cfg.SecretKey)
		assert.Equal(t, ":50051", cfg.EndpointAddrGRPC)
		assert.Equal(t, 15*time.Minute, cfg.AccessTokenValidityDuration)
	})

	t.Run("no config flag leaves config untouched", func(t *testing.T) {
		cfg := &Config{
			EndpointAddrGRPC:            "defaults:1234",
			SecretKey:                   "key",
			AccessTokenValidityDuration: 2 * time.Minute,
		}
		want := *cfg
		require.NoError(t, parseJson(cfg, []string{"-a", "ignored:1"}))
		assert.Equal(t, want, *cfg)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		require.Error(t, parseJson(&Config{}, []string{"-config", bad}))
	})

	t.Run("invalid duration", func(t *testing.T) {
		bad := writeTempJSON(t, dir, "dur.json", map[string]any{"sweep_interval": "often"})

		err := parseJson(&Config{}, []string{"-config", bad})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid duration")
	})
}
