package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/tokenkeeper/internal/flagx"
	"github.com/dmitrijs2005/tokenkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of Config. Durations use timex.Duration so
// they can be written as "15m" or as integer nanoseconds.
type JsonConfig struct {
	Env                          string         `json:"env"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn"`
	TokenStore                   string         `json:"token_store"`
	RedisAddr                    string         `json:"redis_addr"`
	RedisPassword                string         `json:"redis_password"`
	RedisDB                      int            `json:"redis_db"`
	RedisExpiryGrace             timex.Duration `json:"redis_expiry_grace"`
	SigningMethod                string         `json:"signing_method"`
	SecretKey                    string         `json:"secret_key"`
	PrivateKeySource             string         `json:"private_key_source"`
	PublicKeySource              string         `json:"public_key_source"`
	Issuer                       string         `json:"issuer"`
	Audience                     string         `json:"audience"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	SweepInterval                timex.Duration `json:"sweep_interval"`
	BcryptCost                   int            `json:"bcrypt_cost"`
	S3Region                     string         `json:"s3_region"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		Env:                          c.Env,
		EndpointAddrGRPC:             c.EndpointAddrGRPC,
		DatabaseDSN:                  c.DatabaseDSN,
		TokenStore:                   c.TokenStore,
		RedisAddr:                    c.RedisAddr,
		RedisPassword:                c.RedisPassword,
		RedisDB:                      c.RedisDB,
		RedisExpiryGrace:             timex.Duration{Duration: c.RedisExpiryGrace},
		SigningMethod:                c.SigningMethod,
		SecretKey:                    c.SecretKey,
		PrivateKeySource:             c.PrivateKeySource,
		PublicKeySource:              c.PublicKeySource,
		Issuer:                       c.Issuer,
		Audience:                     c.Audience,
		AccessTokenValidityDuration:  timex.Duration{Duration: c.AccessTokenValidityDuration},
		RefreshTokenValidityDuration: timex.Duration{Duration: c.RefreshTokenValidityDuration},
		SweepInterval:                timex.Duration{Duration: c.SweepInterval},
		BcryptCost:                   c.BcryptCost,
		S3Region:                     c.S3Region,
		S3RootUser:                   c.S3RootUser,
		S3RootPassword:               c.S3RootPassword,
		S3BaseEndpoint:               c.S3BaseEndpoint,
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.Env = j.Env
	c.EndpointAddrGRPC = j.EndpointAddrGRPC
	c.DatabaseDSN = j.DatabaseDSN
	c.TokenStore = j.TokenStore
	c.RedisAddr = j.RedisAddr
	c.RedisPassword = j.RedisPassword
	c.RedisDB = j.RedisDB
	c.RedisExpiryGrace = j.RedisExpiryGrace.Duration
	c.SigningMethod = j.SigningMethod
	c.SecretKey = j.SecretKey
	c.PrivateKeySource = j.PrivateKeySource
	c.PublicKeySource = j.PublicKeySource
	c.Issuer = j.Issuer
	c.Audience = j.Audience
	c.AccessTokenValidityDuration = j.AccessTokenValidityDuration.Duration
	c.RefreshTokenValidityDuration = j.RefreshTokenValidityDuration.Duration
	c.SweepInterval = j.SweepInterval.Duration
	c.BcryptCost = j.BcryptCost
	c.S3Region = j.S3Region
	c.S3RootUser = j.S3RootUser
	c.S3RootPassword = j.S3RootPassword
	c.S3BaseEndpoint = j.S3BaseEndpoint
}

// parseJson overlays the JSON file named by -c or -config. Keys missing from
// the file keep their current values. Without the flag nothing is loaded.
func parseJson(config *Config, args []string) error {
	jsonConfigFile := flagx.ConfigFileFlag(args)
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return err
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}
	c.apply(config)
	return nil
}
