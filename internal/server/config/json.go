package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dbelyaev/srpvault/internal/flagx"
	"github.com/dbelyaev/srpvault/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "5m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON config
// files; its fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	LoginSessionTTL              timex.Duration `json:"login_session_ttl"`
	PairingSessionTTL            timex.Duration `json:"pairing_session_ttl"`
	AuthFailureThreshold         int            `json:"auth_failure_threshold"`
	AuthFailureWindow            timex.Duration `json:"auth_failure_window"`
	AuthBlockDuration            timex.Duration `json:"auth_block_duration"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config flags; if
// neither is set, no JSON file is loaded. Unreadable or invalid files panic,
// since starting with a half-applied configuration is worse than not
// starting.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	// Overlay only the fields the file actually sets, so a partial config
	// (say, just database_dsn) does not blank the defaults around it.
	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.SecretKey != "" {
		config.SecretKey = c.SecretKey
	}
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	}
	if c.LoginSessionTTL.Duration > 0 {
		config.LoginSessionTTL = time.Duration(c.LoginSessionTTL.Duration)
	}
	if c.PairingSessionTTL.Duration > 0 {
		config.PairingSessionTTL = time.Duration(c.PairingSessionTTL.Duration)
	}
	if c.AuthFailureThreshold > 0 {
		config.AuthFailureThreshold = c.AuthFailureThreshold
	}
	if c.AuthFailureWindow.Duration > 0 {
		config.AuthFailureWindow = time.Duration(c.AuthFailureWindow.Duration)
	}
	if c.AuthBlockDuration.Duration > 0 {
		config.AuthBlockDuration = time.Duration(c.AuthBlockDuration.Duration)
	}
}
