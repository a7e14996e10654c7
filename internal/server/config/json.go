package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/sgescolar/authcore/internal/flagx"
	"github.com/sgescolar/authcore/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. Interval fields use timex.Duration, which accepts both duration
// strings such as "720h" and integer nanoseconds. After unmarshalling, its
// fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	ReferenceTimeZone            string         `json:"reference_time_zone"`
	DirectoryBaseURL             string         `json:"directory_base_url"`
	DirectoryTimeout             timex.Duration `json:"directory_timeout"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config command-line flags. If neither flag is set, no JSON file is loaded.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
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

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.RefreshTokenValidityDuration = time.Duration(c.RefreshTokenValidityDuration.Duration)
	config.ReferenceTimeZone = c.ReferenceTimeZone
	config.DirectoryBaseURL = c.DirectoryBaseURL
	config.DirectoryTimeout = time.Duration(c.DirectoryTimeout.Duration)
}
