package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dbelyaev/srpvault/internal/flagx"
	"github.com/dbelyaev/srpvault/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "30s" or as integer nanoseconds. After parsing, values
// are copied into the runtime Config (which uses time.Duration).
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	StateFile          string         `json:"state_file"`
}

// parseJson overlays Config with values loaded from a JSON file named by
// the -c or -config flags. If no file is named, nothing happens; read and
// unmarshal errors panic. Intended usage is defaults -> parseJson ->
// parseFlags, where later stages override earlier ones.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	// Fields absent from the file keep their defaults; in particular a
	// partial config must not zero RequestTimeout and disable HTTP
	// timeouts.
	if jc.ServerEndpointAddr != "" {
		cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.StateFile != "" {
		cfg.StateFile = jc.StateFile
	}
}
