package httpapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginStartRequestCarriesDeviceMetadata(t *testing.T) {
	body := `{
		"userId": "alice@example.com",
		"clientPublicEphemeralBase64": "AQID",
		"deviceId": "dev-1",
		"deviceName": "laptop",
		"devicePlatform": "linux"
	}`

	var req loginStartRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	assert.Equal(t, "alice@example.com", req.UserID)
	assert.Equal(t, "dev-1", req.DeviceID)
	assert.Equal(t, "laptop", req.DeviceName)
	assert.Equal(t, "linux", req.DevicePlatform)
}
