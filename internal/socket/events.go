package socket

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/luki/tempdash/internal/sensor"
)

// Events pushed by the sensor backend.
const (
	EventSettingsUpdated = "sensor-settings-updated"
	EventConnectionLost  = "sensor-connection-lost"
)

// OnSettingsUpdated calls fn with the settings carried by every
// sensor-settings-updated event.
func (c *Client) OnSettingsUpdated(fn func(sensor.Settings)) {
	c.On(EventSettingsUpdated, func(args []json.RawMessage) {
		if len(args) == 0 {
			return
		}
		var s sensor.Settings
		if err := json.Unmarshal(args[0], &s); err != nil {
			c.log.Warn("bad settings event", zap.Error(err))
			return
		}
		fn(s)
	})
}

// OnConnectionLost calls fn with the device id of every
// sensor-connection-lost event.
func (c *Client) OnConnectionLost(fn func(deviceID string)) {
	c.On(EventConnectionLost, func(args []json.RawMessage) {
		if len(args) == 0 {
			return
		}
		id, err := deviceIDArg(args[0])
		if err != nil {
			c.log.Warn("bad connection-lost event", zap.Error(err))
			return
		}
		fn(id)
	})
}

// deviceIDArg accepts a bare id or an object with deviceId/device_id.
func deviceIDArg(raw json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, nil
	}
	var obj struct {
		DeviceID    string `json:"deviceId"`
		DeviceIDAlt string `json:"device_id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", err
	}
	if obj.DeviceID != "" {
		return obj.DeviceID, nil
	}
	return obj.DeviceIDAlt, nil
}
