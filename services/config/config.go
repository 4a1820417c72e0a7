// Package config publishes the embedded per-device configuration on the bus.
package config

import (
	"context"
	"errors"

	"alds-go/bus"

	"github.com/sugawarayuuta/sonnet"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	// CtxDeviceKey is the context key carrying the device ID.
	CtxDeviceKey = "device"
)

var (
	ErrNoDevice  = errors.New("missing device ID in context")
	ErrNotObject = errors.New("embedded config is not a JSON object")
)

// EmbeddedConfigLookup resolves the raw JSON for a device. Tests and board
// builds may replace it.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Devices lists the device IDs with an embedded config.
func Devices() []string {
	out := make([]string, 0, len(embeddedConfigs))
	for k := range embeddedConfigs {
		out = append(out, k)
	}
	return out
}

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// Parse decodes a device config into its top-level keys.
func Parse(raw []byte) (map[string]any, error) {
	var v any
	if err := sonnet.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return m, nil
}

// publishConfig publishes each top-level key of the device config as a
// retained config/<key> message.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return ErrNoDevice
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errors.New("no embedded config for device: " + device)
	}
	m, err := Parse(raw)
	if err != nil {
		return err
	}
	for k, v := range m {
		conn.Publish(&bus.Message{
			Topic:    bus.T(configPrefix, k),
			Payload:  v,
			Retained: true,
		})
	}
	return nil
}

// Start publishes the config in the background.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			println("Error: config:", err.Error())
			return
		}
		println("Info: config published")
	}()
}
