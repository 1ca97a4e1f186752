package config

import (
	"reflect"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
)

// Map returns the configuration keyed by its koanf names. Durations are
// rendered in Go duration syntax so the output can be fed back as YAML.
func (c Config) Map() map[string]any {
	out := make(map[string]any)
	v := reflect.ValueOf(c)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("koanf")
		if key == "" {
			continue
		}
		val := v.Field(i).Interface()
		if d, ok := val.(time.Duration); ok {
			val = d.String()
		}
		out[key] = val
	}
	return out
}

// YAML renders the redacted configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Parser().Marshal(c.Redacted().Map())
}
