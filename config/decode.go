package config

import (
	"bytes"
	"reflect"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

var durationType = reflect.TypeOf(time.Duration(0))

// decodeTOML decodes data into cfg. Duration fields accept Go duration
// strings ("30s", "5m") as well as integer nanoseconds; unknown keys are
// rejected.
func decodeTOML(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := normalizeDurations(raw, reflect.TypeOf(cfg).Elem(), ""); err != nil {
		return err
	}

	normalized, err := toml.Marshal(raw)
	if err != nil {
		return err
	}
	dec := toml.NewDecoder(bytes.NewReader(normalized))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

// normalizeDurations walks table alongside the struct type t and replaces
// duration strings with nanoseconds in place
func normalizeDurations(table map[string]any, t reflect.Type, prefix string) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
		if name == "-" {
			continue
		}

		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if f.Anonymous && name == "" && ft.Kind() == reflect.Struct {
			if err := normalizeDurations(table, ft, prefix); err != nil {
				return err
			}
			continue
		}
		if name == "" {
			name = f.Name
		}

		key, v, ok := lookup(table, name)
		if !ok {
			continue
		}
		switch {
		case ft == durationType:
			s, isString := v.(string)
			if !isString {
				continue
			}
			d, err := time.ParseDuration(s)
			if err != nil {
				return ErrInvalidDuration(prefix+key, s, err)
			}
			table[key] = int64(d)
		case ft.Kind() == reflect.Struct:
			if sub, isTable := v.(map[string]any); isTable {
				if err := normalizeDurations(sub, ft, prefix+key+"."); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// lookup finds name in table, falling back to a case-insensitive match the
// way the decoder does
func lookup(table map[string]any, name string) (string, any, bool) {
	if v, ok := table[name]; ok {
		return name, v, true
	}
	for k, v := range table {
		if strings.EqualFold(k, name) {
			return k, v, true
		}
	}
	return "", nil, false
}
