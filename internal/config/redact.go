package config

import (
	"reflect"
	"strings"

	"github.com/agentfirst-data/afpsql/internal/secretstore"
)

// Redacted returns a copy of rt with every "_secret" field replaced by the
// redaction sentinel, safe to serialize into a `config` echo or `log` event
// (spec §4.4, invariant 5, §9).
func Redacted(rt Runtime) Runtime {
	out := rt
	out.Sessions = make(map[string]SessionSpec, len(rt.Sessions))
	for name, s := range rt.Sessions {
		out.Sessions[name] = redactSession(s)
	}
	return out
}

// redactSession walks SessionSpec's fields by their json tag and redacts
// any *string field whose name satisfies secretstore.IsSecretField's
// "_secret" suffix contract, instead of hardcoding the three known fields.
func redactSession(s SessionSpec) SessionSpec {
	sentinel := secretstore.Sentinel
	v := reflect.ValueOf(&s).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if !secretstore.IsSecretField(name) {
			continue
		}
		field := v.Field(i)
		if field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.String && !field.IsNil() {
			field.Set(reflect.ValueOf(&sentinel))
		}
	}
	return s
}
