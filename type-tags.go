package ezapi

import (
	"encoding/json"
	"reflect"
)

// None is the payload type of endpoints that take no body.
type None struct{}

const noneTag = "None"

// TypeName is the tag a Go type is matched against in endpoint configuration.
// Pointers are looked through, so *LoginData and LoginData share the tag "LoginData".
func TypeName[T any]() string {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// json.RawMessage matches any tag.
func untyped[T any]() bool {
	return reflect.TypeFor[T]() == reflect.TypeFor[json.RawMessage]()
}
