// Package storageclass defines storage classes: named payload bindings with a
// one-directional convertibility relation.
//
// Storage classes are flat records. There is no inheritance; a class declares
// which source bindings it can convert from by listing a converter for each.
// A class's binding must be present in the binding registry before the class
// can be used, mirroring a dynamic type import that may fail at runtime.
package storageclass

import (
	"errors"
	"sort"
)

var (
	// ErrNotFound is returned when a storage class name is unknown.
	ErrNotFound = errors.New("storage class not found")

	// ErrBindingUnavailable is returned when a class's binding is not registered.
	ErrBindingUnavailable = errors.New("storage class binding is not available")
)

// StorageClass is a named payload binding.
type StorageClass struct {
	// Name uniquely identifies the class.
	Name string `yaml:"-" validate:"required"`

	// Binding names the native type that holds payloads of this class.
	Binding string `yaml:"binding" validate:"required"`

	// Converters maps a source binding to the converter that produces this
	// class's binding from it.
	Converters map[string]string `yaml:"converters,omitempty" validate:"omitempty,dive,keys,required,endkeys,required"`
}

// CanConvert reports whether payloads of from can be converted into sc.
//
// The relation is directed: sc.CanConvert(from) does not imply
// from.CanConvert(sc). A class can always convert from itself and from any
// class sharing its binding.
func (sc StorageClass) CanConvert(from StorageClass) bool {
	_, ok := sc.ConverterFrom(from)
	return ok
}

// ConverterFrom returns the converter that produces sc from from, if any.
// An empty string with ok true means no conversion is needed.
func (sc StorageClass) ConverterFrom(from StorageClass) (converter string, ok bool) {
	if sc.Name == from.Name || sc.Binding == from.Binding {
		return "", true
	}
	converter, ok = sc.Converters[from.Binding]
	return converter, ok
}

// SourceBindings returns the bindings this class can convert from, sorted.
func (sc StorageClass) SourceBindings() []string {
	out := make([]string, 0, len(sc.Converters))
	for b := range sc.Converters {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

func (sc StorageClass) String() string {
	return sc.Name
}
