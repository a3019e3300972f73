package storageclass

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultDefinitions []byte

// definitionFile is the YAML layout of a storage class definition file.
type definitionFile struct {
	// Bindings lists native types made available by this file.
	Bindings []string `yaml:"bindings"`

	// StorageClasses maps class name to definition.
	StorageClasses map[string]StorageClass `yaml:"storage_classes"`
}

// Factory is the schema catalog: the set of known storage classes and the
// registry of bindings that can be resolved in this process.
//
// Thread Safety:
// All methods are safe for concurrent use.
type Factory struct {
	mu       sync.RWMutex
	classes  map[string]StorageClass
	bindings map[string]struct{}
	validate *validator.Validate
}

// NewFactory creates an empty factory with no classes or bindings.
func NewFactory() *Factory {
	return &Factory{
		classes:  make(map[string]StorageClass),
		bindings: make(map[string]struct{}),
		validate: validator.New(),
	}
}

// NewDefaultFactory creates a factory preloaded with the built-in classes.
func NewDefaultFactory() (*Factory, error) {
	f := NewFactory()
	if err := f.Load(bytes.NewReader(defaultDefinitions)); err != nil {
		return nil, fmt.Errorf("failed to load built-in storage classes: %w", err)
	}
	return f, nil
}

// LoadFile reads additional definitions from a YAML file. Classes in the
// file replace existing classes of the same name.
func (f *Factory) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open storage class definitions: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := f.Load(file); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Load reads definitions from r. The whole document is validated before any
// class or binding is added.
func (f *Factory) Load(r io.Reader) error {
	var def definitionFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil && err != io.EOF {
		return fmt.Errorf("failed to parse storage class definitions: %w", err)
	}

	classes := make([]StorageClass, 0, len(def.StorageClasses))
	for name, sc := range def.StorageClasses {
		sc.Name = name
		if err := f.validate.Struct(sc); err != nil {
			return fmt.Errorf("invalid storage class %q: %w", name, err)
		}
		classes = append(classes, sc)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, b := range def.Bindings {
		f.bindings[b] = struct{}{}
	}
	for _, sc := range classes {
		f.classes[sc.Name] = sc
	}
	return nil
}

// Register adds or replaces a storage class.
func (f *Factory) Register(sc StorageClass) error {
	if err := f.validate.Struct(sc); err != nil {
		return fmt.Errorf("invalid storage class %q: %w", sc.Name, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.classes[sc.Name] = sc
	return nil
}

// RegisterBinding makes bindings resolvable.
func (f *Factory) RegisterBinding(bindings ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range bindings {
		f.bindings[b] = struct{}{}
	}
}

// Get returns a storage class by name.
//
// Returns:
//   - error: wraps ErrNotFound when the class is unknown
func (f *Factory) Get(name string) (StorageClass, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	sc, ok := f.classes[name]
	if !ok {
		return StorageClass{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return sc, nil
}

// ResolveBinding checks that the class's binding is registered.
//
// Returns:
//   - error: wraps ErrBindingUnavailable when the binding is unknown
func (f *Factory) ResolveBinding(sc StorageClass) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if _, ok := f.bindings[sc.Binding]; !ok {
		return fmt.Errorf("%w: %s (binding %s)", ErrBindingUnavailable, sc.Name, sc.Binding)
	}
	return nil
}

// Names returns all class names sorted.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.classes))
	for n := range f.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Exists reports whether a class is defined.
func (f *Factory) Exists(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.classes[name]
	return ok
}
