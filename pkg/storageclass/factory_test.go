package storageclass

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFactory(t *testing.T) {
	f, err := NewDefaultFactory()
	require.NoError(t, err)

	for _, name := range []string{"StructuredDataDict", "Packages", "ButlerLogRecords", "ExposureF"} {
		sc, err := f.Get(name)
		require.NoError(t, err, name)
		assert.NoError(t, f.ResolveBinding(sc), name)
	}

	_, err = f.Get("NoSuchClass")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCanConvert(t *testing.T) {
	f, err := NewDefaultFactory()
	require.NoError(t, err)

	get := func(name string) StorageClass {
		sc, err := f.Get(name)
		require.NoError(t, err)
		return sc
	}

	dict := get("StructuredDataDict")
	packages := get("Packages")
	logs := get("ButlerLogRecords")

	assert.True(t, packages.CanConvert(dict), "Packages converts from StructuredDataDict")
	assert.False(t, dict.CanConvert(packages), "relation is one-directional")
	assert.False(t, logs.CanConvert(packages))
	assert.True(t, dict.CanConvert(dict), "reflexive")

	alias := StorageClass{Name: "DictAlias", Binding: "dict"}
	assert.True(t, alias.CanConvert(dict), "shared binding")

	conv, ok := packages.ConverterFrom(dict)
	assert.True(t, ok)
	assert.Equal(t, "packages.FromDict", conv)
	assert.Equal(t, []string{"dict"}, packages.SourceBindings())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bindings:
  - plugin.Catalog
storage_classes:
  SourceCatalog:
    binding: plugin.Catalog
    converters:
      table: plugin.FromTable
  Orphan:
    binding: missing.Type
`), 0o644))

	f, err := NewDefaultFactory()
	require.NoError(t, err)
	require.NoError(t, f.LoadFile(path))

	catalog, err := f.Get("SourceCatalog")
	require.NoError(t, err)
	assert.NoError(t, f.ResolveBinding(catalog))

	table, err := f.Get("ArrowTable")
	require.NoError(t, err)
	assert.True(t, catalog.CanConvert(table))

	orphan, err := f.Get("Orphan")
	require.NoError(t, err)
	assert.ErrorIs(t, f.ResolveBinding(orphan), ErrBindingUnavailable)
}

func TestLoad_Invalid(t *testing.T) {
	f := NewFactory()

	err := f.Load(strings.NewReader("storage_classes:\n  Broken:\n    converters:\n      dict: x\n"))
	require.Error(t, err, "binding is required")
	assert.False(t, f.Exists("Broken"))

	err = f.Load(strings.NewReader("storage_classes:\n  Broken:\n    binding: x\n    bogus: 1\n"))
	assert.Error(t, err, "unknown fields are rejected")
}

func TestRegister(t *testing.T) {
	f := NewFactory()
	require.NoError(t, f.Register(StorageClass{Name: "A", Binding: "a"}))
	assert.Error(t, f.Register(StorageClass{Name: "B"}))
	assert.Equal(t, []string{"A"}, f.Names())

	a, err := f.Get("A")
	require.NoError(t, err)
	assert.ErrorIs(t, f.ResolveBinding(a), ErrBindingUnavailable)

	f.RegisterBinding("a")
	assert.NoError(t, f.ResolveBinding(a))
}
