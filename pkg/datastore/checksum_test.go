package datastore

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest(t *testing.T) {
	sum, err := Digest(strings.NewReader("hello"), "md5")
	require.NoError(t, err)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", sum)

	sum, err = Digest(strings.NewReader("hello"), "SHA256")
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)

	_, err = Digest(strings.NewReader("hello"), "crc32")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestStoredFileInfoUpdate(t *testing.T) {
	info := StoredFileInfo{DatasetID: uuid.New(), Path: "run/a.json", FileSize: 3}
	updated := info.Update("abc")

	assert.Empty(t, info.Checksum, "original is not modified")
	assert.Equal(t, "abc", updated.Checksum)
	assert.Equal(t, info.Path, updated.Path)
	assert.Equal(t, info.Key(), updated.Key())
}
