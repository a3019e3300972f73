package s3

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
)

func TestObjectKeys(t *testing.T) {
	s := &S3ArtifactStore{bucket: "data", keyPrefix: "repo/", metrics: noopMetrics{}}

	assert.Equal(t, "repo/run/1/a.fits", s.objectKey("run/1/a.fits"))
	assert.Equal(t, "repo/run/1/a.fits", s.objectKey("/run/1/a.fits"))
	assert.Equal(t, "run/1/a.fits", s.pathFromKey("repo/run/1/a.fits"))
	assert.Equal(t, "s3://data/repo/run/1/a.fits", s.URI("run/1/a.fits"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(fmt.Errorf("get: %w", &types.NoSuchKey{})))
	assert.True(t, isNotFound(&types.NotFound{}))
	assert.False(t, isNotFound(errors.New("access denied")))
}
