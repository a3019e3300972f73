package admin

import (
	"bytes"
	"context"
	"testing"

	"github.com/marmos91/catalogadmin/pkg/catalog"
	"github.com/marmos91/catalogadmin/pkg/storageclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storageClassOf(t *testing.T, repo *testRepo, name string) string {
	t.Helper()
	dt, err := repo.reg.GetDatasetType(context.Background(), name)
	require.NoError(t, err)
	return dt.StorageClass
}

func TestUpdateStorageClass_Update(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	var out bytes.Buffer
	report, err := UpdateStorageClass(ctx, repo, StorageClassOptions{
		DatasetType: "*_metadata",
		From:        "StructuredDataDict",
		To:          "Packages",
		Update:      true,
		Out:         &out,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Updated)
	assert.Len(t, report.Candidates, 2)
	assert.Equal(t, "packages.FromDict", report.Converter)
	assert.Equal(t, "Updated 2 dataset type records in database.\n", out.String())

	assert.Equal(t, "Packages", storageClassOf(t, repo, "a_metadata"))
	assert.Equal(t, "Packages", storageClassOf(t, repo, "c_metadata"))
	assert.Equal(t, "StructuredDataDict", storageClassOf(t, repo, "b_other"), "name does not match")
	assert.Equal(t, "ExposureF", storageClassOf(t, repo, "calexp"))
}

func TestUpdateStorageClass_Preview(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	var out bytes.Buffer
	report, err := UpdateStorageClass(ctx, repo, StorageClassOptions{
		DatasetType: "*_metadata",
		From:        "StructuredDataDict",
		To:          "Packages",
		Out:         &out,
	})
	require.NoError(t, err)

	assert.Zero(t, report.Updated)
	require.Len(t, report.Candidates, 2)
	assert.Equal(t, "a_metadata", report.Candidates[0].Name)
	assert.Equal(t, "c_metadata", report.Candidates[1].Name)

	text := out.String()
	assert.Contains(t, text, "Will update storage class for following dataset types:\n")
	assert.Contains(t, text, report.Candidates[0].String()+"\n")
	assert.Contains(t, text, "Payloads will be read through converter packages.FromDict.\n")
	assert.Contains(t, text, "Database was not updated - use --update option to apply these changes.")

	assert.Equal(t, "StructuredDataDict", storageClassOf(t, repo, "a_metadata"), "preview never writes")
}

func TestUpdateStorageClass_OnlySourceClass(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	var out bytes.Buffer
	report, err := UpdateStorageClass(ctx, repo, StorageClassOptions{
		DatasetType: "calexp",
		From:        "StructuredDataDict",
		To:          "Packages",
		Update:      true,
		Out:         &out,
	})
	require.NoError(t, err)
	assert.Empty(t, report.Candidates)
	assert.Equal(t, "No matching dataset types were found.\n", out.String())
	assert.Equal(t, "ExposureF", storageClassOf(t, repo, "calexp"))
}

func TestUpdateStorageClass_Rejected(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		from    string
		to      string
		prepare func(t *testing.T, classes *storageclass.Factory)
		wantErr error
		wantMsg string
	}{
		{
			name:    "UnknownSource",
			from:    "NoSuchClass",
			to:      "Packages",
			wantErr: ErrUnknownStorageClass,
		},
		{
			name:    "UnknownTarget",
			from:    "StructuredDataDict",
			to:      "NoSuchClass",
			wantErr: ErrUnknownStorageClass,
		},
		{
			name: "UnloadableBinding",
			from: "StructuredDataDict",
			to:   "PluginDict",
			prepare: func(t *testing.T, classes *storageclass.Factory) {
				require.NoError(t, classes.Register(storageclass.StorageClass{
					Name:       "PluginDict",
					Binding:    "plugin.Dict",
					Converters: map[string]string{"dict": "plugin.FromDict"},
				}))
			},
			wantErr: ErrUnloadableBinding,
		},
		{
			name:    "Incompatible",
			from:    "StructuredDataDict",
			to:      "ButlerLogRecords",
			wantErr: ErrIncompatibleConversion,
			wantMsg: "it accepts bindings list",
		},
		{
			name:    "WrongDirection",
			from:    "Packages",
			to:      "StructuredDataDict",
			wantErr: ErrIncompatibleConversion,
			wantMsg: "it accepts no other bindings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepo(t)
			if tt.prepare != nil {
				tt.prepare(t, repo.classes)
			}

			var out bytes.Buffer
			_, err := UpdateStorageClass(ctx, repo, StorageClassOptions{
				DatasetType: catalog.Everything,
				From:        tt.from,
				To:          tt.to,
				Update:      true,
				Out:         &out,
			})
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.ErrorContains(t, err, tt.wantMsg)
			}
			assert.Empty(t, out.String())

			for _, name := range []string{"a_metadata", "b_other", "c_metadata"} {
				assert.Equal(t, "StructuredDataDict", storageClassOf(t, repo, name))
			}
		})
	}
}
