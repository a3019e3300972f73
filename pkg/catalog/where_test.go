package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileWhere_Empty(t *testing.T) {
	p, err := CompileWhere("   ")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.True(t, p.Match(DatasetRef{DatasetType: "raw"}))
}

func TestCompileWhere_Errors(t *testing.T) {
	for _, expr := range []string{
		"run ==",           // parse error
		"unknown_var == 1", // undeclared variable
		`run + "x"`,        // not boolean
	} {
		_, err := CompileWhere(expr)
		require.Error(t, err, expr)
		assert.True(t, IsInvalidArgument(err), expr)
	}
}

func TestWherePredicate_Match(t *testing.T) {
	ref := DatasetRef{
		ID:          NewDatasetID(),
		DatasetType: "calexp",
		DataID:      DataID{"instrument": "HSC", "visit": 903334},
		Run:         "HSC/runs/RC2",
	}

	tests := []struct {
		expr string
		want bool
	}{
		{`run == "HSC/runs/RC2"`, true},
		{`run.startsWith("LSST")`, false},
		{`dataset_type == "calexp" && data_id.visit > 900000`, true},
		{`data_id.instrument == "LSSTCam"`, false},
		{`data_id.detector == 10`, false},
		{`has(data_id.detector) || data_id.visit == 903334`, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			p, err := CompileWhere(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Match(ref))
			assert.Equal(t, tt.expr, p.String())
		})
	}
}
