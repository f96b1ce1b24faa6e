package vload_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/vload/pkg/vload"
)

func validLoadJob() *vload.LoadJob {
	return &vload.LoadJob{
		UpdateID: "metrics_2024-01-01",
		Table:    "metrics",
		Columns:  []string{"metric", "value"},
		Rows:     vload.SliceSource{{"cpu", 1}},
	}
}

func TestLoadJob_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(j *vload.LoadJob)
		errMsg string
	}{
		{name: "missing update id", mutate: func(j *vload.LoadJob) { j.UpdateID = " " }, errMsg: "UpdateID is required"},
		{name: "missing table", mutate: func(j *vload.LoadJob) { j.Table = "" }, errMsg: "table and columns need to be specified"},
		{name: "missing rows", mutate: func(j *vload.LoadJob) { j.Rows = nil }, errMsg: "Rows is required"},
		{name: "missing columns", mutate: func(j *vload.LoadJob) { j.Columns = nil }, errMsg: "columns must consist of"},
		{name: "multi-char separator", mutate: func(j *vload.LoadJob) { j.Separator = "||" }, errMsg: "column separator"},
		{name: "multi-byte separator", mutate: func(j *vload.LoadJob) { j.Separator = "§" }, errMsg: "column separator"},
		{name: "newline separator", mutate: func(j *vload.LoadJob) { j.Separator = "\n" }, errMsg: "column separator"},
		{name: "backslash separator", mutate: func(j *vload.LoadJob) { j.Separator = `\` }, errMsg: "column separator"},
		{name: "letter separator", mutate: func(j *vload.LoadJob) { j.Separator = "n" }, errMsg: "COPY escape character"},
		{name: "digit separator", mutate: func(j *vload.LoadJob) { j.Separator = "7" }, errMsg: "COPY escape character"},
		{name: "dot separator", mutate: func(j *vload.LoadJob) { j.Separator = "." }, errMsg: "COPY escape character"},
		{name: "null escape separator", mutate: func(j *vload.LoadJob) { j.Separator = "N" }, errMsg: "COPY escape character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := validLoadJob()
			tt.mutate(job)
			_, err := job.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, vload.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadJob_ValidateReturnsColumns(t *testing.T) {
	for _, sep := range []string{"|", ";", "\x01", "X", "'"} {
		job := validLoadJob()
		job.Separator = sep
		_, err := job.Validate()
		assert.NoError(t, err, "separator %q", sep)
	}

	job := validLoadJob()
	job.Separator = ","
	cols, err := job.Validate()
	require.NoError(t, err)
	assert.Equal(t, []string{"metric", "value"}, vload.ColumnNames(cols))
	assert.Equal(t, ",", job.EffectiveSeparator())

	job.Separator = ""
	assert.Equal(t, vload.DefaultColumnSeparator, job.EffectiveSeparator())
}

func TestQueryJob_Validate(t *testing.T) {
	valid := vload.QueryJob{UpdateID: "q1", Table: "metrics", SQL: "DELETE FROM metrics"}
	assert.NoError(t, valid.Validate())

	empty := vload.QueryJob{}
	err := empty.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, vload.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "UpdateID is required")
	assert.Contains(t, err.Error(), "Table is required")
	assert.Contains(t, err.Error(), "SQL is required")
}

func TestSliceSource_Rows(t *testing.T) {
	src := vload.SliceSource{{"a", 1}, {"b", 2}, {"c", 3}}

	var got []any
	for row, err := range src.Rows(context.Background()) {
		require.NoError(t, err)
		got = append(got, row[0])
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []any{"a", "b"}, got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, err := range src.Rows(ctx) {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
