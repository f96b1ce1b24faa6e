package loader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/vload/internal/testing/fakedb"
	"github.com/vvka-141/vload/pkg/vload"
)

func TestDefaultTableCreator(t *testing.T) {
	ctx := context.Background()
	d := fakedb.New(vload.DialectVertica)
	s, err := d.Connect(ctx)
	require.NoError(t, err)
	defer s.Close(ctx)

	err = DefaultTableCreator.CreateTable(ctx, s, "public.m", []vload.Column{
		{Name: "metric", Type: "VARCHAR(100)"},
		{Name: "value", Type: "NUMERIC(10,2)"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"CREATE TABLE public.m (metric VARCHAR(100),value NUMERIC(10,2))"}, d.Statements())
	assert.True(t, d.HasTable("public.m"))
}

func TestDefaultTableCreator_Untyped(t *testing.T) {
	ctx := context.Background()
	d := fakedb.New(vload.DialectVertica)
	s, _ := d.Connect(ctx)
	defer s.Close(ctx)

	err := DefaultTableCreator.CreateTable(ctx, s, "m", []vload.Column{{Name: "metric"}})
	assert.ErrorIs(t, err, vload.ErrInvalidConfig)
	assert.Empty(t, d.Statements())
}
