package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuckDBSelfRegistration(t *testing.T) {
	_, ok := Get("duckdb")
	assert.True(t, ok, "duckdb adapter should be auto-registered")
	assert.Contains(t, ListAdapters(), "duckdb")
}

func TestNew(t *testing.T) {
	a, err := New(Config{Type: "duckdb"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &DuckDBAdapter{}, a)

	_, err = New(Config{}, nil)
	assert.ErrorContains(t, err, "adapter type not specified")

	_, err = New(Config{Type: "postgres"}, nil)
	var unknown *UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "postgres", unknown.Type)
	assert.Contains(t, unknown.Available, "duckdb")
	assert.Contains(t, err.Error(), "Available adapters")
}
