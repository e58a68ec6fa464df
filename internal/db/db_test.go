package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectorFor(t *testing.T) {
	cases := map[string]string{
		"sqlite::memory:":  "sqlite",
		"./data/cobalt.db": "sqlite",
		"app:apppass@tcp(127.0.0.1:3306)/cobalt?parseTime=true": "mysql",
	}
	for dsn, want := range cases {
		d, err := dialectorFor(dsn)
		require.NoError(t, err, dsn)
		assert.Equal(t, want, d.Name(), dsn)
	}

	_, err := dialectorFor("  ")
	assert.Error(t, err)
}

func TestOpenSQLiteMemory(t *testing.T) {
	gdb, err := Open("sqlite:file:dbtest?mode=memory&cache=shared")
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())
}
