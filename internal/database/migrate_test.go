package database

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMigrateDirection(t *testing.T) {
	tcases := []struct {
		in      string
		want    MigrateDirection
		wantErr bool
	}{
		{in: "up", want: MigrateUp},
		{in: "down", want: MigrateDown},
		{in: "sideways", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tc := range tcases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseMigrateDirection(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMigrationFiles(t *testing.T) {
	ups, err := fs.Glob(migrationFS, "migrations/*.up.sql")
	assert.NoError(t, err)
	downs, err := fs.Glob(migrationFS, "migrations/*.down.sql")
	assert.NoError(t, err)

	assert.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups), "every up migration needs a down")

	schema, err := fs.ReadFile(migrationFS, "migrations/000001_create_rooms.up.sql")
	assert.NoError(t, err)
	assert.Contains(t, string(schema), "ON DELETE CASCADE")
}
