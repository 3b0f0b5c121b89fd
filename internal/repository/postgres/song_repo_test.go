package postgres

import (
	"io/fs"
	"testing"

	"github.com/yohanna4/song-manager/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name string
		opts repository.ListOptions
		want string
	}{
		{"created desc", repository.ListOptions{SortField: "createdAt", Descending: true}, ` ORDER BY created_at DESC NULLS LAST, id COLLATE "C" ASC`},
		{"play count asc", repository.ListOptions{SortField: "playCount"}, ` ORDER BY play_count ASC NULLS FIRST, id COLLATE "C" ASC`},
		{"title sorts byte-wise", repository.ListOptions{SortField: "title", Descending: true}, ` ORDER BY title COLLATE "C" DESC NULLS LAST, id COLLATE "C" ASC`},
		{"artist sorts byte-wise", repository.ListOptions{SortField: "artist"}, ` ORDER BY artist COLLATE "C" ASC NULLS FIRST, id COLLATE "C" ASC`},
		{"injection attempt", repository.ListOptions{SortField: "title; DROP TABLE songs"}, ` ORDER BY id COLLATE "C" ASC`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, orderClause(tt.opts))
		})
	}
}

func TestSortColumnsCoverEverySortField(t *testing.T) {
	for _, field := range repository.SortFields {
		assert.Contains(t, sortColumns, field)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(Migrations, MigrationsDir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_create_songs.up.sql")
	assert.Contains(t, names, "000001_create_songs.down.sql")
}
