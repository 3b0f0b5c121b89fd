// Package postgres is the relational implementation of the record store.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/yohanna4/song-manager/internal/domain"
	"github.com/yohanna4/song-manager/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// Migrations holds the schema, applied with db.Migrator.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

const songColumns = `id, title, artist, album, genre, release_date, play_count, created_at, updated_at`

// byteOrderID orders ids byte-wise like the other stores.
const byteOrderID = `id COLLATE "C"`

// sortColumns whitelists ORDER BY targets. Text columns sort with the "C"
// collation so the order is byte-wise whatever the database locale.
var sortColumns = map[string]string{
	repository.SortCreatedAt:   "created_at",
	repository.SortUpdatedAt:   "updated_at",
	repository.SortTitle:       `title COLLATE "C"`,
	repository.SortArtist:      `artist COLLATE "C"`,
	repository.SortAlbum:       `album COLLATE "C"`,
	repository.SortGenre:       `genre COLLATE "C"`,
	repository.SortReleaseDate: "release_date",
	repository.SortPlayCount:   "play_count",
}

// SongRepository stores songs in the songs table.
type SongRepository struct {
	db *pgxpool.Pool
}

var _ repository.SongRepository = (*SongRepository)(nil)

// NewSongRepository wraps an open pool.
func NewSongRepository(db *pgxpool.Pool) *SongRepository {
	return &SongRepository{db: db}
}

const filterClause = `
	WHERE ($1 = '' OR genre = $1)
	  AND ($2 = '' OR artist = $2)
	  AND ($3 = '' OR album = $3)`

// orderClause builds ORDER BY from the whitelist; unknown fields order by id.
// NULL release dates sort first ascending, matching the in-memory order.
func orderClause(opts repository.ListOptions) string {
	dir := "ASC"
	nulls := "NULLS FIRST"
	if opts.Descending {
		dir = "DESC"
		nulls = "NULLS LAST"
	}
	col, ok := sortColumns[opts.SortField]
	if !ok {
		return fmt.Sprintf(" ORDER BY %s %s", byteOrderID, dir)
	}
	return fmt.Sprintf(" ORDER BY %s %s %s, %s ASC", col, dir, nulls, byteOrderID)
}

func (r *SongRepository) List(ctx context.Context, opts repository.ListOptions) ([]*domain.Song, int, error) {
	f := opts.Filter

	var (
		songs []*domain.Song
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.db.QueryRow(gctx, `SELECT COUNT(*) FROM songs`+filterClause, f.Genre, f.Artist, f.Album).Scan(&total)
	})
	g.Go(func() error {
		var limit any
		if opts.Limit > 0 {
			limit = opts.Limit
		}
		query := `SELECT ` + songColumns + ` FROM songs` + filterClause + orderClause(opts) + ` LIMIT $4 OFFSET $5`
		rows, err := r.db.Query(gctx, query, f.Genre, f.Artist, f.Album, limit, max(opts.Skip, 0))
		if err != nil {
			return err
		}
		songs, err = collect(rows)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return songs, total, nil
}

func (r *SongRepository) Get(ctx context.Context, id string) (*domain.Song, error) {
	rows, err := r.db.Query(ctx, `SELECT `+songColumns+` FROM songs WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	song, err := pgx.CollectExactlyOneRow(rows, scanSong)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSongNotFound
	}
	if err != nil {
		return nil, err
	}
	return song, nil
}

func (r *SongRepository) Create(ctx context.Context, s *domain.Song) error {
	query := `
		INSERT INTO songs (` + songColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.Title,
		s.Artist,
		s.Album,
		s.Genre,
		s.ReleaseDate,
		s.PlayCount,
		s.CreatedAt,
		s.UpdatedAt,
	)
	return err
}

func (r *SongRepository) Update(ctx context.Context, s *domain.Song) error {
	query := `
		UPDATE songs
		SET title = $2, artist = $3, album = $4, genre = $5,
		    release_date = $6, play_count = $7, updated_at = $8
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query,
		s.ID,
		s.Title,
		s.Artist,
		s.Album,
		s.Genre,
		s.ReleaseDate,
		s.PlayCount,
		s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSongNotFound
	}
	return nil
}

func (r *SongRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM songs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSongNotFound
	}
	return nil
}

func (r *SongRepository) All(ctx context.Context) ([]*domain.Song, error) {
	rows, err := r.db.Query(ctx, `SELECT `+songColumns+` FROM songs ORDER BY created_at ASC, `+byteOrderID+` ASC`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (r *SongRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *SongRepository) Close(context.Context) error {
	r.db.Close()
	return nil
}

func scanSong(row pgx.CollectableRow) (*domain.Song, error) {
	var s domain.Song
	err := row.Scan(
		&s.ID,
		&s.Title,
		&s.Artist,
		&s.Album,
		&s.Genre,
		&s.ReleaseDate,
		&s.PlayCount,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collect(rows pgx.Rows) ([]*domain.Song, error) {
	return pgx.CollectRows(rows, scanSong)
}
