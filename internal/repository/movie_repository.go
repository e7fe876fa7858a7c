package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/movie-reservation/internal/model"
)

// MovieRepo reads the movie catalog and its genres.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo constructs a MovieRepo with the given DB handle.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// MovieFilter narrows List. Zero values mean no filtering.
type MovieFilter struct {
	GenreID uint64
	Title   string // case-insensitive substring
}

const movieColumns = `m.id, m.title, m.description, m.duration_minutes, m.poster_url, m.created_at, m.updated_at`

// List returns movies matching the filter, newest first. Each movie
// appears once even when it has several genres.
func (r *MovieRepo) List(ctx context.Context, f MovieFilter) ([]model.Movie, error) {
	q := `SELECT DISTINCT ` + movieColumns + ` FROM movies m`
	var (
		where []string
		args  []any
	)
	if f.GenreID != 0 {
		q += ` JOIN movie_genres mg ON mg.movie_id = m.id`
		where = append(where, `mg.genre_id = ?`)
		args = append(args, f.GenreID)
	}
	if t := strings.TrimSpace(f.Title); t != "" {
		where = append(where, `LOWER(m.title) LIKE ?`)
		args = append(args, "%"+escapeLike(strings.ToLower(t))+"%")
	}
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, ` AND `)
	}
	q += ` ORDER BY m.created_at DESC, m.id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movies := make([]model.Movie, 0)
	for rows.Next() {
		var m model.Movie
		var poster sql.NullString
		if err := rows.Scan(&m.ID, &m.Title, &m.Description, &m.DurationMinutes, &poster, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		m.PosterURL = poster.String
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachGenres(ctx, movies); err != nil {
		return nil, err
	}
	return movies, nil
}

// GetByID returns one movie with its genres, or ErrMovieNotFound.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	var m model.Movie
	var poster sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT `+movieColumns+` FROM movies m WHERE m.id = ?`, id).
		Scan(&m.ID, &m.Title, &m.Description, &m.DurationMinutes, &poster, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	m.PosterURL = poster.String
	list := []model.Movie{m}
	if err := r.attachGenres(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Genres returns all genres ordered by name.
func (r *MovieRepo) Genres(ctx context.Context) ([]model.Genre, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM genres ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Genre, 0)
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// EnsureGenre returns the id of the named genre, creating it if needed.
func (r *MovieRepo) EnsureGenre(ctx context.Context, name string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO genres (name) VALUES (?) ON DUPLICATE KEY UPDATE id = LAST_INSERT_ID(id)`, name)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// EnsureMovie returns the id of the movie with m.Title, inserting m and
// linking genreIDs when it does not exist yet.
func (r *MovieRepo) EnsureMovie(ctx context.Context, m model.Movie, genreIDs []uint64) (uint64, error) {
	var id uint64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM movies WHERE title = ? LIMIT 1`, m.Title).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var poster any
	if m.PosterURL != "" {
		poster = m.PosterURL
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO movies (title, description, duration_minutes, poster_url) VALUES (?, ?, ?, ?)`,
		m.Title, m.Description, m.DurationMinutes, poster)
	if err != nil {
		return 0, err
	}
	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, gid := range genreIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT IGNORE INTO movie_genres (movie_id, genre_id) VALUES (?, ?)`, lastID, gid); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return uint64(lastID), nil
}

func (r *MovieRepo) attachGenres(ctx context.Context, movies []model.Movie) error {
	if len(movies) == 0 {
		return nil
	}
	idx := make(map[uint64]int, len(movies))
	args := make([]any, len(movies))
	for i := range movies {
		movies[i].Genres = []model.Genre{}
		idx[movies[i].ID] = i
		args[i] = movies[i].ID
	}
	q := `SELECT mg.movie_id, g.id, g.name
	      FROM movie_genres mg JOIN genres g ON g.id = mg.genre_id
	      WHERE mg.movie_id IN (?` + strings.Repeat(",?", len(movies)-1) + `)
	      ORDER BY g.name`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var movieID uint64
		var g model.Genre
		if err := rows.Scan(&movieID, &g.ID, &g.Name); err != nil {
			return err
		}
		if i, ok := idx[movieID]; ok {
			movies[i].Genres = append(movies[i].Genres, g)
		}
	}
	return rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
