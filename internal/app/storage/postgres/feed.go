package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pawmate/pawmate/internal/app/domain/date"
	"github.com/pawmate/pawmate/internal/app/domain/feed"
)

type postRow struct {
	ID                 string         `db:"id"`
	AuthorID           string         `db:"author_id"`
	Kind               string         `db:"kind"`
	Content            string         `db:"content"`
	VacancyPetID       sql.NullString `db:"vacancy_pet_id"`
	VacancyStartDate   date.Date      `db:"vacancy_start_date"`
	VacancyEndDate     date.Date      `db:"vacancy_end_date"`
	VacancyCity        sql.NullString `db:"vacancy_city"`
	VacancyBudgetCents sql.NullInt64  `db:"vacancy_budget_cents"`
	LikeCount          int            `db:"like_count"`
	CommentCount       int            `db:"comment_count"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func (r postRow) post() feed.Post {
	p := feed.Post{
		ID:           r.ID,
		AuthorID:     r.AuthorID,
		Kind:         feed.Kind(r.Kind),
		Content:      r.Content,
		Media:        []feed.Media{},
		LikeCount:    r.LikeCount,
		CommentCount: r.CommentCount,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if p.Kind == feed.KindVacancy {
		p.Vacancy = &feed.Vacancy{
			PetID:       r.VacancyPetID.String,
			StartDate:   r.VacancyStartDate,
			EndDate:     r.VacancyEndDate,
			City:        r.VacancyCity.String,
			BudgetCents: r.VacancyBudgetCents.Int64,
		}
	}
	return p
}

// vacancyArgs returns the nullable vacancy columns of p.
func vacancyArgs(p feed.Post) []interface{} {
	if p.Vacancy == nil {
		return []interface{}{nil, nil, nil, nil, nil}
	}
	v := p.Vacancy
	return []interface{}{v.PetID, v.StartDate, v.EndDate, v.City, v.BudgetCents}
}

const postSelect = `
	SELECT p.id, p.author_id, p.kind, p.content, p.vacancy_pet_id, p.vacancy_start_date, p.vacancy_end_date,
		p.vacancy_city, p.vacancy_budget_cents, p.created_at, p.updated_at,
		(SELECT count(*) FROM post_likes l WHERE l.post_id = p.id) AS like_count,
		(SELECT count(*) FROM post_comments c WHERE c.post_id = p.id) AS comment_count
	FROM posts p`

func (s *Store) CreatePost(ctx context.Context, p feed.Post) (feed.Post, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	args := append([]interface{}{p.ID, p.AuthorID, p.Kind, p.Content}, vacancyArgs(p)...)
	args = append(args, p.CreatedAt, p.UpdatedAt)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, author_id, kind, content, vacancy_pet_id, vacancy_start_date, vacancy_end_date,
			vacancy_city, vacancy_budget_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, args...)
	if err != nil {
		return feed.Post{}, mapErr(err)
	}
	p.Media = []feed.Media{}
	return p, nil
}

func (s *Store) UpdatePost(ctx context.Context, p feed.Post) (feed.Post, error) {
	args := append([]interface{}{p.ID, p.Content}, vacancyArgs(p)...)
	args = append(args, now())
	err := expectRow(s.db.ExecContext(ctx, `
		UPDATE posts
		SET content = $2, vacancy_pet_id = $3, vacancy_start_date = $4, vacancy_end_date = $5,
			vacancy_city = $6, vacancy_budget_cents = $7, updated_at = $8
		WHERE id = $1
	`, args...))
	if err != nil {
		return feed.Post{}, err
	}
	return s.GetPost(ctx, p.ID)
}

func (s *Store) GetPost(ctx context.Context, id string) (feed.Post, error) {
	var row postRow
	if err := s.db.GetContext(ctx, &row, postSelect+` WHERE p.id = $1`, id); err != nil {
		return feed.Post{}, mapErr(err)
	}
	posts, err := s.withMedia(ctx, []postRow{row})
	if err != nil {
		return feed.Post{}, err
	}
	return posts[0], nil
}

func (s *Store) ListPosts(ctx context.Context, filter feed.Filter) ([]feed.Post, error) {
	var w where
	if filter.Kind != "" {
		w.add("p.kind = ?", string(filter.Kind))
	}
	if filter.AuthorID != "" {
		w.add("p.author_id = ?", filter.AuthorID)
	}
	query := postSelect + w.String() + ` ORDER BY p.created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ` + w.next(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + w.next(filter.Offset)
	}

	var rows []postRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), w.args...); err != nil {
		return nil, mapErr(err)
	}
	return s.withMedia(ctx, rows)
}

func (s *Store) withMedia(ctx context.Context, rows []postRow) ([]feed.Post, error) {
	posts := make([]feed.Post, 0, len(rows))
	ids := make([]string, 0, len(rows))
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		posts = append(posts, r.post())
		ids = append(ids, r.ID)
		index[r.ID] = i
	}
	if len(ids) == 0 {
		return posts, nil
	}

	var media []feed.Media
	err := s.db.SelectContext(ctx, &media, `
		SELECT id, post_id, url, blob_key, content_type, size_bytes, created_at
		FROM post_media WHERE post_id = ANY($1) ORDER BY created_at
	`, pq.Array(ids))
	if err != nil {
		return nil, mapErr(err)
	}
	for _, m := range media {
		i := index[m.PostID]
		posts[i].Media = append(posts[i].Media, m)
	}
	return posts, nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	return expectRow(s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id))
}

func (s *Store) AddMedia(ctx context.Context, m feed.Media) (feed.Media, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = now()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO post_media (id, post_id, url, blob_key, content_type, size_bytes, created_at)
		VALUES (:id, :post_id, :url, :blob_key, :content_type, :size_bytes, :created_at)
	`, m)
	if err != nil {
		return feed.Media{}, mapErr(err)
	}
	return m, nil
}

func (s *Store) CreateComment(ctx context.Context, c feed.Comment) (feed.Comment, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = now()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO post_comments (id, post_id, author_id, content, created_at)
		VALUES (:id, :post_id, :author_id, :content, :created_at)
	`, c)
	if err != nil {
		return feed.Comment{}, mapErr(err)
	}
	return c, nil
}

func (s *Store) GetComment(ctx context.Context, id string) (feed.Comment, error) {
	var c feed.Comment
	err := s.db.GetContext(ctx, &c, `SELECT id, post_id, author_id, content, created_at FROM post_comments WHERE id = $1`, id)
	if err != nil {
		return feed.Comment{}, mapErr(err)
	}
	return c, nil
}

func (s *Store) ListComments(ctx context.Context, postID string) ([]feed.Comment, error) {
	var out []feed.Comment
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, post_id, author_id, content, created_at FROM post_comments WHERE post_id = $1 ORDER BY created_at
	`, postID)
	return out, mapErr(err)
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	return expectRow(s.db.ExecContext(ctx, `DELETE FROM post_comments WHERE id = $1`, id))
}

func (s *Store) Like(ctx context.Context, postID, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO post_likes (post_id, user_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`, postID, userID, now())
	if err != nil {
		return false, mapErr(err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (s *Store) Unlike(ctx context.Context, postID, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	return mapErr(err)
}

func (s *Store) LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool)
	if len(postIDs) == 0 {
		return liked, nil
	}
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT post_id FROM post_likes WHERE user_id = $1 AND post_id = ANY($2)
	`, userID, pq.Array(postIDs))
	if err != nil {
		return nil, mapErr(err)
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}
