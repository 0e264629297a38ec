package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cmms-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresNoticesRepo 通知公告 Repository 实现
type PostgresNoticesRepo struct {
	db *sql.DB
}

func NewPostgresNoticesRepo(db *sql.DB) *PostgresNoticesRepo {
	return &PostgresNoticesRepo{db: db}
}

var _ NoticesRepository = (*PostgresNoticesRepo)(nil)

const noticeColumns = `
	notice_id::text, title, body, department, priority,
	author_id, author_name, published, published_at, created_at, updated_at`

func scanNotice(row interface{ Scan(...any) error }) (*domain.Notice, error) {
	var n domain.Notice
	var body, department sql.NullString
	var publishedAt sql.NullTime
	err := row.Scan(&n.NoticeID, &n.Title, &body, &department, &n.Priority,
		&n.AuthorID, &n.AuthorName, &n.Published, &publishedAt, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	n.Body = body.String
	n.Department = department.String
	if publishedAt.Valid {
		at := publishedAt.Time
		n.PublishedAt = &at
	}
	return &n, nil
}

func (r *PostgresNoticesRepo) CreateNotice(ctx context.Context, n *domain.Notice) (string, error) {
	if n.NoticeID == "" {
		n.NoticeID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notices (notice_id, title, body, department, priority,
			author_id, author_name, published, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,FALSE,NOW(),NOW())`,
		n.NoticeID, n.Title, nullIfEmpty(n.Body), nullIfEmpty(n.Department),
		n.Priority, n.AuthorID, n.AuthorName,
	)
	if err != nil {
		return "", storeErr("failed to create notice", err)
	}
	return n.NoticeID, nil
}

func (r *PostgresNoticesRepo) GetNotice(ctx context.Context, noticeID string) (*domain.Notice, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+noticeColumns+` FROM notices WHERE notice_id = $1`, noticeID)
	n, err := scanNotice(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("notice not found: %w", domain.ErrNotFound)
		}
		return nil, storeErr("failed to get notice", err)
	}
	return n, nil
}

func (r *PostgresNoticesRepo) ListNotices(ctx context.Context, department string, includeGlobal, publishedOnly bool, page, size int) ([]*domain.Notice, int, error) {
	where := []string{}
	args := []any{}
	argN := 1

	if department == "" {
		where = append(where, "department IS NULL")
	} else if includeGlobal {
		where = append(where, fmt.Sprintf("(department = $%d OR department IS NULL)", argN))
		args = append(args, department)
		argN++
	} else {
		where = append(where, fmt.Sprintf("department = $%d", argN))
		args = append(args, department)
		argN++
	}
	if publishedOnly {
		where = append(where, "published = TRUE")
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notices WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, storeErr("failed to count notices", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM notices WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		noticeColumns, whereClause, argN, argN+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, storeErr("failed to list notices", err)
	}
	defer rows.Close()

	items := []*domain.Notice{}
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, 0, storeErr("failed to scan notice", err)
		}
		items = append(items, n)
	}
	return items, total, storeErr("failed to list notices", rows.Err())
}

func (r *PostgresNoticesRepo) UpdateNotice(ctx context.Context, n *domain.Notice) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notices SET
			title = $2, body = $3, department = $4, priority = $5, updated_at = NOW()
		WHERE notice_id = $1`,
		n.NoticeID, n.Title, nullIfEmpty(n.Body), nullIfEmpty(n.Department), n.Priority,
	)
	if err != nil {
		return storeErr("failed to update notice", err)
	}
	return requireRow(res, domain.ErrNotFound)
}

// PublishNotice 单向发布（与记录审核同样的条件更新模式）
func (r *PostgresNoticesRepo) PublishNotice(ctx context.Context, noticeID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notices SET published = TRUE, published_at = $2, updated_at = NOW()
		WHERE notice_id = $1 AND published = FALSE`,
		noticeID, at,
	)
	if err != nil {
		return storeErr("failed to publish notice", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("failed to publish notice", err)
	}
	if n == 0 {
		var published bool
		err := r.db.QueryRowContext(ctx,
			`SELECT published FROM notices WHERE notice_id = $1`, noticeID).Scan(&published)
		if err == sql.ErrNoRows {
			return fmt.Errorf("notice not found: %w", domain.ErrNotFound)
		}
		if err != nil {
			return storeErr("failed to publish notice", err)
		}
		return fmt.Errorf("notice already published: %w", domain.ErrConflict)
	}
	return nil
}

func (r *PostgresNoticesRepo) DeleteNotice(ctx context.Context, noticeID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notices WHERE notice_id = $1`, noticeID)
	if err != nil {
		return storeErr("failed to delete notice", err)
	}
	return requireRow(res, domain.ErrNotFound)
}
