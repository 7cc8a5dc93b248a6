package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/C021025/DSASimulator-OJ/internal/domain"
	"github.com/C021025/DSASimulator-OJ/internal/repository"
)

// DB is the subset of *pgxpool.Pool the read model uses.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Ensure ReadModel implements the query interfaces.
var (
	_ repository.SubmissionQuery = (*ReadModel)(nil)
	_ repository.QuestionService = (*ReadModel)(nil)
)

// ReadModel reads questions and submissions from the judge database.
type ReadModel struct {
	db DB
}

// NewReadModel creates a read model over the judge backend's database.
func NewReadModel(db DB) *ReadModel {
	return &ReadModel{db: db}
}

const submissionColumns = `id, question_id, user_id, language, code, judge_info, status, create_time`

func (r *ReadModel) GetSubmission(ctx context.Context, id int64) (*domain.SubmissionRecord, error) {
	query := `
		SELECT ` + submissionColumns + `
		FROM question_submit
		WHERE id = $1 AND is_delete = 0`

	rec, err := scanSubmission(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get submission: %w", err)
	}
	return rec, nil
}

func (r *ReadModel) ListSubmissions(ctx context.Context, questionID int64, page, pageSize int) (*domain.SubmissionPage, error) {
	if page < 1 {
		page = 1
	}
	var total int64
	countQuery := `SELECT COUNT(*) FROM question_submit WHERE question_id = $1 AND is_delete = 0`
	if err := r.db.QueryRow(ctx, countQuery, questionID).Scan(&total); err != nil {
		return nil, fmt.Errorf("postgres: count submissions: %w", err)
	}

	query := `
		SELECT ` + submissionColumns + `
		FROM question_submit
		WHERE question_id = $1 AND is_delete = 0
		ORDER BY create_time DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, questionID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("postgres: list submissions: %w", err)
	}
	defer rows.Close()

	out := &domain.SubmissionPage{Total: total, Records: []domain.SubmissionRecord{}}
	for rows.Next() {
		rec, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan submission: %w", err)
		}
		out.Records = append(out.Records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list submissions: %w", err)
	}
	return out, nil
}

func (r *ReadModel) GetQuestion(ctx context.Context, id int64) (*domain.Question, error) {
	query := `
		SELECT id, title, content, answer, difficulty, tags, submit_num, accepted_num
		FROM question
		WHERE id = $1 AND is_delete = 0`

	var (
		q    domain.Question
		tags string
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&q.ID, &q.Title, &q.Content, &q.Answer, &q.Difficulty,
		&tags, &q.SubmitNum, &q.AcceptedNum,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQuestionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get question: %w", err)
	}
	q.Tags = parseTags(tags)
	return &q, nil
}

// Ping checks the connection.
func (r *ReadModel) Ping(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `SELECT 1`)
	return err
}

func scanSubmission(row pgx.Row) (*domain.SubmissionRecord, error) {
	var (
		rec       domain.SubmissionRecord
		language  string
		judgeInfo *string
		created   time.Time
	)
	if err := row.Scan(
		&rec.ID, &rec.QuestionID, &rec.UserID, &language, &rec.Code,
		&judgeInfo, &rec.Status, &created,
	); err != nil {
		return nil, err
	}
	rec.Language = domain.Language(strings.ToLower(language))
	rec.CreateTime = created.UTC()
	if judgeInfo != nil {
		info, err := parseJudgeInfo(*judgeInfo)
		if err != nil {
			return nil, err
		}
		rec.JudgeInfo = info
	}
	return &rec, nil
}

// parseJudgeInfo decodes the judge_info column, stored as JSON text.
func parseJudgeInfo(raw string) (domain.JudgeInfo, error) {
	var info domain.JudgeInfo
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return info, nil
	}
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		return info, fmt.Errorf("judge_info: %w", err)
	}
	return info, nil
}

// parseTags decodes the tags column, a JSON array of strings.
func parseTags(raw string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}
