package feedback

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/distortia/internal/apperr"
	"github.com/ppiankov/distortia/internal/model"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store persists feedback received by the local collector
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

type feedbackRow struct {
	ID                  int64          `db:"id"`
	Text                string         `db:"text"`
	PredictedDistortion string         `db:"predicted_distortion"`
	UserCorrection      sql.NullString `db:"user_correction"`
	IsAccepted          bool           `db:"is_accepted"`
	Confidence          float64        `db:"confidence"`
	Timestamp           time.Time      `db:"timestamp"`
	UsedInTraining      bool           `db:"used_in_training"`
}

func (r feedbackRow) toModel() model.StoredFeedback {
	sf := model.StoredFeedback{
		ID: r.ID,
		FeedbackRecord: model.FeedbackRecord{
			Text:                r.Text,
			PredictedDistortion: model.Label(r.PredictedDistortion),
			IsAccepted:          r.IsAccepted,
			Confidence:          r.Confidence,
		},
		CreatedAt:      r.Timestamp,
		UsedInTraining: r.UsedInTraining,
	}
	if r.UserCorrection.Valid {
		l := model.Label(r.UserCorrection.String)
		sf.UserCorrection = &l
	}
	return sf
}

// OpenStore opens (creating if needed) the sqlite database at path and
// applies pending migrations
func OpenStore(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Feedback store initialized", zap.String("db_path", path))

	return &Store{db: db, logger: logger}, nil
}

func migrateUp(db *sqlx.DB) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	// m.Close would close db as well, so only the source is released
	defer func() { _ = src.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Send stores record, letting the store stand in for a remote collector
func (s *Store) Send(ctx context.Context, record model.FeedbackRecord) error {
	if err := record.Validate(); err != nil {
		return apperr.Validation(err.Error())
	}
	if _, err := s.Save(ctx, record); err != nil {
		return apperr.FeedbackTransport("store feedback", err)
	}
	return nil
}

// Save inserts one record and returns its id
func (s *Store) Save(ctx context.Context, record model.FeedbackRecord) (int64, error) {
	if err := record.Validate(); err != nil {
		return 0, err
	}

	var correction sql.NullString
	if record.UserCorrection != nil {
		correction = sql.NullString{String: string(*record.UserCorrection), Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (
			text, predicted_distortion, user_correction, is_accepted, confidence, timestamp, used_in_training
		) VALUES (?, ?, ?, ?, ?, ?, 0)`,
		record.Text,
		string(record.PredictedDistortion),
		correction,
		record.IsAccepted,
		record.Confidence,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save feedback: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert id: %w", err)
	}

	s.logger.Debug("Feedback saved",
		zap.Int64("id", id),
		zap.Bool("accepted", record.IsAccepted),
		zap.String("predicted", string(record.PredictedDistortion)),
	)
	return id, nil
}

// List returns the newest records first. A non-positive limit returns all.
func (s *Store) List(ctx context.Context, limit int) ([]model.StoredFeedback, error) {
	query := `
		SELECT id, text, predicted_distortion, user_correction, is_accepted,
		       confidence, timestamp, used_in_training
		FROM feedback
		ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []feedbackRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return toModels(rows), nil
}

// TrainingFeedback returns corrected records not yet used for training,
// oldest first
func (s *Store) TrainingFeedback(ctx context.Context) ([]model.StoredFeedback, error) {
	var rows []feedbackRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, text, predicted_distortion, user_correction, is_accepted,
		       confidence, timestamp, used_in_training
		FROM feedback
		WHERE is_accepted = 0 AND used_in_training = 0
		ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query training feedback: %w", err)
	}
	return toModels(rows), nil
}

// MarkUsed flags records as consumed by a training run
func (s *Store) MarkUsed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`UPDATE feedback SET used_in_training = 1 WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to mark feedback used: %w", err)
	}

	n, _ := result.RowsAffected()
	s.logger.Info("Marked feedback as used in training", zap.Int64("rows", n))
	return nil
}

// Stats counts stored records
type Stats struct {
	Total     int `db:"total" json:"total"`
	Accepted  int `db:"accepted" json:"accepted"`
	Corrected int `db:"corrected" json:"corrected"`
	Pending   int `db:"pending" json:"pending_training"`
}

// Stats summarizes the store
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.GetContext(ctx, &st, `
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN is_accepted = 1 THEN 1 ELSE 0 END), 0) AS accepted,
			COALESCE(SUM(CASE WHEN is_accepted = 0 THEN 1 ELSE 0 END), 0) AS corrected,
			COALESCE(SUM(CASE WHEN is_accepted = 0 AND used_in_training = 0 THEN 1 ELSE 0 END), 0) AS pending
		FROM feedback`)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	return st, nil
}

// TrainingPairs converts corrected records to (text, label) pairs
func TrainingPairs(records []model.StoredFeedback) []model.TrainingPair {
	pairs := make([]model.TrainingPair, 0, len(records))
	for _, r := range records {
		if r.UserCorrection == nil {
			continue
		}
		pairs = append(pairs, model.TrainingPair{Text: r.Text, Label: *r.UserCorrection})
	}
	return pairs
}

func toModels(rows []feedbackRow) []model.StoredFeedback {
	out := make([]model.StoredFeedback, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out
}
