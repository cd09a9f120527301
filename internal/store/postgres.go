package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	migrate "github.com/rubenv/sql-migrate"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"call-review-go/internal/config"
	"call-review-go/internal/errs"
	"call-review-go/internal/types"
)

var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "0001_call_records",
			Up: []string{`CREATE TABLE IF NOT EXISTS call_records (
	seq                BIGSERIAL PRIMARY KEY,
	record_id          UUID NOT NULL UNIQUE,
	file_name          TEXT NOT NULL,
	salesperson_name   TEXT NOT NULL,
	prospect_name      TEXT NOT NULL,
	transcription      TEXT NOT NULL,
	estimated_duration TEXT NOT NULL,
	evaluation         JSONB NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
)`},
			Down: []string{`DROP TABLE IF EXISTS call_records`},
		},
	},
}

type recordRow struct {
	Seq               int64                               `gorm:"column:seq;primaryKey;autoIncrement"`
	RecordID          string                              `gorm:"column:record_id;type:uuid"`
	FileName          string                              `gorm:"column:file_name"`
	SalespersonName   string                              `gorm:"column:salesperson_name"`
	ProspectName      string                              `gorm:"column:prospect_name"`
	Transcription     string                              `gorm:"column:transcription"`
	EstimatedDuration string                              `gorm:"column:estimated_duration"`
	Evaluation        datatypes.JSONType[types.Scorecard] `gorm:"column:evaluation;type:jsonb"`
	CreatedAt         time.Time                           `gorm:"column:created_at"`
}

func (recordRow) TableName() string { return "call_records" }

func toRow(r types.CallRecord) recordRow {
	return recordRow{
		RecordID:          r.ID,
		FileName:          r.FileName,
		SalespersonName:   r.SalespersonName,
		ProspectName:      r.ProspectName,
		Transcription:     r.Transcription,
		EstimatedDuration: r.EstimatedDuration,
		Evaluation:        datatypes.NewJSONType(r.Evaluation),
		CreatedAt:         r.CreatedAt,
	}
}

func (row recordRow) record() types.CallRecord {
	return types.CallRecord{
		ID:                row.RecordID,
		FileName:          row.FileName,
		SalespersonName:   row.SalespersonName,
		ProspectName:      row.ProspectName,
		Transcription:     row.Transcription,
		EstimatedDuration: row.EstimatedDuration,
		Evaluation:        row.Evaluation.Data(),
		CreatedAt:         row.CreatedAt,
	}
}

// PostgresStore keeps records in the call_records table.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(cfg config.StoreConfig) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{
		Logger:               gormlogger.Default.LogMode(gormlogger.Error),
		DisableAutomaticPing: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// migrate applies the embedded schema migrations.
func (s *PostgresStore) migrate(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database object: %w", err)
	}
	if _, err := migrate.Exec(sqlDB, "postgres", migrations, migrate.Up); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, rec *types.CallRecord) error {
	if rec == nil {
		return errs.Store("save", errs.Invalid("record is nil"))
	}
	prepare(rec, uuid.NewString)
	row := toRow(*rec)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errs.Store("save", err)
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, field types.SearchField, query string) ([]types.CallRecord, error) {
	if _, err := types.ParseSearchField(string(field)); err != nil {
		return nil, err
	}
	var rows []recordRow
	// field is one of the whitelisted column names.
	err := s.db.WithContext(ctx).
		Where(fmt.Sprintf("%s ILIKE ?", field), "%"+escapeLike(query)+"%").
		Order("seq").
		Find(&rows).Error
	if err != nil {
		return nil, errs.Store("search", err)
	}

	out := make([]types.CallRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.record())
	}
	return out, nil
}

// escapeLike makes query match literally. Backslash is the default LIKE
// escape character in Postgres.
func escapeLike(query string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(query)
}

func (s *PostgresStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database object: %w", err)
	}
	return sqlDB.Close()
}
