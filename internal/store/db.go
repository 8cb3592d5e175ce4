package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Analysis{}, &CachedResponse{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveAnalysis creates an analysis row, assigning an ID when missing.
func (d *Database) SaveAnalysis(ctx context.Context, a *Analysis) error {
	if a == nil {
		return errors.New("analysis is nil")
	}
	if strings.TrimSpace(a.ID) == "" {
		a.ID = uuid.NewString()
	}
	a.Text = strings.TrimSpace(a.Text)
	if a.OptionsJSON == "" {
		a.SetOptions(nil)
	}
	if a.RankedJSON == "" {
		a.SetRanked(nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.WithContext(ctx).Create(a).Error
}

// GetAnalysis loads one analysis by ID.
func (d *Database) GetAnalysis(ctx context.Context, id string) (*Analysis, error) {
	var row Analysis
	err := d.gorm.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// DeleteAnalysis removes one analysis by ID.
func (d *Database) DeleteAnalysis(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	res := d.gorm.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).Delete(&Analysis{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AnalysisQuery encapsulates filters and pagination for listing analyses.
type AnalysisQuery struct {
	Query      string
	Importance string
	Timeframe  string
	ValidOnly  bool
	Sort       string
	Offset     int
	Limit      int
}

// ListAnalyses returns paginated analyses applying optional filters.
func (d *Database) ListAnalyses(ctx context.Context, opts AnalysisQuery) ([]Analysis, int64, error) {
	var total int64
	base := d.gorm.WithContext(ctx).Model(&Analysis{})
	if q := strings.TrimSpace(opts.Query); q != "" {
		like := fmt.Sprintf("%%%s%%", q)
		base = base.Where("text LIKE ? OR recommended LIKE ?", like, like)
	}
	if imp := strings.TrimSpace(opts.Importance); imp != "" {
		base = base.Where("importance = ?", strings.ToLower(imp))
	}
	if tf := strings.TrimSpace(opts.Timeframe); tf != "" {
		base = base.Where("timeframe = ?", strings.ToLower(tf))
	}
	if opts.ValidOnly {
		base = base.Where("valid = ?", true)
	}

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	queryBuilder := base.Order(orderForSort(opts.Sort)).Offset(opts.Offset)
	if opts.Limit > 0 {
		queryBuilder = queryBuilder.Limit(opts.Limit)
	}

	var rows []Analysis
	if err := queryBuilder.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func orderForSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "created_asc":
		return "created_at ASC, id ASC"
	case "confidence_desc":
		return "confidence DESC, created_at DESC"
	case "confidence_asc":
		return "confidence ASC, created_at DESC"
	default:
		return "created_at DESC, id ASC"
	}
}

// GetResponse returns a cached completion no older than maxAge.
func (d *Database) GetResponse(ctx context.Context, key string, maxAge time.Duration) (string, bool, error) {
	var row CachedResponse
	err := d.gorm.WithContext(ctx).Where("prompt_hash = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if maxAge > 0 && time.Since(row.UpdatedAt) > maxAge {
		return "", false, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.gorm.WithContext(ctx).Model(&CachedResponse{}).Where("prompt_hash = ?", key).
		UpdateColumn("hits", gorm.Expr("hits + 1")).Error; err != nil {
		logrus.WithError(err).Debug("bump cache hits")
	}
	return row.Content, true, nil
}

// PutResponse inserts or refreshes a cached completion.
func (d *Database) PutResponse(ctx context.Context, key, content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	row := &CachedResponse{PromptHash: key, Content: content}
	return d.gorm.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "prompt_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(row).Error
}

// PruneResponses deletes cached completions last refreshed before cutoff.
func (d *Database) PruneResponses(ctx context.Context, cutoff time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	res := d.gorm.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&CachedResponse{})
	return res.RowsAffected, res.Error
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_analyses_importance_timeframe ON analyses(importance, timeframe)",
		"CREATE INDEX IF NOT EXISTS idx_analyses_valid_created ON analyses(valid, created_at)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
