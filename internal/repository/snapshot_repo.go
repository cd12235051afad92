package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/promptcraft-portal/internal/models"
	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

// ErrSnapshotNotFound is returned when no list was ever stored for a candidate.
var ErrSnapshotNotFound = errors.New("evaluation snapshot not found")

// SnapshotRepository persists the last good evaluation list per candidate.
type SnapshotRepository interface {
	Save(ctx context.Context, candidateID string, records []promptcraft.Evaluation) error
	Load(ctx context.Context, candidateID string) ([]promptcraft.Evaluation, time.Time, error)
	Delete(ctx context.Context, candidateID string) error
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type snapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository constructs a repository.
func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

func (r *snapshotRepository) Save(ctx context.Context, candidateID string, records []promptcraft.Evaluation) error {
	if records == nil {
		records = []promptcraft.Evaluation{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	snapshot := models.EvaluationSnapshot{
		CandidateID: candidateID,
		Records:     datatypes.JSON(payload),
		RecordCount: len(records),
		FetchedAt:   time.Now().UTC(),
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "candidate_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"records", "record_count", "fetched_at", "updated_at"}),
	}).Create(&snapshot).Error
}

func (r *snapshotRepository) Load(ctx context.Context, candidateID string) ([]promptcraft.Evaluation, time.Time, error) {
	var snapshot models.EvaluationSnapshot
	err := r.db.WithContext(ctx).Where("candidate_id = ?", candidateID).First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, time.Time{}, ErrSnapshotNotFound
		}
		return nil, time.Time{}, err
	}

	var records []promptcraft.Evaluation
	if err := json.Unmarshal(snapshot.Records, &records); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return records, snapshot.FetchedAt, nil
}

func (r *snapshotRepository) Delete(ctx context.Context, candidateID string) error {
	return r.db.WithContext(ctx).Where("candidate_id = ?", candidateID).Delete(&models.EvaluationSnapshot{}).Error
}

func (r *snapshotRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("fetched_at < ?", cutoff).Delete(&models.EvaluationSnapshot{})
	return result.RowsAffected, result.Error
}
