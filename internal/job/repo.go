package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Repo is a Store backed by a SQL database. It lets the HTTP server and
// queue workers share job state.
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Migrate creates or updates the jobs table.
func (r *Repo) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Job{})
}

func (r *Repo) Create(ctx context.Context, kind Kind, payload any) (*Job, error) {
	j, err := newPending(kind, payload, time.Now())
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(j).Error; err != nil {
		return nil, err
	}
	return j, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := r.db.WithContext(ctx).First(&j, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &j, nil
}

func (r *Repo) Complete(ctx context.Context, id string, result any) error {
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return r.finish(ctx, id, map[string]any{
		"status":     StatusCompleted,
		"result":     datatypes.JSON(b),
		"error":      nil,
		"error_kind": nil,
	})
}

func (r *Repo) Fail(ctx context.Context, id string, cause error) error {
	msg, kind := describe(cause)
	return r.finish(ctx, id, map[string]any{
		"status":     StatusFailed,
		"error":      msg,
		"error_kind": kind,
		"result":     nil,
	})
}

// finish applies a terminal update only while the job is still pending.
func (r *Repo) finish(ctx context.Context, id string, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&Job{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return ErrNotPending
}
