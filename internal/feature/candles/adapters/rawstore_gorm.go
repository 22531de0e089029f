package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/domain/entity"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/candles/usecase"
)

// rawStoreGorm はローカル実行用に RawFetchDocument を RDB に保存する RawStore です。
type rawStoreGorm struct {
	db *gorm.DB
}

var _ usecase.RawStore = (*rawStoreGorm)(nil)

func NewRawStoreGorm(db *gorm.DB) *rawStoreGorm {
	return &rawStoreGorm{db: db}
}

// RawDocumentModel は1ドキュメント1行で、本文は JSON のまま保持します。
type RawDocumentModel struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"column:object_key;size:128;not null;uniqueIndex"`
	Date      string    `gorm:"column:day;size:10;not null;index"`
	FetchedAt time.Time `gorm:"not null"`
	Body      []byte    `gorm:"not null"`
}

func (RawDocumentModel) TableName() string {
	return "raw_documents"
}

func (r *rawStoreGorm) Put(ctx context.Context, doc entity.RawFetchDocument) (string, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal raw document: %w", err)
	}
	m := RawDocumentModel{Key: doc.Key(), Date: doc.Date, FetchedAt: doc.FetchedAt, Body: body}

	// 書き込みは作成のみ。既存キーは上書きせず ErrAlreadyExists を返す
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "object_key"}},
		DoNothing: true,
	}).Create(&m)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrAlreadyExists, m.Key)
	}
	return m.Key, nil
}

func (r *rawStoreGorm) ListKeys(ctx context.Context, from, to string) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).
		Model(&RawDocumentModel{}).
		Where("day >= ? AND day <= ?", from, to).
		Order("object_key ASC").
		Pluck("object_key", &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *rawStoreGorm) Get(ctx context.Context, key string) (entity.RawFetchDocument, error) {
	var m RawDocumentModel
	err := r.db.WithContext(ctx).Where("object_key = ?", key).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.RawFetchDocument{}, fmt.Errorf("%w: %s", domain.ErrNotFound, key)
	}
	if err != nil {
		return entity.RawFetchDocument{}, err
	}
	var doc entity.RawFetchDocument
	if err := json.Unmarshal(m.Body, &doc); err != nil {
		return entity.RawFetchDocument{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return doc, nil
}
