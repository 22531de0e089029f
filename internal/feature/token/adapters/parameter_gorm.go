package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/usecase"
)

// parameterGorm はローカル実行用に認証情報を RDB の parameters テーブルへ保存する ParameterStore です。
type parameterGorm struct {
	db *gorm.DB
}

var _ usecase.ParameterStore = (*parameterGorm)(nil)

func NewParameterStoreGorm(db *gorm.DB) *parameterGorm {
	return &parameterGorm{db: db}
}

// ParameterModel はパラメータ1件を表します。
type ParameterModel struct {
	Name      string    `gorm:"primaryKey;size:255"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ParameterModel) TableName() string {
	return "parameters"
}

func (r *parameterGorm) GetParameters(ctx context.Context, names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	if len(names) == 0 {
		return out, nil
	}
	var rows []ParameterModel
	if err := r.db.WithContext(ctx).Where("name IN ?", names).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, m := range rows {
		out[m.Name] = m.Value
	}
	return out, nil
}

func (r *parameterGorm) PutParameter(ctx context.Context, name, value string) error {
	m := ParameterModel{Name: name, Value: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&m).Error
}
