package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB prepares an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")

	err = db.AutoMigrate(&ParameterModel{})
	require.NoError(t, err, "failed to migrate table")

	return db
}

func TestParameterGorm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		setupFunc func(t *testing.T, store *parameterGorm)
		names     []string
		want      map[string]string
	}{
		{
			name:  "success: empty store returns empty map",
			names: []string{"/ohlcv/broker/client_id"},
			want:  map[string]string{},
		},
		{
			name: "success: only existing names are returned",
			setupFunc: func(t *testing.T, store *parameterGorm) {
				require.NoError(t, store.PutParameter(context.Background(), "/ohlcv/broker/client_id", "APP-100"))
				require.NoError(t, store.PutParameter(context.Background(), "/other/broker/client_id", "OTHER"))
			},
			names: []string{"/ohlcv/broker/client_id", "/ohlcv/broker/pin"},
			want:  map[string]string{"/ohlcv/broker/client_id": "APP-100"},
		},
		{
			name: "success: put overwrites existing value",
			setupFunc: func(t *testing.T, store *parameterGorm) {
				require.NoError(t, store.PutParameter(context.Background(), "/ohlcv/broker/access_token", "old"))
				require.NoError(t, store.PutParameter(context.Background(), "/ohlcv/broker/access_token", "new"))
			},
			names: []string{"/ohlcv/broker/access_token"},
			want:  map[string]string{"/ohlcv/broker/access_token": "new"},
		},
		{
			name:  "success: no names",
			names: nil,
			want:  map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db := setupTestDB(t)
			store := NewParameterStoreGorm(db)
			if tt.setupFunc != nil {
				tt.setupFunc(t, store)
			}

			got, err := store.GetParameters(context.Background(), tt.names)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			var count int64
			db.Model(&ParameterModel{}).Where("name = ?", "/ohlcv/broker/access_token").Count(&count)
			assert.LessOrEqual(t, count, int64(1))
		})
	}
}
