package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/domain"
	"github.com/agnivesh13/Automated-OHLCV-Data-Pipeline-for-Algorithmic-Trading/internal/feature/token/domain/entity"
)

// mockParameterStore はメモリ上の ParameterStore モックです。
type mockParameterStore struct {
	values  map[string]string
	getErr  error
	putErr  error
	PutCall int
}

func newMockStore(values map[string]string) *mockParameterStore {
	if values == nil {
		values = map[string]string{}
	}
	return &mockParameterStore{values: values}
}

func (m *mockParameterStore) GetParameters(ctx context.Context, names []string) (map[string]string, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := map[string]string{}
	for _, n := range names {
		if v, ok := m.values[n]; ok {
			out[n] = v
		}
	}
	return out, nil
}

func (m *mockParameterStore) PutParameter(ctx context.Context, name, value string) error {
	m.PutCall++
	if m.putErr != nil {
		return m.putErr
	}
	m.values[name] = value
	return nil
}

// mockAuthAPI は AuthAPI のモックです。
type mockAuthAPI struct {
	RefreshFunc  func(ctx context.Context, creds entity.CredentialSet) (string, error)
	RefreshCalls int
	ExchangeFunc func(ctx context.Context, creds entity.CredentialSet, code string) (AuthTokens, error)
}

func (m *mockAuthAPI) RefreshAccessToken(ctx context.Context, creds entity.CredentialSet) (string, error) {
	m.RefreshCalls++
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, creds)
	}
	return "", errors.New("RefreshFunc is not implemented")
}

func (m *mockAuthAPI) ExchangeAuthCode(ctx context.Context, creds entity.CredentialSet, code string) (AuthTokens, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, creds, code)
	}
	return AuthTokens{}, errors.New("ExchangeFunc is not implemented")
}

// mockNotifier は通知内容を記録します。
type mockNotifier struct {
	Subjects []string
}

func (m *mockNotifier) Notify(ctx context.Context, subject, message string) error {
	m.Subjects = append(m.Subjects, subject)
	return nil
}

var fixedNow = time.Date(2025, 1, 15, 3, 0, 0, 0, time.UTC)

func newTestUsecase(store ParameterStore, api AuthAPI, n Notifier) *TokenUsecase {
	uc := NewTokenUsecase(store, api, n, "ohlcv")
	uc.now = func() time.Time { return fixedNow }
	return uc
}

func baseCreds() entity.CredentialSet {
	return entity.CredentialSet{ClientID: "ABC-100", AppSecret: "secret", RefreshToken: "refresh", PIN: "1234"}
}

func TestTokenUsecase_EnsureValidAccessCredential(t *testing.T) {
	t.Parallel()

	valid := baseCreds()
	valid.AccessToken = "access"
	valid.AccessExpiresAt = fixedNow.Add(time.Hour)

	expired := baseCreds()
	expired.AccessToken = "old"
	expired.AccessExpiresAt = fixedNow.Add(-time.Minute)

	missing := baseCreds()
	missing.AccessToken = "CHANGE_ME"

	deadRefresh := expired
	deadRefresh.RefreshExpiresAt = fixedNow.Add(-time.Hour)

	tests := []struct {
		name             string
		creds            entity.CredentialSet
		refresh          func(ctx context.Context, creds entity.CredentialSet) (string, error)
		wantRefreshCalls int
		wantToken        string
		wantErr          error
		wantNotify       int
	}{
		{
			name:             "success: valid token performs zero refresh calls",
			creds:            valid,
			wantRefreshCalls: 0,
			wantToken:        "access",
		},
		{
			name:  "success: expired token performs exactly one refresh call",
			creds: expired,
			refresh: func(ctx context.Context, creds entity.CredentialSet) (string, error) {
				assert.Equal(t, "refresh", creds.RefreshToken)
				return "fresh", nil
			},
			wantRefreshCalls: 1,
			wantToken:        "fresh",
		},
		{
			name:  "success: placeholder token is refreshed",
			creds: missing,
			refresh: func(ctx context.Context, creds entity.CredentialSet) (string, error) {
				return "fresh", nil
			},
			wantRefreshCalls: 1,
			wantToken:        "fresh",
		},
		{
			name:  "error: rejected refresh requires manual reauth",
			creds: expired,
			refresh: func(ctx context.Context, creds entity.CredentialSet) (string, error) {
				return "", domain.ErrRefreshRejected
			},
			wantRefreshCalls: 1,
			wantErr:          domain.ErrReauthRequired,
			wantNotify:       1,
		},
		{
			name:  "error: network failure is transient and not notified",
			creds: expired,
			refresh: func(ctx context.Context, creds entity.CredentialSet) (string, error) {
				return "", errors.New("connection reset")
			},
			wantRefreshCalls: 1,
			wantErr:          domain.ErrTransient,
		},
		{
			name:             "error: expired refresh token skips the API call",
			creds:            deadRefresh,
			wantRefreshCalls: 0,
			wantErr:          domain.ErrReauthRequired,
			wantNotify:       1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newMockStore(nil)
			api := &mockAuthAPI{RefreshFunc: tt.refresh}
			n := &mockNotifier{}
			uc := newTestUsecase(store, api, n)

			got, err := uc.EnsureValidAccessCredential(context.Background(), tt.creds)

			assert.Equal(t, tt.wantRefreshCalls, api.RefreshCalls)
			assert.Len(t, n.Subjects, tt.wantNotify)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				if errors.Is(tt.wantErr, domain.ErrReauthRequired) {
					assert.True(t, got.ReauthRequired)
					assert.Equal(t, "true", store.values["/ohlcv/broker/reauth_required"])
					assert.Equal(t, entity.StateNeedsManualReauth, uc.State(got))
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, got.AccessToken)
			assert.Equal(t, entity.StateValid, uc.State(got))
		})
	}
}

func TestTokenUsecase_RejectedRefreshSurvivesRestarts(t *testing.T) {
	t.Parallel()

	store := newMockStore(map[string]string{
		"/ohlcv/broker/client_id":               "ABC-100",
		"/ohlcv/broker/app_secret":              "secret",
		"/ohlcv/broker/refresh_token":           "revoked",
		"/ohlcv/broker/access_token":            "old",
		"/ohlcv/broker/access_token_expires_at": "2025-01-15T02:00:00Z",
	})
	api := &mockAuthAPI{RefreshFunc: func(ctx context.Context, creds entity.CredentialSet) (string, error) {
		return "", domain.ErrRefreshRejected
	}}
	n := &mockNotifier{}
	uc := newTestUsecase(store, api, n)
	ctx := context.Background()

	// 1回目の実行: リフレッシュが拒否される
	creds, err := uc.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.StateExpired, uc.State(creds))
	_, err = uc.EnsureValidAccessCredential(ctx, creds)
	require.ErrorIs(t, err, domain.ErrReauthRequired)

	// 以降の実行: 保存された状態から再認証待ちのまま
	for range 2 {
		creds, err = uc.Load(ctx)
		require.NoError(t, err)
		assert.True(t, creds.ReauthRequired)
		assert.Equal(t, entity.StateNeedsManualReauth, uc.State(creds))

		_, err = uc.EnsureValidAccessCredential(ctx, creds)
		assert.ErrorIs(t, err, domain.ErrReauthRequired)
		_, err = uc.Refresh(ctx, uc.Invalidate(creds))
		assert.ErrorIs(t, err, domain.ErrReauthRequired)
	}

	assert.Equal(t, 1, api.RefreshCalls)
	assert.Equal(t, []string{"Broker Re-authorization Required"}, n.Subjects)

	// 新しいトークンを登録すると解除される
	api.ExchangeFunc = func(ctx context.Context, creds entity.CredentialSet, code string) (AuthTokens, error) {
		return AuthTokens{AccessToken: "access", RefreshToken: "refresh"}, nil
	}
	_, err = uc.ExchangeAuthCode(ctx, GenerateRequest{ClientID: "ABC-100", AppSecret: "secret", RedirectURL: "https://x/?auth_code=A"})
	require.NoError(t, err)
	creds, err = uc.Load(ctx)
	require.NoError(t, err)
	assert.False(t, creds.ReauthRequired)
	assert.Equal(t, entity.StateValid, uc.State(creds))
}

func TestTokenUsecase_Refresh_PersistsAccessToken(t *testing.T) {
	t.Parallel()

	store := newMockStore(nil)
	api := &mockAuthAPI{RefreshFunc: func(ctx context.Context, creds entity.CredentialSet) (string, error) {
		return "fresh", nil
	}}
	uc := newTestUsecase(store, api, nil)

	got, err := uc.Refresh(context.Background(), baseCreds())
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(entity.AccessTokenTTL), got.AccessExpiresAt)
	assert.Equal(t, "fresh", store.values["/ohlcv/broker/access_token"])
	assert.Equal(t, "2025-01-16T03:00:00Z", store.values["/ohlcv/broker/access_token_expires_at"])
}

func TestTokenUsecase_Refresh_StoreFailureKeepsToken(t *testing.T) {
	t.Parallel()

	store := newMockStore(nil)
	store.putErr = errors.New("throttled")
	api := &mockAuthAPI{RefreshFunc: func(ctx context.Context, creds entity.CredentialSet) (string, error) {
		return "fresh", nil
	}}
	uc := newTestUsecase(store, api, nil)

	got, err := uc.Refresh(context.Background(), baseCreds())
	require.NoError(t, err)
	assert.Equal(t, "fresh", got.AccessToken)
}

func TestTokenUsecase_Refresh_MissingClient(t *testing.T) {
	t.Parallel()

	api := &mockAuthAPI{}
	uc := newTestUsecase(newMockStore(nil), api, nil)

	_, err := uc.Refresh(context.Background(), entity.CredentialSet{RefreshToken: "r"})
	assert.ErrorIs(t, err, domain.ErrCredentialMissing)
	assert.Zero(t, api.RefreshCalls)
}

func TestTokenUsecase_Load(t *testing.T) {
	t.Parallel()

	store := newMockStore(map[string]string{
		"/ohlcv/broker/client_id":                "ABC-100",
		"/ohlcv/broker/app_secret":               "secret",
		"/ohlcv/broker/refresh_token":            " refresh ",
		"/ohlcv/broker/access_token":             "access",
		"/ohlcv/broker/access_token_expires_at":  "2025-01-15T09:00:00Z",
		"/ohlcv/broker/refresh_token_expires_at": "garbage",
	})
	uc := newTestUsecase(store, &mockAuthAPI{}, nil)

	got, err := uc.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ABC-100", got.ClientID)
	assert.Equal(t, "refresh", got.RefreshToken)
	assert.Equal(t, "", got.PIN)
	assert.Equal(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC), got.AccessExpiresAt.UTC())
	assert.True(t, got.RefreshExpiresAt.IsZero())

	store.getErr = errors.New("access denied")
	_, err = uc.Load(context.Background())
	assert.Error(t, err)
}

func TestTokenUsecase_Invalidate(t *testing.T) {
	t.Parallel()

	uc := newTestUsecase(newMockStore(nil), &mockAuthAPI{}, nil)
	c := baseCreds()
	c.AccessToken = "access"
	assert.Equal(t, entity.StateValid, uc.State(c))
	assert.Equal(t, entity.StateExpired, uc.State(uc.Invalidate(c)))
}

func TestTokenUsecase_ExchangeAuthCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		req      GenerateRequest
		exchange func(ctx context.Context, creds entity.CredentialSet, code string) (AuthTokens, error)
		wantErr  error
		wantPuts int
	}{
		{
			name: "success: tokens stored",
			req: GenerateRequest{
				ClientID: "ABC-100", AppSecret: "secret", PIN: "1234",
				RedirectURL: "https://127.0.0.1/callback?s=ok&code=200&auth_code=XYZ&state=None",
			},
			exchange: func(ctx context.Context, creds entity.CredentialSet, code string) (AuthTokens, error) {
				assert.Equal(t, "XYZ", code)
				return AuthTokens{AccessToken: "access", RefreshToken: "refresh"}, nil
			},
			wantPuts: 8,
		},
		{
			name:    "error: redirect without auth_code",
			req:     GenerateRequest{ClientID: "ABC-100", AppSecret: "secret", RedirectURL: "https://127.0.0.1/callback?s=ok"},
			wantErr: domain.ErrInvalidRedirectURL,
		},
		{
			name:    "error: missing client id",
			req:     GenerateRequest{AppSecret: "secret", RedirectURL: "https://x/?auth_code=A"},
			wantErr: domain.ErrCredentialMissing,
		},
		{
			name: "error: broker rejects code",
			req:  GenerateRequest{ClientID: "ABC-100", AppSecret: "secret", RedirectURL: "https://x/?auth_code=A"},
			exchange: func(ctx context.Context, creds entity.CredentialSet, code string) (AuthTokens, error) {
				return AuthTokens{}, domain.ErrRefreshRejected
			},
			wantErr: domain.ErrRefreshRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newMockStore(nil)
			uc := newTestUsecase(store, &mockAuthAPI{ExchangeFunc: tt.exchange}, nil)

			got, err := uc.ExchangeAuthCode(context.Background(), tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, store.PutCall)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPuts, store.PutCall)
			assert.Equal(t, "refresh", store.values["/ohlcv/broker/refresh_token"])
			assert.Equal(t, "1234", store.values["/ohlcv/broker/pin"])
			assert.Equal(t, "false", store.values["/ohlcv/broker/reauth_required"])
			assert.Equal(t, entity.StateValid, uc.State(got))
		})
	}
}
