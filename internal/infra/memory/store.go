package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	authDomain "smart-sales-forecast/internal/domain/auth"
	datasetDomain "smart-sales-forecast/internal/domain/dataset"
	forecastDomain "smart-sales-forecast/internal/domain/forecast"
	authinfra "smart-sales-forecast/internal/infrastructure/auth"
)

// Store 為未設定資料庫時使用的記憶體儲存層，涵蓋帳號、session、
// 上傳資料集與最近一次預測。
type Store struct {
	mu        sync.RWMutex
	users     map[string]authDomain.User
	sessions  map[string]sessionRecord
	datasets  map[string]datasetDomain.Dataset
	forecasts map[string]forecastDomain.Run // datasetID -> 最近一次預測
	idSeq     int64
}

type sessionRecord struct {
	UserID    string
	ExpiresAt time.Time
	RevokedAt *time.Time
	UserAgent string
	IPAddress string
	CreatedAt time.Time
}

// NewStore 建立新的記憶體 Store 實例。
func NewStore() *Store {
	return &Store{
		users:     make(map[string]authDomain.User),
		sessions:  make(map[string]sessionRecord),
		datasets:  make(map[string]datasetDomain.Dataset),
		forecasts: make(map[string]forecastDomain.Run),
	}
}

func (s *Store) nextID() string {
	s.idSeq++
	return fmt.Sprintf("id-%d", s.idSeq)
}

// SeedUsers 建立預設帳號供登入測試。
func (s *Store) SeedUsers() {
	hash := func(p string) string {
		h, err := authinfra.HashPassword(p)
		if err != nil {
			return p
		}
		return h
	}
	s.addUser("admin@example.com", hash("password123"), "Admin", authDomain.RoleAdmin)
	s.addUser("analyst@example.com", hash("password123"), "Analyst", authDomain.RoleAnalyst)
	s.addUser("user@example.com", hash("password123"), "User", authDomain.RoleUser)
}

func (s *Store) addUser(email, password, name string, role authDomain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID()
	s.users[id] = authDomain.User{
		ID:       id,
		Email:    email,
		Name:     name,
		Role:     role,
		Status:   authDomain.StatusActive,
		Password: password,
	}
}

// UserRepository impl
// FindByEmail 依 email 查詢使用者。
func (s *Store) FindByEmail(ctx context.Context, email string) (authDomain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return authDomain.User{}, fmt.Errorf("user not found")
}

// FindByID 依 ID 查詢使用者。
func (s *Store) FindByID(ctx context.Context, id string) (authDomain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return authDomain.User{}, fmt.Errorf("user not found")
	}
	return u, nil
}

// SessionStore impl
func (s *Store) SaveSession(ctx context.Context, sess authDomain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sessionRecord{
		UserID:    sess.UserID,
		ExpiresAt: sess.ExpiresAt,
		RevokedAt: sess.RevokedAt,
		UserAgent: sess.UserAgent,
		IPAddress: sess.IPAddress,
		CreatedAt: sess.CreatedAt,
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, token string) (authDomain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[token]
	if !ok {
		return authDomain.Session{}, fmt.Errorf("session not found")
	}
	return authDomain.Session{
		Token:     token,
		UserID:    rec.UserID,
		ExpiresAt: rec.ExpiresAt,
		RevokedAt: rec.RevokedAt,
		UserAgent: rec.UserAgent,
		IPAddress: rec.IPAddress,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (s *Store) RevokeSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[token]
	if !ok {
		return fmt.Errorf("session not found")
	}
	now := time.Now()
	rec.RevokedAt = &now
	s.sessions[token] = rec
	return nil
}

// DataRepository impl
// SaveDataset 寫入或覆蓋一份上傳資料集。
func (s *Store) SaveDataset(ctx context.Context, d datasetDomain.Dataset) error {
	if d.ID == "" {
		return fmt.Errorf("dataset id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[d.ID] = d
	return nil
}

// GetDataset 依 ID 取回資料集（含原始表格）。
func (s *Store) GetDataset(ctx context.Context, id string) (datasetDomain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.datasets[id]
	if !ok {
		return datasetDomain.Dataset{}, fmt.Errorf("dataset %s not found", id)
	}
	return d, nil
}

// SaveForecastRun 紀錄資料集最近一次預測，覆蓋舊結果。
func (s *Store) SaveForecastRun(ctx context.Context, run forecastDomain.Run) error {
	if run.DatasetID == "" {
		return fmt.Errorf("dataset id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forecasts[run.DatasetID] = run
	return nil
}

// LatestForecastRun 取回資料集最近一次預測。
func (s *Store) LatestForecastRun(ctx context.Context, datasetID string) (forecastDomain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.forecasts[datasetID]
	if !ok {
		return forecastDomain.Run{}, forecastDomain.ErrNoForecast
	}
	return run, nil
}
