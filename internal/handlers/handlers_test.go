package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"excel-analyzer-go/internal/models"
	"excel-analyzer-go/internal/store"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var testSecret = []byte("test-secret")

// memStore is an in-memory stand-in for the Postgres and Redis stores.
// It mimics their contracts: owner-scoped deletes report ErrNotFound,
// history listings come back newest first, user deletion cascades to
// history but not to the activity trail.
type memStore struct {
	mu sync.Mutex

	users      map[int]models.User
	nextUserID int

	histories     map[int]models.UploadHistory
	nextHistoryID int
	clock         time.Time

	activities   []models.ActivityLog
	failActivity bool

	loginFailures map[string]int64
	revoked       map[string]bool

	processingSum   time.Duration
	processingCount int
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[int]models.User),
		histories:     make(map[int]models.UploadHistory),
		clock:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		loginFailures: make(map[string]int64),
		revoked:       make(map[string]bool),
	}
}

// UserStore

func (m *memStore) CreateUser(ctx context.Context, name, email, password, role string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return models.User{}, errors.New("duplicate email")
		}
	}

	hash, err := models.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}

	m.nextUserID++
	user := models.User{
		ID:           m.nextUserID,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memStore) GetUser(ctx context.Context, id int) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (m *memStore) GetUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })
	return users, nil
}

func (m *memStore) UpdateUserProfile(ctx context.Context, id int, name, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.Name, user.Email = name, email
	m.users[id] = user
	return nil
}

func (m *memStore) UpdateUserPassword(ctx context.Context, id int, newPasswordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = newPasswordHash
	user.LastPasswordChange = time.Now().UTC()
	m.users[id] = user
	return nil
}

func (m *memStore) UpdateUserRole(ctx context.Context, id int, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.Role = role
	m.users[id] = user
	return nil
}

func (m *memStore) UpdateUser2FA(ctx context.Context, id int, totpSecret string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.TOTPSecret = totpSecret
	user.TOTPEnabled = enabled
	m.users[id] = user
	return nil
}

func (m *memStore) Disable2FA(ctx context.Context, id int) error {
	return m.UpdateUser2FA(ctx, id, "", false)
}

func (m *memStore) DeleteUser(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.users, id)
	// History cascades with the account, like the FK does.
	for hid, record := range m.histories {
		if record.UserID == id {
			delete(m.histories, hid)
		}
	}
	return nil
}

func (m *memStore) CountUsers(ctx context.Context) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total, active := 0, 0
	for _, u := range m.users {
		total++
		if !u.IsBlocked() {
			active++
		}
	}
	return total, active, nil
}

// HistoryStore

func (m *memStore) CreateHistory(ctx context.Context, userID int, fileName string, columns []string, rows []models.Row) (models.UploadHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextHistoryID++
	m.clock = m.clock.Add(time.Second)
	record := models.UploadHistory{
		ID:         m.nextHistoryID,
		UserID:     userID,
		FileName:   fileName,
		UploadedAt: m.clock,
		Columns:    columns,
		Rows:       rows,
	}
	m.histories[record.ID] = record
	return record, nil
}

func (m *memStore) ListHistory(ctx context.Context, userID int) ([]models.UploadHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var records []models.UploadHistory
	for _, record := range m.histories {
		if record.UserID == userID {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].UploadedAt.Equal(records[j].UploadedAt) {
			return records[i].UploadedAt.After(records[j].UploadedAt)
		}
		return records[i].ID > records[j].ID
	})
	return records, nil
}

func (m *memStore) DeleteHistory(ctx context.Context, userID, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.histories[id]
	if !ok || record.UserID != userID {
		return store.ErrNotFound
	}
	delete(m.histories, id)
	return nil
}

func (m *memStore) ClearHistory(ctx context.Context, userID int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for id, record := range m.histories {
		if record.UserID == userID {
			delete(m.histories, id)
			count++
		}
	}
	return count, nil
}

func (m *memStore) UpdateChartConfig(ctx context.Context, userID, id int, cfg models.ChartConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.histories[id]
	if !ok || record.UserID != userID {
		return store.ErrNotFound
	}
	record.SelectedXAxis = cfg.SelectedXAxis
	record.SelectedYAxis = cfg.SelectedYAxis
	record.ChartType = cfg.ChartType
	m.histories[id] = record
	return nil
}

func (m *memStore) CountHistory(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.histories)), nil
}

// ActivityStore

func (m *memStore) InsertActivity(ctx context.Context, entry models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failActivity {
		return errors.New("activity store unavailable")
	}
	if !models.ValidAction(entry.Action) {
		return fmt.Errorf("invalid activity action: %q", entry.Action)
	}

	entry.ID = len(m.activities) + 1
	entry.Timestamp = time.Now().UTC()
	m.activities = append(m.activities, entry)
	return nil
}

func (m *memStore) ListActivity(ctx context.Context, filter models.ActivityFilter) ([]models.ActivityLog, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []models.ActivityLog
	for _, entry := range m.activities {
		if filter.UserID != 0 && entry.UserID != filter.UserID {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		matched = append(matched, entry)
	}

	// Newest first
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// activityCount returns how many entries carry the given action.
func (m *memStore) activityCount(action string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, entry := range m.activities {
		if entry.Action == action {
			count++
		}
	}
	return count
}

// SessionStore

func (m *memStore) RegisterLoginFailure(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loginFailures[key]++
	return m.loginFailures[key], nil
}

func (m *memStore) ClearLoginFailures(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.loginFailures, key)
	return nil
}

func (m *memStore) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.revoked[jti] = true
	return nil
}

func (m *memStore) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.revoked[jti], nil
}

func (m *memStore) RecordProcessingTime(ctx context.Context, d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.processingSum += d
	m.processingCount++
	return nil
}

func (m *memStore) AvgProcessingTime(ctx context.Context) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.processingCount == 0 {
		return 0, nil
	}
	return m.processingSum / time.Duration(m.processingCount), nil
}

// Test helpers

func newTestHandler() (*Handler, *memStore) {
	mem := newMemStore()
	return NewHandler(mem, mem, mem, mem, testSecret), mem
}

// createUser registers a user directly in the store and returns it with
// a valid auth token.
func createUser(t *testing.T, mem *memStore, name, email, role string) (models.User, string) {
	t.Helper()

	user, err := mem.CreateUser(context.Background(), name, email, "password123", role)
	require.NoError(t, err)

	token, err := models.NewAuthToken(testSecret, user.ID, user.Role)
	require.NoError(t, err)

	return user, token
}

func authedRequest(method, target, token string, body io.Reader) *http.Request {
	r := httptest.NewRequest(method, target, body)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func jsonRequest(method, target, token string, payload any) *http.Request {
	data, _ := json.Marshal(payload)
	r := authedRequest(method, target, token, bytes.NewReader(data))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

// workbookBytes builds a real xlsx file in memory.
func workbookBytes(t *testing.T, header []string, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for col, label := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Sheet1", cell, label))
	}
	for i, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, value))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

// multipartUpload wraps file bytes in a multipart body under the "file"
// field.
func multipartUpload(t *testing.T, fileName string, content []byte) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}
