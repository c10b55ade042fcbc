package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/servebeer/pinning/internal/model"
)

// MockUserStore mocks the UserStore interface
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, user model.User) (model.User, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *MockUserStore) ReserveStorage(ctx context.Context, id uuid.UUID, n int64) (bool, error) {
	args := m.Called(ctx, id, n)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserStore) AddStorageUsed(ctx context.Context, id uuid.UUID, n int64) error {
	args := m.Called(ctx, id, n)
	return args.Error(0)
}

func (m *MockUserStore) ReleaseStorage(ctx context.Context, id uuid.UUID, n int64) error {
	args := m.Called(ctx, id, n)
	return args.Error(0)
}

func (m *MockUserStore) CountUsers(ctx context.Context, activeSince time.Time) (int64, int64, error) {
	args := m.Called(ctx, activeSince)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

// MockPinStore mocks the PinStore interface
type MockPinStore struct {
	mock.Mock
}

func (m *MockPinStore) Create(ctx context.Context, pin model.PinRecord) (model.PinRecord, error) {
	args := m.Called(ctx, pin)
	return args.Get(0).(model.PinRecord), args.Error(1)
}

func (m *MockPinStore) GetActive(ctx context.Context, userID uuid.UUID, cid string) (model.PinRecord, error) {
	args := m.Called(ctx, userID, cid)
	return args.Get(0).(model.PinRecord), args.Error(1)
}

func (m *MockPinStore) ListActiveByUser(ctx context.Context, userID uuid.UUID, search string, limit int) ([]model.PinRecord, error) {
	args := m.Called(ctx, userID, search, limit)
	return args.Get(0).([]model.PinRecord), args.Error(1)
}

func (m *MockPinStore) StatsByUser(ctx context.Context, userID uuid.UUID) (model.PinStats, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.PinStats), args.Error(1)
}

func (m *MockPinStore) Totals(ctx context.Context, since time.Time) (model.PinTotals, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(model.PinTotals), args.Error(1)
}

// MockBackend mocks the ContentBackend and BackendInfo interfaces
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Stat(ctx context.Context, cid string) (int64, bool, error) {
	args := m.Called(ctx, cid)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *MockBackend) Pin(ctx context.Context, cid string) error {
	args := m.Called(ctx, cid)
	return args.Error(0)
}

func (m *MockBackend) Add(ctx context.Context, r io.Reader, filename string, mimeHint string) (string, int64, error) {
	args := m.Called(ctx, r, filename, mimeHint)
	return args.String(0), args.Get(1).(int64), args.Error(2)
}

func (m *MockBackend) Version(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockAuditStore mocks the AuditStore interface
type MockAuditStore struct {
	mock.Mock
}

func (m *MockAuditStore) Append(ctx context.Context, event model.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAuditStore) ListRecent(ctx context.Context, limit int) ([]model.AuditEvent, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]model.AuditEvent), args.Error(1)
}

func (m *MockAuditStore) ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.AuditEvent, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]model.AuditEvent), args.Error(1)
}

func (m *MockAuditStore) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockPinger mocks the database ping used by status checks
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
