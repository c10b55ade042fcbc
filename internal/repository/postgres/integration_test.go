//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/servebeer/pinning/internal/model"
	repo "github.com/servebeer/pinning/internal/repository/postgres"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "servebeer_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/servebeer_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newUser(email string, limit int64) model.User {
	now := time.Now()
	return model.User{
		ID:           uuid.New(),
		Email:        email,
		Tier:         model.TierFree,
		StorageLimit: limit,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastActiveAt: now,
	}
}

func TestRepositories_CRUD(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	t.Run("user_repository", func(t *testing.T) {
		ur := repo.NewUserRepository(conn)

		u := newUser("user@example.com", 1000)
		saved, err := ur.Create(ctx, u)
		require.NoError(t, err)
		require.Equal(t, u.ID, saved.ID)

		byEmail, err := ur.GetByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, u.ID, byEmail.ID)

		byID, err := ur.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Email, byID.Email)

		_, err = ur.Create(ctx, newUser("user@example.com", 1000))
		require.ErrorIs(t, err, model.ErrConflict)

		_, err = ur.GetByID(ctx, uuid.New())
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("pin_repository", func(t *testing.T) {
		ur := repo.NewUserRepository(conn)
		pr := repo.NewPinRepository(conn)

		owner, err := ur.Create(ctx, newUser("pins@example.com", 1000000))
		require.NoError(t, err)

		pin := model.PinRecord{
			ID:        uuid.New(),
			UserID:    owner.ID,
			CID:       "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
			Filename:  "report.pdf",
			Size:      1024,
			Origin:    model.OriginPinnedExisting,
			Status:    model.PinStatusActive,
			CreatedAt: time.Now(),
		}
		saved, err := pr.Create(ctx, pin)
		require.NoError(t, err)
		require.Equal(t, pin.ID, saved.ID)

		got, err := pr.GetActive(ctx, owner.ID, pin.CID)
		require.NoError(t, err)
		require.Equal(t, pin.Filename, got.Filename)

		// The partial unique index rejects a second active record for the
		// same (user, cid) pair.
		dup := pin
		dup.ID = uuid.New()
		_, err = pr.Create(ctx, dup)
		require.ErrorIs(t, err, model.ErrConflict)

		upload := model.PinRecord{
			ID:        uuid.New(),
			UserID:    owner.ID,
			CID:       "QmbWqxBEKC3P8tqsKc98xmWNzrzDtRLMiMPL8wBuTGsMnR",
			Filename:  "notes.txt",
			Size:      256,
			Origin:    model.OriginUploadedNew,
			Status:    model.PinStatusActive,
			CreatedAt: time.Now(),
		}
		_, err = pr.Create(ctx, upload)
		require.NoError(t, err)

		list, err := pr.ListActiveByUser(ctx, owner.ID, "", 10)
		require.NoError(t, err)
		require.Len(t, list, 2)

		filtered, err := pr.ListActiveByUser(ctx, owner.ID, "notes", 10)
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		require.Equal(t, "notes.txt", filtered[0].Filename)

		stats, err := pr.StatsByUser(ctx, owner.ID)
		require.NoError(t, err)
		require.Equal(t, int64(2), stats.ActiveCount)
		require.Equal(t, int64(1), stats.PinCount)
		require.Equal(t, int64(1), stats.UploadCount)
		require.Equal(t, int64(1280), stats.TotalBytes)

		totals, err := pr.Totals(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		require.GreaterOrEqual(t, totals.ActiveCount, int64(2))
		require.GreaterOrEqual(t, totals.CreatedIn, int64(2))
	})

	t.Run("audit_repository", func(t *testing.T) {
		ar := repo.NewAuditRepository(conn)

		userID := uuid.New()
		size := int64(512)
		require.NoError(t, ar.Append(ctx, model.AuditEvent{
			Kind:      model.EventPinSucceeded,
			UserID:    &userID,
			CID:       "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
			Size:      &size,
			CreatedAt: time.Now(),
		}))
		require.NoError(t, ar.Append(ctx, model.AuditEvent{
			Kind:      model.EventPinRejectedInvalid,
			Detail:    "malformed content identifier",
			CreatedAt: time.Now(),
		}))

		recent, err := ar.ListRecent(ctx, 10)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(recent), 2)
		require.Equal(t, model.EventPinRejectedInvalid, recent[0].Kind)

		byUser, err := ar.ListRecentByUser(ctx, userID, 10)
		require.NoError(t, err)
		require.Len(t, byUser, 1)
		require.NotNil(t, byUser[0].Size)
		require.Equal(t, size, *byUser[0].Size)

		count, err := ar.Count(ctx)
		require.NoError(t, err)
		require.GreaterOrEqual(t, count, int64(2))
	})
}

func TestUserRepository_StorageLedger(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ur := repo.NewUserRepository(conn)

	user, err := ur.Create(ctx, newUser("ledger@example.com", 1000))
	require.NoError(t, err)

	// The limit is inclusive: reserving exactly to the limit grants.
	granted, err := ur.ReserveStorage(ctx, user.ID, 1000)
	require.NoError(t, err)
	require.True(t, granted)

	granted, err = ur.ReserveStorage(ctx, user.ID, 1)
	require.NoError(t, err)
	require.False(t, granted)

	got, err := ur.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1000), got.StorageUsed)

	// A refused reservation must not have mutated the ledger.
	require.NoError(t, ur.ReleaseStorage(ctx, user.ID, 400))
	got, err = ur.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(600), got.StorageUsed)

	// Release floors at zero.
	require.NoError(t, ur.ReleaseStorage(ctx, user.ID, 5000))
	got, err = ur.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(0), got.StorageUsed)

	// Unconditional metering ignores the limit.
	require.NoError(t, ur.AddStorageUsed(ctx, user.ID, 2500))
	got, err = ur.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2500), got.StorageUsed)

	total, _, err := ur.CountUsers(ctx, time.Now().Add(-7*24*time.Hour))
	require.NoError(t, err)
	require.GreaterOrEqual(t, total, int64(1))
}
