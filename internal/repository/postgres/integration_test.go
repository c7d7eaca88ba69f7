//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/classhub/classhub-server/internal/model"
	repo "github.com/classhub/classhub-server/internal/repository/postgres"
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
				"POSTGRES_DB":       "classhub_test",
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
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/classhub_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func testAccount(email string) model.Account {
	verifyToken := uuid.NewString()
	now := time.Now()
	return model.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: "$2a$10$hash",
		FirstName:    "Test",
		LastName:     "Account",
		Role:         model.RoleStudent,
		Active:       true,
		VerifyToken:  &verifyToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestRepositories_CRUD(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	t.Run("account_repository", func(t *testing.T) {
		ar := repo.NewAccountRepository(conn)

		a := testAccount("alice@example.com")
		saved, err := ar.Create(ctx, a)
		require.NoError(t, err)
		require.Equal(t, a.ID, saved.ID)
		require.False(t, saved.EmailVerified)

		_, err = ar.Create(ctx, testAccount("alice@example.com"))
		require.ErrorIs(t, err, model.ErrEmailTaken)

		byEmail, err := ar.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, a.ID, byEmail.ID)

		byID, err := ar.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", byID.Email)

		byToken, err := ar.GetByVerifyToken(ctx, *a.VerifyToken)
		require.NoError(t, err)
		require.Equal(t, a.ID, byToken.ID)

		byToken.EmailVerified = true
		byToken.VerifyToken = nil
		verified, err := ar.Update(ctx, byToken)
		require.NoError(t, err)
		require.True(t, verified.EmailVerified)
		require.Nil(t, verified.VerifyToken)

		_, err = ar.GetByVerifyToken(ctx, *a.VerifyToken)
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("reset_token_expiry", func(t *testing.T) {
		ar := repo.NewAccountRepository(conn)

		a := testAccount("reset@example.com")
		saved, err := ar.Create(ctx, a)
		require.NoError(t, err)

		resetToken := uuid.NewString()
		expires := time.Now().Add(time.Hour)
		saved.ResetToken = &resetToken
		saved.ResetTokenExpires = &expires
		_, err = ar.Update(ctx, saved)
		require.NoError(t, err)

		byReset, err := ar.GetByResetToken(ctx, resetToken)
		require.NoError(t, err)
		require.Equal(t, a.ID, byReset.ID)

		// UpdatePassword consumes the token.
		require.NoError(t, ar.UpdatePassword(ctx, a.ID, "$2a$10$newhash"))
		_, err = ar.GetByResetToken(ctx, resetToken)
		require.ErrorIs(t, err, model.ErrNotFound)

		// An expired token never matches.
		expired := time.Now().Add(-time.Minute)
		saved.ResetToken = &resetToken
		saved.ResetTokenExpires = &expired
		_, err = ar.Update(ctx, saved)
		require.NoError(t, err)
		_, err = ar.GetByResetToken(ctx, resetToken)
		require.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("deactivate_and_reactivate", func(t *testing.T) {
		ar := repo.NewAccountRepository(conn)

		a := testAccount("leaver@example.com")
		_, err := ar.Create(ctx, a)
		require.NoError(t, err)

		require.NoError(t, ar.Deactivate(ctx, a.ID))

		_, err = ar.GetByEmail(ctx, "leaver@example.com")
		require.ErrorIs(t, err, model.ErrNotFound)

		byID, err := ar.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.False(t, byID.Active)
		require.NotNil(t, byID.DeactivatedAt)
		require.Equal(t, fmt.Sprintf("deleted-%s@deactivated.invalid", a.ID), byID.Email)

		// Deactivating twice reports not found.
		require.ErrorIs(t, ar.Deactivate(ctx, a.ID), model.ErrNotFound)

		require.NoError(t, ar.Reactivate(ctx, a.ID))
		byID, err = ar.GetByID(ctx, a.ID)
		require.NoError(t, err)
		require.True(t, byID.Active)
		require.Nil(t, byID.DeactivatedAt)
	})

	t.Run("list_and_count", func(t *testing.T) {
		ar := repo.NewAccountRepository(conn)

		instructor := testAccount("greta@example.com")
		instructor.Role = model.RoleInstructor
		instructor.FirstName = "Greta"
		_, err := ar.Create(ctx, instructor)
		require.NoError(t, err)

		instructors, total, err := ar.List(ctx, model.AccountFilter{Role: model.RoleInstructor}, model.Page{Number: 1, Size: 10})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Len(t, instructors, 1)
		require.Equal(t, instructor.ID, instructors[0].ID)

		found, total, err := ar.List(ctx, model.AccountFilter{Search: "greta"}, model.Page{Number: 1, Size: 10})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Len(t, found, 1)

		counts, err := ar.CountByRole(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, counts[model.RoleInstructor])
		require.GreaterOrEqual(t, counts[model.RoleStudent], 2)
	})

	t.Run("audit_repository", func(t *testing.T) {
		ar := repo.NewAccountRepository(conn)
		audit := repo.NewAuditRepository(conn)

		actor := testAccount("auditor@example.com")
		_, err := ar.Create(ctx, actor)
		require.NoError(t, err)

		base := time.Now().Add(-time.Minute)
		for i, action := range []model.AuditAction{model.ActionLogin, model.ActionLogin, model.ActionUnauthorizedAccess} {
			severity := model.SeverityLow
			outcome := model.OutcomeSuccess
			if action == model.ActionUnauthorizedAccess {
				severity = model.SeverityHigh
				outcome = model.OutcomeFailure
			}
			_, err := audit.Create(ctx, model.AuditEvent{
				ID:         uuid.New(),
				ActorID:    &actor.ID,
				ActorEmail: actor.Email,
				Action:     action,
				Resource:   "account",
				Detail:     map[string]any{"n": i},
				IP:         "127.0.0.1",
				UserAgent:  "go-test",
				Severity:   severity,
				Outcome:    outcome,
				CreatedAt:  base.Add(time.Duration(i) * time.Second),
			})
			require.NoError(t, err)
		}

		byActor, total, err := audit.ListByActor(ctx, actor.ID, model.Page{Number: 1, Size: 10})
		require.NoError(t, err)
		require.Equal(t, 3, total)
		require.Len(t, byActor, 3)
		// Newest first.
		require.Equal(t, model.ActionUnauthorizedAccess, byActor[0].Action)
		require.Equal(t, map[string]any{"n": float64(2)}, byActor[0].Detail)

		denials, total, err := audit.List(ctx, model.AuditFilter{
			Action:   model.ActionUnauthorizedAccess,
			Severity: model.SeverityHigh,
			ActorID:  &actor.ID,
		}, model.Page{Number: 1, Size: 10})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Len(t, denials, 1)

		from := base.Add(1500 * time.Millisecond)
		recent, total, err := audit.List(ctx, model.AuditFilter{ActorID: &actor.ID, From: &from}, model.Page{Number: 1, Size: 10})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Len(t, recent, 1)

		counts, err := audit.CountByAction(ctx, base.Add(-time.Second))
		require.NoError(t, err)
		require.GreaterOrEqual(t, counts[model.ActionLogin], 2)
	})
}

func TestAccountRepository_LockoutCounter(t *testing.T) {
	ctx := context.Background()
	conn, err := repo.NewConnection(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ar := repo.NewAccountRepository(conn)

	a := testAccount("locked@example.com")
	_, err = ar.Create(ctx, a)
	require.NoError(t, err)

	// Concurrent failures must not lose increments: the UPDATE is a single
	// atomic read-modify-write statement.
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ar.RecordLoginFailure(ctx, a.ID, 5, 2*time.Hour)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	locked, err := ar.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 5, locked.FailedLogins)
	require.NotNil(t, locked.LockedUntil)
	require.True(t, locked.Locked(time.Now()))

	require.NoError(t, ar.ResetLoginFailures(ctx, a.ID))

	reset, err := ar.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, 0, reset.FailedLogins)
	require.Nil(t, reset.LockedUntil)
	require.NotNil(t, reset.LastLoginAt)

	_, err = ar.RecordLoginFailure(ctx, uuid.New(), 5, 2*time.Hour)
	require.ErrorIs(t, err, model.ErrNotFound)
}
