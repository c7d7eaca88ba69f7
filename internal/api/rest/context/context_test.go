package context

import (
	stdctx "context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/classhub/classhub-server/internal/model"
)

func TestManager_SetAndGetPrincipal(t *testing.T) {
	m := NewManager()
	principal := model.Principal{ID: uuid.New(), Email: "alice@example.com", Role: model.RoleStudent}
	ctx := m.SetPrincipalToContext(stdctx.Background(), principal)

	got, ok := m.GetPrincipalFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, principal, got)
}

func TestManager_GetPrincipal_NotFound(t *testing.T) {
	m := NewManager()
	_, ok := m.GetPrincipalFromContext(stdctx.Background())
	assert.False(t, ok)
}

func TestManager_SetPrincipal_Overwrites(t *testing.T) {
	m := NewManager()
	first := model.Principal{ID: uuid.New(), Role: model.RoleStudent}
	second := model.Principal{ID: uuid.New(), Role: model.RoleAdmin}

	ctx := m.SetPrincipalToContext(stdctx.Background(), first)
	ctx = m.SetPrincipalToContext(ctx, second)

	got, ok := m.GetPrincipalFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, second, got)
}
