package http

import (
	stdhttp "net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/service-desk-routing/internal/auth"
	"github.com/lorrc/service-desk-routing/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/lorrc/service-desk-routing/internal/core/mocks"
)

func newSkillRouter(catalog *mocks.MockSkillCatalog) stdhttp.Handler {
	handler := NewSkillHandler(catalog, NewErrorHandler(testLogger()), testLogger())
	return newTestRouter("/skills", handler.RegisterRoutes)
}

func TestSkillHandler_List(t *testing.T) {
	catalog := mocks.NewMockSkillCatalog()
	catalog.On("All", mock.Anything).Return([]domain.Skill{{ID: 1, Name: "Networking"}, {ID: 2, Name: "Windows"}})

	rec := doRequest(t, newSkillRouter(catalog), stdhttp.MethodGet, "/skills", nil, tokenFor(t, auth.RoleAgent))

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	body := decodeBody[ListResponse[SkillDTO]](t, rec)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, SkillDTO{ID: 2, Name: "Windows"}, body.Data[1])
}

func TestSkillHandler_Create(t *testing.T) {
	t.Run("admin creates a skill", func(t *testing.T) {
		catalog := mocks.NewMockSkillCatalog()
		catalog.On("Add", mock.Anything, "Kubernetes").Return(domain.Skill{ID: 9, Name: "Kubernetes"}, nil)

		rec := doRequest(t, newSkillRouter(catalog), stdhttp.MethodPost, "/skills",
			map[string]string{"name": "Kubernetes"}, tokenFor(t, auth.RoleAdmin))

		require.Equal(t, stdhttp.StatusCreated, rec.Code)
		assert.Equal(t, SkillDTO{ID: 9, Name: "Kubernetes"}, decodeBody[SkillDTO](t, rec))
	})

	t.Run("agents may not change the catalog", func(t *testing.T) {
		catalog := mocks.NewMockSkillCatalog()

		rec := doRequest(t, newSkillRouter(catalog), stdhttp.MethodPost, "/skills",
			map[string]string{"name": "Kubernetes"}, tokenFor(t, auth.RoleAgent))

		assert.Equal(t, stdhttp.StatusForbidden, rec.Code)
		catalog.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		catalog := mocks.NewMockSkillCatalog()
		catalog.On("Add", mock.Anything, "Networking").Return(domain.Skill{}, apperrors.ErrSkillExists)

		rec := doRequest(t, newSkillRouter(catalog), stdhttp.MethodPost, "/skills",
			map[string]string{"name": "Networking"}, tokenFor(t, auth.RoleAdmin))

		require.Equal(t, stdhttp.StatusConflict, rec.Code)
		assert.Equal(t, "SKILL_EXISTS", decodeBody[ErrorResponse](t, rec).Code)
	})

	t.Run("blank name is rejected", func(t *testing.T) {
		rec := doRequest(t, newSkillRouter(mocks.NewMockSkillCatalog()), stdhttp.MethodPost, "/skills",
			map[string]string{"name": "  "}, tokenFor(t, auth.RoleAdmin))

		require.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeBody[ValidationErrorResponse](t, rec).Fields, "name")
	})
}

func TestSkillHandler_GetAndRename(t *testing.T) {
	catalog := mocks.NewMockSkillCatalog()
	catalog.On("Resolve", mock.Anything, int64(5)).Return(domain.Skill{}, apperrors.ErrSkillNotFound)
	catalog.On("Rename", mock.Anything, int64(1), "Networking & VPN").Return(domain.Skill{ID: 1, Name: "Networking & VPN"}, nil)
	router := newSkillRouter(catalog)

	rec := doRequest(t, router, stdhttp.MethodGet, "/skills/5", nil, tokenFor(t, auth.RoleAgent))
	require.Equal(t, stdhttp.StatusNotFound, rec.Code)
	assert.Equal(t, "SKILL_NOT_FOUND", decodeBody[ErrorResponse](t, rec).Code)

	rec = doRequest(t, router, stdhttp.MethodPatch, "/skills/1",
		map[string]string{"name": "Networking & VPN"}, tokenFor(t, auth.RoleAdmin))
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, "Networking & VPN", decodeBody[SkillDTO](t, rec).Name)

	rec = doRequest(t, router, stdhttp.MethodGet, "/skills/abc", nil, tokenFor(t, auth.RoleAgent))
	assert.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
}
