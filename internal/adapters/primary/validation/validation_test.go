package validation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	apperrors "github.com/lorrc/service-desk-routing/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator(t *testing.T) {
	rating := 7.5
	v := NewValidator().
		Required("name", "  ").
		MaxLength("title", "abcdef", 3).
		Range("capacity", -1, 0, 50).
		FloatRange("satisfaction_rating", &rating, 0, 5).
		OneOf("priority", "urgent", []string{"low", "normal"}).
		OneOf("impact", "", []string{"low"}).
		PositiveIDs("required_skills", []int64{1, 0})

	require.True(t, v.HasErrors())
	errs := v.Errors().Errors
	assert.Len(t, errs, 6)
	assert.Equal(t, []string{"Must be between 0 and 5"}, errs["satisfaction_rating"])
	assert.NotContains(t, errs, "impact")
}

func TestDecodeAndValidate(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"networking"}`))
	out, err := DecodeAndValidate[body](req)
	require.NoError(t, err)
	assert.Equal(t, "networking", out.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	_, err = DecodeAndValidate[body](req)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
}

func TestParseIDParam(t *testing.T) {
	withParam := func(value string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", value)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	id, err := ParseIDParam(withParam("42"), "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"0", "-3", "abc", ""} {
		_, err := ParseIDParam(withParam(bad), "id")
		var verrs *apperrors.ValidationErrors
		assert.ErrorAs(t, err, &verrs, bad)
	}
}

func TestParseIntQueryParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10&bad=x&neg=-1", nil)
	assert.Equal(t, 10, ParseIntQueryParam(req, "limit", 5))
	assert.Equal(t, 5, ParseIntQueryParam(req, "bad", 5))
	assert.Equal(t, 5, ParseIntQueryParam(req, "neg", 5))
	assert.Equal(t, 5, ParseIntQueryParam(req, "missing", 5))
}
