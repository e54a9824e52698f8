package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/hammer-mt/FireFlask/pkg/errors"
)

type inviteBody struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=READ EDIT ADMIN"`
}

func decode(body string) (inviteBody, error) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest inviteBody
	err := DecodeJSONBody(req, &dest)
	return dest, err
}

func TestDecodeJSONBodyAcceptsValidObject(t *testing.T) {
	got, err := decode(`{"email":"ada@example.com","role":"EDIT"}`)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, "EDIT", got.Role)
}

func TestDecodeJSONBodyRejections(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{name: "empty", body: "", msg: "request body is required"},
		{name: "unknown field", body: `{"email":"ada@example.com","admin":true}`, msg: "invalid request body"},
		{name: "trailing object", body: `{"email":"ada@example.com"}{"email":"x@example.com"}`, msg: "request body must contain a single JSON object"},
		{name: "too large", body: `{"email":"` + strings.Repeat("a", MaxBodyBytes) + `"}`, msg: "invalid request body"},
		{name: "failed tags", body: `{"email":"nope","role":"OWNER"}`, msg: "validation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode(tt.body)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
			assert.Equal(t, tt.msg, typed.Message())
		})
	}
}

func TestDecodeJSONBodyReportsFieldsByJSONName(t *testing.T) {
	_, err := decode(`{"email":"nope","role":"OWNER"}`)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "must be one of: READ, EDIT, ADMIN", details["role"])
}
