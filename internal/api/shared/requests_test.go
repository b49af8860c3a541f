package shared

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name  string `json:"name"  validate:"required"`
	Count int    `json:"count" validate:"min=1,max=100"`
}

type selfValidating struct{}

func (selfValidating) Validate() error { return errors.New("custom") }

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"a","count":2}`, false},
		{"malformed", `{"name":`, true},
		{"trailing value", `{"name":"a"} {"name":"b"}`, true},
		{"empty", ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var got sampleRequest
			err := DecodeJSON(req, &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, sampleRequest{Name: "a", Count: 2}, got)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(&sampleRequest{Name: "a", Count: 1}))

	err := ValidateRequest(&sampleRequest{Count: 101})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2)

	assert.EqualError(t, ValidateRequest(selfValidating{}), "custom")
}
