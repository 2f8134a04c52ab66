package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/contextlab/recall/internal/errors"
)

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode string
	}{
		{name: "valid", query: "what's my dog's name?", wantCode: ""},
		{name: "empty", query: "", wantCode: rerrors.ErrCodeQueryEmpty},
		{name: "whitespace only", query: "   \t\n", wantCode: rerrors.ErrCodeQueryEmpty},
		{name: "too long", query: strings.Repeat("x", MaxQueryLength+1), wantCode: rerrors.ErrCodeQueryTooLong},
		{name: "invalid utf8", query: string([]byte{0xff, 0xfe}), wantCode: rerrors.ErrCodeInvalidInput},
		{name: "exactly max length", query: strings.Repeat("x", MaxQueryLength), wantCode: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(tt.query)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, rerrors.GetCode(err))
		})
	}
}

func TestValidateScope(t *testing.T) {
	assert.NoError(t, ValidateScope("user-42"))
	assert.Error(t, ValidateScope(""))
	assert.Error(t, ValidateScope("  "))
	assert.Error(t, ValidateScope(strings.Repeat("s", MaxScopeLength+1)))
}

func TestValidateTokenBudget(t *testing.T) {
	assert.NoError(t, ValidateTokenBudget(1))
	assert.NoError(t, ValidateTokenBudget(2000))
	assert.Error(t, ValidateTokenBudget(0))
	assert.Error(t, ValidateTokenBudget(-5))
}
