package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/errors"
)

func TestDecodeGenerateRequest_Valid(t *testing.T) {
	req, err := DecodeGenerateRequest(strings.NewReader(
		`{"company_id":"acme","section_type":"summary","text":"beta","extra":1}`))
	require.NoError(t, err)
	assert.Equal(t, "acme", req.CompanyID)
	assert.Equal(t, "summary", req.SectionType)
	assert.Equal(t, "beta", req.Text)
}

func TestDecodeGenerateRequest_EmptyTextAllowed(t *testing.T) {
	req, err := DecodeGenerateRequest(strings.NewReader(`{"company_id":"acme","section_type":"summary","text":""}`))
	require.NoError(t, err)
	assert.Equal(t, "", req.Text)
}

func TestDecodeGenerateRequest_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		fields map[string]string
	}{
		{
			name:   "missing text",
			body:   `{"company_id":"acme","section_type":"summary"}`,
			fields: map[string]string{"text": msgRequired},
		},
		{
			name: "all missing",
			body: `{}`,
			fields: map[string]string{
				"company_id": msgRequired, "section_type": msgRequired, "text": msgRequired,
			},
		},
		{
			name:   "wrong types",
			body:   `{"company_id":42,"section_type":null,"text":"x"}`,
			fields: map[string]string{"company_id": msgNotString, "section_type": msgNotString},
		},
		{
			name:   "not json",
			body:   `company_id=acme`,
			fields: map[string]string{"body": "must be a JSON object"},
		},
		{
			name:   "json array",
			body:   `["acme"]`,
			fields: map[string]string{"body": "must be a JSON object"},
		},
		{
			name:   "json null",
			body:   `null`,
			fields: map[string]string{"body": "must be a JSON object"},
		},
		{
			name:   "empty body",
			body:   ``,
			fields: map[string]string{"body": "must be a JSON object"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeGenerateRequest(strings.NewReader(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.fields, ve.Fields)
		})
	}
}

func TestDecodeGenerateRequest_TooLarge(t *testing.T) {
	body := `{"company_id":"acme","section_type":"s","text":"` + strings.Repeat("a", MaxBodyBytes) + `"}`
	_, err := DecodeGenerateRequest(strings.NewReader(body))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "request body too large", ve.Detail)
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Detail: "validation failed", Fields: map[string]string{"text": "field required", "company_id": "must be a string"}}
	assert.Equal(t, "validation failed: company_id: must be a string; text: field required", err.Error())
}
