// Package validator decodes and checks generate-section request bodies,
// reporting every offending field at once.
package validator

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/grantbot-backend/internal/sections"
	apperrors "github.com/Adithya-Monish-Kumar-K/grantbot-backend/pkg/errors"
)

// MaxBodyBytes caps the accepted request body.
const MaxBodyBytes = 1 << 20

const (
	msgRequired  = "field required"
	msgNotString = "must be a string"
)

// ValidationError holds per-field failure messages. It matches
// apperrors.ErrInvalidInput under errors.Is.
type ValidationError struct {
	Detail string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return e.Detail + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// DecodeGenerateRequest reads a JSON object from r. company_id, section_type
// and text must all be present and be strings; empty strings are accepted.
// Unknown fields are ignored.
func DecodeGenerateRequest(r io.Reader) (*sections.GenerateRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxBodyBytes+1))
	if err != nil {
		return nil, &ValidationError{Detail: "could not read request body", Fields: map[string]string{"body": err.Error()}}
	}
	if len(body) > MaxBodyBytes {
		return nil, &ValidationError{
			Detail: "request body too large",
			Fields: map[string]string{"body": fmt.Sprintf("must be at most %d bytes", MaxBodyBytes)},
		}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, &ValidationError{
			Detail: "invalid request body",
			Fields: map[string]string{"body": "must be a JSON object"},
		}
	}

	var req sections.GenerateRequest
	errs := make(map[string]string)
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{"company_id", &req.CompanyID},
		{"section_type", &req.SectionType},
		{"text", &req.Text},
	} {
		v, ok := raw[f.name]
		if !ok {
			errs[f.name] = msgRequired
			continue
		}
		if !isJSONString(v) || json.Unmarshal(v, f.dst) != nil {
			errs[f.name] = msgNotString
		}
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Detail: "validation failed", Fields: errs}
	}
	return &req, nil
}

func isJSONString(v json.RawMessage) bool {
	s := strings.TrimSpace(string(v))
	return len(s) >= 2 && s[0] == '"'
}
