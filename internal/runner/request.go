package runner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ExecutionRequest is a validated request. Build one with ParseRequest.
type ExecutionRequest struct {
	TenantID   uuid.UUID
	StrategyID uuid.UUID
	UserID     *uuid.UUID
	Options    map[string]any
}

type requestFields struct {
	StrategyID string  `json:"strategy_id" validate:"required,uuid"`
	TenantID   string  `json:"tenant_id" validate:"required,uuid"`
	UserID     *string `json:"user_id" validate:"omitnil,uuid"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Canonical 36-character form in either case.
	_ = v.RegisterValidation("uuid", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if len(s) != 36 {
			return false
		}
		_, err := uuid.Parse(s)
		return err == nil
	})
	return v
}

// ParseRequest decodes and validates a raw JSON body. Every failing field is
// reported, not only the first.
func ParseRequest(body []byte) (ExecutionRequest, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return ExecutionRequest{}, &ValidationError{Details: []string{"body: expected a JSON object"}}
	}

	var (
		details []string
		fields  requestFields
	)
	fields.StrategyID, details = stringField(raw, "strategy_id", details)
	fields.TenantID, details = stringField(raw, "tenant_id", details)
	if msg, ok := raw["user_id"]; ok && !isNull(msg) {
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			details = append(details, "user_id: expected string")
		} else {
			fields.UserID = &s
		}
	}

	options := map[string]any{}
	if msg, ok := raw["options"]; ok && !isNull(msg) {
		if err := json.Unmarshal(msg, &options); err != nil || options == nil {
			details = append(details, "options: expected object")
			options = map[string]any{}
		}
	}

	if err := validate.Struct(fields); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return ExecutionRequest{}, err
		}
		for _, fe := range verrs {
			if alreadyReported(details, fe.Field()) {
				continue
			}
			details = append(details, fe.Field()+": "+reason(fe))
		}
	}
	if len(details) > 0 {
		return ExecutionRequest{}, &ValidationError{Details: details}
	}

	req := ExecutionRequest{
		TenantID:   uuid.MustParse(fields.TenantID),
		StrategyID: uuid.MustParse(fields.StrategyID),
		Options:    options,
	}
	if fields.UserID != nil {
		id := uuid.MustParse(*fields.UserID)
		req.UserID = &id
	}
	return req, nil
}

// Validate checks a request built in code rather than parsed from JSON.
func (r ExecutionRequest) Validate() error {
	var details []string
	if r.StrategyID == uuid.Nil {
		details = append(details, "strategy_id: required")
	}
	if r.TenantID == uuid.Nil {
		details = append(details, "tenant_id: required")
	}
	if len(details) > 0 {
		return &ValidationError{Details: details}
	}
	return nil
}

func stringField(raw map[string]json.RawMessage, name string, details []string) (string, []string) {
	msg, ok := raw[name]
	if !ok || isNull(msg) {
		return "", details
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return "", append(details, name+": expected string")
	}
	return s, details
}

func isNull(msg json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(msg), []byte("null"))
}

func alreadyReported(details []string, field string) bool {
	for _, d := range details {
		if strings.HasPrefix(d, field+":") {
			return true
		}
	}
	return false
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "uuid":
		return "invalid uuid"
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}
