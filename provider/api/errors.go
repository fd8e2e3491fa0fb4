package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResponseError captures an unexpected event API response.
type ResponseError struct {
	Operation string
	Status    int
	Code      string
	Message   string
	Err       error
}

func (e *ResponseError) Error() string {
	if e == nil {
		return "event API error"
	}

	scope := "event API"
	if e.Operation != "" {
		scope = fmt.Sprintf("event API %s", e.Operation)
	}

	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("%s failed (%d): %s", scope, e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s failed: %s", scope, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s failed with status %d", scope, e.Status)
	}
	return fmt.Sprintf("%s failed", scope)
}

func (e *ResponseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ResponseError) Metadata() map[string]any {
	if e == nil {
		return nil
	}

	meta := map[string]any{}
	if e.Operation != "" {
		meta["operation"] = e.Operation
	}
	if e.Status != 0 {
		meta["status"] = e.Status
	}
	if e.Code != "" {
		meta["code"] = e.Code
	}
	return meta
}

type apiErrorResponse struct {
	Code    string `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func responseError(operation string, status int, body []byte) *ResponseError {
	rerr := &ResponseError{Operation: operation, Status: status}

	var parsed apiErrorResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		rerr.Code = parsed.Code
		if rerr.Code == "" {
			rerr.Code = parsed.Error
		}
		rerr.Message = parsed.Message
	}

	if rerr.Message == "" {
		rerr.Message = strings.TrimSpace(string(body))
	}
	return rerr
}
