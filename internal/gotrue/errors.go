package gotrue

import (
	"encoding/json"
	"fmt"
)

// APIError is returned for any non-2xx response. Error() is the provider's message, unchanged.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

type errorBody struct {
	Msg              string `json:"msg"`
	ErrorDescription string `json:"error_description"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorCode        string `json:"error_code"`
}

func parseError(status int, raw []byte) *APIError {
	e := &APIError{Status: status}
	var b errorBody
	if err := json.Unmarshal(raw, &b); err == nil {
		e.Code = b.ErrorCode
		for _, m := range []string{b.Msg, b.ErrorDescription, b.Message, b.Error} {
			if m != "" {
				e.Message = m
				break
			}
		}
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("auth request failed with status %d", status)
	}
	return e
}
