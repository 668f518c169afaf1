package dto

// ErrorResponse is the body of every non-2xx API response. Error is a short
// summary of the failed operation and Message the underlying cause.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// NewErrorResponse builds an ErrorResponse for status.
func NewErrorResponse(status int, summary string, err error) ErrorResponse {
	resp := ErrorResponse{Error: summary, Code: status}
	if err != nil {
		resp.Message = err.Error()
	}
	return resp
}
