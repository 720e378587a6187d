package http

// ErrorResponse shared error envelope for all APIs
type ErrorResponse struct {
	Code    int    `json:"code"`             // non-zero error code
	Message string `json:"message"`          // error message
	Detail  string `json:"detail,omitempty"` // optional detail
}

// SuccessResponse shared success envelope for all APIs
type SuccessResponse struct {
	Code    int         `json:"code"`           // 0 on success
	Message string      `json:"message"`        // response message
	Data    interface{} `json:"data,omitempty"` // optional payload
}

// NewSuccessResponse builds a success envelope
func NewSuccessResponse(message string, data interface{}) *SuccessResponse {
	return &SuccessResponse{
		Code:    0,
		Message: message,
		Data:    data,
	}
}

// NewErrorResponse builds an error envelope
func NewErrorResponse(code int, message string, detail ...string) *ErrorResponse {
	resp := &ErrorResponse{
		Code:    code,
		Message: message,
	}
	if len(detail) > 0 && detail[0] != "" {
		resp.Detail = detail[0]
	}
	return resp
}
