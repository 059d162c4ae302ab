package models

// APIResponse is the uniform JSON envelope returned by the HTTP endpoints.
type APIResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Success wraps data in a success envelope.
func Success(data interface{}) APIResponse {
	return APIResponse{Status: "ok", Data: data}
}

// SuccessWithMessage wraps data and a human-readable message.
func SuccessWithMessage(message string, data interface{}) APIResponse {
	return APIResponse{Status: "ok", Message: message, Data: data}
}

// Error builds an error envelope with the given message.
func Error(message string) APIResponse {
	return APIResponse{Status: "error", Message: message}
}
