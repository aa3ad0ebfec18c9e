package response

// Response represents the JSON envelope returned by every endpoint
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Page wraps a paginated collection
type Page struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// Success returns a success response wrapping the data
func Success(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// SuccessWithMessage returns a success response carrying a human readable message
func SuccessWithMessage(message string, data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
		Message: message,
	}
}

// Paginated returns a success response for a page of items
func Paginated(items interface{}, total int64, page, limit int) Response {
	return Success(Page{Items: items, Total: total, Page: page, Limit: limit})
}

// Error returns an error response wrapping the error message
func Error(err string) Response {
	return Response{
		Success: false,
		Error:   err,
	}
}
