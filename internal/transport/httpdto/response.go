package httpdto

// Response is the envelope of every REST body. Code carries the stable
// error code clients switch on and is empty on success.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: data}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{Error: err, Code: code}
}

// ListResponse wraps a page of items.
type ListResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// NewPage builds a successful list body. A nil slice is sent as [].
func NewPage[T any](items []T, total int64, page, limit int) Response[ListResponse[T]] {
	if items == nil {
		items = []T{}
	}
	return NewSuccessResponse(ListResponse[T]{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}
