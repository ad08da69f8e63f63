package types

// DataEnvelope is the body of every successful single-resource response.
type DataEnvelope struct {
	Data any `json:"data"`
}

// ListEnvelope carries a collection and its length; Data is never null.
type ListEnvelope struct {
	Data  any `json:"data"`
	Count int `json:"count"`
}

// ErrorBody is the public view of a coded error.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}
