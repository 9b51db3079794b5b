package model

// ErrorResponse is the standard envelope for error responses. Unauthorized
// responses for missing and invalid credentials share this exact shape so a
// caller cannot distinguish which case occurred.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// KeyListing is the metadata view of a credential returned by list
// endpoints. It carries a shortened digest preview for identification but
// never the digest itself or any plaintext.
type KeyListing struct {
	Name        string   `json:"name"`
	HashPreview string   `json:"hash_preview"`
	Role        string   `json:"role"`
	Projects    Projects `json:"projects"`
	Notes       string   `json:"notes,omitempty"`
	Revoked     bool     `json:"revoked"`
	CreatedAt   string   `json:"created_at"`
	LastUsed    string   `json:"last_used,omitempty"`
}
