package models

// RecordList is the standard index response: a count plus the projected records.
type RecordList struct {
	Count   int              `json:"count" jsonschema:"description=Number of records in this response"`
	Records []map[string]any `json:"records" jsonschema:"description=Projected record documents"`
}

// ErrorDetails is the structured error information in a response.
type ErrorDetails struct {
	Code    ErrorCode `json:"code" jsonschema:"description=Machine-readable error code"`
	Message string    `json:"message" jsonschema:"description=Human-readable error message"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetails `json:"error"`
}

// UserJSON documents the projected shape of a user record as served by the
// API. The persisted document is an open attribute map; this is the filtered
// view from indexJson/showJson.
type UserJSON struct {
	ID       string   `json:"id" jsonschema:"description=Username; unique within the users database"`
	Name     string   `json:"name" jsonschema:"description=Display name"`
	Email    string   `json:"email" jsonschema:"description=Contact email address"`
	Groups   []string `json:"groups" jsonschema:"description=Group names the user belongs to"`
	LinkSelf string   `json:"link-self" jsonschema:"description=Canonical URL of this record"`
	Tokens   []string `json:"tokens,omitempty" jsonschema:"description=Token ids owned by the user; present only when the caller may see them"`
}

// TokenJSON documents the projected shape of a token record.
type TokenJSON struct {
	ID         string `json:"id" jsonschema:"description=Token identifier (lowercase)"`
	Username   string `json:"username" jsonschema:"description=Owning username; anonymous when unset"`
	Expiration int64  `json:"expiration" jsonschema:"description=Expiry as epoch seconds; 0 means never"`
	LinkSelf   string `json:"link-self" jsonschema:"description=Canonical URL of this record"`
}
