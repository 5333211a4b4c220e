// internal/integration/zoho/dto.go
package zoho

// tokenResponse is the OAuth token endpoint reply. Zoho returns 200
// with an "error" field on some failures, so both are checked.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

// recordList is the generic record envelope of the v2 REST API.
// Records are decoded loosely because custom modules carry arbitrary
// field sets and lookup fields arrive as nested objects.
type recordList struct {
	Data []any `json:"data"`
}

// timelineList is the reply of GET /{module}/{id}/__timeline.
type timelineList struct {
	Events []timelineEvent `json:"__timeline"`
}

type timelineEvent struct {
	DoneTime     string        `json:"done_time"`
	FieldHistory []fieldChange `json:"field_history"`
}

type fieldChange struct {
	APIName       string  `json:"api_name"`
	PreviousValue *string `json:"_previous_value"`
	Value         *string `json:"_value"`
}

// noteList is the reply of the Notes related list.
type noteList struct {
	Data []noteRecord `json:"data"`
}

type noteRecord struct {
	Content     string `json:"Note_Content"`
	CreatedTime string `json:"Created_Time"`
}
