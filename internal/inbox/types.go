package inbox

// Message is one message returned by the inbox API.
type Message struct {
	ID        string        `json:"id"`
	From      string        `json:"from"`
	To        string        `json:"to,omitempty"`
	Type      string        `json:"type"` // "sms" or "mms"
	Body      string        `json:"body"`
	Timestamp string        `json:"timestamp"` // RFC 3339 or unix seconds
	Media     *MediaContent `json:"media,omitempty"`
}

// MediaContent describes the attachment of an MMS.
type MediaContent struct {
	MimeType string `json:"mime_type"`
	URL      string `json:"url,omitempty"`
}

// ListMessagesParams are query parameters for listing messages.
type ListMessagesParams struct {
	Direction string // "inbound" or "outbound"
	Since     string // RFC 3339 timestamp
	Limit     int
	After     string // pagination cursor
}

// ListMessagesResponse is the response from the list messages API.
type ListMessagesResponse struct {
	Data   []Message `json:"data"`
	Paging *Paging   `json:"paging,omitempty"`
}

// Paging contains cursor-based pagination info.
type Paging struct {
	Cursors struct {
		After  string `json:"after"`
		Before string `json:"before"`
	} `json:"cursors"`
}
