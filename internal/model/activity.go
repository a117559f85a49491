package model

// Activity types emitted by conversational backends. Backends may emit
// additional types (typing indicators, traces); consumers ignore them.
const (
	ActivityMessage           = "message"
	ActivityTyping            = "typing"
	ActivityEndOfConversation = "endOfConversation"
)

// Activity is one unit of a conversation turn's reply stream.
type Activity struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`

	// ChannelData carries the provider's side-channel payload as raw JSON
	// structure. Its shape is uncontrolled; extraction walks it field by
	// field and degrades gracefully on anything missing.
	ChannelData map[string]any `json:"channelData,omitempty"`
}

// Citation is one retrieval citation surfaced in the side-channel payload.
// Any field may be empty; rendering substitutes "N/A".
type Citation struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
	Text  string `json:"text,omitempty"`
}

// SearchTerm is one retrieval search term, with the same missing-field policy.
type SearchTerm struct {
	Source string `json:"source,omitempty"`
	Term   string `json:"term,omitempty"`
}
