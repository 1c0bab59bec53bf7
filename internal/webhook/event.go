package webhook

// Event type strings the provider delivers.
const (
	TypeURLVerification   = "url_verification"
	TypePageCreated       = "page.created"
	TypePagePropsUpdated  = "page.properties_updated"
	TypePageContentUpdate = "page.content_updated"
	TypePageDeleted       = "page.deleted"
	TypePageMoved         = "page.moved"
	TypePageUndeleted     = "page.undeleted"
)

// Event is the provider webhook payload. Unknown fields are ignored so an
// unrecognized shape never fails decoding.
type Event struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge,omitempty"`
	Token     string `json:"verification_token,omitempty"`
	Entity    struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	} `json:"entity"`
	Data struct {
		Parent struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"parent"`
		UpdatedProperties []string `json:"updated_properties,omitempty"`
		UpdatedBlocks     []struct {
			ID string `json:"id"`
		} `json:"updated_blocks,omitempty"`
	} `json:"data"`
}

// IsVerification reports whether the event is a subscription-verification
// challenge rather than a page lifecycle event.
func (e *Event) IsVerification() bool {
	return e.Type == TypeURLVerification || (e.Type == "" && e.Token != "")
}

// ImpliesDeletion reports whether the event already implies the page is
// gone, so a fetch failure corroborates rather than contradicts it.
func (e *Event) ImpliesDeletion() bool {
	return e.Type == TypePageDeleted || e.Type == TypePageMoved
}

// SourceDatabaseID returns the database id embedded in the payload, empty
// when the parent is not a database.
func (e *Event) SourceDatabaseID() string {
	if e.Data.Parent.Type == "database" || e.Data.Parent.Type == "data_source" {
		return e.Data.Parent.ID
	}
	return ""
}

// Result is what the processor reports back to the HTTP layer. Business
// outcomes are always success; non-success is reserved for malformed
// requests and unexpected internal failures.
type Result struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	PageID    string `json:"page_id,omitempty"`
	Operation string `json:"operation,omitempty"`
	Challenge string `json:"challenge,omitempty"`
}

func success(op, pageID, msg string) *Result {
	return &Result{Status: "success", Message: msg, PageID: pageID, Operation: op}
}
