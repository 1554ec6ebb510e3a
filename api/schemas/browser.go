package schemas

import "context"

// -- Simplified page model --

// ClickableElement is a link, button or role-annotated element the persona
// could click, identified by a stable generated name.
type ClickableElement struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Text        string `json:"text"`
	Description string `json:"description"`
}

// InputElement is a form field the persona could type into.
type InputElement struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// TextBlock is a heading, paragraph or list extracted from the page.
type TextBlock struct {
	Type  string   `json:"type"` // "heading", "paragraph" or "list"
	Tag   string   `json:"tag,omitempty"`
	Text  string   `json:"text,omitempty"`
	Items []string `json:"items,omitempty"`
}

// PageSnapshot is the simplified page representation handed to the perception
// module instead of raw HTML.
type PageSnapshot struct {
	URL          string             `json:"url"`
	Title        string             `json:"title"`
	Clickables   []ClickableElement `json:"clickables"`
	Inputs       []InputElement     `json:"inputs"`
	TextBlocks   []TextBlock        `json:"text_blocks"`
	ErrorMessage string             `json:"error_message,omitempty"`
}

// ActionResult reports the outcome of a dispatched browser action. Failures
// travel through this struct rather than through error returns so a bad
// action never aborts a session.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BrowserConnector is the environment adapter contract. One connector serves
// exactly one session and is not safe for concurrent use.
type BrowserConnector interface {
	// Navigate loads a URL and returns the simplified page.
	Navigate(ctx context.Context, url string) (*PageSnapshot, error)
	// ObservePage simplifies the current page without navigating.
	ObservePage(ctx context.Context) (*PageSnapshot, error)
	// Execute dispatches a single action. Unsupported or failed actions are
	// reported as a failed ActionResult, never as a panic.
	Execute(ctx context.Context, action Action) ActionResult
	// Screenshot captures the current viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
	// CurrentURL returns the URL of the page the connector is on.
	CurrentURL(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}
