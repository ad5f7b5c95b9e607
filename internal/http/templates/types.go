package templates

// DefaultFooterNote is shown in the shared layout when a page does not supply custom text.
const DefaultFooterNote = "Preview of the gamebook as a reader sees it. Edit pages through the editor API."

// ChoiceView is one link rendered below a page.
type ChoiceView struct {
	Label string
	URL   string
}

// PlayPageData contains the values for a reader preview of one page.
type PlayPageData struct {
	Title      string
	PageID     int64
	Paragraphs []string
	IsEnding   bool
	Choices    []ChoiceView
	RestartURL string
	FooterNote string
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	Title       string
	StatusLabel string
	Message     string
	RestartURL  string
}
