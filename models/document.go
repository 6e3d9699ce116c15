package models

// Format tags what kind of payload a Document holds.
type Format string

const (
	FormatMarkup Format = "markup"
	FormatFeed   Format = "structured-feed"
)

// FormatForStrategy maps an extraction strategy name to the document format it expects.
func FormatForStrategy(strategy string) Format {
	if strategy == "feed" {
		return FormatFeed
	}
	return FormatMarkup
}

// Document is a fetched source, already decoded to UTF-8. Immutable once fetched.
type Document struct {
	URL         string
	Content     []byte
	Encoding    string // encoding the body was declared or detected as
	ContentType string
	Format      Format
	StatusCode  int
}

// Text returns the content as a string.
func (d *Document) Text() string {
	if d == nil {
		return ""
	}
	return string(d.Content)
}
