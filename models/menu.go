package models

// Status is the outcome of extracting one restaurant's menu.
type Status string

const (
	StatusOK          Status = "ok"
	StatusEmpty       Status = "empty"
	StatusFetchFailed Status = "fetch-failed"
	StatusParseFailed Status = "parse-failed"
)

// MenuResult is the outcome of one extraction pass.
type MenuResult struct {
	Restaurant string   `json:"restaurant" yaml:"restaurant"`
	Strategy   string   `json:"strategy" yaml:"strategy"`
	Dishes     []string `json:"dishes" yaml:"dishes"`
	Vegetarian string   `json:"vegetarian,omitempty" yaml:"vegetarian,omitempty"`
	Status     Status   `json:"status" yaml:"status"`

	// Err preserves the underlying failure for logging. It never reaches the chat.
	Err error `json:"-" yaml:"-"`
}

// OK reports whether the result carries at least one dish.
func (r MenuResult) OK() bool {
	return r.Status == StatusOK && (len(r.Dishes) > 0 || r.Vegetarian != "")
}

// Detail returns the underlying error text, if any.
func (r MenuResult) Detail() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// FetchFailed builds a fetch-failed result.
func FetchFailed(restaurant string, err error) MenuResult {
	return MenuResult{Restaurant: restaurant, Status: StatusFetchFailed, Err: err}
}
