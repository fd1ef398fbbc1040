package llm

import "fmt"

// ModelProviderError reports a non-success answer from the completion API.
type ModelProviderError struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *ModelProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s API error: status %d: %s", e.Provider, e.Status, e.Body)
}

func (e *ModelProviderError) Unwrap() error { return e.Err }
