// package testing contains shared testing utilities
package testing

import (
	"errors"
	"net/http"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// SequenceRoundTripper replays a fixed sequence of responses, repeating the
// final one once the sequence is exhausted.
type SequenceRoundTripper struct {
	responses []*http.Response
	calls     int
}

func NewSequenceRoundTripper(responses ...*http.Response) *SequenceRoundTripper {
	return &SequenceRoundTripper{responses: responses}
}

func (s *SequenceRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	return s.responses[i], nil
}

// Calls returns how many requests the transport served.
func (s *SequenceRoundTripper) Calls() int {
	return s.calls
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}
