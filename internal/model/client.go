// Package model wraps the language model that turns operator messages into
// directive-protocol replies.
package model

import "context"

// Client produces a raw model reply for a single user turn. The reply is
// expected, but not guaranteed, to follow the directive line protocol.
type Client interface {
	Complete(ctx context.Context, userTurn string) (string, error)
}

// StaticClient replays canned replies in order. Test helper.
type StaticClient struct {
	Replies []string
	Err     error

	calls int
}

func (s *StaticClient) Complete(_ context.Context, _ string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.Replies) == 0 {
		return "", nil
	}
	reply := s.Replies[s.calls%len(s.Replies)]
	s.calls++
	return reply, nil
}

// Calls reports how many completions the fake has served.
func (s *StaticClient) Calls() int { return s.calls }
