package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

// Stash holds messages an actor cannot handle in its current behavior.
// With a positive limit the oldest message is dropped once the stash is full.
type Stash struct {
	limit   int
	entries []stashed
}

type stashed struct {
	msg    any
	sender *actor.PID
}

func NewStash(limit int) *Stash {
	return &Stash{limit: limit}
}

// Stash keeps msg with its sender. It returns the message dropped to make room, if any.
func (s *Stash) Stash(ctx actor.Context, msg any) (dropped any) {
	if s.limit > 0 && len(s.entries) >= s.limit {
		dropped = s.entries[0].msg
		s.entries = s.entries[1:]
	}
	s.entries = append(s.entries, stashed{
		msg:    msg,
		sender: ctx.Sender(),
	})
	return dropped
}

func (s *Stash) Len() int {
	return len(s.entries)
}

// UnstashAll re-delivers every stashed message to self, oldest first, keeping the original sender.
func (s *Stash) UnstashAll(ctx actor.Context) {
	for _, e := range s.entries {
		ctx.RequestWithCustomSender(ctx.Self(), e.msg, e.sender)
	}
	s.entries = nil
}
