package domain

import "time"

// LiveState is the result of a live-game query. It is either InGame or
// NotInGame; callers switch on the concrete type.
type LiveState interface {
	isLiveState()
}

type InGame struct {
	SessionID string
	ContentID int
	QueueType string
	StartedAt time.Time
}

type NotInGame struct{}

func (InGame) isLiveState()    {}
func (NotInGame) isLiveState() {}
