package models

import (
	"github.com/aukilabs/hagall-common/messages/hagallpb"
)

// StateSender sends session states to a remote viewer.
type StateSender interface {
	SendState(*hagallpb.SessionState) error
}

// A session participant, watching the scene through the state feed.
type Participant struct {
	ID     uint32
	Sender StateSender
}

func (p *Participant) ToProtobuf() *hagallpb.Participant {
	return &hagallpb.Participant{
		Id: p.ID,
	}
}

func ParticipantsToProtobuf(participants []*Participant) []*hagallpb.Participant {
	res := make([]*hagallpb.Participant, len(participants))
	for i, p := range participants {
		res[i] = p.ToProtobuf()
	}
	return res
}
