package websocket

import (
	"context"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/hagall-common/messages/hagallpb"
	"github.com/aukilabs/hagall-rooms/models"
	"golang.org/x/net/websocket"
	"google.golang.org/protobuf/proto"
)

const (
	sendChanSize = 8

	// The query parameter holding the global id of the session to watch.
	SessionParam = "session"

	ErrTypeSessionNotFound = "session_not_found"
)

// FeedHandler streams the state of a session to websocket clients. Each
// client becomes a participant of the watched session and receives a
// protobuf SessionState on every broadcast.
type FeedHandler struct {
	Sessions       *models.SessionStore
	PublicEndpoint string
}

// Handle serves a websocket connection until the client disconnects or ctx
// is done.
func (h *FeedHandler) Handle(ctx context.Context, conn *websocket.Conn) {
	sessionID := conn.Request().URL.Query().Get(SessionParam)
	session, ok := h.Sessions.GetByGlobalID(sessionID)
	if !ok {
		instrumentSendError(h.PublicEndpoint, errors.New("session not found").
			WithType(ErrTypeSessionNotFound))
		logs.WithTag("session_id", sessionID).
			Warn(errors.New("feed requested for an unknown session").
				WithType(ErrTypeSessionNotFound))
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	f := &feed{
		conn:           conn,
		publicEndpoint: h.PublicEndpoint,
		sendChan:       make(chan *hagallpb.SessionState, sendChanSize),
		cancel:         cancel,
	}

	participant := &models.Participant{
		ID:     session.NewParticipantID(),
		Sender: f,
	}
	session.AddParticipant(participant)
	defer session.RemoveParticipant(participant)

	instrumentConnect(h.PublicEndpoint)
	defer instrumentDisconnect(h.PublicEndpoint)

	logs.WithTag("session_id", sessionID).
		WithTag("participant_id", participant.ID).
		Info("feed client connected")

	f.SendState(session.State())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.startSending(ctx)
	}()
	go func() {
		defer wg.Done()
		f.startReceiving(ctx)
	}()

	<-ctx.Done()
	conn.Close()
	wg.Wait()

	logs.WithTag("session_id", sessionID).
		WithTag("participant_id", participant.ID).
		WithTag("reason", f.reason()).
		Info("feed client disconnected")
}

type feed struct {
	conn           *websocket.Conn
	publicEndpoint string
	sendChan       chan *hagallpb.SessionState
	cancel         func()

	closeOnce   sync.Once
	closeReason error
}

// SendState queues a state for sending. States are dropped when the client
// is too slow to keep up with the frame rate.
func (f *feed) SendState(s *hagallpb.SessionState) error {
	select {
	case f.sendChan <- s:
		return nil
	default:
		instrumentDroppedState(f.publicEndpoint)
		return errors.New("feed send queue is full")
	}
}

func (f *feed) startSending(ctx context.Context) {
	defer func() {
		for len(f.sendChan) != 0 {
			<-f.sendChan
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case state := <-f.sendChan:
			data, err := proto.Marshal(state)
			if err != nil {
				f.disconnect(errors.New("encoding session state failed").Wrap(err))
				return
			}

			if err := websocket.Message.Send(f.conn, data); err != nil {
				err = errors.New("sending session state failed").Wrap(err)
				instrumentSendError(f.publicEndpoint, err)
				f.disconnect(err)
				return
			}
			instrumentSentState(f.publicEndpoint, len(data))
		}
	}
}

// The feed is one way: incoming messages are discarded and only used to
// detect disconnections.
func (f *feed) startReceiving(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		default:
			var data []byte
			if err := websocket.Message.Receive(f.conn, &data); err != nil {
				f.disconnect(errors.New("receiving message failed").Wrap(err))
				return
			}
		}
	}
}

func (f *feed) disconnect(err error) {
	f.closeOnce.Do(func() {
		f.closeReason = err
		f.cancel()
	})
}

func (f *feed) reason() string {
	if f.closeReason == nil {
		return "context done"
	}
	return f.closeReason.Error()
}
