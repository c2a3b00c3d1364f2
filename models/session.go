package models

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/hagall-common/messages/hagallpb"
	"github.com/aukilabs/hagall-rooms/scene"
	"github.com/aukilabs/hagall-rooms/simulation"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	ErrTypeExecutionTimeElapsed = "execution_time_elapsed"
)

// Session represents a simulated world: a scene tree advanced by a simulation
// engine on every frame, and the participants watching it.
type Session struct {
	ID          uint32
	SessionUUID string

	// The kind of world, used to label metrics.
	World string

	// The maximum wall-clock time the frame loop runs. 0 means no limit.
	MaxExecutionDuration time.Duration

	root    *scene.Node
	engine  *simulation.Engine
	nodeIDs SequentialIDGenerator

	participantIDs   SequentialIDGenerator
	participantMutex sync.RWMutex
	participants     map[uint32]*Participant

	inputIDs   SequentialIDGenerator
	inputs     map[uint32]func(frame uint64)
	inputMutex sync.RWMutex

	frames     atomic.Uint64
	statsMutex sync.RWMutex
	stats      simulation.Stats

	snapshotMutex sync.RWMutex
	snapshot      sceneSnapshot

	startFrameOnce  sync.Once
	closeFrameChan  chan struct{}
	frameDuration   time.Duration
	frameTicker     *time.Ticker
	frameHandlerIDs SequentialIDGenerator
	frameHandlers   map[uint32]func()
	frameMutex      sync.RWMutex

	closeOnce sync.Once
}

// NewSession returns a session simulating root with engine. Leaves of root
// without an id are given one.
func NewSession(id uint32, root *scene.Node, engine *simulation.Engine, frameDuration time.Duration) *Session {
	s := &Session{
		ID:             id,
		SessionUUID:    uuid.New().String(),
		root:           root,
		engine:         engine,
		closeFrameChan: make(chan struct{}, 1),
		frameDuration:  frameDuration,
		frameTicker:    time.NewTicker(frameDuration),
		participants:   make(map[uint32]*Participant),
		inputs:         make(map[uint32]func(uint64)),
		frameHandlers:  make(map[uint32]func()),
	}
	s.AssignNodeIDs()
	if err := s.takeSnapshot(); err != nil {
		logs.WithTag("session_id", s.ID).Warn(err)
	}
	return s
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.frameTicker.Stop()
		s.closeFrameChan <- struct{}{}
	})
}

func (s *Session) Root() *scene.Node {
	return s.root
}

func (s *Session) Engine() *simulation.Engine {
	return s.engine
}

func (s *Session) NewNodeID() uint32 {
	return s.nodeIDs.New()
}

// AssignNodeIDs gives an id to every leaf of the scene that does not have
// one yet.
func (s *Session) AssignNodeIDs() {
	if s.root == nil {
		return
	}
	for _, l := range s.root.Leaves() {
		if l.ID == 0 {
			l.ID = s.nodeIDs.New()
		}
	}
}

func (s *Session) NewParticipantID() uint32 {
	return s.participantIDs.New()
}

func (s *Session) AddParticipant(p *Participant) {
	s.participantMutex.Lock()
	defer s.participantMutex.Unlock()

	s.participants[p.ID] = p
}

func (s *Session) RemoveParticipant(p *Participant) {
	s.participantMutex.Lock()
	defer s.participantMutex.Unlock()

	if _, ok := s.participants[p.ID]; !ok {
		return
	}
	delete(s.participants, p.ID)
	s.participantIDs.Reuse(p.ID)
}

func (s *Session) GetParticipants() []*Participant {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	participants := make([]*Participant, 0, len(s.participants))
	for _, p := range s.participants {
		participants = append(participants, p)
	}
	return participants
}

func (s *Session) ParticipantCount() int {
	s.participantMutex.RLock()
	defer s.participantMutex.RUnlock()

	return len(s.participants)
}

// sceneSnapshot is the part of the session state read from the scene tree.
// It is only taken between ticks, from the goroutine stepping the session.
type sceneSnapshot struct {
	frame      uint64
	entities   []*hagallpb.Entity
	components []*hagallpb.EntityComponent
	digest     common.Hash
}

func (s *Session) takeSnapshot() error {
	if s.root == nil {
		return nil
	}

	leaves := s.root.Leaves()
	components := make([]*hagallpb.EntityComponent, 0, len(leaves))
	for _, l := range leaves {
		c, err := BorderComponentToProtobuf(l)
		if err != nil {
			return errors.New("taking scene snapshot failed").
				WithTag("session_id", s.ID).
				Wrap(err)
		}
		components = append(components, c)
	}

	snapshot := sceneSnapshot{
		frame:      s.Frames(),
		entities:   EntitiesToProtobuf(leaves),
		components: components,
		digest:     simulation.Digest(s.root),
	}

	s.snapshotMutex.Lock()
	s.snapshot = snapshot
	s.snapshotMutex.Unlock()
	return nil
}

// State returns the scene as it was at the end of the last frame, with one
// entity and one border component per leaf. It is safe to call while the
// session is stepping.
func (s *Session) State() *hagallpb.SessionState {
	s.snapshotMutex.RLock()
	snapshot := s.snapshot
	s.snapshotMutex.RUnlock()

	return &hagallpb.SessionState{
		Type:             hagallpb.MsgType_MSG_TYPE_SESSION_STATE,
		Timestamp:        timestamppb.Now(),
		Participants:     ParticipantsToProtobuf(s.GetParticipants()),
		Entities:         snapshot.entities,
		EntityComponents: snapshot.components,
	}
}

// Digest returns the digest of the scene at the end of the last frame and the
// frame it was taken at.
func (s *Session) Digest() (common.Hash, uint64) {
	s.snapshotMutex.RLock()
	defer s.snapshotMutex.RUnlock()

	return s.snapshot.digest, s.snapshot.frame
}

// BroadcastState sends the current state to every participant.
func (s *Session) BroadcastState() {
	participants := s.GetParticipants()
	if len(participants) == 0 {
		return
	}

	state := s.State()
	for _, p := range participants {
		if err := p.Sender.SendState(state); err != nil {
			logs.WithTag("session_id", s.ID).
				WithTag("participant_id", p.ID).
				Debug(err)
		}
	}
}

// HandleInput registers a function called with the frame number before each
// tick. It is where movements are set.
func (s *Session) HandleInput(h func(frame uint64)) (cancel func()) {
	s.inputMutex.Lock()
	defer s.inputMutex.Unlock()

	id := s.inputIDs.New()
	s.inputs[id] = h

	return func() {
		s.inputMutex.Lock()
		defer s.inputMutex.Unlock()

		delete(s.inputs, id)
		s.inputIDs.Reuse(id)
	}
}

// HandleFrame registers a function called after each tick.
func (s *Session) HandleFrame(h func()) (cancel func()) {
	s.frameMutex.Lock()
	defer s.frameMutex.Unlock()

	id := s.frameHandlerIDs.New()
	s.frameHandlers[id] = h

	return func() {
		s.frameMutex.Lock()
		defer s.frameMutex.Unlock()

		delete(s.frameHandlers, id)
		s.frameHandlerIDs.Reuse(id)
	}
}

// Frames returns the number of frames stepped so far.
func (s *Session) Frames() uint64 {
	return s.frames.Load()
}

// Stats returns the stats of the last tick.
func (s *Session) Stats() simulation.Stats {
	s.statsMutex.RLock()
	defer s.statsMutex.RUnlock()

	return s.stats
}

// Step runs one frame: inputs, a simulation tick, then frame handlers.
func (s *Session) Step(ctx context.Context) (simulation.Stats, error) {
	frame := s.frames.Add(1)

	s.inputMutex.RLock()
	for _, h := range s.inputs {
		h(frame)
	}
	s.inputMutex.RUnlock()

	stats, err := s.engine.Tick(ctx, s.root)
	if err != nil {
		return stats, errors.New("simulation tick failed").
			WithTag("session_id", s.ID).
			WithTag("frame", frame).
			Wrap(err)
	}

	s.statsMutex.Lock()
	s.stats = stats
	s.statsMutex.Unlock()

	if err := s.takeSnapshot(); err != nil {
		logs.WithTag("frame", frame).Warn(err)
	}

	if s.frameDuration > 0 && stats.Duration > s.frameDuration {
		instrumentFrameOverrun(s.World)
		digest, _ := s.Digest()
		logs.WithTag("session_id", s.ID).
			WithTag("digest", digest.Hex()).
			WithTag("frame", frame).
			WithTag("tick_duration", stats.Duration).
			WithTag("moving", stats.Moving).
			Warn(errors.New("tick exceeded the frame duration"))
	}

	s.frameMutex.RLock()
	for _, h := range s.frameHandlers {
		h()
	}
	s.frameMutex.RUnlock()
	return stats, nil
}

// StartDispatchFrames steps the session on every frame until it is closed or
// ctx is done. It returns an error typed ErrTypeExecutionTimeElapsed once the
// maximum execution duration is reached.
func (s *Session) StartDispatchFrames(ctx context.Context) error {
	var err error

	s.startFrameOnce.Do(func() {
		start := time.Now()

		logs.WithTag("session_id", s.ID).
			WithTag("session_uuid", s.SessionUUID).
			WithTag("strategy", s.engine.Collisions().Strategy()).
			Info("session started")
		defer func() {
			digest, _ := s.Digest()
			logs.WithTag("session_id", s.ID).
				WithTag("frames", s.Frames()).
				WithTag("digest", digest.Hex()).
				Info("session stopped")
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case <-s.closeFrameChan:
				return

			case <-s.frameTicker.C:
				if _, err = s.Step(ctx); err != nil {
					return
				}

				if elapsed := time.Since(start); s.MaxExecutionDuration > 0 && elapsed >= s.MaxExecutionDuration {
					err = errors.New("execution duration elapsed").
						WithType(ErrTypeExecutionTimeElapsed).
						WithTag("session_id", s.ID).
						WithTag("elapsed", elapsed).
						WithTag("frames", s.Frames())
					return
				}
			}
		}
	})

	return err
}

type SessionStore struct {
	// The id of the server hosting the sessions, used as global session id
	// prefix.
	ServerID string

	initOnce sync.Once
	mutex    sync.RWMutex
	sessions map[string]*Session
	ids      SequentialIDGenerator
}

func (s *SessionStore) init() {
	s.sessions = map[string]*Session{}

	if s.ServerID == "" {
		s.ServerID = "ted"
	}
}

func (s *SessionStore) NewID() uint32 {
	return s.ids.New()
}

func (s *SessionStore) Add(session *Session) {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sessions[s.GlobalSessionID(session.ID)] = session

	instrumentIncreaseSessionGauge(session.World)
	instrumentCountSession(session.World)
}

func (s *SessionStore) Remove(session *Session) {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := s.GlobalSessionID(session.ID)
	if _, ok := s.sessions[id]; !ok {
		return
	}
	delete(s.sessions, id)
	session.Close()

	s.ids.Reuse(session.ID)

	instrumentDecreaseSessionGauge(session.World)
}

func (s *SessionStore) GetByGlobalID(v string) (*Session, bool) {
	s.initOnce.Do(s.init)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	session, ok := s.sessions[v]
	return session, ok
}

// List returns the sessions by global id.
func (s *SessionStore) List() map[string]*Session {
	s.initOnce.Do(s.init)

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	sessions := make(map[string]*Session, len(s.sessions))
	for id, session := range s.sessions {
		sessions[id] = session
	}
	return sessions
}

func (s *SessionStore) GlobalSessionID(sessionID uint32) string {
	s.initOnce.Do(s.init)
	return fmt.Sprintf("%sx%x", s.ServerID, sessionID)
}
