package codec

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/narrative-engine/internal/grammar"
	"github.com/danielpatrickdp/narrative-engine/internal/markov"
	"github.com/danielpatrickdp/narrative-engine/internal/orchestrator"
	"github.com/danielpatrickdp/narrative-engine/internal/voice"
)

// #region server-struct

// EngineFactory builds the engine for a new session.
type EngineFactory func(session string, seed uint64) (*orchestrator.Engine, error)

type session struct {
	mu     sync.Mutex
	engine *orchestrator.Engine
}

// Server implements NarrationServer with one engine per session. Calls
// within a session are serialised; sessions run independently.
//
// A session's engine is built from the seed of its first request. Seeds on
// later requests for the same session are ignored. Sessions are never
// evicted, so the map grows with every distinct session id for the life of
// the server.
type Server struct {
	factory EngineFactory
	log     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// NewServer creates a server that builds engines with factory.
func NewServer(factory EngineFactory, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{factory: factory, log: log.Named("codec"), sessions: map[string]*session{}}
}

// #endregion server-struct

// #region narrate

// Narrate implements NarrationServer.
func (s *Server) Narrate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req Request
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.Session == "" {
		return nil, status.Error(codes.InvalidArgument, "session is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}

	sess, err := s.session(req.Session, req.Seed)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "create session: %v", err)
	}

	sess.mu.Lock()
	res, err := sess.engine.NarrateDetailed(req.Event, req.World())
	sess.mu.Unlock()
	if err != nil {
		s.log.Debug("narrate failed", zap.String("session", req.Session), zap.Error(err))
		return nil, toStatus(err)
	}

	return toStruct(Response{
		Text:    res.Text,
		Rule:    res.Rule,
		Voice:   res.Voice,
		Retries: res.Retries,
		Counter: res.Counter,
	})
}

// Sessions returns how many sessions are live.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) session(id string, seed uint64) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	e, err := s.factory(id, seed)
	if err != nil {
		return nil, err
	}
	sess := &session{engine: e}
	s.sessions[id] = sess
	s.log.Info("session created", zap.String("session", id), zap.Uint64("seed", seed), zap.String("engine", e.ID()))
	return sess, nil
}

// #endregion narrate

// #region error-mapping

func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, grammar.ErrRuleNotFound):
		code = codes.NotFound
	case errors.Is(err, grammar.ErrEntityNotFound):
		code = codes.InvalidArgument
	case errors.Is(err, orchestrator.ErrGenerationFailed):
		code = codes.Aborted
	case errors.Is(err, grammar.ErrPreconditionFailed),
		errors.Is(err, grammar.ErrMaxDepthExceeded),
		errors.Is(err, markov.ErrInsufficientCorpus),
		errors.Is(err, markov.ErrCorpusNotFound),
		errors.Is(err, voice.ErrVoiceNotFound),
		errors.Is(err, voice.ErrInheritanceCycle),
		errors.Is(err, voice.ErrUnknownParent):
		code = codes.FailedPrecondition
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

// #endregion error-mapping
