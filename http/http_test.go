package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aukilabs/hagall-rooms/collision"
	"github.com/aukilabs/hagall-rooms/geom"
	"github.com/aukilabs/hagall-rooms/models"
	"github.com/aukilabs/hagall-rooms/scene"
	"github.com/aukilabs/hagall-rooms/simulation"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func TestMetricsPathFormatter(t *testing.T) {
	require.Empty(t, MetricsPathFormatter(http.StatusNotFound, "/nope"))
	require.Empty(t, MetricsPathFormatter(http.StatusMethodNotAllowed, "/health"))
	require.Equal(t, "/health", MetricsPathFormatter(http.StatusOK, "/health"))
}

func newTestSessions(t *testing.T) (*models.SessionStore, *models.Session) {
	universe := scene.NewUniverse("universe", geom.Vector3f{}, geom.NewVector3i(2, 1, 1), geom.NewVector3f(8, 2, 8))
	room := scene.NewRoom("room", geom.NewVector3f(-4, 0, 0), geom.NewVector3i(4, 1, 4), geom.NewVector3f(2, 2, 2))
	universe.AddChild(room)
	room.AddChild(scene.NewLeaf("leaf", geom.NewVector3f(-4, 0, 0), geom.NewVector3f(1, 1, 1)))

	sessions := &models.SessionStore{}
	session := models.NewSession(sessions.NewID(), universe, simulation.NewEngine(collision.NewEngine(4, nil), 0), time.Second)
	sessions.Add(session)
	t.Cleanup(session.Close)
	return sessions, session
}

func TestHandleHealthCheck(t *testing.T) {
	w := httptest.NewRecorder()
	HandleHealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestHandleReadyCheck(t *testing.T) {
	sessions, session := newTestSessions(t)

	t.Run("session without frames is not ready", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleReadyCheck(sessions, 1)(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	_, err := session.Step(context.Background())
	require.NoError(t, err)

	t.Run("stepping sessions are ready", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleReadyCheck(sessions, 1)(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var res Readiness
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Equal(t, 1, res.Expected)
		require.Equal(t, []SessionReadiness{{
			SessionID: sessions.GlobalSessionID(session.ID),
			Frames:    1,
			Ready:     true,
		}}, res.Sessions)
	})

	t.Run("missing sessions are not ready", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleReadyCheck(sessions, 2)(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestHandleVersion(t *testing.T) {
	w := httptest.NewRecorder()
	HandleVersion(Version{
		Version:     "v1.2.3",
		Strategy:    collision.StrategyParallel,
		Granularity: 32,
	})(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var v Version
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	require.Equal(t, "v1.2.3", v.Version)
	require.Equal(t, collision.StrategyParallel, v.Strategy)
	require.Equal(t, 32, v.Granularity)
}

func TestListenAndServeClosesSessions(t *testing.T) {
	sessions, session := newTestSessions(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		ListenAndServe(ctx, sessions, &http.Server{Addr: "127.0.0.1:0"})
	}()

	cancel()
	<-done

	// A closed session returns right away.
	require.NoError(t, session.StartDispatchFrames(context.Background()))
	require.Zero(t, session.Frames())
}

func TestHandleWithCORS(t *testing.T) {
	called := false
	h := HandleWithCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("preflight", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/health", nil))
		require.Equal(t, http.StatusNoContent, w.Code)
		require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		require.False(t, called)
	})

	t.Run("request", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		require.True(t, called)
	})
}

func TestHandleGridDebug(t *testing.T) {
	sessions, session := newTestSessions(t)
	h := HandleGridDebug(sessions)

	t.Run("all sessions", func(t *testing.T) {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/debug/grids", nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var res []SessionDebugInfo
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Len(t, res, 1)
		require.Equal(t, sessions.GlobalSessionID(session.ID), res[0].SessionID)
		require.Equal(t, collision.StrategySequential, res[0].Strategy)
		require.Len(t, res[0].Layouts, 2)
		require.Equal(t, "universe", res[0].Layouts[0].Name)
		require.Equal(t, scene.LayoutRoom, res[0].Layouts[1].Kind)
		require.Equal(t, uint32(1), res[0].Layouts[1].Grid.ItemCount)
		require.Equal(t, uint32(1), res[0].Layouts[0].Grid.ItemCount)

		digest, frame := session.Digest()
		require.Equal(t, digest.Hex(), res[0].Digest)
		require.Equal(t, frame, res[0].DigestFrame)
	})

	t.Run("unknown session", func(t *testing.T) {
		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/debug/grids?session=nope", nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}
