package http

import (
	"net/http"
	"sort"

	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/hagall-rooms/grid"
	"github.com/aukilabs/hagall-rooms/models"
	"github.com/aukilabs/hagall-rooms/scene"
)

type SessionDebugInfo struct {
	SessionID   string            `json:"session_id"`
	SessionUUID string            `json:"session_uuid"`
	Frames      uint64            `json:"frames"`
	Strategy    string            `json:"strategy"`
	Moving      int               `json:"moving"`
	Collisions  int               `json:"collisions"`
	Reparents   int               `json:"reparents"`
	TickNanos   int64             `json:"tick_ns"`
	Digest      string            `json:"digest"`
	DigestFrame uint64            `json:"digest_frame"`
	Layouts     []LayoutDebugInfo `json:"layouts"`
}

type LayoutDebugInfo struct {
	Name string         `json:"name"`
	Kind string         `json:"kind"`
	Grid grid.DebugInfo `json:"grid"`
}

// HandleGridDebug writes the grids of every layout of the sessions as JSON.
// The session query parameter restricts the output to one session.
func HandleGridDebug(sessions *models.SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := sessions.List()

		ids := make([]string, 0, len(all))
		if id := r.URL.Query().Get("session"); id != "" {
			if _, ok := all[id]; !ok {
				httpcmn.NotFound(w)
				return
			}
			ids = append(ids, id)
		} else {
			for id := range all {
				ids = append(ids, id)
			}
			sort.Strings(ids)
		}

		res := make([]SessionDebugInfo, 0, len(ids))
		for _, id := range ids {
			res = append(res, sessionDebugInfo(id, all[id]))
		}

		httpcmn.OKWithJSON(w, res)
	}
}

func sessionDebugInfo(id string, s *models.Session) SessionDebugInfo {
	stats := s.Stats()
	digest, digestFrame := s.Digest()

	info := SessionDebugInfo{
		SessionID:   id,
		SessionUUID: s.SessionUUID,
		Frames:      s.Frames(),
		Strategy:    s.Engine().Collisions().Strategy(),
		Moving:      stats.Moving,
		Collisions:  stats.Collisions,
		Reparents:   stats.Reparents,
		TickNanos:   stats.Duration.Nanoseconds(),
		Digest:      digest.Hex(),
		DigestFrame: digestFrame,
	}

	s.Root().Walk(func(n *scene.Node) bool {
		if n.Kind() == scene.KindLayout {
			info.Layouts = append(info.Layouts, LayoutDebugInfo{
				Name: n.Name,
				Kind: n.LayoutKind(),
				Grid: n.Grid().DebugInfo(),
			})
		}
		return true
	})
	return info
}
