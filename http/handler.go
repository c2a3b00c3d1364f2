package http

import (
	"net/http"
	"sort"

	"github.com/aukilabs/go-tooling/pkg/errors"
	httpcmn "github.com/aukilabs/hagall-common/http"
	"github.com/aukilabs/hagall-rooms/models"
)

var errNotReady = errors.New("sessions are not ready")

func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	httpcmn.OK(w)
}

type SessionReadiness struct {
	SessionID string `json:"session_id"`
	Frames    uint64 `json:"frames"`
	Ready     bool   `json:"ready"`
}

type Readiness struct {
	Expected int                `json:"expected"`
	Sessions []SessionReadiness `json:"sessions"`
}

// HandleReadyCheck reports the server as ready once the expected number of
// sessions is running and each of them has stepped at least one frame.
func HandleReadyCheck(sessions *models.SessionStore, expected int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := sessions.List()

		ids := make([]string, 0, len(all))
		for id := range all {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		res := Readiness{
			Expected: expected,
			Sessions: make([]SessionReadiness, 0, len(ids)),
		}
		ready := len(ids) >= expected
		for _, id := range ids {
			frames := all[id].Frames()
			res.Sessions = append(res.Sessions, SessionReadiness{
				SessionID: id,
				Frames:    frames,
				Ready:     frames > 0,
			})
			ready = ready && frames > 0
		}

		if !ready {
			httpcmn.HTTPError(w, http.StatusServiceUnavailable, errNotReady)
			return
		}
		httpcmn.OKWithJSON(w, res)
	}
}

type Version struct {
	Version     string `json:"version"`
	Strategy    string `json:"strategy"`
	Granularity int    `json:"granularity"`
}

// HandleVersion writes the server version and the collision settings the
// sessions run with.
func HandleVersion(v Version) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpcmn.OKWithJSON(w, v)
	}
}
