package models

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/hagall-common/messages/hagallpb"
	"github.com/aukilabs/hagall-rooms/geom"
	"github.com/aukilabs/hagall-rooms/scene"
	"github.com/segmentio/encoding/json"
)

// BorderComponentTypeID is the entity component type carrying the border of
// a scene leaf in session states.
const BorderComponentTypeID uint32 = 1

type Pose struct {
	PX float32
	PY float32
	PZ float32
	RX float32
	RY float32
	RZ float32
	RW float32
}

// PoseOf returns the pose of a node. Nodes never rotate.
func PoseOf(n *scene.Node) Pose {
	l := n.Border().Location()
	return Pose{
		PX: l.X,
		PY: l.Y,
		PZ: l.Z,
		RW: 1,
	}
}

func (p Pose) ToProtobuf() *hagallpb.Pose {
	return &hagallpb.Pose{
		Px: p.PX,
		Py: p.PY,
		Pz: p.PZ,
		Rx: p.RX,
		Ry: p.RY,
		Rz: p.RZ,
		Rw: p.RW,
	}
}

func EntityToProtobuf(n *scene.Node) *hagallpb.Entity {
	return &hagallpb.Entity{
		Id:   n.ID,
		Pose: PoseOf(n).ToProtobuf(),
	}
}

func EntitiesToProtobuf(nodes []*scene.Node) []*hagallpb.Entity {
	pEntitites := make([]*hagallpb.Entity, len(nodes))
	for i, n := range nodes {
		pEntitites[i] = EntityToProtobuf(n)
	}
	return pEntitites
}

// BorderComponent is the payload of a border entity component.
type BorderComponent struct {
	Name       string        `json:"name"`
	Container  string        `json:"container,omitempty"`
	Camera     bool          `json:"camera,omitempty"`
	Scale      geom.Vector3f `json:"scale"`
	Movement   geom.Vector3f `json:"movement"`
	MoveFactor float32       `json:"move_factor"`
}

func BorderComponentOf(n *scene.Node) BorderComponent {
	b := n.Border()

	c := BorderComponent{
		Name:       n.Name,
		Camera:     n.HasCamera(),
		Scale:      b.Scale(),
		Movement:   b.Movement(),
		MoveFactor: b.MoveFactor(),
	}
	if l := n.LayoutAncestor(); l != nil {
		c.Container = l.Name
	}
	return c
}

func BorderComponentToProtobuf(n *scene.Node) (*hagallpb.EntityComponent, error) {
	data, err := json.Marshal(BorderComponentOf(n))
	if err != nil {
		return nil, errors.New("encoding border component failed").
			WithTag("entity_id", n.ID).
			Wrap(err)
	}

	return &hagallpb.EntityComponent{
		EntityComponentTypeId: BorderComponentTypeID,
		EntityId:              n.ID,
		Data:                  data,
	}, nil
}
