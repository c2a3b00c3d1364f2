package simulation

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/aukilabs/hagall-rooms/scene"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Digest returns a Keccak-256 hash of the leaves below root: their id, their
// container and their location. Leaves are ordered by id so the digest does
// not depend on the order children were attached in.
func Digest(root *scene.Node) common.Hash {
	leaves := root.Leaves()
	sort.SliceStable(leaves, func(i, j int) bool {
		if leaves[i].ID != leaves[j].ID {
			return leaves[i].ID < leaves[j].ID
		}
		return leaves[i].Name < leaves[j].Name
	})

	buf := make([]byte, 0, len(leaves)*64)
	for _, l := range leaves {
		buf = binary.LittleEndian.AppendUint32(buf, l.ID)
		buf = append(buf, l.Name...)
		if p := l.Parent(); p != nil {
			buf = append(buf, p.Name...)
		}

		location := l.Border().Location()
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(location.X))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(location.Y))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(location.Z))
	}
	return crypto.Keccak256Hash(buf)
}
