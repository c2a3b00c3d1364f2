package geom

import (
	"strconv"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// ParseVector3f parses a comma separated triple such as "4,3,4".
func ParseVector3f(s string) (Vector3f, error) {
	parts, err := splitTriple(s)
	if err != nil {
		return Vector3f{}, err
	}

	var values [3]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 32)
		if err != nil {
			return Vector3f{}, errors.New("parsing vector component failed").
				WithTag("vector", s).
				WithTag("component", i).
				Wrap(err)
		}
		values[i] = (float32)(f)
	}
	return Vector3f{values[0], values[1], values[2]}, nil
}

// ParseVector3i parses a comma separated integer triple such as "8,1,8".
func ParseVector3i(s string) (Vector3i, error) {
	parts, err := splitTriple(s)
	if err != nil {
		return Vector3i{}, err
	}

	var values [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Vector3i{}, errors.New("parsing vector component failed").
				WithTag("vector", s).
				WithTag("component", i).
				Wrap(err)
		}
		values[i] = n
	}
	return Vector3i{values[0], values[1], values[2]}, nil
}

func splitTriple(s string) ([]string, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, errors.New("vector must have 3 comma separated components").
			WithTag("vector", s)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}
