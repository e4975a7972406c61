package reader

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kiesman99/arcprint/pkg/transform"
)

// Protocol tags the map server family a reader talks to.
type Protocol int

const (
	ProtocolArcGIS Protocol = iota + 1
	ProtocolWMS
)

var ErrUnknownProtocol = errors.New("unknown layer type")

// ParamFunc writes the protocol specific query parameters of r into q,
// replacing any value already present for the same key.
type ParamFunc func(r *Reader, q url.Values, tr *transform.Transformer, srs string, first bool)

var paramFuncs = map[Protocol]ParamFunc{
	ProtocolArcGIS: arcgisParams,
	ProtocolWMS:    wmsParams,
}

// ParseProtocol accepts the layer type names used in print job files.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "arcgis", "arcgisserver", "esri":
		return ProtocolArcGIS, nil
	case "wms":
		return ProtocolWMS, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProtocol, s)
}

func (p Protocol) String() string {
	switch p {
	case ProtocolArcGIS:
		return "arcgis"
	case ProtocolWMS:
		return "wms"
	default:
		return fmt.Sprintf("protocol(%d)", int(p))
	}
}

func (p Protocol) params() ParamFunc {
	return paramFuncs[p]
}
