package modbus

import (
	"encoding/json"
	"fmt"
	"sort"
)

// PointConfig is one addressed point of a room category.
type PointConfig struct {
	Address uint16 `json:"address"`
	Method  Method `json:"method"`
	Note    string `json:"note,omitempty"`
}

// CategoryConfig binds a room category to Modbus points. Either DeviceID
// references a registry device, or Connection carries an inline endpoint
// migrated from an older configuration.
type CategoryConfig struct {
	DeviceID   int64         `json:"deviceId,omitempty"`
	Connection *Connection   `json:"connection,omitempty"`
	Points     []PointConfig `json:"points"`
}

// legacyCategory is every shape the category configuration has had.
type legacyCategory struct {
	DeviceID *int64        `json:"deviceId"`
	Points   []PointConfig `json:"points"`

	Host   string  `json:"host"`
	Port   *uint16 `json:"port"`
	UnitID *uint8  `json:"unitId"`

	Address *uint16 `json:"address"`
	Length  *uint16 `json:"length"`

	DIAddress   *uint16  `json:"diAddress"`
	DILength    *uint16  `json:"diLength"`
	DOAddress   *uint16  `json:"doAddress"`
	DOLength    *uint16  `json:"doLength"`
	DIAddresses []uint16 `json:"diAddresses"`
	DOAddresses []uint16 `json:"doAddresses"`
}

// NormalizeCategoryConfig decodes any historical category shape into a
// CategoryConfig with explicit points.
//
// Explicit points win. Otherwise points are derived from the legacy
// fields: DI fields become getDiscreteInputs points, DO fields and the
// generic address/length window become getCoils points. Duplicate
// (address, method) pairs are dropped and points are sorted.
func NormalizeCategoryConfig(raw []byte) (CategoryConfig, error) {
	var lc legacyCategory
	if err := json.Unmarshal(raw, &lc); err != nil {
		return CategoryConfig{}, fmt.Errorf("decoding category config: %w", err)
	}

	var out CategoryConfig
	switch {
	case lc.DeviceID != nil && *lc.DeviceID > 0:
		out.DeviceID = *lc.DeviceID
	case lc.Host != "" && lc.Port != nil:
		conn := Connection{Host: lc.Host, Port: *lc.Port}
		if lc.UnitID != nil {
			conn.UnitID = *lc.UnitID
		}
		out.Connection = &conn
	default:
		return CategoryConfig{}, ErrNoConnection
	}

	var points []PointConfig
	if len(lc.Points) > 0 {
		for _, p := range lc.Points {
			if _, ok := p.Method.Space(); !ok {
				return CategoryConfig{}, fmt.Errorf("%w: %q", ErrUnknownMethod, p.Method)
			}
			points = append(points, p)
		}
	} else {
		points = append(points, expand(lc.DIAddress, lc.DILength, MethodGetDiscreteInputs)...)
		points = append(points, expand(lc.DOAddress, lc.DOLength, MethodGetCoils)...)
		points = append(points, expand(lc.Address, lc.Length, MethodGetCoils)...)
		for _, a := range lc.DIAddresses {
			points = append(points, PointConfig{Address: a, Method: MethodGetDiscreteInputs})
		}
		for _, a := range lc.DOAddresses {
			points = append(points, PointConfig{Address: a, Method: MethodGetCoils})
		}
	}

	out.Points = dedupe(points)
	return out, nil
}

// expand turns a start/length pair into one point per address. A start
// without a length is a single point.
func expand(start, length *uint16, m Method) []PointConfig {
	if start == nil {
		return nil
	}
	n := 1
	if length != nil && *length > 0 {
		n = int(*length)
	}
	out := make([]PointConfig, 0, n)
	for i := 0; i < n && int(*start)+i <= maxAddress; i++ {
		out = append(out, PointConfig{Address: *start + uint16(i), Method: m})
	}
	return out
}

func dedupe(points []PointConfig) []PointConfig {
	type key struct {
		addr uint16
		m    Method
	}
	seen := make(map[key]bool, len(points))
	out := make([]PointConfig, 0, len(points))
	for _, p := range points {
		k := key{p.Address, p.Method}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Method != out[j].Method {
			return out[i].Method < out[j].Method
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// ReadWindows groups the category's read points into the fewest
// contiguous facade reads per space.
func (c CategoryConfig) ReadWindows() []Window {
	bySpace := make(map[Space][]uint16)
	for _, p := range c.Points {
		if p.Method.IsWrite() {
			continue
		}
		sp, ok := p.Method.Space()
		if !ok {
			continue
		}
		bySpace[sp] = append(bySpace[sp], p.Address)
	}

	var out []Window
	for _, sp := range Spaces {
		addrs := bySpace[sp]
		if len(addrs) == 0 {
			continue
		}
		sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
		w := Window{Space: sp, Address: addrs[0], Length: 1}
		for _, a := range addrs[1:] {
			switch {
			case a < w.Address+w.Length:
				// duplicate address
			case a == w.Address+w.Length:
				w.Length++
			default:
				out = append(out, w)
				w = Window{Space: sp, Address: a, Length: 1}
			}
		}
		out = append(out, w)
	}
	return out
}

// Window is one contiguous read.
type Window struct {
	Space   Space
	Address uint16
	Length  uint16
}
