package mesh

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/gogpu/engine"
	"github.com/gogpu/engine/fileio"
	"github.com/gogpu/engine/mathx"
)

var (
	// ErrSyntax reports a malformed OBJ statement.
	ErrSyntax = errors.New("mesh: syntax error")

	// ErrIndex reports a face index that refers to a missing element.
	ErrIndex = errors.New("mesh: index out of range")

	// ErrEmpty is returned for a file without faces.
	ErrEmpty = errors.New("mesh: no faces")
)

// ParseError locates a parse failure.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("mesh: line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads an OBJ file, compressed or not, through fileio.
func Load(path string) (*Mesh, error) {
	data, err := fileio.ReadWholeFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ParseOBJ(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if m.Name == "" {
		base := filepath.Base(path)
		m.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	engine.Logger().Debug("mesh loaded", "path", path,
		"vertices", len(m.Vertices), "triangles", len(m.Indices)/3)
	return m, nil
}

// corner is one face corner: position, texcoord and normal indices,
// zero-based, -1 when absent.
type corner [3]int32

type objParser struct {
	positions []mathx.Vec3
	texcoords [][2]float32
	normals   []mathx.Vec3

	mesh    Mesh
	lookup  map[corner]uint32
	missing []bool // vertex has no normal in the file
}

// ParseOBJ reads a Wavefront OBJ stream. Polygons are triangulated as fans,
// negative indices count back from the latest element, and corners that
// share all three indices are merged into one vertex. Texture coordinates
// are flipped to a top-left origin. Vertices without a normal get the
// area-weighted average of their faces' normals. Materials, groups and
// smoothing statements are ignored; the first "o" name names the mesh.
func ParseOBJ(r io.Reader) (*Mesh, error) {
	p := &objParser{lookup: make(map[corner]uint32)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		if err := p.statement(sc.Text()); err != nil {
			return nil, &ParseError{Line: line, Err: err}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("mesh: read: %w", err)
	}
	if len(p.mesh.Indices) == 0 {
		return nil, ErrEmpty
	}
	p.fillNormals()
	p.mesh.computeBounds()
	return &p.mesh, nil
}

func (p *objParser) statement(text string) error {
	if i := strings.IndexByte(text, '#'); i >= 0 {
		text = text[:i]
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	args := fields[1:]
	switch fields[0] {
	case "v":
		v, err := parseFloats(args, 3, 4)
		if err != nil {
			return err
		}
		p.positions = append(p.positions, mathx.V3(v[0], v[1], v[2]))
	case "vt":
		v, err := parseFloats(args, 1, 3)
		if err != nil {
			return err
		}
		p.texcoords = append(p.texcoords, [2]float32{v[0], 1 - v[1]})
	case "vn":
		v, err := parseFloats(args, 3, 3)
		if err != nil {
			return err
		}
		p.normals = append(p.normals, mathx.V3(v[0], v[1], v[2]).Normalize())
	case "f":
		return p.face(args)
	case "o":
		if p.mesh.Name == "" && len(args) > 0 {
			p.mesh.Name = strings.Join(args, " ")
		}
	}
	return nil
}

func parseFloats(args []string, minN, maxN int) ([4]float32, error) {
	var out [4]float32
	if len(args) < minN || len(args) > maxN {
		return out, fmt.Errorf("%w: want %d to %d numbers, got %d", ErrSyntax, minN, maxN, len(args))
	}
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 32)
		if err != nil {
			return out, fmt.Errorf("%w: %q", ErrSyntax, a)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func (p *objParser) face(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("%w: face with %d corners", ErrSyntax, len(args))
	}
	idx := make([]uint32, len(args))
	for i, a := range args {
		c, err := p.corner(a)
		if err != nil {
			return err
		}
		idx[i] = p.vertex(c)
	}
	for i := 1; i+1 < len(idx); i++ {
		p.mesh.Indices = append(p.mesh.Indices, idx[0], idx[i], idx[i+1])
	}
	return nil
}

func (p *objParser) corner(s string) (corner, error) {
	c := corner{-1, -1, -1}
	parts := strings.Split(s, "/")
	if len(parts) > 3 || parts[0] == "" {
		return c, fmt.Errorf("%w: corner %q", ErrSyntax, s)
	}
	counts := [3]int{len(p.positions), len(p.texcoords), len(p.normals)}
	for i, part := range parts {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return c, fmt.Errorf("%w: corner %q", ErrSyntax, s)
		}
		switch {
		case n > 0 && n <= counts[i]:
			c[i] = int32(n - 1)
		case n < 0 && -n <= counts[i]:
			c[i] = int32(counts[i] + n)
		default:
			return c, fmt.Errorf("%w: %q", ErrIndex, s)
		}
	}
	return c, nil
}

func (p *objParser) vertex(c corner) uint32 {
	if i, ok := p.lookup[c]; ok {
		return i
	}
	v := Vertex{Position: p.positions[c[0]]}
	if c[1] >= 0 {
		v.UV = p.texcoords[c[1]]
	}
	if c[2] >= 0 {
		v.Normal = p.normals[c[2]]
	}
	i := uint32(len(p.mesh.Vertices))
	p.mesh.Vertices = append(p.mesh.Vertices, v)
	p.missing = append(p.missing, c[2] < 0)
	p.lookup[c] = i
	return i
}

func (p *objParser) fillNormals() {
	if !slices.Contains(p.missing, true) {
		return
	}
	vs := p.mesh.Vertices
	for t := 0; t+2 < len(p.mesh.Indices); t += 3 {
		a, b, c := p.mesh.Indices[t], p.mesh.Indices[t+1], p.mesh.Indices[t+2]
		n := vs[b].Position.Sub(vs[a].Position).Cross(vs[c].Position.Sub(vs[a].Position))
		for _, i := range [3]uint32{a, b, c} {
			if p.missing[i] {
				vs[i].Normal = vs[i].Normal.Add(n)
			}
		}
	}
	for i := range vs {
		if p.missing[i] {
			vs[i].Normal = vs[i].Normal.Normalize()
		}
	}
}
