package path

import (
	"fmt"
	"io"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// document is the on-disk layout of a path file:
//
//	lines:
//	  - [[x, y, z], [x, y, z], ...]
type document struct {
	Lines [][][3]float64 `yaml:"lines"`
}

// Load reads polylines from a YAML document.
func Load(r io.Reader) (Polylines, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("error parsing path file: %w", err)
	}
	lines := make(Polylines, len(doc.Lines))
	for i, l := range doc.Lines {
		lines[i] = make([]r3.Vec, len(l))
		for j, p := range l {
			lines[i][j] = r3.Vec{X: p[0], Y: p[1], Z: p[2]}
		}
	}
	return lines, nil
}

// Save writes polylines in the format Load reads.
func Save(w io.Writer, lines Polylines) error {
	doc := document{Lines: make([][][3]float64, len(lines))}
	for i, l := range lines {
		doc.Lines[i] = make([][3]float64, len(l))
		for j, p := range l {
			doc.Lines[i][j] = [3]float64{p.X, p.Y, p.Z}
		}
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("error marshaling path: %w", err)
	}
	return nil
}
