// Package output writes a clustering result to disk in the supported export
// formats.
package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/gilchrisn/modularity-clustering/pkg/graph"
	"github.com/gilchrisn/modularity-clustering/pkg/modularity"
)

// Export format names.
const (
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatTSV     = "tsv"
	FormatMR      = "mr"
	FormatMembers = "members"
)

var extensions = map[string]string{
	FormatJSON:    ".json",
	FormatYAML:    ".yaml",
	FormatTSV:     ".tsv",
	FormatMR:      ".MR",
	FormatMembers: ".members",
}

// Extension returns the file suffix used for format.
func Extension(format string) (string, bool) {
	ext, ok := extensions[format]
	return ext, ok
}

// OutputWriter interface for flexible output generation
type OutputWriter interface {
	WriteJSON(p modularity.Partition, w io.Writer) error
	WriteYAML(p modularity.Partition, w io.Writer) error
	WriteTSV(p modularity.Partition, g *graph.WeightedGraph, name string, w io.Writer) error
	WriteMR(p modularity.Partition, w io.Writer) error
	WriteMembers(p modularity.Partition, w io.Writer) error
	WriteAll(p modularity.Partition, g *graph.WeightedGraph, root string, formats []string) ([]string, error)
}

// FileWriter implements OutputWriter for file-based output
type FileWriter struct{}

// NewFileWriter creates a new file-based output writer
func NewFileWriter() OutputWriter {
	return &FileWriter{}
}

// communityRecord is the per-community body of the structured exports.
type communityRecord struct {
	Members        []string `json:"members" yaml:"members"`
	InternalWeight float64  `json:"internal_weight" yaml:"internal_weight"`
	DegreeFraction float64  `json:"degree_fraction" yaml:"degree_fraction"`
}

func recordOf(c modularity.CommunitySnapshot) communityRecord {
	return communityRecord{Members: c.Members, InternalWeight: c.InternalWeight, DegreeFraction: c.DegreeFraction}
}

// WriteAll writes one file per format, named root plus the format's extension,
// and returns the paths written.
func (fw *FileWriter) WriteAll(p modularity.Partition, g *graph.WeightedGraph, root string, formats []string) ([]string, error) {
	if root == "" {
		return nil, fmt.Errorf("output root is empty")
	}
	if err := os.MkdirAll(filepath.Dir(root), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	for _, format := range formats {
		ext, ok := Extension(format)
		if !ok {
			return written, fmt.Errorf("unknown output format %q", format)
		}
		path := root + ext
		if err := fw.writeFile(path, func(w io.Writer) error {
			switch format {
			case FormatJSON:
				return fw.WriteJSON(p, w)
			case FormatYAML:
				return fw.WriteYAML(p, w)
			case FormatTSV:
				return fw.WriteTSV(p, g, filepath.Base(path), w)
			case FormatMR:
				return fw.WriteMR(p, w)
			default:
				return fw.WriteMembers(p, w)
			}
		}); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", format, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func (fw *FileWriter) writeFile(path string, fn func(w io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	buf := bufio.NewWriter(file)
	if err := fn(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	return file.Close()
}

// WriteJSON writes an object keyed by community id, in id order.
func (fw *FileWriter) WriteJSON(p modularity.Partition, w io.Writer) error {
	if len(p.Communities) == 0 {
		_, err := io.WriteString(w, "{}\n")
		return err
	}

	if _, err := io.WriteString(w, "{\n"); err != nil {
		return err
	}
	for i, c := range p.Communities {
		body, err := json.MarshalIndent(recordOf(c), "    ", "    ")
		if err != nil {
			return err
		}
		sep := ","
		if i == len(p.Communities)-1 {
			sep = ""
		}
		if _, err := fmt.Fprintf(w, "    %q: %s%s\n", strconv.Itoa(c.ID), body, sep); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "}\n")
	return err
}

// WriteYAML writes the same mapping as WriteJSON in YAML.
func (fw *FileWriter) WriteYAML(p modularity.Partition, w io.Writer) error {
	out := make(map[int]communityRecord, len(p.Communities))
	for _, c := range p.Communities {
		out[c.ID] = recordOf(c)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}

// WriteTSV writes the gnuplot matrix: every ordered pair of members with their
// order indices and original weight, one block per first member.
func (fw *FileWriter) WriteTSV(p modularity.Partition, g *graph.WeightedGraph, name string, w io.Writer) error {
	members := p.Members()

	if _, err := fmt.Fprintf(w, "#Plotting Commands: set pm3d map; plot %q u 3:4:5 w image\n", name); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "#Node1 Node2 OrderIndex1 OrderIndex2 OriginalWeight\n"); err != nil {
		return err
	}

	for i, m1 := range members {
		for j, m2 := range members {
			weight := 0.0
			if g != nil {
				weight = g.RawWeight(m1, m2)
			}
			if _, err := fmt.Fprintf(w, "%s %s %d %d %s\n", m1, m2, i, j, strconv.FormatFloat(weight, 'g', -1, 64)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteMR writes one `"member" -> id,` line per member.
func (fw *FileWriter) WriteMR(p modularity.Partition, w io.Writer) error {
	for _, c := range p.Communities {
		for _, m := range c.Members {
			if _, err := fmt.Fprintf(w, "\"%s\" -> %d,\n", m, c.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteMembers writes every member on its own line.
func (fw *FileWriter) WriteMembers(p modularity.Partition, w io.Writer) error {
	for _, m := range p.Members() {
		if _, err := fmt.Fprintln(w, m); err != nil {
			return err
		}
	}
	return nil
}
