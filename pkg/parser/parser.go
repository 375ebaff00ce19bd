// Package parser reads weighted edge lists into graph records.
package parser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gilchrisn/modularity-clustering/pkg/graph"
)

// Supported input formats.
const (
	FormatCSV        = "csv"
	FormatWhitespace = "whitespace"
)

// Options controls how an edge list is read.
type Options struct {
	// Format is FormatCSV (comma separated, the default) or FormatWhitespace
	// ("from to weight" separated by any run of blanks).
	Format string
	// SkipHeader drops the first record and keeps it in Result.Header.
	SkipHeader bool
}

// Result holds the records read from one input.
type Result struct {
	Records []graph.Record
	Header  []string
}

// ParseEdgeListFile reads an edge list from filename.
func ParseEdgeListFile(filename string, opts Options) (*Result, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open edge list: %w", err)
	}
	defer file.Close()

	res, err := ParseEdgeList(file, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return res, nil
}

// ParseEdgeList reads records from r. Blank lines and lines starting with '#'
// are ignored. Field counts are not checked here; graph.Load reports malformed
// records with their line numbers.
func ParseEdgeList(r io.Reader, opts Options) (*Result, error) {
	switch opts.Format {
	case "", FormatCSV:
		return parseCSV(r, opts.SkipHeader)
	case FormatWhitespace:
		return parseWhitespace(r, opts.SkipHeader)
	default:
		return nil, fmt.Errorf("unknown input format %q", opts.Format)
	}
}

func parseCSV(r io.Reader, skipHeader bool) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'
	reader.ReuseRecord = false

	res := &Result{}
	first := true
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)

		if first && skipHeader {
			res.Header = fields
			first = false
			continue
		}
		first = false
		res.Records = append(res.Records, graph.Record{Line: line, Fields: fields})
	}
	return res, nil
}

func parseWhitespace(r io.Reader, skipHeader bool) (*Result, error) {
	res := &Result{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	first := true

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if first && skipHeader {
			res.Header = fields
			first = false
			continue
		}
		first = false
		res.Records = append(res.Records, graph.Record{Line: lineNo, Fields: fields})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read edge list: %w", err)
	}
	return res, nil
}

// LoadGraph reads filename and builds a weighted graph from it.
func LoadGraph(filename string, opts Options) (*graph.WeightedGraph, *Result, error) {
	res, err := ParseEdgeListFile(filename, opts)
	if err != nil {
		return nil, nil, err
	}
	g, err := graph.Load(res.Records)
	if err != nil {
		return nil, res, fmt.Errorf("%s: %w", filename, err)
	}
	return g, res, nil
}

// SaveEdges writes edges to filename in the given input format, so the file can
// be read back with ParseEdgeListFile.
func SaveEdges(edges []graph.Edge, filename, format string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch format {
	case "", FormatCSV:
		w := csv.NewWriter(file)
		for _, edge := range edges {
			if err := w.Write([]string{edge.From, edge.To, strconv.FormatFloat(edge.Weight, 'g', -1, 64)}); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	case FormatWhitespace:
		w := bufio.NewWriter(file)
		for _, edge := range edges {
			if _, err := fmt.Fprintf(w, "%s %s %g\n", edge.From, edge.To, edge.Weight); err != nil {
				return err
			}
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
