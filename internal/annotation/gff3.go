package annotation

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// LoadGFF3 reads the features of a GFF3 file. Files ending in .gz are
// decompressed.
func LoadGFF3(path string) ([]Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open GFF3 file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return ParseGFF3(r)
}

// ParseGFF3 parses GFF3 records until EOF or a ##FASTA directive.
// Comment and directive lines are skipped.
func ParseGFF3(r io.Reader) ([]Feature, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var features []Feature
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "##FASTA" {
			break
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		f, err := parseGFF3Line(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		features = append(features, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GFF3: %w", err)
	}
	return features, nil
}

func parseGFF3Line(line string) (Feature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 9 {
		return Feature{}, fmt.Errorf("invalid GFF3 line: expected 9 fields, got %d", len(fields))
	}
	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return Feature{}, fmt.Errorf("parse start: %w", err)
	}
	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return Feature{}, fmt.Errorf("parse end: %w", err)
	}
	if end < start {
		return Feature{}, fmt.Errorf("end %d before start %d", end, start)
	}

	f := Feature{
		Seqid:  unescape(fields[0]),
		Source: unescape(fields[1]),
		Type:   unescape(fields[2]),
		Start:  start,
		End:    end,
		Strand: fields[6],
	}
	if fields[5] != "." {
		score, err := strconv.ParseFloat(fields[5], 64)
		if err != nil {
			return Feature{}, fmt.Errorf("parse score: %w", err)
		}
		f.Score = &score
	}
	if fields[7] != "." {
		phase, err := strconv.Atoi(fields[7])
		if err != nil || phase < 0 || phase > 2 {
			return Feature{}, fmt.Errorf("invalid phase %q", fields[7])
		}
		f.Phase = &phase
	}
	f.Attributes = parseAttributes(fields[8])
	return f, nil
}

// parseAttributes parses column 9: tag=value pairs separated by semicolons.
func parseAttributes(s string) map[string]string {
	if s == "." || s == "" {
		return nil
	}
	attrs := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		attrs[unescape(k)] = unescape(v)
	}
	return attrs
}

func unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	u, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return u
}
