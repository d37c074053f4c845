// Package archive streams record lines out of export archives. An export is
// either a zip of .jsonl members or a bare line file; either way the unit
// handed to the caller is one line plus the exact position it came from, so
// failures can name their source.
//
// Paths and zip members are visited in descending name order: exports are
// date-stamped, so the newest data loads first.
package archive

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Source names the origin of one record line.
type Source struct {
	Archive string // path of the archive or bare file
	Member  string // member name inside a zip, empty for bare files
	Line    int    // 1-based physical line number
}

// String renders the source as "archive!member:line", dropping the member
// part for bare files.
func (s Source) String() string {
	if s.Member == "" {
		return fmt.Sprintf("%s:%d", s.Archive, s.Line)
	}
	return fmt.Sprintf("%s!%s:%d", s.Archive, s.Member, s.Line)
}

// HandlerFunc receives one non-blank record line. The line slice is reused
// between calls; implementations that retain it must copy.
type HandlerFunc func(src Source, line []byte) error

// Walk streams every record line of every given path to fn, stopping at the
// first error. Zip archives are expanded member by member; any other path is
// read as a bare line file. Blank lines are skipped but still counted, so
// reported line numbers match what an editor shows. Cancelling ctx stops the
// walk between lines.
func Walk(ctx context.Context, paths []string, fn HandlerFunc) error {
	ordered := make([]string, len(paths))
	copy(ordered, paths)
	sort.Sort(sort.Reverse(sort.StringSlice(ordered)))

	for _, path := range ordered {
		var err error
		if strings.EqualFold(filepath.Ext(path), ".zip") {
			err = walkZip(ctx, path, fn)
		} else {
			err = walkFile(ctx, path, fn)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func walkZip(ctx context.Context, path string, fn HandlerFunc) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", path, err)
	}
	defer zr.Close()

	members := make([]*zip.File, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !isRecordFile(f.Name) {
			continue
		}
		members = append(members, f)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Name > members[j].Name })

	for _, m := range members {
		rc, err := m.Open()
		if err != nil {
			return fmt.Errorf("open member %s!%s: %w", path, m.Name, err)
		}
		err = scanLines(ctx, Source{Archive: path, Member: m.Name}, rc, fn)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func walkFile(ctx context.Context, path string, fn HandlerFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return scanLines(ctx, Source{Archive: path}, f, fn)
}

// isRecordFile keeps .jsonl/.json members and drops zip noise (manifests,
// checksums, resource forks).
func isRecordFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jsonl", ".json":
		return true
	}
	return false
}

func scanLines(ctx context.Context, src Source, r io.Reader, fn HandlerFunc) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for sc.Scan() {
		src.Line++
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if err := fn(src, line); err != nil {
			return fmt.Errorf("%s: %w", src, err)
		}
	}
	if err := sc.Err(); err != nil {
		if src.Member != "" {
			return fmt.Errorf("read %s!%s: %w", src.Archive, src.Member, err)
		}
		return fmt.Errorf("read %s: %w", src.Archive, err)
	}
	return nil
}
