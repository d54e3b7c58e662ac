// Package corpus unpacks the emotional-dialogue corpus archives and normalizes
// their JSON documents into counseling records.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/zip"

	"github.com/zhouzirui/emotalk/backend/pkg/log"
)

var (
	// ErrConfiguration reports a missing data directory or a directory without archives.
	ErrConfiguration = errors.New("corpus configuration error")
	// ErrDataFormat reports an unreadable archive or a malformed JSON document.
	ErrDataFormat = errors.New("corpus data format error")
)

const (
	archiveExt  = ".zip"
	documentExt = ".json"
)

// Document is one parsed corpus entry before normalization.
// Raw keeps the original bytes so object key order survives until extraction.
type Document struct {
	Source string
	Kind   jsonparser.ValueType
	Raw    []byte
}

// IsObject reports whether the document is a JSON object.
func (d Document) IsObject() bool {
	return d.Kind == jsonparser.Object
}

// Archives lists the archive files directly inside dataDir in lexical order.
func Archives(dataDir string) ([]string, error) {
	info, err := os.Stat(dataDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: data directory %s not found", ErrConfiguration, dataDir)
		}
		return nil, fmt.Errorf("%w: stat data directory %s: %v", ErrConfiguration, dataDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrConfiguration, dataDir)
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: read data directory %s: %v", ErrConfiguration, dataDir, err)
	}

	var archives []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), archiveExt) {
			continue
		}
		archives = append(archives, entry.Name())
	}
	if len(archives) == 0 {
		return nil, fmt.Errorf("%w: no %s archives found in %s", ErrConfiguration, archiveExt, dataDir)
	}
	return archives, nil
}

// Load extracts every archive in dataDir into its own subdirectory of extractDir
// and returns all documents found in the extracted JSON files, in order.
// Any malformed archive or document fails the whole load.
func Load(ctx context.Context, dataDir, extractDir string) ([]Document, error) {
	archives, err := Archives(dataDir)
	if err != nil {
		return nil, err
	}
	log.Infow("corpus archives found", "dir", dataDir, "count", len(archives), "archives", archives)

	var documents []Document
	for _, name := range archives {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target := filepath.Join(extractDir, strings.TrimSuffix(name, archiveExt))
		if err := extractArchive(filepath.Join(dataDir, name), target); err != nil {
			return nil, err
		}

		docs, err := loadDirectory(target, name)
		if err != nil {
			return nil, err
		}
		log.Infow("corpus archive loaded", "archive", name, "documents", len(docs))
		documents = append(documents, docs...)
	}

	return documents, nil
}

// extractArchive unpacks archivePath into target, overwriting existing files.
func extractArchive(archivePath, target string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("%w: open archive %s: %v", ErrDataFormat, archivePath, err)
	}
	defer reader.Close()

	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("create extract directory %s: %w", target, err)
	}

	root, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("resolve extract directory %s: %w", target, err)
	}

	for _, file := range reader.File {
		dest := filepath.Join(root, filepath.FromSlash(file.Name))
		if dest != root && !strings.HasPrefix(dest, root+string(os.PathSeparator)) {
			return fmt.Errorf("%w: archive %s entry %q escapes extract directory", ErrDataFormat, archivePath, file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", dest, err)
			}
			continue
		}

		if err := extractFile(file, dest); err != nil {
			return fmt.Errorf("%w: archive %s entry %q: %v", ErrDataFormat, archivePath, file.Name, err)
		}
	}
	return nil
}

func extractFile(file *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// loadDirectory parses the JSON files at the top level of dir.
func loadDirectory(dir, archive string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read extracted directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), documentExt) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var documents []Document
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		docs, err := ParseDocuments(data, archive+"/"+name)
		if err != nil {
			return nil, err
		}
		documents = append(documents, docs...)
	}
	return documents, nil
}

// ParseDocuments parses one JSON file. A top-level array yields one Document per
// element; any other value yields a single Document.
func ParseDocuments(data []byte, source string) ([]Document, error) {
	var probe interface{}
	if err := sonic.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataFormat, source, err)
	}

	value, kind, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataFormat, source, err)
	}

	if kind != jsonparser.Array {
		return []Document{{Source: source, Kind: kind, Raw: cloneBytes(value)}}, nil
	}

	var (
		documents []Document
		elemErr   error
	)
	_, err = jsonparser.ArrayEach(value, func(elem []byte, elemKind jsonparser.ValueType, _ int, err error) {
		if err != nil {
			if elemErr == nil {
				elemErr = err
			}
			return
		}
		documents = append(documents, Document{Source: source, Kind: elemKind, Raw: cloneBytes(elem)})
	})
	if err == nil {
		err = elemErr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDataFormat, source, err)
	}
	return documents, nil
}

func cloneBytes(b []byte) []byte {
	return append([]byte(nil), b...)
}
