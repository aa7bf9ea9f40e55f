// Package model defines the judger's wire and domain types: file
// references, sandbox commands/results, testcases, submissions and
// their results. Field names are chosen to match the sandbox wire
// protocol exactly, since these structs are marshaled directly.
package model

import (
	"encoding/json"
	"fmt"
)

// FileRef is the tagged union of the three file provenance kinds plus
// the output-capture sink, matching the sandbox's `{src}`, `{content}`,
// `{fileId}`, `{name,max}` wire shapes.
type FileRef struct {
	// LocalFile
	Src string `json:"src,omitempty"`
	// MemoryFile
	Content []byte `json:"content,omitempty"`
	// PreparedFile
	FileID string `json:"fileId,omitempty"`
	// Collector
	Name string `json:"name,omitempty"`
	Max  int64  `json:"max,omitempty"`

	kind fileRefKind
}

type fileRefKind int

const (
	kindInvalid fileRefKind = iota
	kindLocal
	kindMemory
	kindPrepared
	kindCollector
)

// LocalFile builds a FileRef sourced from the worker's filesystem.
func LocalFile(path string) FileRef {
	return FileRef{Src: path, kind: kindLocal}
}

// MemoryFile builds a FileRef carrying inline content.
func MemoryFile(content []byte) FileRef {
	return FileRef{Content: content, kind: kindMemory}
}

// PreparedFile builds a FileRef referencing a sandbox-resident blob.
func PreparedFile(fileID string) FileRef {
	return FileRef{FileID: fileID, kind: kindPrepared}
}

// Collector builds an output-capture sink.
func Collector(name string, max int64) FileRef {
	return FileRef{Name: name, Max: max, kind: kindCollector}
}

func (f FileRef) IsLocal() bool     { return f.kind == kindLocal }
func (f FileRef) IsMemory() bool    { return f.kind == kindMemory }
func (f FileRef) IsPrepared() bool  { return f.kind == kindPrepared }
func (f FileRef) IsCollector() bool { return f.kind == kindCollector }
func (f FileRef) IsZero() bool      { return f.kind == kindInvalid }

// MarshalJSON emits only the fields relevant to this ref's kind, so a
// LocalFile never serializes a stray empty "fileId" key.
func (f FileRef) MarshalJSON() ([]byte, error) {
	switch f.kind {
	case kindLocal:
		return json.Marshal(struct {
			Src string `json:"src"`
		}{f.Src})
	case kindMemory:
		return json.Marshal(struct {
			Content []byte `json:"content"`
		}{f.Content})
	case kindPrepared:
		return json.Marshal(struct {
			FileID string `json:"fileId"`
		}{f.FileID})
	case kindCollector:
		return json.Marshal(struct {
			Name string `json:"name"`
			Max  int64  `json:"max"`
		}{f.Name, f.Max})
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON infers the kind from which discriminating key is present.
func (f *FileRef) UnmarshalJSON(data []byte) error {
	var raw struct {
		Src     string `json:"src"`
		Content []byte `json:"content"`
		FileID  string `json:"fileId"`
		Name    string `json:"name"`
		Max     int64  `json:"max"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	_, hasContent := keys["content"]
	switch {
	case raw.Src != "":
		*f = LocalFile(raw.Src)
	case raw.FileID != "":
		*f = PreparedFile(raw.FileID)
	case raw.Name != "":
		*f = Collector(raw.Name, raw.Max)
	case hasContent:
		*f = MemoryFile(raw.Content)
	default:
		return fmt.Errorf("model: file reference has no discriminating key")
	}
	return nil
}
