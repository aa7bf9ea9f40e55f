// Package assets bundles the data files shipped with the worker: the
// testlib-compatible header and the default comparator source, both
// staged into the sandbox on demand by the checker package. They are
// embedded gzip-compressed to keep the binary's embedded payload
// small and decompressed once at package init.
package assets

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

//go:embed data/testlib.h.gz
var testlibHeaderGz []byte

//go:embed data/default_checker.cpp.gz
var defaultCheckerGz []byte

var (
	testlibHeader []byte
	defaultChecker []byte
)

func init() {
	var err error
	testlibHeader, err = decompress(testlibHeaderGz)
	if err != nil {
		panic(fmt.Sprintf("assets: decompress testlib.h: %v", err))
	}
	defaultChecker, err = decompress(defaultCheckerGz)
	if err != nil {
		panic(fmt.Sprintf("assets: decompress default checker source: %v", err))
	}
}

func decompress(gz []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(gz))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// TestlibHeader returns the bundled testlib.h contents.
func TestlibHeader() []byte {
	return testlibHeader
}

// DefaultCheckerSource returns the bundled default comparator's C++
// source.
func DefaultCheckerSource() string {
	return string(defaultChecker)
}
