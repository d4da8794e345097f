// Package codec implements the persistence codec: a deterministic,
// round-trippable encoding of the loaded-module state, chunked into the
// base64-alphabet-sized environment variable slots the parent shell
// carries between invocations.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"pyenv/log"
)

// DefaultChunkSize is the default number of base64 characters stored
// per PYENV_DATA_k slot.
const DefaultChunkSize = 100

// EnvDataPrefix names the chunk variables: PYENV_DATA_0, PYENV_DATA_1, …
const EnvDataPrefix = "PYENV_DATA_"

// State is the opaque payload's decoded form: the loaded module set
// and the reverse dependency map, both as plain strings so this
// package has no dependency on moduledb's ModuleName type.
type State struct {
	Loaded     []string
	Dependents map[string][]string
}

// Empty reports whether s carries no loaded modules and no dependency
// edges.
func (s State) Empty() bool {
	return len(s.Loaded) == 0 && len(s.Dependents) == 0
}

// Encode produces a deterministic, length-prefixed binary encoding of
// s. Loaded names and dependency map keys are sorted before encoding
// so two calls over equal State values always agree byte for byte
// (encoding/gob cannot make that guarantee for maps).
func Encode(s State) []byte {
	var buf bytes.Buffer

	loaded := append([]string(nil), s.Loaded...)
	sort.Strings(loaded)
	writeUvarint(&buf, uint64(len(loaded)))
	for _, name := range loaded {
		writeString(&buf, name)
	}

	depKeys := make([]string, 0, len(s.Dependents))
	for k := range s.Dependents {
		depKeys = append(depKeys, k)
	}
	sort.Strings(depKeys)
	writeUvarint(&buf, uint64(len(depKeys)))
	for _, k := range depKeys {
		writeString(&buf, k)
		vals := append([]string(nil), s.Dependents[k]...)
		sort.Strings(vals)
		writeUvarint(&buf, uint64(len(vals)))
		for _, v := range vals {
			writeString(&buf, v)
		}
	}

	return buf.Bytes()
}

// Decode is the inverse of Encode.
func Decode(data []byte) (State, error) {
	r := bytes.NewReader(data)

	numLoaded, err := binary.ReadUvarint(r)
	if err != nil {
		return State{}, fmt.Errorf("codec: read loaded count: %w", err)
	}
	loaded := make([]string, 0, numLoaded)
	for i := uint64(0); i < numLoaded; i++ {
		s, err := readString(r)
		if err != nil {
			return State{}, fmt.Errorf("codec: read loaded[%d]: %w", i, err)
		}
		loaded = append(loaded, s)
	}

	numDeps, err := binary.ReadUvarint(r)
	if err != nil {
		return State{}, fmt.Errorf("codec: read dependents count: %w", err)
	}
	dependents := make(map[string][]string, numDeps)
	for i := uint64(0); i < numDeps; i++ {
		key, err := readString(r)
		if err != nil {
			return State{}, fmt.Errorf("codec: read dependents[%d] key: %w", i, err)
		}
		numVals, err := binary.ReadUvarint(r)
		if err != nil {
			return State{}, fmt.Errorf("codec: read dependents[%d] count: %w", i, err)
		}
		vals := make([]string, 0, numVals)
		for j := uint64(0); j < numVals; j++ {
			v, err := readString(r)
			if err != nil {
				return State{}, fmt.Errorf("codec: read dependents[%d][%d]: %w", i, j, err)
			}
			vals = append(vals, v)
		}
		dependents[key] = vals
	}

	if r.Len() != 0 {
		return State{}, fmt.Errorf("codec: %d trailing bytes after decode", r.Len())
	}

	return State{Loaded: loaded, Dependents: dependents}, nil
}

func writeUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}

func writeString(buf *bytes.Buffer, s string) {
	writeUvarint(buf, uint64(len(s)))
	buf.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return "", err
	}
	if n > uint64(r.Len()) {
		return "", fmt.Errorf("string length %d exceeds %d remaining bytes", n, r.Len())
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

// Chunk base64-encodes data and splits it into fixed-size chunks for
// storage under PYENV_DATA_0, PYENV_DATA_1, ….
func Chunk(data []byte, chunkSize int) []string {
	encoded := base64.StdEncoding.EncodeToString(data)
	if encoded == "" {
		return nil
	}
	var chunks []string
	for i := 0; i < len(encoded); i += chunkSize {
		end := i + chunkSize
		if end > len(encoded) {
			end = len(encoded)
		}
		chunks = append(chunks, encoded[i:end])
	}
	return chunks
}

// Unchunk reverses Chunk: concatenates and base64-decodes.
func Unchunk(chunks []string) ([]byte, error) {
	var b bytes.Buffer
	for _, c := range chunks {
		b.WriteString(c)
	}
	return base64.StdEncoding.DecodeString(b.String())
}

// Getenv looks up an environment variable by name, reporting whether it
// was set at all (distinguishing "absent" from "set to empty").
type Getenv func(name string) (string, bool)

// ReadState reads PYENV_DATA_0, PYENV_DATA_1, … via get, concatenating
// until the first gap, and decodes the result. A decode failure is
// non-fatal: it is logged to logger and treated as if no prior state
// existed, and cleanupRange is reported as 0 so Shutdown emits no
// phantom env-var clears for slots that were never trusted enough to
// read.
func ReadState(get Getenv, logger log.LibraryLogger) (state State, cleanupRange int) {
	var chunks []string
	for k := 0; ; k++ {
		v, ok := get(fmt.Sprintf("%s%d", EnvDataPrefix, k))
		if !ok {
			break
		}
		chunks = append(chunks, v)
	}
	if len(chunks) == 0 {
		return State{}, 0
	}

	raw, err := Unchunk(chunks)
	if err != nil {
		logger.Warn("Unable to decode prior environment; discarding.")
		return State{}, 0
	}
	decoded, err := Decode(raw)
	if err != nil {
		logger.Warn("Unable to decode prior environment; discarding.")
		return State{}, 0
	}
	return decoded, len(chunks)
}

// WriteState encodes s, base64-chunks it at chunkSize, and returns the
// ordered chunk values destined for PYENV_DATA_0…N-1.
func WriteState(s State, chunkSize int) []string {
	return Chunk(Encode(s), chunkSize)
}
