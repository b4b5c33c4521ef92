package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.x")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	errInvalidBufferURI   = errors.New("invalid buffer URI")
	errBufferSizeMismatch = errors.New("buffer size mismatch")
	errSparseAccessor     = errors.New("sparse accessors are not supported")
)

// decodeGLTF parses a .gltf JSON document or a .glb container and resolves its buffers.
// External buffer URIs are resolved relative to baseDir; an empty baseDir forbids them.
func decodeGLTF(data []byte, baseDir string) (*gltfDocument, error) {
	var jsonChunk, binChunk []byte
	if len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic {
		var err error
		if jsonChunk, binChunk, err = splitGLB(data); err != nil {
			return nil, err
		}
	} else {
		jsonChunk = data
	}

	var doc gltfDocument
	if err := json.Unmarshal(jsonChunk, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse glTF JSON: %w", err)
	}
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return nil, errInvalidGLTFVersion
	}

	for i := range doc.Buffers {
		buf := &doc.Buffers[i]
		switch {
		case buf.URI == "" && i == 0 && binChunk != nil:
			buf.data = binChunk
		case buf.URI == "":
			return nil, fmt.Errorf("buffer %d has no URI and no GLB binary chunk", i)
		default:
			b, err := readBufferURI(buf.URI, baseDir)
			if err != nil {
				return nil, fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.data = b
		}
		if len(buf.data) < buf.ByteLength {
			return nil, fmt.Errorf("buffer %d: %w", i, errBufferSizeMismatch)
		}
	}

	return &doc, nil
}

// splitGLB returns the JSON and BIN chunks of a GLB container.
func splitGLB(data []byte) ([]byte, []byte, error) {
	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, nil, fmt.Errorf("failed to read GLB header: %w", err)
	}
	if header.Magic != gltfGLBMagic {
		return nil, nil, errInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return nil, nil, errInvalidGLBVersion
	}

	var jsonChunk, binChunk []byte
	for {
		var ch gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &ch); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, nil, fmt.Errorf("failed to read chunk header: %w", err)
		}
		chunk := make([]byte, ch.ChunkLength)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, nil, fmt.Errorf("failed to read chunk data: %w", err)
		}
		switch ch.ChunkType {
		case gltfGLBChunkJSON:
			jsonChunk = chunk
		case gltfGLBChunkBIN:
			binChunk = chunk
		}
	}

	if jsonChunk == nil {
		return nil, nil, errMissingJSONChunk
	}
	return jsonChunk, binChunk, nil
}

// readBufferURI loads buffer bytes from a base64 data URI or a file next to the document.
func readBufferURI(uri, baseDir string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(uri, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, errInvalidBufferURI
		}
		if !strings.Contains(header, "base64") {
			return nil, fmt.Errorf("unsupported data URI encoding: %s", header)
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode base64: %w", err)
		}
		return data, nil
	}

	if baseDir == "" {
		return nil, fmt.Errorf("external buffer %q cannot be resolved from a stream", uri)
	}
	data, err := os.ReadFile(filepath.Join(baseDir, uri))
	if err != nil {
		return nil, fmt.Errorf("failed to load buffer file %q: %w", uri, err)
	}
	return data, nil
}

// accessorElements returns one byte slice per accessor element, honoring the buffer view stride.
func (d *gltfDocument) accessorElements(index, elementSize int) ([][]byte, error) {
	if index < 0 || index >= len(d.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", index)
	}
	acc := &d.Accessors[index]
	if acc.Sparse != nil {
		return nil, errSparseAccessor
	}
	if acc.BufferView == nil || *acc.BufferView < 0 || *acc.BufferView >= len(d.BufferViews) {
		return nil, fmt.Errorf("accessor %d has no valid bufferView", index)
	}

	bv := &d.BufferViews[*acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(d.Buffers) {
		return nil, fmt.Errorf("bufferView %d references missing buffer %d", *acc.BufferView, bv.Buffer)
	}
	data := d.Buffers[bv.Buffer].data

	stride := elementSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}

	start := bv.ByteOffset + acc.ByteOffset
	out := make([][]byte, acc.Count)
	for i := range out {
		off := start + i*stride
		if off+elementSize > len(data) {
			return nil, fmt.Errorf("accessor %d element %d: %w", index, i, errBufferSizeMismatch)
		}
		out[i] = data[off : off+elementSize]
	}
	return out, nil
}

// readPositions reads a VEC3 FLOAT accessor.
func (d *gltfDocument) readPositions(index int) ([][3]float32, error) {
	if index < 0 || index >= len(d.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", index)
	}
	acc := &d.Accessors[index]
	if acc.Type != "VEC3" || acc.ComponentType != gltfComponentFloat {
		return nil, fmt.Errorf("accessor is not VEC3 FLOAT: type=%s, componentType=%d", acc.Type, acc.ComponentType)
	}

	elems, err := d.accessorElements(index, 12)
	if err != nil {
		return nil, err
	}
	out := make([][3]float32, len(elems))
	for i, e := range elems {
		for c := 0; c < 3; c++ {
			out[i][c] = math.Float32frombits(binary.LittleEndian.Uint32(e[c*4:]))
		}
	}
	return out, nil
}

// readIndices reads a SCALAR unsigned index accessor.
func (d *gltfDocument) readIndices(index int) ([]uint32, error) {
	if index < 0 || index >= len(d.Accessors) {
		return nil, fmt.Errorf("accessor index %d out of range", index)
	}
	acc := &d.Accessors[index]
	if acc.Type != "SCALAR" {
		return nil, fmt.Errorf("index accessor is not SCALAR: type=%s", acc.Type)
	}

	var size int
	switch acc.ComponentType {
	case gltfComponentUnsignedByte:
		size = 1
	case gltfComponentUnsignedShort:
		size = 2
	case gltfComponentUnsignedInt:
		size = 4
	default:
		return nil, fmt.Errorf("unsupported index component type: %d", acc.ComponentType)
	}

	elems, err := d.accessorElements(index, size)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(elems))
	for i, e := range elems {
		switch size {
		case 1:
			out[i] = uint32(e[0])
		case 2:
			out[i] = uint32(binary.LittleEndian.Uint16(e))
		default:
			out[i] = binary.LittleEndian.Uint32(e)
		}
	}
	return out, nil
}
