package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"
	"testing"
)

// triangleBuffer returns three VEC3 float positions followed by three uint16 indices.
func triangleBuffer() []byte {
	var buf bytes.Buffer
	for _, v := range []float32{0, 0, 0, 1, 0, 0, 0, 1, 0} {
		_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(v))
	}
	for _, i := range []uint16{0, 1, 2} {
		_ = binary.Write(&buf, binary.LittleEndian, i)
	}
	return buf.Bytes()
}

func triangleGLTF(t *testing.T) string {
	t.Helper()
	data := triangleBuffer()
	return fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "meshes": [{"name": "tri", "primitives": [{"attributes": {"POSITION": 0}, "indices": 1}]}],
  "accessors": [
    {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
    {"bufferView": 1, "componentType": 5123, "count": 3, "type": "SCALAR"}
  ],
  "bufferViews": [
    {"buffer": 0, "byteOffset": 0, "byteLength": 36},
    {"buffer": 0, "byteOffset": 36, "byteLength": 6}
  ],
  "buffers": [{"byteLength": %d, "uri": "data:application/octet-stream;base64,%s"}]
}`, len(data), base64.StdEncoding.EncodeToString(data))
}

func TestDecodeGLB(t *testing.T) {
	jsonChunk := []byte(`{"asset":{"version":"2.0"},"buffers":[{"byteLength":42}]}`)
	for len(jsonChunk)%4 != 0 {
		jsonChunk = append(jsonChunk, ' ')
	}
	bin := triangleBuffer()
	for len(bin)%4 != 0 {
		bin = append(bin, 0)
	}

	var glb bytes.Buffer
	total := 12 + 8 + len(jsonChunk) + 8 + len(bin)
	_ = binary.Write(&glb, binary.LittleEndian, gltfGLBHeader{Magic: gltfGLBMagic, Version: gltfGLBVersion, Length: uint32(total)})
	_ = binary.Write(&glb, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(jsonChunk)), ChunkType: gltfGLBChunkJSON})
	glb.Write(jsonChunk)
	_ = binary.Write(&glb, binary.LittleEndian, gltfGLBChunkHeader{ChunkLength: uint32(len(bin)), ChunkType: gltfGLBChunkBIN})
	glb.Write(bin)

	doc, err := decodeGLTF(glb.Bytes(), "")
	if err != nil {
		t.Fatalf("decodeGLTF failed: %v", err)
	}
	if len(doc.Buffers) != 1 || !bytes.Equal(doc.Buffers[0].data, bin) {
		t.Error("Expected buffer 0 to be backed by the BIN chunk")
	}
}

func TestDecodeGLTFErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		dir  string
	}{
		{name: "malformed json", data: `{"asset":`},
		{name: "wrong version", data: `{"asset":{"version":"1.0"}}`},
		{name: "external buffer from stream", data: `{"asset":{"version":"2.0"},"buffers":[{"byteLength":4,"uri":"mask.bin"}]}`},
		{name: "short buffer", data: `{"asset":{"version":"2.0"},"buffers":[{"byteLength":8,"uri":"data:application/octet-stream;base64,AAAA"}]}`},
		{name: "buffer without uri", data: `{"asset":{"version":"2.0"},"buffers":[{"byteLength":4}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeGLTF([]byte(tt.data), tt.dir); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestAssembleFaces(t *testing.T) {
	tests := []struct {
		name    string
		mode    int
		indices []uint32
		want    [][]uint32
	}{
		{
			name:    "triangles drop trailing indices",
			mode:    gltfModeTriangles,
			indices: []uint32{0, 1, 2, 3, 4},
			want:    [][]uint32{{0, 1, 2}},
		},
		{
			name:    "strip alternates winding",
			mode:    gltfModeTriangleStrip,
			indices: []uint32{0, 1, 2, 3},
			want:    [][]uint32{{0, 1, 2}, {2, 1, 3}},
		},
		{
			name:    "fan shares first vertex",
			mode:    gltfModeTriangleFan,
			indices: []uint32{0, 1, 2, 3},
			want:    [][]uint32{{0, 1, 2}, {0, 2, 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := assembleFaces(tt.mode, tt.indices); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestGLTFWithoutIndicesUsesSequentialFaces(t *testing.T) {
	data := triangleBuffer()[:36]
	src := fmt.Sprintf(`{
  "asset": {"version": "2.0"},
  "meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
  "accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
  "bufferViews": [{"buffer": 0, "byteLength": 36}],
  "buffers": [{"byteLength": 36, "uri": "data:application/octet-stream;base64,%s"}]
}`, base64.StdEncoding.EncodeToString(data))

	doc, err := decodeGLTF([]byte(src), "")
	if err != nil {
		t.Fatal(err)
	}
	imported, err := gltfToImported(doc, "tri")
	if err != nil {
		t.Fatal(err)
	}
	if len(imported.Meshes) != 1 || !reflect.DeepEqual(imported.Meshes[0].Faces, [][]uint32{{0, 1, 2}}) {
		t.Errorf("Expected one sequential face, got %+v", imported.Meshes)
	}
	if imported.Meshes[0].Name != "mesh_0_0" {
		t.Errorf("Expected generated mesh name, got %q", imported.Meshes[0].Name)
	}
}
