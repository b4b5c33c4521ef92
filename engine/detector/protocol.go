package detector

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/Carmen-Shannon/oxy-overlay/common"
	"github.com/Carmen-Shannon/oxy-overlay/engine/landmark"
)

const (
	statusOK    byte = 0
	statusError byte = 1

	// maxResponseSize bounds a single worker response.
	maxResponseSize = 64 << 20
)

var errMalformedResponse = errors.New("malformed face mesh response")

// writeRequest sends one RGB frame: [u32 length][u32 width][u32 height][pixels], big-endian.
//
// Parameters:
//   - w: the worker's stdin
//   - frame: an RGB frame
//
// Returns:
//   - error: error if the frame is not RGB or the write fails
func writeRequest(w io.Writer, frame *common.Frame) error {
	if frame.Format != common.PixelFormatRGB {
		return fmt.Errorf("face mesh expects rgb frames, got %s", frame.Format)
	}

	header := make([]byte, 12)
	binary.BigEndian.PutUint32(header[0:], uint32(8+len(frame.Pixels)))
	binary.BigEndian.PutUint32(header[4:], uint32(frame.Width))
	binary.BigEndian.PutUint32(header[8:], uint32(frame.Height))
	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(frame.Pixels)
	return err
}

// readResponse reads one length-prefixed response body.
func readResponse(r io.Reader) ([]byte, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(header)
	if n > maxResponseSize {
		return nil, fmt.Errorf("%w: body of %d bytes", errMalformedResponse, n)
	}
	body := make([]byte, n)
	_, err := io.ReadFull(r, body)
	return body, err
}

// decodeResponse parses a response body.
// OK bodies are [status 0][u32 faces] then per face [u32 count][count*3 float32];
// error bodies are [status 1][u32 length][message].
//
// Parameters:
//   - body: the response body without its length prefix
//
// Returns:
//   - *Result: the decoded faces
//   - error: the worker's error message, or errMalformedResponse
func decodeResponse(body []byte) (*Result, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", errMalformedResponse)
	}
	r := bytes.NewReader(body[1:])

	switch body[0] {
	case statusOK:
	case statusError:
		var n uint32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformedResponse, err)
		}
		msg := make([]byte, n)
		if _, err := io.ReadFull(r, msg); err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformedResponse, err)
		}
		return nil, fmt.Errorf("face mesh worker error: %s", msg)
	default:
		return nil, fmt.Errorf("%w: status %d", errMalformedResponse, body[0])
	}

	var faces uint32
	if err := binary.Read(r, binary.BigEndian, &faces); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedResponse, err)
	}

	result := &Result{Faces: make([]landmark.Set, 0, faces)}
	for i := uint32(0); i < faces; i++ {
		var count uint32
		if err := binary.Read(r, binary.BigEndian, &count); err != nil {
			return nil, fmt.Errorf("%w: face %d: %v", errMalformedResponse, i, err)
		}
		if int64(count)*12 > int64(r.Len()) {
			return nil, fmt.Errorf("%w: face %d claims %d landmarks", errMalformedResponse, i, count)
		}
		xyz := make([]float32, count*3)
		for j := range xyz {
			var bits uint32
			if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
				return nil, fmt.Errorf("%w: face %d: %v", errMalformedResponse, i, err)
			}
			xyz[j] = math.Float32frombits(bits)
		}
		result.Faces = append(result.Faces, *landmark.NewSet(xyz))
	}
	return result, nil
}
