package apu

import (
	"encoding/binary"
	"io"
)

// wavRecorder writes 16-bit stereo PCM samples into a standard RIFF/WAVE
// container, back-patching the length fields once recording stops since
// the final sample count isn't known up front.
type wavRecorder struct {
	w         io.WriteSeeker
	dataBytes uint32
}

const wavHeaderSize = 44

func newWAVRecorder(w io.WriteSeeker) (*wavRecorder, error) {
	r := &wavRecorder{w: w}
	var header [wavHeaderSize]byte
	copy(header[0:4], "RIFF")
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(header[22:24], 2)  // stereo
	binary.LittleEndian.PutUint32(header[24:28], SampleRate)
	const bytesPerSample = 2
	binary.LittleEndian.PutUint32(header[28:32], SampleRate*2*bytesPerSample)
	binary.LittleEndian.PutUint16(header[32:34], 2*bytesPerSample)
	binary.LittleEndian.PutUint16(header[34:36], 16) // bits per sample
	copy(header[36:40], "data")
	if _, err := r.w.Write(header[:]); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *wavRecorder) writeFrame(left, right int16) error {
	var buf [4]byte
	binary.LittleEndian.PutUint16(buf[0:2], uint16(left))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(right))
	if _, err := r.w.Write(buf[:]); err != nil {
		return err
	}
	r.dataBytes += 4
	return nil
}

func (r *wavRecorder) close() error {
	if _, err := r.w.Seek(4, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Write(r.w, binary.LittleEndian, uint32(36+r.dataBytes)); err != nil {
		return err
	}
	if _, err := r.w.Seek(40, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(r.w, binary.LittleEndian, r.dataBytes)
}
