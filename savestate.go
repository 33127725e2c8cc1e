package gbcore

import (
	"bytes"
	"encoding/binary"
	"hash/fnv"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/pixeldrift/gbcore/internal/ppu"
	"github.com/pixeldrift/gbcore/internal/ppu/palette"
	"github.com/pixeldrift/gbcore/internal/state"
)

// LoadResult is the sum type every file-boundary operation (ROM load,
// save-state load, battery load) resolves to. Nothing inside a running
// GBCore ever returns an error, and nothing is logged while it steps;
// unmapped reads yield 0xFF, unmapped writes are dropped. Errors exist
// only at the edge: loading bytes that didn't come from this core.
type LoadResult uint8

const (
	SuccessROM LoadResult = iota
	SuccessSaveState
	InvalidROM
	InvalidBattery
	CorruptSaveState
	ROMNotFound
	FileError
)

func (r LoadResult) String() string {
	switch r {
	case SuccessROM:
		return "rom loaded"
	case SuccessSaveState:
		return "save state loaded"
	case InvalidROM:
		return "invalid rom image"
	case InvalidBattery:
		return "invalid battery save"
	case CorruptSaveState:
		return "corrupt save state"
	case ROMNotFound:
		return "rom not found"
	case FileError:
		return "file error"
	}
	return "unknown load result"
}

// saveStateSignature is the 27-byte ASCII magic every save-state file
// opens with.
const saveStateSignature = "MegaBoy Emulator Save State"

const framebufferByteLen = ppu.ScreenWidth * ppu.ScreenHeight * 3

// fnv1a64 hashes data with the exact FNV-1a-64 parameters the save-state
// format is defined in terms of (prime 0x100000001B3, offset
// 0xCBF29CE484222325) — the same constants hash/fnv's Sum64a bakes in.
func fnv1a64(data []byte) uint64 {
	h := fnv.New64a()
	h.Write(data)
	return h.Sum64()
}

func deflateBytes(raw []byte) []byte {
	var buf bytes.Buffer
	w, _ := flate.NewWriter(&buf, flate.DefaultCompression)
	w.Write(raw)
	w.Close()
	return buf.Bytes()
}

func inflateBytes(compressed []byte, wantLen int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	out := make([]byte, wantLen)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *GBCore) flattenFramebuffer() []byte {
	out := make([]byte, 0, framebufferByteLen)
	for y := 0; y < ppu.ScreenHeight; y++ {
		for x := 0; x < ppu.ScreenWidth; x++ {
			c := g.PPU.Framebuffer[y][x]
			out = append(out, c[0], c[1], c[2])
		}
	}
	return out
}

func (g *GBCore) unflattenFramebuffer(raw []byte) {
	i := 0
	for y := 0; y < ppu.ScreenHeight; y++ {
		for x := 0; x < ppu.ScreenWidth; x++ {
			g.PPU.Framebuffer[y][x] = palette.RGB{raw[i], raw[i+1], raw[i+2]}
			i += 3
		}
	}
}

// encodeState serializes every ticked component in construction order;
// decodeState must mirror it exactly.
func (g *GBCore) encodeState() []byte {
	s := state.New()
	s.Write8(uint8(g.system))
	s.Write32(uint32(g.totalCycles >> 32))
	s.Write32(uint32(g.totalCycles))
	g.CPU.Save(s)
	g.PPU.Save(s)
	g.MMU.Save(s)
	g.APU.Save(s)
	g.Serial.Save(s)
	g.Joypad.Save(s)
	g.Interrupts.Save(s)
	g.Cartridge.Save(s)
	return s.Bytes()
}

func (g *GBCore) decodeState(raw []byte) {
	s := state.FromBytes(raw)
	g.system = systemTag(s.Read8())
	hi := uint64(s.Read32())
	lo := uint64(s.Read32())
	g.totalCycles = hi<<32 | lo
	g.CPU.Load(s)
	g.PPU.Load(s)
	g.MMU.Load(s)
	g.APU.Load(s)
	g.Serial.Load(s)
	g.Joypad.Load(s)
	g.Interrupts.Load(s)
	g.Cartridge.Load(s)
}

// SaveState serializes the machine into the wire format described at
// the package's external boundary: signature, FNV-1a-64 integrity
// hash, bound-ROM header checksum, ROM path, framebuffer and state
// blob, each of the latter two independently toggleable between raw
// and DEFLATE-compressed.
func (g *GBCore) SaveState(compressFramebuffer, compressState bool) []byte {
	var body bytes.Buffer

	body.WriteByte(g.Cartridge.Header.HeaderChecksum)

	pathBytes := []byte(g.romPath)
	var u16 [2]byte
	binary.LittleEndian.PutUint16(u16[:], uint16(len(pathBytes)))
	body.Write(u16[:])
	body.Write(pathBytes)

	fb := g.flattenFramebuffer()
	if compressFramebuffer {
		compressed := deflateBytes(fb)
		body.WriteByte(1)
		var u32 [4]byte
		binary.LittleEndian.PutUint32(u32[:], uint32(len(compressed)))
		body.Write(u32[:])
		body.Write(compressed)
	} else {
		body.WriteByte(0)
		body.Write(fb)
	}

	st := g.encodeState()
	if compressState {
		compressed := deflateBytes(st)
		body.WriteByte(1)
		var u32 [4]byte
		binary.LittleEndian.PutUint32(u32[:], uint32(len(st)))
		body.Write(u32[:])
		body.Write(compressed)
	} else {
		body.WriteByte(0)
		body.Write(st)
	}

	hash := fnv1a64(body.Bytes())

	var out bytes.Buffer
	out.WriteString(saveStateSignature)
	var hbuf [8]byte
	binary.LittleEndian.PutUint64(hbuf[:], hash)
	out.Write(hbuf[:])
	out.Write(body.Bytes())
	return out.Bytes()
}

// LoadState parses a save-state file produced by SaveState and, on
// success, replaces the machine's live state with it. The framebuffer
// and bound ROM's header checksum are advisory: a checksum mismatch is
// logged (the save state is very likely for a different cartridge) but
// does not by itself abort the load, since the state blob itself is
// independently integrity-checked by the FNV hash.
func (g *GBCore) LoadState(data []byte) LoadResult {
	if len(data) < len(saveStateSignature)+8+1+2 {
		return CorruptSaveState
	}
	if string(data[:len(saveStateSignature)]) != saveStateSignature {
		return CorruptSaveState
	}
	off := len(saveStateSignature)
	wantHash := binary.LittleEndian.Uint64(data[off : off+8])
	off += 8

	body := data[off:]
	if fnv1a64(body) != wantHash {
		return CorruptSaveState
	}

	r := bytes.NewReader(body)

	headerChecksum, err := r.ReadByte()
	if err != nil {
		return CorruptSaveState
	}

	var pathLen uint16
	if err := binary.Read(r, binary.LittleEndian, &pathLen); err != nil {
		return CorruptSaveState
	}
	pathBuf := make([]byte, pathLen)
	if _, err := io.ReadFull(r, pathBuf); err != nil {
		return CorruptSaveState
	}

	fbFlag, err := r.ReadByte()
	if err != nil {
		return CorruptSaveState
	}
	var fbRaw []byte
	if fbFlag == 1 {
		var clen uint32
		if err := binary.Read(r, binary.LittleEndian, &clen); err != nil {
			return CorruptSaveState
		}
		compressed := make([]byte, clen)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return CorruptSaveState
		}
		fbRaw, err = inflateBytes(compressed, framebufferByteLen)
		if err != nil {
			return CorruptSaveState
		}
	} else {
		fbRaw = make([]byte, framebufferByteLen)
		if _, err := io.ReadFull(r, fbRaw); err != nil {
			return CorruptSaveState
		}
	}

	stFlag, err := r.ReadByte()
	if err != nil {
		return CorruptSaveState
	}
	var stateRaw []byte
	if stFlag == 1 {
		var ulen uint32
		if err := binary.Read(r, binary.LittleEndian, &ulen); err != nil {
			return CorruptSaveState
		}
		rest, err := io.ReadAll(r)
		if err != nil {
			return CorruptSaveState
		}
		stateRaw, err = inflateBytes(rest, int(ulen))
		if err != nil {
			return CorruptSaveState
		}
	} else {
		var err error
		stateRaw, err = io.ReadAll(r)
		if err != nil {
			return CorruptSaveState
		}
	}

	if headerChecksum != g.Cartridge.Header.HeaderChecksum {
		g.log.Warnf("save state header checksum %#02x does not match bound cartridge %#02x", headerChecksum, g.Cartridge.Header.HeaderChecksum)
	}

	if string(pathBuf) != g.romPath {
		g.log.Warnf("save state was made from rom path %q, bound rom path is %q", string(pathBuf), g.romPath)
	}
	g.romPath = string(pathBuf)
	g.unflattenFramebuffer(fbRaw)
	g.decodeState(stateRaw)

	return SuccessSaveState
}
