package asm

import "encoding/binary"

// Magic identifies a container produced by this assembler.
var Magic = [4]byte{45, 50, 49, 45}

const (
	headerSize  = 64
	lengthField = 8
	// HeaderTotalSize is the size of the fixed region before any
	// RO-data begins: the 64-byte header plus the two 4-byte length
	// fields.
	HeaderTotalSize = headerSize + lengthField
)

// buildHeader renders the fixed-size header for a container whose
// RO-data section is roLen bytes long.
func buildHeader(roLen uint32) []byte {
	header := make([]byte, HeaderTotalSize)
	copy(header[0:4], Magic[:])
	// bytes 4..63 are left zeroed.
	binary.LittleEndian.PutUint32(header[64:68], roLen)
	binary.LittleEndian.PutUint32(header[68:72], HeaderTotalSize+roLen)
	return header
}

// section is the part of the program currently being assembled into.
type section int

const (
	sectionNone section = iota
	sectionCode
	sectionData
)
