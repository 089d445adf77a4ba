// Package dynelf extracts shared-library dependencies from the .dynamic
// section of an ELF file.
//
// It deliberately parses only the handful of fixed-offset header fields it
// needs (magic, class, data encoding, machine, section header table) instead
// of pulling in a full ELF parser, so it stays easy to test with synthetic
// byte buffers. Only little-endian input is supported; big-endian ELF files
// are rejected instead of being mis-parsed.
package dynelf

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

// UnsupportedArchitectureError is returned when the ELF machine type is not
// one whose dynamic-entry layout this package supports.
type UnsupportedArchitectureError struct {
	Machine elf.Machine
}

func (e *UnsupportedArchitectureError) Error() string {
	return fmt.Sprintf("unsupported architecture: %s", e.Machine)
}

// MalformedELFError is returned when the input is not a well-formed
// little-endian ELF file or lacks the sections this package needs.
type MalformedELFError struct {
	Reason string
}

func (e *MalformedELFError) Error() string {
	return "malformed ELF: " + e.Reason
}

type section struct {
	name   string
	offset uint64
	size   uint64
}

type file struct {
	machine  elf.Machine
	entSize  uint64
	sections []section
}

// ReadMachine returns the machine type from the ELF header of data.
func ReadMachine(data []byte) (elf.Machine, error) {
	f, err := parse(data)
	if err != nil {
		return elf.EM_NONE, err
	}
	return f.machine, nil
}

// ReadDependencies walks the .dynamic section of the ELF file in data and
// returns the set of shared-object names referenced by its DT_NEEDED
// entries, resolved through .dynstr. All other dynamic tags, including the
// DT_NULL end-of-list sentinel, are skipped.
func ReadDependencies(data []byte) (map[string]struct{}, error) {
	f, err := parse(data)
	if err != nil {
		return nil, err
	}

	dynamic, err := f.sectionData(data, ".dynamic")
	if err != nil {
		return nil, err
	}
	dynstr, err := f.sectionData(data, ".dynstr")
	if err != nil {
		return nil, err
	}

	if uint64(len(dynamic))%f.entSize != 0 {
		return nil, errors.WithStack(&MalformedELFError{
			Reason: fmt.Sprintf("dynamic section size %d is not a multiple of entry size %d", len(dynamic), f.entSize),
		})
	}

	names := make(map[string]struct{})
	for off := uint64(0); off < uint64(len(dynamic)); off += f.entSize {
		var tag, val uint64
		if f.entSize == dynEntSize64 {
			tag = binary.LittleEndian.Uint64(dynamic[off:])
			val = binary.LittleEndian.Uint64(dynamic[off+8:])
		} else {
			tag = uint64(binary.LittleEndian.Uint32(dynamic[off:]))
			val = uint64(binary.LittleEndian.Uint32(dynamic[off+4:]))
		}
		if tag != uint64(elf.DT_NEEDED) {
			continue
		}
		name, ok := cstring(dynstr, val)
		if !ok {
			return nil, errors.WithStack(&MalformedELFError{
				Reason: fmt.Sprintf("DT_NEEDED string offset %d is not a valid .dynstr offset", val),
			})
		}
		names[name] = struct{}{}
	}

	return names, nil
}

const (
	headerSize32 = 52
	headerSize64 = 64

	shdrSize32 = 40
	shdrSize64 = 64

	dynEntSize32 = 8
	dynEntSize64 = 16
)

// parse reads the ELF header and the section header table, including the
// section name string table, which is all that is needed to locate sections
// by name later.
func parse(data []byte) (*file, error) {
	if len(data) < elf.EI_NIDENT {
		return nil, errors.WithStack(&MalformedELFError{Reason: "truncated ELF identification"})
	}
	if !bytes.Equal(data[:len(elf.ELFMAG)], []byte(elf.ELFMAG)) {
		return nil, errors.WithStack(&MalformedELFError{Reason: "bad magic number"})
	}

	class := elf.Class(data[elf.EI_CLASS])
	if class != elf.ELFCLASS32 && class != elf.ELFCLASS64 {
		return nil, errors.WithStack(&MalformedELFError{Reason: fmt.Sprintf("unknown ELF class %d", data[elf.EI_CLASS])})
	}
	if encoding := elf.Data(data[elf.EI_DATA]); encoding != elf.ELFDATA2LSB {
		return nil, errors.WithStack(&MalformedELFError{
			Reason: fmt.Sprintf("unsupported data encoding %s, only little-endian ELF is supported", encoding),
		})
	}

	headerSize := headerSize32
	if class == elf.ELFCLASS64 {
		headerSize = headerSize64
	}
	if len(data) < headerSize {
		return nil, errors.WithStack(&MalformedELFError{Reason: "truncated ELF header"})
	}

	f := &file{machine: elf.Machine(binary.LittleEndian.Uint16(data[18:]))}
	switch f.machine {
	case elf.EM_X86_64:
		f.entSize = dynEntSize64
	case elf.EM_386:
		f.entSize = dynEntSize32
	default:
		return nil, errors.WithStack(&UnsupportedArchitectureError{Machine: f.machine})
	}

	// Section header table location: e_shoff, e_shentsize, e_shnum and
	// e_shstrndx sit at different offsets in the 32-bit and 64-bit header
	// layouts.
	var shoff uint64
	var shentsize, shnum, shstrndx uint16
	if class == elf.ELFCLASS64 {
		shoff = binary.LittleEndian.Uint64(data[40:])
		shentsize = binary.LittleEndian.Uint16(data[58:])
		shnum = binary.LittleEndian.Uint16(data[60:])
		shstrndx = binary.LittleEndian.Uint16(data[62:])
	} else {
		shoff = uint64(binary.LittleEndian.Uint32(data[32:]))
		shentsize = binary.LittleEndian.Uint16(data[46:])
		shnum = binary.LittleEndian.Uint16(data[48:])
		shstrndx = binary.LittleEndian.Uint16(data[50:])
	}

	minShdrSize := uint16(shdrSize32)
	if class == elf.ELFCLASS64 {
		minShdrSize = shdrSize64
	}
	if shentsize < minShdrSize {
		return nil, errors.WithStack(&MalformedELFError{Reason: fmt.Sprintf("section header entry size %d is too small", shentsize)})
	}
	tableSize := uint64(shnum) * uint64(shentsize)
	if shoff > uint64(len(data)) || tableSize > uint64(len(data))-shoff {
		return nil, errors.WithStack(&MalformedELFError{Reason: "section header table extends past end of file"})
	}
	if shstrndx >= shnum {
		return nil, errors.WithStack(&MalformedELFError{Reason: "section name string table index out of range"})
	}

	type rawSection struct {
		nameOff uint32
		offset  uint64
		size    uint64
	}
	raw := make([]rawSection, shnum)
	for i := range raw {
		shdr := data[shoff+uint64(i)*uint64(shentsize):]
		raw[i].nameOff = binary.LittleEndian.Uint32(shdr)
		if class == elf.ELFCLASS64 {
			raw[i].offset = binary.LittleEndian.Uint64(shdr[24:])
			raw[i].size = binary.LittleEndian.Uint64(shdr[32:])
		} else {
			raw[i].offset = uint64(binary.LittleEndian.Uint32(shdr[16:]))
			raw[i].size = uint64(binary.LittleEndian.Uint32(shdr[20:]))
		}
	}

	shstrtab := raw[shstrndx]
	if shstrtab.offset > uint64(len(data)) || shstrtab.size > uint64(len(data))-shstrtab.offset {
		return nil, errors.WithStack(&MalformedELFError{Reason: "section name string table extends past end of file"})
	}
	strtab := data[shstrtab.offset : shstrtab.offset+shstrtab.size]

	f.sections = make([]section, shnum)
	for i, r := range raw {
		name, ok := cstring(strtab, uint64(r.nameOff))
		if !ok {
			return nil, errors.WithStack(&MalformedELFError{Reason: fmt.Sprintf("section %d has no valid name", i)})
		}
		f.sections[i] = section{name: name, offset: r.offset, size: r.size}
	}

	return f, nil
}

// sectionData returns the contents of the section with the given name.
func (f *file) sectionData(data []byte, name string) ([]byte, error) {
	for _, s := range f.sections {
		if s.name != name {
			continue
		}
		if s.offset > uint64(len(data)) || s.size > uint64(len(data))-s.offset {
			return nil, errors.WithStack(&MalformedELFError{Reason: fmt.Sprintf("section %s extends past end of file", name)})
		}
		return data[s.offset : s.offset+s.size], nil
	}
	return nil, errors.WithStack(&MalformedELFError{Reason: fmt.Sprintf("missing %s section", name)})
}

// cstring reads a null-terminated string out of a string table.
func cstring(strtab []byte, off uint64) (string, bool) {
	if off >= uint64(len(strtab)) {
		return "", false
	}
	end := bytes.IndexByte(strtab[off:], 0)
	if end < 0 {
		return "", false
	}
	return string(strtab[off : off+uint64(end)]), true
}
