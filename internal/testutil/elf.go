package testutil

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// DynEntry is a raw tag/value pair for the .dynamic section of a synthetic
// ELF file.
type DynEntry struct {
	Tag uint64
	Val uint64
}

// ELFConfig describes the synthetic ELF shared object assembled by BuildELF.
// The zero value of optional fields produces a well-formed file.
type ELFConfig struct {
	Machine elf.Machine
	// Class defaults to ELFCLASS32 for EM_386 and ELFCLASS64 otherwise.
	Class elf.Class
	// Entries are written to .dynamic in order, without an implicit DT_NULL.
	Entries []DynEntry
	// Strtab is the raw contents of .dynstr.
	Strtab []byte
	// OmitDynamic/OmitDynstr leave the respective section out entirely.
	OmitDynamic bool
	OmitDynstr  bool
	// DynamicPad appends that many zero bytes to .dynamic, which makes its
	// size not a multiple of the entry size.
	DynamicPad int
}

// BuildSharedObject assembles a minimal valid ELF shared object whose
// .dynamic section lists the given names as DT_NEEDED entries, terminated
// by a DT_NULL sentinel.
func BuildSharedObject(machine elf.Machine, needed ...string) []byte {
	strtab := []byte{0}
	var entries []DynEntry
	for _, name := range needed {
		entries = append(entries, DynEntry{Tag: uint64(elf.DT_NEEDED), Val: uint64(len(strtab))})
		strtab = append(strtab, name...)
		strtab = append(strtab, 0)
	}
	entries = append(entries, DynEntry{Tag: uint64(elf.DT_NULL)})

	return BuildELF(&ELFConfig{
		Machine: machine,
		Entries: entries,
		Strtab:  strtab,
	})
}

// BuildELF assembles a synthetic little-endian ELF byte buffer with a
// section header table holding (at most) .dynamic, .dynstr and .shstrtab.
func BuildELF(cfg *ELFConfig) []byte {
	class := cfg.Class
	if class == elf.ELFCLASSNONE {
		if cfg.Machine == elf.EM_386 {
			class = elf.ELFCLASS32
		} else {
			class = elf.ELFCLASS64
		}
	}

	headerSize := 52
	shdrSize := 40
	dynEntSize := 8
	if class == elf.ELFCLASS64 {
		headerSize = 64
		shdrSize = 64
		dynEntSize = 16
	}

	dynamic := encodeDynamic(cfg.Entries, class)
	dynamic = append(dynamic, make([]byte, cfg.DynamicPad)...)

	type sectionSpec struct {
		name    string
		shType  uint32
		data    []byte
		entSize uint64
	}
	var specs []sectionSpec
	if !cfg.OmitDynamic {
		specs = append(specs, sectionSpec{".dynamic", uint32(elf.SHT_DYNAMIC), dynamic, uint64(dynEntSize)})
	}
	if !cfg.OmitDynstr {
		specs = append(specs, sectionSpec{".dynstr", uint32(elf.SHT_STRTAB), cfg.Strtab, 0})
	}
	specs = append(specs, sectionSpec{".shstrtab", uint32(elf.SHT_STRTAB), nil, 0})

	// Section name string table; its own name is part of it.
	shstrtab := []byte{0}
	nameOffsets := make([]uint32, len(specs))
	for i, spec := range specs {
		nameOffsets[i] = uint32(len(shstrtab))
		shstrtab = append(shstrtab, spec.name...)
		shstrtab = append(shstrtab, 0)
	}
	specs[len(specs)-1].data = shstrtab

	// Layout: header, section contents, section header table. Section 0 is
	// the usual all-zero null section.
	offsets := make([]uint64, len(specs))
	cursor := uint64(headerSize)
	for i, spec := range specs {
		offsets[i] = cursor
		cursor += uint64(len(spec.data))
	}
	shoff := cursor
	shnum := uint16(len(specs) + 1)
	shstrndx := uint16(len(specs)) // last section

	buf := new(bytes.Buffer)
	le := binary.LittleEndian

	// ELF identification
	buf.WriteString(elf.ELFMAG)
	buf.WriteByte(byte(class))
	buf.WriteByte(byte(elf.ELFDATA2LSB))
	buf.WriteByte(byte(elf.EV_CURRENT))
	buf.Write(make([]byte, 9))

	write := func(v interface{}) {
		_ = binary.Write(buf, le, v)
	}

	write(uint16(elf.ET_DYN))
	write(uint16(cfg.Machine))
	write(uint32(elf.EV_CURRENT))
	if class == elf.ELFCLASS64 {
		write(uint64(0)) // e_entry
		write(uint64(0)) // e_phoff
		write(shoff)
		write(uint32(0))          // e_flags
		write(uint16(headerSize)) // e_ehsize
		write(uint16(0))          // e_phentsize
		write(uint16(0))          // e_phnum
		write(uint16(shdrSize))   // e_shentsize
		write(shnum)
		write(shstrndx)
	} else {
		write(uint32(0)) // e_entry
		write(uint32(0)) // e_phoff
		write(uint32(shoff))
		write(uint32(0))          // e_flags
		write(uint16(headerSize)) // e_ehsize
		write(uint16(0))          // e_phentsize
		write(uint16(0))          // e_phnum
		write(uint16(shdrSize))   // e_shentsize
		write(shnum)
		write(shstrndx)
	}

	for _, spec := range specs {
		buf.Write(spec.data)
	}

	// Null section header
	buf.Write(make([]byte, shdrSize))
	for i, spec := range specs {
		write(nameOffsets[i])
		write(spec.shType)
		if class == elf.ELFCLASS64 {
			write(uint64(0)) // sh_flags
			write(uint64(0)) // sh_addr
			write(offsets[i])
			write(uint64(len(spec.data)))
			write(uint32(0)) // sh_link
			write(uint32(0)) // sh_info
			write(uint64(1)) // sh_addralign
			write(spec.entSize)
		} else {
			write(uint32(0)) // sh_flags
			write(uint32(0)) // sh_addr
			write(uint32(offsets[i]))
			write(uint32(len(spec.data)))
			write(uint32(0)) // sh_link
			write(uint32(0)) // sh_info
			write(uint32(1)) // sh_addralign
			write(uint32(spec.entSize))
		}
	}

	return buf.Bytes()
}

func encodeDynamic(entries []DynEntry, class elf.Class) []byte {
	buf := new(bytes.Buffer)
	le := binary.LittleEndian
	for _, entry := range entries {
		if class == elf.ELFCLASS64 {
			_ = binary.Write(buf, le, entry.Tag)
			_ = binary.Write(buf, le, entry.Val)
		} else {
			_ = binary.Write(buf, le, uint32(entry.Tag))
			_ = binary.Write(buf, le, uint32(entry.Val))
		}
	}
	return buf.Bytes()
}
