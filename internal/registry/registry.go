// Package registry maps human-readable target names to assembler engine
// identifiers and back.
//
// Four families are declared: architecture, mode, endianness and syntax.
// Architecture, endianness and syntax identifiers carry Keystone's numeric
// values. Keystone's mode values overlap (THUMB, MICRO, QPX and V9 share one
// bit), so modes use registry-assigned identifiers and the engine backend
// translates them into concrete targets.
//
// All tables are built at package init and never mutated, so lookups are
// safe from any number of goroutines without locking.
package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a name is not declared in its family.
var ErrNotFound = errors.New("name not found")

// Family identifies one of the enumeration families.
type Family string

const (
	FamilyArch   Family = "architecture"
	FamilyMode   Family = "mode"
	FamilyEndian Family = "endianness"
	FamilySyntax Family = "syntax"
)

// Arch is an engine architecture identifier.
type Arch int

// Keystone ks_arch values.
const (
	ArchARM   Arch = 1
	ArchARM64 Arch = 2
	ArchMIPS  Arch = 3
	ArchX86   Arch = 4
	ArchPPC   Arch = 5
	ArchSPARC Arch = 6
	ArchEVM   Arch = 9
)

// Mode is an engine mode identifier.
type Mode int

const (
	ModeX16 Mode = iota + 1
	ModeX32
	ModeX64
	ModeARM
	ModeThumb
	ModeMicro
	ModeMIPS3
	ModeMIPS32R6
	ModeV8
	ModeV9
	ModeQPX
)

// Endian is an engine byte-order identifier.
type Endian int

// Keystone ks_mode endianness bits.
const (
	EndianLittle Endian = 0
	EndianBig    Endian = 1 << 30
)

// Syntax is an engine assembler-syntax option. The zero value leaves the
// engine default in place and has no declared name.
type Syntax int

// Keystone KS_OPT_SYNTAX values.
const (
	SyntaxDefault Syntax = 0
	SyntaxIntel   Syntax = 1 << 0
	SyntaxATT     Syntax = 1 << 1
	SyntaxNASM    Syntax = 1 << 2
	SyntaxMASM    Syntax = 1 << 3
	SyntaxGAS     Syntax = 1 << 4
	SyntaxRadix16 Syntax = 1 << 5
)

type entry struct {
	name string
	id   int
}

type table struct {
	family  Family
	entries []entry
	byName  map[string]int
	byID    map[int]string
}

func newTable(family Family, entries ...entry) *table {
	t := &table{
		family:  family,
		entries: entries,
		byName:  make(map[string]int, len(entries)),
		byID:    make(map[int]string, len(entries)),
	}
	for _, e := range entries {
		if _, dup := t.byName[e.name]; dup {
			panic(fmt.Sprintf("registry: duplicate %s name %q", family, e.name))
		}
		if _, dup := t.byID[e.id]; dup {
			panic(fmt.Sprintf("registry: duplicate %s id %d", family, e.id))
		}
		t.byName[e.name] = e.id
		t.byID[e.id] = e.name
	}
	return t
}

func (t *table) resolve(name string) (int, error) {
	id, ok := t.byName[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %s %q", ErrNotFound, t.family, name)
	}
	return id, nil
}

func (t *table) names() []string {
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.name
	}
	return out
}

var (
	archTable = newTable(FamilyArch,
		entry{"X86", int(ArchX86)},
		entry{"ARM", int(ArchARM)},
		entry{"ARM64", int(ArchARM64)},
		entry{"EVM", int(ArchEVM)},
		entry{"MIPS", int(ArchMIPS)},
		entry{"PPC", int(ArchPPC)},
		entry{"SPARC", int(ArchSPARC)},
	)

	modeTable = newTable(FamilyMode,
		entry{"X16", int(ModeX16)},
		entry{"X32", int(ModeX32)},
		entry{"X64", int(ModeX64)},
		entry{"ARM", int(ModeARM)},
		entry{"THUMB", int(ModeThumb)},
		entry{"MICRO", int(ModeMicro)},
		entry{"MIPS3", int(ModeMIPS3)},
		entry{"MIPS32R6", int(ModeMIPS32R6)},
		entry{"V8", int(ModeV8)},
		entry{"V9", int(ModeV9)},
		entry{"QPX", int(ModeQPX)},
	)

	endianTable = newTable(FamilyEndian,
		entry{"LITTLE", int(EndianLittle)},
		entry{"BIG", int(EndianBig)},
	)

	syntaxTable = newTable(FamilySyntax,
		entry{"INTEL", int(SyntaxIntel)},
		entry{"ATT", int(SyntaxATT)},
		entry{"NASM", int(SyntaxNASM)},
		entry{"MASM", int(SyntaxMASM)},
		entry{"GAS", int(SyntaxGAS)},
		entry{"RADIX16", int(SyntaxRadix16)},
	)

	tables = map[Family]*table{
		FamilyArch:   archTable,
		FamilyMode:   modeTable,
		FamilyEndian: endianTable,
		FamilySyntax: syntaxTable,
	}
)

// Families lists the families in display order.
func Families() []Family {
	return []Family{FamilyArch, FamilyMode, FamilyEndian, FamilySyntax}
}

// ResolveArch returns the architecture declared under name.
func ResolveArch(name string) (Arch, error) {
	id, err := archTable.resolve(name)
	return Arch(id), err
}

// ResolveMode returns the mode declared under name.
func ResolveMode(name string) (Mode, error) {
	id, err := modeTable.resolve(name)
	return Mode(id), err
}

// ResolveEndian returns the byte order declared under name.
func ResolveEndian(name string) (Endian, error) {
	id, err := endianTable.resolve(name)
	return Endian(id), err
}

// ResolveSyntax returns the syntax option declared under name.
func ResolveSyntax(name string) (Syntax, error) {
	id, err := syntaxTable.resolve(name)
	return Syntax(id), err
}

// NameOf is the inverse lookup. It reports false for unknown families and
// undeclared identifiers.
func NameOf(family Family, id int) (string, bool) {
	t, ok := tables[family]
	if !ok {
		return "", false
	}
	name, ok := t.byID[id]
	return name, ok
}

// Names returns the declared names of a family in declaration order.
func Names(family Family) []string {
	t, ok := tables[family]
	if !ok {
		return nil
	}
	return t.names()
}

func (a Arch) String() string   { return nameOrNumber(FamilyArch, int(a)) }
func (m Mode) String() string   { return nameOrNumber(FamilyMode, int(m)) }
func (e Endian) String() string { return nameOrNumber(FamilyEndian, int(e)) }

func (s Syntax) String() string {
	if s == SyntaxDefault {
		return "DEFAULT"
	}
	return nameOrNumber(FamilySyntax, int(s))
}

func nameOrNumber(family Family, id int) string {
	if name, ok := NameOf(family, id); ok {
		return name
	}
	return fmt.Sprintf("%s(%d)", family, id)
}
