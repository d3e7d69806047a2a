package registry

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	resolvers := map[Family]func(string) (int, error){
		FamilyArch: func(s string) (int, error) {
			v, err := ResolveArch(s)
			return int(v), err
		},
		FamilyMode: func(s string) (int, error) {
			v, err := ResolveMode(s)
			return int(v), err
		},
		FamilyEndian: func(s string) (int, error) {
			v, err := ResolveEndian(s)
			return int(v), err
		},
		FamilySyntax: func(s string) (int, error) {
			v, err := ResolveSyntax(s)
			return int(v), err
		},
	}

	for _, family := range Families() {
		resolve := resolvers[family]
		for _, name := range Names(family) {
			t.Run(string(family)+"/"+name, func(t *testing.T) {
				for _, input := range []string{name, strings.ToLower(name), " " + name + " "} {
					id, err := resolve(input)
					require.NoError(t, err)

					got, ok := NameOf(family, id)
					require.True(t, ok)
					assert.Equal(t, name, got)
				}
			})
		}
	}
}

func TestResolveNotFound(t *testing.T) {
	_, err := ResolveArch("ZILOG80")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "ZILOG80")

	_, err = ResolveMode("")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ResolveEndian("middle")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ResolveSyntax("motorola")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNameOfUnknown(t *testing.T) {
	_, ok := NameOf(FamilyArch, 42)
	assert.False(t, ok)

	_, ok = NameOf(Family("color"), 1)
	assert.False(t, ok)

	_, ok = NameOf(FamilySyntax, int(SyntaxDefault))
	assert.False(t, ok, "default syntax has no declared name")
}

func TestKeystoneValues(t *testing.T) {
	assert.Equal(t, Arch(4), ArchX86)
	assert.Equal(t, Arch(9), ArchEVM)
	assert.Equal(t, Endian(1<<30), EndianBig)
	assert.Equal(t, Syntax(2), SyntaxATT)
}

func TestStringers(t *testing.T) {
	assert.Equal(t, "X86", ArchX86.String())
	assert.Equal(t, "MIPS32R6", ModeMIPS32R6.String())
	assert.Equal(t, "BIG", EndianBig.String())
	assert.Equal(t, "DEFAULT", SyntaxDefault.String())
	assert.Equal(t, "NASM", SyntaxNASM.String())
	assert.Equal(t, "architecture(77)", Arch(77).String())
}

func TestNamesOrder(t *testing.T) {
	assert.Equal(t, []string{"X86", "ARM", "ARM64", "EVM", "MIPS", "PPC", "SPARC"}, Names(FamilyArch))
	assert.Equal(t, []string{"LITTLE", "BIG"}, Names(FamilyEndian))
	assert.Nil(t, Names(Family("color")))

	// Callers get a copy.
	names := Names(FamilyArch)
	names[0] = "Z80"
	assert.Equal(t, "X86", Names(FamilyArch)[0])
}

func TestConcurrentLookups(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, name := range Names(FamilyMode) {
				id, err := ResolveMode(name)
				assert.NoError(t, err)
				assert.Equal(t, name, id.String())
			}
		}()
	}
	wg.Wait()
}
