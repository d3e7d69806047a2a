package engine

import (
	"fmt"

	"ksapi/internal/registry"
)

type targetKey struct {
	arch   registry.Arch
	mode   registry.Mode
	endian registry.Endian
}

// kstool target names keyed by configuration.
var kstoolTargets = map[targetKey]string{
	{registry.ArchX86, registry.ModeX16, registry.EndianLittle}: "x16",
	{registry.ArchX86, registry.ModeX32, registry.EndianLittle}: "x32",
	{registry.ArchX86, registry.ModeX64, registry.EndianLittle}: "x64",

	{registry.ArchARM, registry.ModeARM, registry.EndianLittle}:   "arm",
	{registry.ArchARM, registry.ModeARM, registry.EndianBig}:      "armbe",
	{registry.ArchARM, registry.ModeThumb, registry.EndianLittle}: "thumb",
	{registry.ArchARM, registry.ModeThumb, registry.EndianBig}:    "thumbbe",
	{registry.ArchARM, registry.ModeV8, registry.EndianLittle}:    "armv8",
	{registry.ArchARM, registry.ModeV8, registry.EndianBig}:       "armv8be",

	{registry.ArchMIPS, registry.ModeX32, registry.EndianLittle}: "mips",
	{registry.ArchMIPS, registry.ModeX32, registry.EndianBig}:    "mipsbe",
	{registry.ArchMIPS, registry.ModeX64, registry.EndianLittle}: "mips64",
	{registry.ArchMIPS, registry.ModeX64, registry.EndianBig}:    "mips64be",

	{registry.ArchPPC, registry.ModeX32, registry.EndianBig}:    "ppc32be",
	{registry.ArchPPC, registry.ModeX64, registry.EndianLittle}: "ppc64",
	{registry.ArchPPC, registry.ModeX64, registry.EndianBig}:    "ppc64be",

	{registry.ArchSPARC, registry.ModeX32, registry.EndianLittle}: "sparc",
	{registry.ArchSPARC, registry.ModeX32, registry.EndianBig}:    "sparcbe",
	{registry.ArchSPARC, registry.ModeX64, registry.EndianBig}:    "sparc64be",
	{registry.ArchSPARC, registry.ModeV9, registry.EndianBig}:     "sparc64be",
}

// Architectures whose Keystone mode is only the endianness bit. Any declared
// mode is accepted for them.
var kstoolArchTargets = map[registry.Arch]string{
	registry.ArchARM64: "arm64",
	registry.ArchEVM:   "evm",
}

// KSToolTarget returns the kstool target name for cfg, or an error wrapping
// ErrUnsupportedTarget.
func KSToolTarget(cfg Config) (string, error) {
	name, ok := kstoolTargets[targetKey{cfg.Arch, cfg.Mode, cfg.Endian}]
	if !ok && cfg.Endian == registry.EndianLittle {
		name, ok = kstoolArchTargets[cfg.Arch]
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedTarget, cfg)
	}

	switch cfg.Syntax {
	case registry.SyntaxDefault, registry.SyntaxIntel:
		return name, nil
	case registry.SyntaxATT, registry.SyntaxNASM:
		if cfg.Arch != registry.ArchX86 {
			return "", fmt.Errorf("%w: syntax %s applies to X86 only", ErrUnsupportedTarget, cfg.Syntax)
		}
		if cfg.Syntax == registry.SyntaxATT {
			return name + "att", nil
		}
		return name + "nasm", nil
	default:
		return "", fmt.Errorf("%w: kstool has no %s syntax", ErrUnsupportedTarget, cfg.Syntax)
	}
}
