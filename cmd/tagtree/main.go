// tagtree inspects, converts and catalogs packed tag-tree asset files.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/tliron/commonlog"

	"github.com/chazu/tagtree/asset"
	"github.com/chazu/tagtree/manifest"
	"github.com/chazu/tagtree/tag"
	"github.com/chazu/tagtree/wire"

	_ "github.com/tliron/commonlog/simple"
)

// env is the state shared by every subcommand.
type env struct {
	manifest *manifest.Manifest
	stdout   io.Writer
	stderr   io.Writer
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	flagSet := pflag.NewFlagSet("tagtree", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	verbosity := flagSet.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	dir := flagSet.StringP("dir", "C", ".", "Directory to search for tagtree.toml")
	flagSet.Usage = func() { printUsage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	commonlog.Configure(*verbosity, nil)

	m, err := manifest.FindAndLoad(*dir)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}
	if m == nil {
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return err
		}
		m = manifest.Default(abs)
	}
	e := &env{manifest: m, stdout: stdout, stderr: stderr}

	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(stderr, flagSet)
		return fmt.Errorf("no command given")
	}
	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "dump":
		return e.handleDumpCommand(cmdArgs)
	case "info":
		return e.handleInfoCommand(cmdArgs)
	case "deps":
		return e.handleDepsCommand(cmdArgs)
	case "convert":
		return e.handleConvertCommand(cmdArgs)
	case "store":
		return e.handleStoreCommand(cmdArgs)
	case "help":
		printUsage(stdout, flagSet)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: tagtree [options] <command> [args...]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  dump <file>                      Print the tag tree of a packed file\n")
	fmt.Fprintf(w, "  info <file>                      Print the pack header\n")
	fmt.Fprintf(w, "  deps <file>                      List referenced asset ids\n")
	fmt.Fprintf(w, "  convert <in> <out>               Repack with another codec or compression\n")
	fmt.Fprintf(w, "  store put|get|deps|dependents|list|rm ...\n")
	fmt.Fprintf(w, "                                   Manage the asset database\n\n")
	fmt.Fprintf(w, "Options:\n")
	fmt.Fprint(w, flagSet.FlagUsages())
}

func readTree(path string) (tag.Tag, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := wire.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func oneArg(cmd string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: tagtree %s <file>", cmd)
	}
	return args[0], nil
}

// handleDumpCommand processes `tagtree dump <file>`.
func (e *env) handleDumpCommand(args []string) error {
	path, err := oneArg("dump", args)
	if err != nil {
		return err
	}
	t, err := readTree(path)
	if err != nil {
		return err
	}
	return tag.Dump(e.stdout, t)
}

// handleInfoCommand processes `tagtree info <file>`.
func (e *env) handleInfoCommand(args []string) error {
	path, err := oneArg("info", args)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	h, err := wire.ReadHeader(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(e.stdout, "version:     %d\n", h.Version)
	fmt.Fprintf(e.stdout, "codec:       %s\n", h.Codec)
	fmt.Fprintf(e.stdout, "compression: %s\n", h.Compression)
	fmt.Fprintf(e.stdout, "size:        %d\n", h.Size)
	fmt.Fprintf(e.stdout, "payload:     %d\n", h.PayloadLen)
	fmt.Fprintf(e.stdout, "digest:      %x\n", h.Digest)
	return nil
}

// handleDepsCommand processes `tagtree deps <file>`.
func (e *env) handleDepsCommand(args []string) error {
	path, err := oneArg("deps", args)
	if err != nil {
		return err
	}
	t, err := readTree(path)
	if err != nil {
		return err
	}
	for _, id := range asset.ScanDependencies(t) {
		fmt.Fprintln(e.stdout, id)
	}
	return nil
}

// handleConvertCommand processes `tagtree convert [--codec c] [--compression z] <in> <out>`.
// Unset flags fall back to the [wire] section of tagtree.toml.
func (e *env) handleConvertCommand(args []string) error {
	flagSet := pflag.NewFlagSet("convert", pflag.ContinueOnError)
	flagSet.SetOutput(e.stderr)
	codecName := flagSet.String("codec", "", "Payload codec: binary, cbor, yaml")
	compressionName := flagSet.String("compression", "", "Payload compression: none, lz4, zstd")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 2 {
		return fmt.Errorf("usage: tagtree convert [--codec c] [--compression z] <in> <out>")
	}

	opts := e.manifest.PackOptions()
	var err error
	if *codecName != "" {
		if opts.Codec, err = wire.ParseCodec(*codecName); err != nil {
			return err
		}
	}
	if *compressionName != "" {
		if opts.Compression, err = wire.ParseCompression(*compressionName); err != nil {
			return err
		}
	}

	in, out := flagSet.Arg(0), flagSet.Arg(1)
	t, err := readTree(in)
	if err != nil {
		return err
	}
	data, err := wire.Pack(t, opts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%s -> %s (%s, %s, %d bytes)\n", in, out, opts.Codec, opts.Compression, len(data))
	return nil
}
