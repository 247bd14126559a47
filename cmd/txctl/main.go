// Command txctl is a small inspector for txflash bank pairs: it opens two
// file-backed banks, runs the engine's classification/recovery, and lets
// an operator dump, write, or reset the stored configuration from a
// terminal. It exercises the engine's public surface end to end, the way
// the teacher repo's cmd/tk exercises its ticket store.
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/aleofreddi/txflash/bank"
	"github.com/aleofreddi/txflash/engine"
	"github.com/aleofreddi/txflash/txlog"
)

// position is the CLI's fixed choice of engine position type. The engine
// package is generic over bank.Uint; a one-shot inspector tool has no
// reason to expose that choice to its users, so it pins P=uint32 (4-byte
// little-endian length field), which comfortably covers any bank small
// enough to fit on a filesystem-backed reference bank.
type position = uint32

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	if len(args) == 0 {
		printUsage(stderr)
		return 1
	}

	runID := uuid.Must(uuid.NewV7())
	log := txlog.Default().WithField("run_id", runID.String())

	switch args[0] {
	case "dump":
		return cmdDump(args[1:], stdout, log)
	case "write":
		return cmdWrite(args[1:], stdout, log)
	case "reset":
		return cmdReset(args[1:], stdout, log)
	case "-h", "--help", "help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "txctl: unknown command %q\n", args[0])
		printUsage(stderr)

		return 1
	}
}

func printUsage(w *os.File) {
	fmt.Fprintln(w, "usage: txctl <dump|write|reset> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "txctl owns the two bank files exclusively for the duration of the")
	fmt.Fprintln(w, "command. Never run two txctl invocations against the same bank pair")
	fmt.Fprintln(w, "concurrently, and never point it at banks another process is using.")
}

type bankFlags struct {
	bank0, bank1 string
	length       uint32
	emptyByte    uint8
	debug        bool
}

func bindBankFlags(fs *flag.FlagSet) *bankFlags {
	bf := &bankFlags{}
	fs.StringVar(&bf.bank0, "bank0", "", "path to bank0 file (created if missing)")
	fs.StringVar(&bf.bank1, "bank1", "", "path to bank1 file (created if missing)")
	fs.Uint32Var(&bf.length, "length", 4096, "bank length in bytes, both banks")
	fs.Uint8Var(&bf.emptyByte, "empty-byte", 0xff, "byte value cells assume after erase")
	fs.BoolVar(&bf.debug, "debug", false, "enable debug-level engine logging")

	return bf
}

func (bf *bankFlags) open() (bank.Backend[position], bank.Backend[position], error) {
	if bf.bank0 == "" || bf.bank1 == "" {
		return nil, nil, fmt.Errorf("txctl: --bank0 and --bank1 are required")
	}

	b0, err := bank.OpenFileBank[position](bf.bank0, bf.length, bf.emptyByte)
	if err != nil {
		return nil, nil, err
	}

	b1, err := bank.OpenFileBank[position](bf.bank1, bf.length, bf.emptyByte)
	if err != nil {
		return nil, nil, err
	}

	return b0, b1, nil
}

func cmdDump(args []string, stdout *os.File, log *logrus.Entry) int {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	bf := bindBankFlags(fs)

	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	if bf.debug {
		txlog.SetLevel(logrus.DebugLevel)
	}

	b0, b1, err := bf.open()
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	defer closeIfCloser(b0)
	defer closeIfCloser(b1)

	eng, err := engine.New[position](b0, b1, nil, log)
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	length := eng.Length()
	buf := make([]byte, length)

	if err := eng.Read(buf); err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	fmt.Fprintf(stdout, "length: %d\n", length)
	fmt.Fprintf(stdout, "payload: %q\n", buf)

	return 0
}

func cmdWrite(args []string, stdout *os.File, log *logrus.Entry) int {
	fs := flag.NewFlagSet("write", flag.ContinueOnError)
	bf := bindBankFlags(fs)
	payload := fs.String("payload", "", "new configuration payload")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	if bf.debug {
		txlog.SetLevel(logrus.DebugLevel)
	}

	b0, b1, err := bf.open()
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	defer closeIfCloser(b0)
	defer closeIfCloser(b1)

	eng, err := engine.New[position](b0, b1, nil, log)
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	ok, err := eng.Write([]byte(*payload))
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	if !ok {
		fmt.Fprintln(stdout, eng.LastWriteErr())
		return 1
	}

	fmt.Fprintln(stdout, "ok")

	return 0
}

func cmdReset(args []string, stdout *os.File, log *logrus.Entry) int {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	bf := bindBankFlags(fs)
	payload := fs.String("default", "", "default configuration payload to write after reset")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	if bf.debug {
		txlog.SetLevel(logrus.DebugLevel)
	}

	b0, b1, err := bf.open()
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	defer closeIfCloser(b0)
	defer closeIfCloser(b1)

	eng, err := engine.New[position](b0, b1, []byte(*payload), log)
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	if err := eng.Reset(); err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}

	fmt.Fprintln(stdout, "ok")

	return 0
}

func closeIfCloser(b bank.Backend[position]) {
	if c, ok := b.(interface{ Close() error }); ok {
		_ = c.Close()
	}
}
