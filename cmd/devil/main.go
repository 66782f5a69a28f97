// Command devil compresses and extracts files and archives with the codecs
// in this module.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("devil")

const progName = "devil"
const usageMessageRaw = `
Usage: devil [-d] COMMAND [OPTIONS] ARGS

Commands:
  compress [-algo ALGO] [-codec NAME] [-progress] [-o OUT] FILE
	Compress FILE. ALGO is huffman, lzss or stream (the default);
	a stream compresses blocks with the codec NAME and then with
	adaptive Huffman coding.
  extract [-algo ALGO] [-codec NAME] [-progress] [-o OUT] FILE
	Reverse compress. ALGO and NAME must match the ones used to
	compress FILE.
  pack [-codec NAME] -o ARCHIVE DIR
	Store the files and folders under DIR in ARCHIVE.
  unpack [-C DIR] ARCHIVE
	Extract ARCHIVE into DIR (by default the current folder).
  list ARCHIVE
	List the entries in ARCHIVE.
  bench FILE...
	Compress each FILE with every codec, checking the round trip,
	and print the sizes.

Options:
  -d
	Log debugging information to standard error.

Codecs: $codecs
`

var leveledLogBackend logging.Leveled

func startLogging() {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatSpec := "%{level:8s} %{module:-10s} | %{message}"
	formatter := logging.MustStringFormatter(formatSpec)
	formatted := logging.NewBackendFormatter(backend, formatter)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(logging.INFO, "")
	logging.SetBackend(leveled)
	leveledLogBackend = leveled
}

type nullWriter struct{}

func (n *nullWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

func usageMessage() string {
	template := strings.TrimLeft(usageMessageRaw, "\n")
	return strings.NewReplacer("$codecs", strings.Join(codecNames(), ", ")).Replace(template)
}

func usageErrorf(detailFmt string, detailArgs ...interface{}) {
	detail := fmt.Sprintf(detailFmt, detailArgs...)
	fmt.Fprintf(os.Stderr, "%s: %s\n%s", progName, color.RedString(detail), usageMessage())
	os.Exit(64)
}

func exitError(err error) {
	fmt.Fprintf(os.Stderr, "%s: %s\n", progName, color.New(color.FgRed, color.Bold).Sprint(err.Error()))
	os.Exit(1)
}

// newFlagSet returns a quiet FlagSet; usage text is printed by
// usageErrorf instead.
func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(progName+" "+name, flag.ContinueOnError)
	fs.Usage = func() {}
	fs.SetOutput(&nullWriter{})
	return fs
}

func parse(fs *flag.FlagSet, args []string) {
	err := fs.Parse(args)
	if err == flag.ErrHelp {
		io.WriteString(os.Stdout, usageMessage())
		os.Exit(0)
	} else if err != nil {
		usageErrorf("%s", err.Error())
	}
}

func main() {
	startLogging()

	ourFlags := newFlagSet("")
	var debugLogging bool
	ourFlags.BoolVar(&debugLogging, "debug", false, "")
	ourFlags.BoolVar(&debugLogging, "d", false, "")
	parse(ourFlags, os.Args[1:])

	if debugLogging {
		leveledLogBackend.SetLevel(logging.DEBUG, "")
	}

	if ourFlags.NArg() == 0 {
		usageErrorf("not enough arguments; expected COMMAND")
	}
	if err := run(ourFlags.Arg(0), ourFlags.Args()[1:]); err != nil {
		exitError(err)
	}
}

// run executes one command with its arguments.
func run(command string, args []string) error {
	switch command {
	case "compress":
		return compressCommand(args)
	case "extract":
		return extractCommand(args)
	case "pack":
		return packCommand(args)
	case "unpack":
		return unpackCommand(args)
	case "list":
		return listCommand(args)
	case "bench":
		return benchCommand(args)
	}
	usageErrorf("unknown command \"%s\"", command)
	return nil
}
