package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// ASCIILogo is printed at startup unless output is quiet.
const ASCIILogo = `
    ╔═══════════════════════════════════════════════════╗
    ║   ____  ____  _   _                           _    ║
    ║  |  _ \/ ___|| | | | __ _ _ ____   _____  ___| |_  ║
    ║  | |_) \___ \| |_| |/ _' | '__\ \ / / _ \/ __| __| ║
    ║  |  __/ ___) |  _  | (_| | |   \ V /  __/\__ \ |_  ║
    ║  |_|   |____/|_| |_|\__,_|_|    \_/ \___||___/\__| ║
    ║        COMMENT ARCHIVE HARVESTER                   ║
    ╚═══════════════════════════════════════════════════╝
`

var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

var (
	mu     sync.Mutex
	out    io.Writer = os.Stdout
	errOut io.Writer = os.Stderr
	quiet  bool
)

// SetOutput redirects regular and error output. Nil restores the standard
// streams.
func SetOutput(stdout, stderr io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	out, errOut = stdout, stderr
}

// SetQuiet suppresses everything except errors.
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
}

func printTo(isErr bool, s string) {
	mu.Lock()
	defer mu.Unlock()
	if isErr {
		fmt.Fprint(errOut, s)
		return
	}
	if !quiet {
		fmt.Fprint(out, s)
	}
}

func withCause(msg string, args []interface{}) string {
	if len(args) > 0 {
		return msg + ": " + fmt.Sprintf("%v", args[0])
	}
	return msg
}

func PrintLogo() {
	printTo(false, Cyan(ASCIILogo))
}

// PrintError prints msg in red to the error output. An optional first
// argument is appended as the cause.
func PrintError(msg string, args ...interface{}) {
	printTo(true, Red(withCause(msg, args))+"\n")
}

func PrintSuccess(msg string) {
	printTo(false, Green(msg)+"\n")
}

// PrintInfo prints a "label: value" line.
func PrintInfo(label string, value string) {
	printTo(false, fmt.Sprintf("%s: %s\n", Cyan(label), Yellow(value)))
}

func PrintWarning(msg string, args ...interface{}) {
	printTo(false, Yellow(withCause(msg, args))+"\n")
}

func PrintHighlight(msg string) {
	printTo(false, Magenta(msg)+"\n")
}
