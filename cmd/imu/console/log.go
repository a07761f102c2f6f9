package console

import (
	"fmt"
	"io"
	"os"
)

const PictoCompass = "🧭"
const PictoThermometer = "🌡"
const PictoTarget = "🎯"
const PictoWrench = "🔧"
const PictoStop = "🚫"
const PictoCheck = "✅"
const PictoFloppy = "💾"

var writer io.Writer = os.Stdout
var errWriter io.Writer = os.Stderr

func SetOutput(w, errw io.Writer) {
	writer = w
	errWriter = errw
}

func Writer() io.Writer {
	return writer
}

func Errorf(msg string, args ...any) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Red("ERROR"), fmt.Sprintf(msg, args...))
}

func Warnf(msg string, args ...any) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Yellow("WARN"), fmt.Sprintf(msg, args...))
}

func Infof(msg string, args ...any) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", White("..."), fmt.Sprintf(msg, args...))
}

func PInfof(picto, msg string, args ...any) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", picto, fmt.Sprintf(msg, args...))
}

// Field prints one aligned "name: value" line.
func Field(name string, value any) {
	_, _ = fmt.Fprintf(writer, "  %-22s %v\n", name+":", value)
}

func Printf(msg string, args ...any) {
	_, _ = fmt.Fprintf(writer, msg, args...)
}
