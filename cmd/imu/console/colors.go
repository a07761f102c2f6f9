package console

import "github.com/fatih/color"

// Available ANSI colors
var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	White  = color.New(color.FgHiWhite).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
	Bold   = color.New(color.Bold).SprintFunc()
)

// Level colors a 0-3 calibration level: red when uncalibrated, green when complete.
func Level(l uint8) string {
	switch {
	case l >= 3:
		return Green(l)
	case l == 0:
		return Red(l)
	default:
		return Yellow(l)
	}
}

// Flag colors a boolean check result.
func Flag(ok bool) string {
	if ok {
		return Green(ok)
	}
	return Red(ok)
}
