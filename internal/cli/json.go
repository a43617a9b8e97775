package cli

import (
	"io"

	"github.com/nzmon/nzmon/internal/output"
)

// Machine mode flag - when true, outputs JSON and suppresses human-friendly decorations
var machineMode bool

// MachineMode returns true if machine-readable output is enabled
func MachineMode() bool {
	return machineMode
}

// emit writes data as a success envelope in machine mode, otherwise calls
// human to print the terminal rendering.
func emit(w io.Writer, data interface{}, human func(io.Writer)) error {
	if machineMode {
		return output.WriteSuccess(w, data)
	}
	human(w)
	return nil
}
