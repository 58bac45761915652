package vm

import (
	"os"
	"runtime/debug"
	"strconv"
)

// RunWithGCDisabled runs the VM to completion with the garbage
// collector disabled for the duration, restoring whatever GOGC was
// set to (or the runtime default) before returning. Apart from ALOC
// growing the heap and PRTS building its output string, the
// instruction loop allocates nothing once a program is loaded, so this
// avoids paying for GC cycles that would otherwise interrupt a tight
// fetch/decode/execute loop.
func (v *VM) RunWithGCDisabled() error {
	restore := disableGC()
	defer restore()
	return v.Run()
}

func disableGC() func() {
	raw, ok := os.LookupEnv("GOGC")
	if !ok {
		raw = "100"
	}
	gcPercent, err := strconv.ParseInt(raw, 10, 32)
	if raw == "off" {
		gcPercent = -1
	} else if err != nil {
		gcPercent = 100
	}

	debug.SetGCPercent(-1)
	return func() {
		debug.SetGCPercent(int(gcPercent))
	}
}
