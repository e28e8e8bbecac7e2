package span_store

import "fmt"

// debugPanic escalates an internal-consistency violation, but only in
// builds carrying the tracingdebug tag. Release builds tolerate the
// violation so a bookkeeping bug cannot take the host process down.
func debugPanic(format string, args ...interface{}) {
	if debugAssertions {
		panic(fmt.Sprintf(format, args...))
	}
}
