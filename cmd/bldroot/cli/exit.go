// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "strconv"

// ExitError makes the process exit with Code and no further message.
// Commands return it after reporting a failure themselves, such as
// doctor, or to pass on the exit status of a command they ran in the
// build root.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return "exit status " + strconv.Itoa(e.Code)
}

// ExitCode implements the interface lib/process checks for.
func (e *ExitError) ExitCode() int {
	return e.Code
}
