/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingT is a require.TestingT that keeps failure messages instead of stopping the test.
type recordingT struct {
	failures []string
	stopped  bool
	helpers  int
}

func (t *recordingT) Errorf(format string, args ...interface{}) {
	t.failures = append(t.failures, fmt.Sprintf(format, args...))
}

func (t *recordingT) FailNow() {
	t.stopped = true
}

func (t *recordingT) Helper() {
	t.helpers++
}

func (t *recordingT) failed() bool {
	return t.stopped || len(t.failures) != 0
}

func (t *recordingT) lastFailure() string {
	if len(t.failures) == 0 {
		return ""
	}
	return t.failures[len(t.failures)-1]
}

// requireFailed checks that the helper has failed the test with a message containing every wantSubstr.
func requireFailed(t *testing.T, rt *recordingT, wantSubstrs ...string) {
	t.Helper()
	require.True(t, rt.stopped, "helper must stop the test")
	require.NotEmpty(t, rt.failures)
	for _, s := range wantSubstrs {
		require.True(t, strings.Contains(rt.lastFailure(), s), "%q is not found in failure message:\n%s", s, rt.lastFailure())
	}
}

func requirePassed(t *testing.T, rt *recordingT) {
	t.Helper()
	require.False(t, rt.failed(), "unexpected failures: %v", rt.failures)
	require.Positive(t, rt.helpers, "helper must mark itself with t.Helper()")
}
