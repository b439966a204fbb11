package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Format(t *testing.T) {
	err := NotFound("static method", "str/Echo.echo")
	got := err.Error()

	if !strings.HasPrefix(got, "[resolve] not_found") {
		t.Errorf("unexpected prefix: %s", got)
	}
	if !strings.Contains(got, `"str/Echo.echo"`) {
		t.Errorf("missing method name: %s", got)
	}
}

func TestError_FormatWithCause(t *testing.T) {
	cause := fmt.Errorf("wasm trap: unreachable")
	err := Invocation("str/Echo.echo", cause)
	got := err.Error()

	if !strings.Contains(got, "caused by: wasm trap: unreachable") {
		t.Errorf("cause not rendered: %s", got)
	}
}

func TestError_Is_MatchesPhaseAndKind(t *testing.T) {
	err := AlreadyInitialized()

	if !stderrors.Is(err, &Error{Phase: PhaseLoad, Kind: KindAlreadyInitialized}) {
		t.Error("expected phase+kind match")
	}
	if stderrors.Is(err, &Error{Phase: PhaseLoad, Kind: KindNotInitialized}) {
		t.Error("kind mismatch should not match")
	}
	if stderrors.Is(err, &Error{Phase: PhaseAttach, Kind: KindAlreadyInitialized}) {
		t.Error("phase mismatch should not match")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("read file: no such file")
	err := LoadFailure("read library", cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected unwrap to reach cause")
	}
}

func TestLoadFailure_DistinctFromInvalidInput(t *testing.T) {
	err := LoadFailure("read library", nil)

	if !stderrors.Is(err, &Error{Phase: PhaseLoad, Kind: KindLoadFailure}) {
		t.Error("expected load_failure kind")
	}
	if stderrors.Is(err, &Error{Phase: PhaseLoad, Kind: KindInvalidInput}) {
		t.Error("a load failure must not match a rejected input")
	}
}

func TestNoActiveState_FixedDiagnostic(t *testing.T) {
	err := NoActiveState("getglobal")

	if !strings.Contains(err.Error(), "no active script state") {
		t.Errorf("diagnostic message changed: %s", err)
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(PhaseInvoke, KindInvocation, cause, "call failed")

	if err.Phase != PhaseInvoke || err.Kind != KindInvocation {
		t.Errorf("unexpected phase/kind: %s %s", err.Phase, err.Kind)
	}
	if stderrors.Unwrap(err) != cause {
		t.Error("unwrap should return cause")
	}
}
