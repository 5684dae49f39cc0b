package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			"unresolved",
			Unresolved("foo:bar", "wit/deps/foo-bar"),
			"[resolve] unresolved_dependency: package `foo:bar` (wit/deps/foo-bar)",
		},
		{
			"cycle",
			Cycle([]string{"a:b", "c:d", "a:b"}),
			"[resolve] cyclic_dependency: a:b -> c:d -> a:b",
		},
		{
			"incompatible",
			Incompatible("my:comp1", "types", "missing function `rand`"),
			"[compose] incompatible_interface: package `my:comp1`, interface `types`: missing function `rand`",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAdapterReadMessage(t *testing.T) {
	err := AdapterRead("not-a-valid-path", fmt.Errorf("no such file"))
	if !strings.Contains(err.Error(), "failed to read module adapter") {
		t.Errorf("adapter error missing required prefix: %q", err.Error())
	}
}

func TestIsMatchesPhaseAndKind(t *testing.T) {
	err := Conflict("foo:bar", "differing content")
	if !stderrors.Is(err, Match(PhaseResolve, KindVersionConflict)) {
		t.Error("expected match on phase+kind")
	}
	if stderrors.Is(err, Match(PhaseResolve, KindCyclicDependency)) {
		t.Error("unexpected match on different kind")
	}
}

func TestUnwrap(t *testing.T) {
	cause := fmt.Errorf("connect: connection refused")
	err := RegistryUnavailable("foo:bar", cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected cause in chain")
	}
}
