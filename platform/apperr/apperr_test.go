package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestGetKindFollowsWrappedChain(t *testing.T) {
	base := Forbidden("calculations belong to another user").WithDetails([]int64{4})
	wrapped := fmt.Errorf("clear history: %w", base)

	if got := GetKind(wrapped); got != KindForbidden {
		t.Fatalf("expected forbidden kind, got %s", got)
	}
	e, ok := As(wrapped)
	if !ok {
		t.Fatal("expected *Error in chain")
	}
	ids, ok := e.Details.([]int64)
	if !ok || len(ids) != 1 || ids[0] != 4 {
		t.Fatalf("expected details [4], got %#v", e.Details)
	}
}

func TestGetKindUnknownForPlainErrors(t *testing.T) {
	if got := GetKind(errors.New("boom")); got != KindUnknown {
		t.Fatalf("expected unknown kind, got %s", got)
	}
	if Is(nil, KindInternal) {
		t.Fatal("nil error must not match any kind")
	}
}

func TestInternalUnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("save calculation failed", cause).WithOp("SaveCalculation")

	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the cause")
	}
	want := "SaveCalculation: save calculation failed: connection reset"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}
