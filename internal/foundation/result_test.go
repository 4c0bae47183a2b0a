package foundation

import (
	"errors"
	"testing"
)

func TestResult(t *testing.T) {
	t.Run("Ok", func(t *testing.T) {
		r := Ok[int, error](42)
		if !r.IsOk() || r.IsErr() {
			t.Fatal("expected Ok result")
		}
		if r.Unwrap() != 42 {
			t.Errorf("expected 42, got %d", r.Unwrap())
		}
		v, err := r.ToTuple()
		if v != 42 || err != nil {
			t.Errorf("unexpected tuple (%d, %v)", v, err)
		}
	})

	t.Run("Err", func(t *testing.T) {
		boom := errors.New("boom")
		r := Err[int](boom)
		if r.IsOk() || !r.IsErr() {
			t.Fatal("expected Err result")
		}
		if !errors.Is(r.UnwrapErr(), boom) {
			t.Errorf("expected boom, got %v", r.UnwrapErr())
		}
		defer func() {
			if recover() == nil {
				t.Error("expected Unwrap on Err to panic")
			}
		}()
		_ = r.Unwrap()
	})

	t.Run("Match", func(t *testing.T) {
		var got string
		Ok[string, error]("yes").Match(func(s string) { got = s }, func(error) { got = "err" })
		if got != "yes" {
			t.Errorf("expected onOk branch, got %q", got)
		}
		Err[string](errors.New("x")).Match(func(string) { got = "ok" }, func(error) { got = "err" })
		if got != "err" {
			t.Errorf("expected onErr branch, got %q", got)
		}
	})

	t.Run("FromTuple", func(t *testing.T) {
		if !FromTuple[int, error](1, nil).IsOk() {
			t.Error("nil error should produce Ok")
		}
		if !FromTuple(0, errors.New("x")).IsErr() {
			t.Error("non-nil error should produce Err")
		}
	})
}
