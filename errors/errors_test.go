package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseRead,
				Kind:   KindMalformedBinary,
				Path:   "/tmp/Tools.dll",
				Table:  "MethodDef",
				Offset: 0x2c0,
				Detail: "row truncated",
			},
			contains: []string{"[read]", "malformed_binary", "/tmp/Tools.dll", "MethodDef", "0x2c0", "row truncated"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseResolve,
				Kind:  KindResolutionDegraded,
			},
			contains: []string{"[resolve]", "resolution_degraded"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindLoadFailed,
				Detail: "cannot analyze module",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[load]", "load_failed", "cannot analyze module", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseRead,
		Kind:  KindMalformedBinary,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseRead,
		Kind:  KindNotFound,
		Path:  "x.dll",
	}

	if !err.Is(&Error{Phase: PhaseRead, Kind: KindNotFound}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseLoad, Kind: KindNotFound}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseRead, Kind: KindLoadFailed}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is should match kind-only sentinel")
	}
	if errors.Is(err, ErrMalformedBinary) {
		t.Error("errors.Is should not match other sentinel")
	}
}

func TestLoadFailedKeepsMalformedCause(t *testing.T) {
	malformed := Malformed("#~", "bad header", nil)
	err := LoadFailed("/tmp/a.dll", malformed)

	if !errors.Is(err, ErrLoadFailed) {
		t.Error("expected load failure")
	}
	if !errors.Is(err, ErrMalformedBinary) {
		t.Error("expected malformed cause to be reachable")
	}
	if !strings.Contains(err.Error(), "/tmp/a.dll") {
		t.Errorf("missing path in %q", err.Error())
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseRead, KindMalformedBinary).
		Path("a.dll").
		Table("#Blob").
		Offset(12).
		Cause(cause).
		Detail("length %d exceeds heap", 99).
		Build()

	if err.Phase != PhaseRead {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseRead)
	}
	if err.Kind != KindMalformedBinary {
		t.Errorf("Kind = %v, want %v", err.Kind, KindMalformedBinary)
	}
	if err.Path != "a.dll" || err.Table != "#Blob" || err.Offset != 12 {
		t.Errorf("Path=%q Table=%q Offset=%d", err.Path, err.Table, err.Offset)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "length 99 exceeds heap" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestWithPath(t *testing.T) {
	base := Malformed("#~", "x", nil)
	got := WithPath(base, "b.dll")
	var e *Error
	if !errors.As(got, &e) || e.Path != "b.dll" {
		t.Fatalf("WithPath = %v", got)
	}
	if base.Path != "" {
		t.Error("WithPath must not mutate the original")
	}

	plain := errors.New("plain")
	if WithPath(plain, "c.dll") != plain {
		t.Error("non-structured errors pass through unchanged")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseRead, "missing.dll")
		if err.Kind != KindNotFound || err.Path != "missing.dll" {
			t.Errorf("got %+v", err)
		}
	})

	t.Run("Degraded", func(t *testing.T) {
		err := Degraded("no reference assemblies for v%d", 8)
		if err.Kind != KindResolutionDegraded {
			t.Errorf("Kind = %v", err.Kind)
		}
		if !strings.Contains(err.Detail, "v8") {
			t.Errorf("Detail = %v", err.Detail)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		err := Unsupported(PhaseRead, "table 0x30")
		if err.Kind != KindUnsupported {
			t.Errorf("Kind = %v", err.Kind)
		}
	})

	t.Run("InvalidInput", func(t *testing.T) {
		err := InvalidInput(PhaseRender, "unknown format")
		if err.Kind != KindInvalidInput {
			t.Errorf("Kind = %v", err.Kind)
		}
	})
}

func TestIsAs(t *testing.T) {
	err := WithPath(Malformed("TypeDef", "row truncated", nil), "/tmp/Tools.dll")
	wrapped := LoadFailed("/tmp/Tools.dll", err)

	if !Is(wrapped, ErrLoadFailed) {
		t.Error("expected load failure")
	}
	if !Is(wrapped, ErrMalformedBinary) {
		t.Error("expected the malformed cause to match")
	}
	if Is(wrapped, ErrNotFound) {
		t.Error("unexpected not found match")
	}

	var target *Error
	if !As(wrapped, &target) || target.Kind != KindLoadFailed {
		t.Errorf("As = %+v", target)
	}
}
