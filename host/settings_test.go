package host

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/beevik/prefixtree/v2"
)

func TestSettingsDefaults(t *testing.T) {
	s := newSettings()
	if s.MemDumpBytes != 64 || s.DisasmLines != 10 || s.MaxStepLines != 20 {
		t.Errorf("defaults incorrect. got: %+v", *s)
	}
}

func TestSettingsPrefix(t *testing.T) {
	s := newSettings()

	if err := s.Set("memdump", 128); err != nil {
		t.Fatal(err)
	}
	if s.MemDumpBytes != 128 {
		t.Errorf("MemDumpBytes incorrect. exp: 128, got: %d", s.MemDumpBytes)
	}

	v, err := s.Get("HEX")
	if err != nil {
		t.Fatal(err)
	}
	if v != false {
		t.Errorf("HexMode incorrect. got: %v", v)
	}

	if k := s.Kind("nextd"); k != reflect.Uint16 {
		t.Errorf("kind incorrect. exp: uint16, got: %v", k)
	}
	if k := s.Kind("bogus"); k != reflect.Invalid {
		t.Errorf("kind incorrect. exp: invalid, got: %v", k)
	}

	if err := s.Set("next", 1); !errors.Is(err, prefixtree.ErrPrefixAmbiguous) {
		t.Errorf("ambiguous prefix accepted. got: %v", err)
	}
}

func TestSettingsTypes(t *testing.T) {
	s := newSettings()

	if err := s.Set("color", 1); err != errSettingType {
		t.Errorf("int assigned to bool. got: %v", err)
	}
	if err := s.Set("disasmlines", true); err != errSettingType {
		t.Errorf("bool assigned to int. got: %v", err)
	}
	if err := s.Set("nextmem", int64(0x1c000)); err != nil {
		t.Fatal(err)
	}
	if s.NextMemDumpAddr != 0xc000 {
		t.Errorf("NextMemDumpAddr incorrect. exp: $C000, got: $%04X", s.NextMemDumpAddr)
	}
}

func TestSettingsDisplay(t *testing.T) {
	s := newSettings()
	s.NextDisasmAddr = 0xc000

	var b bytes.Buffer
	s.Display(&b)

	out := b.String()
	for _, want := range []string{"HexMode          false", "NextDisasmAddr   $C000", "(default number of lines to disassemble)"} {
		if !strings.Contains(out, want) {
			t.Errorf("display missing %q:\n%s", want, out)
		}
	}
}

func TestStringToBool(t *testing.T) {
	for _, s := range []string{"1", "true", "ON"} {
		if v, err := stringToBool(s); err != nil || !v {
			t.Errorf("%q: exp true, got %v (%v)", s, v, err)
		}
	}
	for _, s := range []string{"0", "False", "off"} {
		if v, err := stringToBool(s); err != nil || v {
			t.Errorf("%q: exp false, got %v (%v)", s, v, err)
		}
	}
	if _, err := stringToBool("maybe"); err == nil {
		t.Error("invalid bool accepted")
	}
}
