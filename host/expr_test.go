package host

import (
	"errors"
	"fmt"
	"testing"
)

type symbols map[string]int64

func (s symbols) resolveIdentifier(id string) (int64, error) {
	if v, ok := s[id]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("identifier '%s' not found", id)
}

func TestExpressions(t *testing.T) {
	tests := []struct {
		expr string
		exp  int64
	}{
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{"10-4-3", 3},
		{"100/10/5", 2},
		{"-5+2", -3},
		{"2*-3", -6},
		{"--4", 4},
		{"~0", -1},
		{"$ff", 0xff},
		{"$C000+1", 0xc001},
		{"0x10", 16},
		{"0b101", 5},
		{"0d99", 99},
		{"%1010", 10},
		{"7%4", 3},
		{"%11%2", 1},
		{"1<<4", 16},
		{"$100>>4", 16},
		{"<$1234", 0x34},
		{">$1234", 0x12},
		{"<$1234+1", 0x35},
		{"$f0&$3c", 0x30},
		{"$f0|$0f", 0xff},
		{"$ff^$0f", 0xf0},
		{"1|2&3", 3},
		{"'A'", 65},
		{"'A'+1", 66},
		{"start+2", 0x1002},
		{">start", 0x10},
		{"  4 *  ( 2 + 1 ) ", 12},
	}

	p := newExprParser()
	r := symbols{"start": 0x1000}
	for _, test := range tests {
		v, err := p.Parse(test.expr, r)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", test.expr, err)
			continue
		}
		if v != test.exp {
			t.Errorf("%q: exp: %d, got: %d", test.expr, test.exp, v)
		}
	}
}

func TestHexMode(t *testing.T) {
	p := newExprParser()
	p.hexMode = true
	r := symbols{"loop": 0x2000, "fade": 0x99}

	tests := []struct {
		expr string
		exp  int64
	}{
		{"10", 0x10},
		{"ff+1", 0x100},
		{"0d10", 10},
		{"loop+10", 0x2010},
		{"fade", 0xfade},
		{"fade_", 0},
	}

	r["fade_"] = 0
	for _, test := range tests {
		v, err := p.Parse(test.expr, r)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", test.expr, err)
			continue
		}
		if v != test.exp {
			t.Errorf("%q: exp: $%X, got: $%X", test.expr, test.exp, v)
		}
	}
}

func TestExpressionErrors(t *testing.T) {
	tests := []struct {
		expr string
		err  error
	}{
		{"", errExprParse},
		{"1+", errExprParse},
		{"(1+2", errExprParse},
		{"1+2)", errExprParse},
		{"1 2", errExprParse},
		{"$", errExprParse},
		{"'A", errExprParse},
		{"1 # 2", errExprParse},
		{"4/0", errDivideByZero},
		{"4%(2-2)", errDivideByZero},
		{"3<2", errExprParse},
	}

	p := newExprParser()
	for _, test := range tests {
		_, err := p.Parse(test.expr, symbols{})
		if !errors.Is(err, test.err) {
			t.Errorf("%q: exp error %v, got: %v", test.expr, test.err, err)
		}
	}

	if _, err := p.Parse("missing+1", symbols{}); err == nil {
		t.Error("unknown identifier accepted")
	}
}
