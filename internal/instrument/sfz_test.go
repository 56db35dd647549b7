package instrument

import (
	"errors"
	"testing"
)

const pianoSFZ = `// Grand piano
<control>
default_path=/GUI/ // samples live next to the GUI
#define $VEL 127

<global> amp_veltrack=$VEL
<master> volume=-3
<group> hikey=72
/* first layer
   spans two lines */
<region> sample=..\Samples\C4 soft.wav lokey=60
<region>sample=../Samples/D4.wav lokey=d4 pitch_keycenter=62
<master>
<region> sample=../Other/E4.wav lokey=64
<curve> curve_index=7 v000=0
`

func TestParseSFZ(t *testing.T) {
	def, err := ParseSFZ(pianoSFZ)
	if err != nil {
		t.Fatalf("ParseSFZ failed: %v", err)
	}

	t.Run("ElementsInDocumentOrder", func(t *testing.T) {
		counts := map[string]int{"control": 1, "global": 1, "master": 2, "group": 1, "region": 3, "curve": 1}
		for name, n := range counts {
			if len(def[name]) != n {
				t.Errorf("Expected %d %s elements, got %d", n, name, len(def[name]))
			}
		}
		regions := def["region"]
		for i := 1; i < len(regions); i++ {
			if regions[i].Index <= regions[i-1].Index {
				t.Error("Expected regions in document order")
			}
		}
	})

	t.Run("ValuesWithSpacesAndComments", func(t *testing.T) {
		control, _ := def.First("control")
		if v := control.Attrs["default_path"]; v != "/GUI/" {
			t.Errorf("Expected default_path %q, got %q", "/GUI/", v)
		}
		first := def["region"][0]
		if v := first.Attrs["sample"]; v != `..\Samples\C4 soft.wav` {
			t.Errorf("Expected sample with spaces, got %q", v)
		}
		if v := first.Attrs["lokey"]; v != "60" {
			t.Errorf("Expected lokey 60, got %q", v)
		}
	})

	t.Run("DefinesAreExpanded", func(t *testing.T) {
		global, _ := def.First("global")
		if v := global.Attrs["amp_veltrack"]; v != "127" {
			t.Errorf("Expected $VEL to expand to 127, got %q", v)
		}
	})

	t.Run("InheritanceScansOutward", func(t *testing.T) {
		region := def["region"][1]
		if v, ok := region.Lookup("hikey"); !ok || v != "72" {
			t.Errorf("Expected hikey from group, got %q", v)
		}
		if v, ok := region.Lookup("volume"); !ok || v != "-3" {
			t.Errorf("Expected volume from master, got %q", v)
		}
		if v, ok := region.Lookup("default_path"); !ok || v != "/GUI/" {
			t.Errorf("Expected default_path from control, got %q", v)
		}
		if _, ok := region.Get("volume"); ok {
			t.Error("Expected inherited opcodes not to be copied into the region")
		}
	})

	t.Run("NewMasterClosesGroup", func(t *testing.T) {
		last := def["region"][2]
		if last.Parent == nil || last.Parent.Name != "master" {
			t.Fatalf("Expected last region to sit under the second master")
		}
		if _, ok := last.Lookup("hikey"); ok {
			t.Error("Expected the group to be closed by the second master")
		}
		master, _ := def.First("master")
		if got := len(master.Descendants("region")); got != 2 {
			t.Errorf("Expected 2 regions below the first master, got %d", got)
		}
	})

	t.Run("UnknownHeadersPreserved", func(t *testing.T) {
		curve, ok := def.First("curve")
		if !ok || curve.Attrs["v000"] != "0" || curve.Attrs["curve_index"] != "7" {
			t.Errorf("Expected curve header to be preserved verbatim, got %+v", curve)
		}
	})
}

func TestParseSFZInclude(t *testing.T) {
	def, err := ParseSFZ("#include \"common/ctrl.sfz\"\n<region> sample=a.wav")
	if err != nil {
		t.Fatalf("ParseSFZ failed: %v", err)
	}
	inc, ok := def.First("include")
	if !ok || inc.Attrs["path"] != "common/ctrl.sfz" {
		t.Errorf("Expected include element, got %+v", inc)
	}
}

func TestParseSFZErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{name: "unterminated header", input: "<region sample=a.wav", line: 1},
		{name: "opcode before header", input: "\nsample=a.wav", line: 2},
		{name: "bare word", input: "<region> sample=a.wav\nloud", line: 2},
		{name: "unterminated comment", input: "<region>\n/* never closed", line: 2},
		{name: "bad define", input: "#define VEL 127", line: 1},
		{name: "unknown directive", input: "#pragma once", line: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSFZ(tt.input)
			if !errors.Is(err, ErrParse) {
				t.Fatalf("Expected ErrParse, got %v", err)
			}
			var pErr *ParseError
			if !errors.As(err, &pErr) || pErr.Line != tt.line {
				t.Errorf("Expected error on line %d, got %v", tt.line, err)
			}
		})
	}
}

func TestNoteNumber(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		ok       bool
	}{
		{"60", 60, true},
		{"c4", 60, true},
		{"C#4", 61, true},
		{"db4", 61, true},
		{"a-1", 9, true},
		{"b3", 59, true},
		{"h4", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			n, ok := NoteNumber(tt.input)
			if ok != tt.ok || n != tt.expected {
				t.Errorf("NoteNumber(%q) = %d, %v; expected %d, %v", tt.input, n, ok, tt.expected, tt.ok)
			}
		})
	}
}
