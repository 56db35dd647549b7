package instrument

import (
	"sort"
)

// Kind tags a control descriptor variant.
type Kind int

const (
	KindKnob Kind = iota
	KindSwitch
	KindSlider
	KindImage
	KindText
)

var kindNames = map[Kind]string{
	KindKnob:   "knob",
	KindSwitch: "switch",
	KindSlider: "slider",
	KindImage:  "image",
	KindText:   "text",
}

func (k Kind) String() string {
	return kindNames[k]
}

// elementKinds lists the GUI element names that produce controls.
var elementKinds = map[string]Kind{
	"Knob":        KindKnob,
	"OnOffButton": KindSwitch,
	"Slider":      KindSlider,
	"StaticImage": KindImage,
	"StaticText":  KindText,
}

// Geometry is a control's placement in descriptor pixels.
type Geometry struct {
	X, Y, W, H int
}

// Sprite describes a multi-frame image strip.
type Sprite struct {
	Frames int
	Value  int
	Max    int
	Step   int
}

// Control is a renderer-agnostic GUI control descriptor.
// It is one of *Knob, *Switch, *Slider, *Image or *Text.
type Control interface {
	Kind() Kind
	Bounds() Geometry
}

// Knob is a rotary control.
type Knob struct {
	Geometry
	Image    string
	Param    string
	Sprite   *Sprite
	Vertical bool
}

// Switch is a two-state button.
type Switch struct {
	Geometry
	Image  string
	Param  string
	Sprite *Sprite
}

// Slider is a linear control with a background and a handle.
type Slider struct {
	Geometry
	Background string
	Handle     string
	Param      string
	Sprite     *Sprite
	Vertical   bool
}

// Image is a static picture.
type Image struct {
	Geometry
	Image string
}

// Text is a static label.
type Text struct {
	Geometry
	Text  string
	Color string
}

func (*Knob) Kind() Kind   { return KindKnob }
func (*Switch) Kind() Kind { return KindSwitch }
func (*Slider) Kind() Kind { return KindSlider }
func (*Image) Kind() Kind  { return KindImage }
func (*Text) Kind() Kind   { return KindText }

func (g Geometry) Bounds() Geometry { return g }

// BuildControls projects the recognized GUI elements of def into control
// descriptors. The result is one list in document order across all element
// types, not grouped by type, so overlapping controls stack the way the
// descriptor draws them. Image attributes are rewritten to
// root + "GUI/" + value. Other element types are ignored.
func BuildControls(def Definition, root string) []Control {
	var elements []*Element
	for name := range elementKinds {
		elements = append(elements, def[name]...)
	}
	sort.Slice(elements, func(i, j int) bool {
		return elements[i].Index < elements[j].Index
	})

	controls := make([]Control, 0, len(elements))
	for _, el := range elements {
		controls = append(controls, buildControl(el, root))
	}
	return controls
}

func buildControl(el *Element, root string) Control {
	geo := geometryOf(el)
	param := el.Attrs["param"]

	switch elementKinds[el.Name] {
	case KindKnob:
		return &Knob{
			Geometry: geo,
			Image:    guiResource(el, "image", root),
			Param:    param,
			Sprite:   spriteOf(el),
			Vertical: isVertical(el),
		}
	case KindSwitch:
		return &Switch{
			Geometry: geo,
			Image:    guiResource(el, "image", root),
			Param:    param,
			Sprite:   spriteOf(el),
		}
	case KindSlider:
		return &Slider{
			Geometry:   geo,
			Background: guiResource(el, "image_bg", root),
			Handle:     guiResource(el, "image_handle", root),
			Param:      param,
			Sprite:     spriteOf(el),
			Vertical:   isVertical(el),
		}
	case KindImage:
		return &Image{
			Geometry: geo,
			Image:    guiResource(el, "image", root),
		}
	default:
		color := el.Attrs["color_text"]
		if color == "" {
			color = el.Attrs["color"]
		}
		return &Text{
			Geometry: geo,
			Text:     el.Attrs["text"],
			Color:    color,
		}
	}
}

func geometryOf(el *Element) Geometry {
	x, _ := el.Int("x")
	y, _ := el.Int("y")
	w, _ := el.Int("w")
	h, _ := el.Int("h")
	return Geometry{X: x, Y: y, W: w, H: h}
}

func spriteOf(el *Element) *Sprite {
	frames, ok := el.Int("frames")
	if !ok || frames <= 0 {
		return nil
	}
	return &Sprite{Frames: frames, Value: 0, Max: frames - 1, Step: 1}
}

func isVertical(el *Element) bool {
	return el.Attrs["orientation"] == "vertical"
}

func guiResource(el *Element, attr, root string) string {
	v, ok := el.Attrs[attr]
	if !ok || v == "" {
		return ""
	}
	return root + "GUI/" + v
}
