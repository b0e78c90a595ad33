/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scenario

import (
	"encoding/json"
	"fmt"
)

// Item is the kind-specific payload of a node.
type Item interface {
	Kind() Kind
	Clone() Item
}

// Color is an RGB triple in 0..255.
type Color struct {
	R uint32 `json:"r"`
	G uint32 `json:"g"`
	B uint32 `json:"b"`
}

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Dimension struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Rect is a position plus a dimension in canvas pixels.
type Rect struct {
	Pos Position  `json:"pos"`
	Dim Dimension `json:"dim"`
}

// LabelType says whether a node defines a label, references one, or neither.
type LabelType int

const (
	LabelNone LabelType = iota
	LabelDef
	LabelRef
	LabelRefNoRect
)

var labelTypeNames = []string{"None", "Def", "Ref", "RefNoRect"}

func (t LabelType) String() string {
	if t < 0 || int(t) >= len(labelTypeNames) {
		return fmt.Sprintf("LabelType(%d)", int(t))
	}
	return labelTypeNames[t]
}

func ParseLabelType(s string) (LabelType, error) {
	for i, n := range labelTypeNames {
		if n == s {
			return LabelType(i), nil
		}
	}
	return LabelNone, fmt.Errorf("unknown label type %q", s)
}

func (t LabelType) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *LabelType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseLabelType(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Label is a node's label slot. A zero Label means "no label".
type Label struct {
	Type LabelType
	Name string
}

func (l Label) IsDef() bool { return l.Type == LabelDef && l.Name != "" }

func (l Label) IsRef() bool {
	return (l.Type == LabelRef || l.Type == LabelRefNoRect) && l.Name != ""
}

type Group struct{}

func (*Group) Kind() Kind    { return KindGroup }
func (g *Group) Clone() Item { c := *g; return &c }

type Scene struct {
	BgImg       string    `json:"bgimg,omitempty"`
	BgEnabled   bool      `json:"bg_en"`
	BgColor     Color     `json:"bgcol"`
	Crop        Rect      `json:"crop"`
	CropEnabled bool      `json:"crop_en"`
	LabelName   string    `json:"lbl,omitempty"`
	LabelType   LabelType `json:"lbl_type"`
}

func NewScene() *Scene {
	return &Scene{
		BgEnabled: true,
		BgColor:   Color{128, 128, 128},
		Crop:      Rect{Dim: Dimension{100, 100}},
	}
}

func (*Scene) Kind() Kind    { return KindScene }
func (s *Scene) Clone() Item { c := *s; return &c }

type Page struct {
	Name string `json:"name"`
}

func (*Page) Kind() Kind    { return KindPage }
func (p *Page) Clone() Item { c := *p; return &c }

// Mat is a text box drawn over a page. Pmat shares the same fields.
type Mat struct {
	Color        Color     `json:"col"`
	Pos          Position  `json:"pos"`
	Dim          Dimension `json:"dim"`
	Radius       int       `json:"r"`
	Alpha        int       `json:"a"`
	Src          string    `json:"src,omitempty"`
	LabelName    string    `json:"lbl,omitempty"`
	LabelType    LabelType `json:"lbl_type"`
	Name         string    `json:"name"`
	FontColor    Color     `json:"font_col"`
	FontAlpha    int       `json:"font_a"`
	FontWeight   string    `json:"font_weight"`
	FontColor2   Color     `json:"font_col_2"`
	FontAlpha2   int       `json:"font_a_2"`
	FontOutline2 float64   `json:"font_outl_2"`
	FontWeight2  string    `json:"font_weight_2"`
	FontSize     int       `json:"font_size"`
	FontFamily   string    `json:"font_family"`
	LineSpacing  float64   `json:"line_spacing"`
	Vertical     bool      `json:"vertical"`
	Text         string    `json:"text"`
	BgImg        string    `json:"bgimg,omitempty"`
	BgEnabled    bool      `json:"bg_en"`
	TextPos      Position  `json:"text_pos"`
}

func NewMat() *Mat {
	return &Mat{
		Color:        Color{105, 124, 144},
		Dim:          Dimension{100, 100},
		Radius:       8,
		Alpha:        134,
		Name:         "mat",
		FontColor:    Color{0, 0, 0},
		FontAlpha:    162,
		FontWeight:   "Bold",
		FontColor2:   Color{255, 255, 255},
		FontAlpha2:   177,
		FontOutline2: 4.0,
		FontWeight2:  "Normal",
		FontSize:     22,
		FontFamily:   "Rounded M+ 1m",
		LineSpacing:  0.8,
		Text:         "text",
	}
}

func (*Mat) Kind() Kind    { return KindMat }
func (m *Mat) Clone() Item { c := *m; return &c }

// Pmat is a mat placed directly in a scene, next to pages.
type Pmat struct {
	Mat
}

func NewPmat() *Pmat { return &Pmat{Mat: *NewMat()} }

func (*Pmat) Kind() Kind    { return KindPmat }
func (p *Pmat) Clone() Item { c := *p; return &c }

// Ovimg is an overlay image on a page.
type Ovimg struct {
	Path  string   `json:"path,omitempty"`
	Pos   Position `json:"pos"`
	Alpha float64  `json:"a"`
}

func NewOvimg() *Ovimg { return &Ovimg{Alpha: 1.0} }

func (*Ovimg) Kind() Kind    { return KindOvimg }
func (o *Ovimg) Clone() Item { c := *o; return &c }

// NewItem returns an item of kind k filled with defaults.
func NewItem(k Kind) (Item, error) {
	switch k {
	case KindGroup:
		return &Group{}, nil
	case KindScene:
		return NewScene(), nil
	case KindPage:
		return &Page{}, nil
	case KindMat:
		return NewMat(), nil
	case KindOvimg:
		return NewOvimg(), nil
	case KindPmat:
		return NewPmat(), nil
	}
	return nil, fmt.Errorf("new item: %v", k)
}

// MarshalItem encodes it as a JSON object tagged with "type".
func MarshalItem(it Item) ([]byte, error) {
	if it == nil {
		return nil, fmt.Errorf("marshal item: nil")
	}
	body, err := json.Marshal(it)
	if err != nil {
		return nil, fmt.Errorf("marshal %v: %w", it.Kind(), err)
	}
	tag, _ := json.Marshal(it.Kind().String())
	out := make([]byte, 0, len(body)+len(tag)+10)
	out = append(out, `{"type":`...)
	out = append(out, tag...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}

// UnmarshalItem decodes a "type"-tagged JSON object. Missing fields keep their defaults.
func UnmarshalItem(b []byte) (Item, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	k, err := ParseKind(head.Type)
	if err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	it, _ := NewItem(k)
	if err := json.Unmarshal(b, it); err != nil {
		return nil, fmt.Errorf("unmarshal %v: %w", k, err)
	}
	return it, nil
}
