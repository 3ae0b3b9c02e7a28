package types

// Size is a width/height pair in CSS pixels
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Valid reports whether both dimensions are positive
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// AspectRatio returns width/height, or 0 for an invalid size
func (s Size) AspectRatio() float64 {
	if !s.Valid() {
		return 0
	}
	return s.Width / s.Height
}

// Anchor is an overlay position expressed as a percentage of the rendered
// image box. Values outside [0,100] are allowed and used literally.
type Anchor struct {
	XPercent float64 `json:"xPercent" yaml:"x_percent"`
	YPercent float64 `json:"yPercent" yaml:"y_percent"`
}

// RenderedBox is the on-screen footprint of a contained image relative to
// its container's top-left corner.
type RenderedBox struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Scale   float64 `json:"scale"`
}

// Baseline holds the reference geometry of an overlay in scale-aware mode.
// Sizes are multiplied by the rendered box scale on every layout pass.
type Baseline struct {
	Width    float64         `json:"width"`
	Height   float64         `json:"height"`
	FontSize float64         `json:"fontSize"`
	Parts    map[string]Size `json:"parts,omitempty"`
}

// IsZero reports whether nothing was measured
func (b Baseline) IsZero() bool {
	return b.Width == 0 && b.Height == 0 && b.FontSize == 0 && len(b.Parts) == 0
}

// ContainerState describes the tracked container during one layout pass
type ContainerState struct {
	ImageURL    string      `json:"imageUrl,omitempty"`
	Container   Size        `json:"container"`
	NaturalSize *Size       `json:"naturalSize,omitempty"`
	Box         RenderedBox `json:"renderedBox"`
}

// Placement is the absolute position applied to one overlay
type Placement struct {
	ID     string  `json:"id"`
	Anchor Anchor  `json:"anchor"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Scale  float64 `json:"scale"`
}

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Center returns the normalized center point of the box
func (b Box) Center() (float64, float64) {
	return b.X + b.W/2, b.Y + b.H/2
}

// Location is a labelled region reported by a vision model
type Location struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// LocateResult contains the regions found for one query
type LocateResult struct {
	Locations   []Location `json:"locations"`
	Description string     `json:"description"`
}
