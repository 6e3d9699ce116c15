package classifier

// State is the capture state of a Segment.
type State int

const (
	Closed State = iota // target day not reached yet
	Open                // capturing the target day's lines
	Done                // next day or a terminator ended the segment
)

// Segment tracks capture across a stream of text units. At most one
// segment is open at a time, and the target day's own marker is never
// captured as a dish.
type Segment struct {
	c      *Classifier
	target int
	state  State
	found  bool
}

// NewSegment starts a closed segment for the target weekday index.
func (c *Classifier) NewSegment(target int) *Segment {
	return &Segment{c: c, target: target}
}

// Feed classifies the next unit and advances the capture state.
// markerAllowed is false for units that may not act as day markers; such
// units are noise when they look like one.
func (s *Segment) Feed(text string, markerAllowed bool) Line {
	if s.state == Done {
		return Line{Kind: Noise, Text: text, Day: -1}
	}

	line := s.c.Classify(text, s.target, s.state == Open)
	if line.Kind == DayMarker {
		switch {
		case !markerAllowed:
			line.Kind = Noise
		case line.Day == s.target && s.state == Open:
			// repeated badge of today's name inside the segment
			line.Kind = Noise
		case line.Day == s.target:
			s.state = Open
			s.found = true
		case s.state == Open:
			s.state = Done
		}
		if line.Kind == Noise {
			line.Day = -1
		}
		return line
	}

	if s.state == Open && s.c.IsTerminator(text) {
		s.state = Done
		return Line{Kind: Noise, Text: TrimDecoration(text), Day: -1}
	}
	return line
}

// State returns the current capture state.
func (s *Segment) State() State { return s.state }

// Found reports whether the target day's marker was seen.
func (s *Segment) Found() bool { return s.found }

// Done reports whether the segment has closed and scanning can stop.
func (s *Segment) Done() bool { return s.state == Done }

// Collector accumulates dish lines in insertion order, dropping exact
// duplicates. The first vegetarian line becomes the sideband; later ones
// are kept as ordinary dishes. A dish right after a vegetarian label line
// counts as vegetarian.
type Collector struct {
	dishes     []string
	vegetarian string
	seen       map[string]bool
	labeled    bool
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{seen: make(map[string]bool)}
}

// Add records a classified line. Noise and day markers are ignored.
func (c *Collector) Add(l Line) {
	if l.Kind == Noise && l.Label {
		c.labeled = true
		return
	}
	if l.Kind != Dish && l.Kind != Vegetarian {
		return
	}
	if c.labeled {
		l.Kind = Vegetarian
		c.labeled = false
	}
	text := TrimDecoration(l.Text)
	if text == "" || c.seen[text] {
		return
	}
	c.seen[text] = true

	if l.Kind == Vegetarian && c.vegetarian == "" {
		c.vegetarian = text
		return
	}
	c.dishes = append(c.dishes, text)
}

// Dishes returns the ordinary dish lines.
func (c *Collector) Dishes() []string { return c.dishes }

// Vegetarian returns the sideband line, or "".
func (c *Collector) Vegetarian() string { return c.vegetarian }

// Len counts every collected line including the sideband.
func (c *Collector) Len() int {
	n := len(c.dishes)
	if c.vegetarian != "" {
		n++
	}
	return n
}
