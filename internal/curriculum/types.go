// Package curriculum holds the static topic catalog and per-session
// curriculum state for a student.
package curriculum

// GradeLevel selects one of the three curriculum tracks. It is chosen once
// per session and immutable afterwards.
type GradeLevel string

const (
	GradeJunior   GradeLevel = "JUNIOR"
	GradeExplorer GradeLevel = "EXPLORER"
	GradePro      GradeLevel = "PRO"
)

// Grades lists all grade levels in presentation order.
func Grades() []GradeLevel {
	return []GradeLevel{GradeJunior, GradeExplorer, GradePro}
}

// Valid reports whether g names a known grade level.
func (g GradeLevel) Valid() bool {
	switch g {
	case GradeJunior, GradeExplorer, GradePro:
		return true
	}
	return false
}

// Band returns the school-grade band a level is aimed at.
func (g GradeLevel) Band() string {
	switch g {
	case GradeJunior:
		return "Grades 4-6"
	case GradeExplorer:
		return "Grades 7-9"
	case GradePro:
		return "Grades 10-12"
	default:
		return ""
	}
}

// Topic is one step on a curriculum's forward-progress path. Completed only
// ever flips false to true, in catalog order.
type Topic struct {
	Name      string `yaml:"name" json:"name"`
	Duration  string `yaml:"duration" json:"duration"`
	Completed bool   `yaml:"-" json:"completed"`
}

// Curriculum is an ordered topic sequence. Instances handed out by the
// catalog are deep copies; mutating them never touches the catalog.
type Curriculum struct {
	Title  string  `yaml:"title" json:"title"`
	Topics []Topic `yaml:"topics" json:"topics"`
}

// Clone returns an independent deep copy.
func (c Curriculum) Clone() Curriculum {
	out := Curriculum{Title: c.Title}
	out.Topics = make([]Topic, len(c.Topics))
	copy(out.Topics, c.Topics)
	return out
}

// CurrentTopic returns the first incomplete topic. ok is false once every
// topic is complete (or the curriculum is empty).
func (c Curriculum) CurrentTopic() (Topic, bool) {
	for _, t := range c.Topics {
		if !t.Completed {
			return t, true
		}
	}
	return Topic{}, false
}

// CompleteCurrent marks the first incomplete topic complete and returns it,
// along with the topic that becomes current afterwards. done is false when
// there was nothing left to complete.
func (c *Curriculum) CompleteCurrent() (completed Topic, next Topic, done bool, hasNext bool) {
	for i := range c.Topics {
		if !c.Topics[i].Completed {
			c.Topics[i].Completed = true
			completed = c.Topics[i]
			if i+1 < len(c.Topics) {
				return completed, c.Topics[i+1], true, true
			}
			return completed, Topic{}, true, false
		}
	}
	return Topic{}, Topic{}, false, false
}

// CompletedCount returns how many topics are complete.
func (c Curriculum) CompletedCount() int {
	n := 0
	for _, t := range c.Topics {
		if t.Completed {
			n++
		}
	}
	return n
}

// Finished reports whether every topic is complete.
func (c Curriculum) Finished() bool {
	return len(c.Topics) > 0 && c.CompletedCount() == len(c.Topics)
}
