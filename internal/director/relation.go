package director

import (
	"sort"

	"github.com/scenecast/director/internal/geom"
)

// RelationKey addresses one cell of the relation table. Using a typed pair
// instead of string concatenation prevents the key-format drift that plagues
// loosely keyed maps.
type RelationKey struct {
	Subject SubjectID
	Camera  geom.CameraID
}

// Table is the full subject × camera relation matrix for a single tick. A
// Table is built once, read many times, and superseded wholesale by the next
// tick's table; it is never mutated after Build returns.
type Table struct {
	TimestampNanos int64
	Relations      map[RelationKey]Relation

	subjects []SubjectID
	cameras  []geom.CameraID
}

// Build scores every camera against every subject. Input order is preserved
// in Subjects/Cameras so iteration and tie-breaking stay deterministic.
func Build(timestampNanos int64, cameras []geom.Camera, subjects []Subject, cfg ScoreConfig) *Table {
	t := &Table{
		TimestampNanos: timestampNanos,
		Relations:      make(map[RelationKey]Relation, len(cameras)*len(subjects)),
		subjects:       make([]SubjectID, 0, len(subjects)),
		cameras:        make([]geom.CameraID, 0, len(cameras)),
	}
	for _, c := range cameras {
		t.cameras = append(t.cameras, c.ID)
	}
	for _, s := range subjects {
		t.subjects = append(t.subjects, s.ID)
		for _, c := range cameras {
			t.Relations[RelationKey{Subject: s.ID, Camera: c.ID}] = Score(c, s, cfg)
		}
	}
	return t
}

// Subjects returns subject ids in input order.
func (t *Table) Subjects() []SubjectID { return t.subjects }

// Cameras returns camera ids in input order.
func (t *Table) Cameras() []geom.CameraID { return t.cameras }

// Get returns the relation for a pair, if present.
func (t *Table) Get(subject SubjectID, camera geom.CameraID) (Relation, bool) {
	rel, ok := t.Relations[RelationKey{Subject: subject, Camera: camera}]
	return rel, ok
}

// ForSubject returns all relations for one subject, sorted by descending
// composite score with camera id as the deterministic tie-break.
func (t *Table) ForSubject(subject SubjectID) []Relation {
	rels := make([]Relation, 0, len(t.cameras))
	for _, c := range t.cameras {
		if rel, ok := t.Get(subject, c); ok {
			rels = append(rels, rel)
		}
	}
	sort.SliceStable(rels, func(i, j int) bool {
		if rels[i].Score != rels[j].Score {
			return rels[i].Score > rels[j].Score
		}
		return rels[i].Camera < rels[j].Camera
	})
	return rels
}

// VisibleSubjectCount returns how many subjects the camera currently frames.
func (t *Table) VisibleSubjectCount(camera geom.CameraID) int {
	n := 0
	for _, s := range t.subjects {
		if rel, ok := t.Get(s, camera); ok && rel.Visible {
			n++
		}
	}
	return n
}

// Recommendation is the chosen camera for the primary subject. OK is false
// when no camera frames the subject; callers must handle that rather than
// assume a camera always exists.
type Recommendation struct {
	Subject SubjectID     `json:"subject_id"`
	Camera  geom.CameraID `json:"camera_id"`
	Score   float64       `json:"score"`
	OK      bool          `json:"ok"`
}

// Recommend picks the highest-scoring visible camera for the given subject.
func (t *Table) Recommend(subject SubjectID) Recommendation {
	rec := Recommendation{Subject: subject}
	for _, rel := range t.ForSubject(subject) {
		if rel.Visible {
			rec.Camera = rel.Camera
			rec.Score = rel.Score
			rec.OK = true
			return rec
		}
	}
	return rec
}

// PrimarySubject returns the first tracked subject, the one recommendations
// are scoped to. OK is false for an empty table.
func (t *Table) PrimarySubject() (SubjectID, bool) {
	if len(t.subjects) == 0 {
		return "", false
	}
	return t.subjects[0], true
}
