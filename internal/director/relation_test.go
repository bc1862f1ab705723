package director

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/scenecast/director/internal/geom"
)

func twoCameraScene(t *testing.T) ([]geom.Camera, []Subject) {
	t.Helper()
	front := mustCamera(t, "cam-front", mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, -1})
	side := mustCamera(t, "cam-side", mgl64.Vec3{5, 0, 0}, mgl64.Vec3{-1, 0, 0})
	subj := Subject{ID: "s1", Position: mgl64.Vec3{0, 0, 0}, Direction: mgl64.Vec3{0, 0, 1}}
	return []geom.Camera{front, side}, []Subject{subj}
}

func TestBuild_FullMatrix(t *testing.T) {
	cams, subjects := twoCameraScene(t)
	subjects = append(subjects, Subject{ID: "s2", Position: mgl64.Vec3{1, 0, 1}, Direction: mgl64.Vec3{1, 0, 0}})

	table := Build(42, cams, subjects, ScoreConfig{})
	if len(table.Relations) != len(cams)*len(subjects) {
		t.Fatalf("relation count = %d, want %d", len(table.Relations), len(cams)*len(subjects))
	}
	for _, s := range subjects {
		for _, c := range cams {
			if _, ok := table.Get(s.ID, c.ID); !ok {
				t.Errorf("missing relation for (%s, %s)", s.ID, c.ID)
			}
		}
	}
	if table.TimestampNanos != 42 {
		t.Errorf("timestamp = %d, want 42", table.TimestampNanos)
	}
}

func TestRecommend_FrontCameraWins(t *testing.T) {
	// Both cameras see the subject; the one facing the subject's front wins
	// on angle score.
	cams, subjects := twoCameraScene(t)
	table := Build(0, cams, subjects, ScoreConfig{})

	for _, c := range cams {
		rel, _ := table.Get("s1", c.ID)
		if !rel.Visible {
			t.Fatalf("camera %s should see the subject", c.ID)
		}
	}

	rec := table.Recommend("s1")
	if !rec.OK {
		t.Fatal("expected a recommendation")
	}
	if rec.Camera != "cam-front" {
		t.Errorf("recommended %s, want cam-front", rec.Camera)
	}
}

func TestRecommend_ExcludesInvisibleCameras(t *testing.T) {
	front := mustCamera(t, "cam-front", mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, -1})
	away := mustCamera(t, "cam-away", mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, 1})
	subj := Subject{ID: "s1", Position: mgl64.Vec3{0, 0, 0}, Direction: mgl64.Vec3{0, 0, 1}}

	table := Build(0, []geom.Camera{front, away}, []Subject{subj}, ScoreConfig{})
	rec := table.Recommend("s1")
	if !rec.OK || rec.Camera != "cam-front" {
		t.Errorf("got %+v, want cam-front", rec)
	}
}

func TestRecommend_NoneWhenNothingVisible(t *testing.T) {
	away := mustCamera(t, "cam-away", mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, 1})
	subj := Subject{ID: "s1", Position: mgl64.Vec3{0, 0, 0}, Direction: mgl64.Vec3{0, 0, 1}}

	table := Build(0, []geom.Camera{away}, []Subject{subj}, ScoreConfig{})
	rec := table.Recommend("s1")
	if rec.OK {
		t.Errorf("expected no recommendation, got %+v", rec)
	}
	if rec.Camera != "" {
		t.Errorf("camera id must be empty when OK is false, got %q", rec.Camera)
	}
}

func TestRecommend_TieBreaksByLowerCameraID(t *testing.T) {
	// Two identical cameras produce identical scores; the lower id wins.
	a := mustCamera(t, "cam-a", mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, -1})
	b := mustCamera(t, "cam-b", mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, -1})
	subj := Subject{ID: "s1", Position: mgl64.Vec3{0, 0, 0}, Direction: mgl64.Vec3{0, 0, 1}}

	// Feed them in reverse order to prove the tie-break is not input order.
	table := Build(0, []geom.Camera{b, a}, []Subject{subj}, ScoreConfig{})
	rec := table.Recommend("s1")
	if rec.Camera != "cam-a" {
		t.Errorf("tie broke to %s, want cam-a", rec.Camera)
	}
}

func TestForSubject_SortedDescending(t *testing.T) {
	cams, subjects := twoCameraScene(t)
	table := Build(0, cams, subjects, ScoreConfig{})

	rels := table.ForSubject("s1")
	if len(rels) != 2 {
		t.Fatalf("got %d relations, want 2", len(rels))
	}
	if rels[0].Score < rels[1].Score {
		t.Error("relations not sorted by descending score")
	}
}

func TestVisibleSubjectCount(t *testing.T) {
	cams, subjects := twoCameraScene(t)
	subjects = append(subjects, Subject{ID: "s2", Position: mgl64.Vec3{0, 0, 200}, Direction: mgl64.Vec3{0, 0, 1}})
	table := Build(0, cams, subjects, ScoreConfig{})

	if got := table.VisibleSubjectCount("cam-front"); got != 1 {
		t.Errorf("cam-front visible subjects = %d, want 1", got)
	}
}

func TestPrimarySubject(t *testing.T) {
	cams, subjects := twoCameraScene(t)
	table := Build(0, cams, subjects, ScoreConfig{})
	id, ok := table.PrimarySubject()
	if !ok || id != "s1" {
		t.Errorf("primary = %q ok=%v, want s1 true", id, ok)
	}

	empty := Build(0, cams, nil, ScoreConfig{})
	if _, ok := empty.PrimarySubject(); ok {
		t.Error("empty table must report no primary subject")
	}
}
