package game_object

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

func TestDefaults(t *testing.T) {
	obj := NewGameObject(WithID(7))
	if obj.ID() != 7 {
		t.Errorf("ID() = %d", obj.ID())
	}
	if obj.Scale() != (mgl32.Vec3{1, 1, 1}) {
		t.Errorf("Scale() = %v, want unit scale", obj.Scale())
	}
	if obj.Vertices() != nil || obj.Indices() != nil {
		t.Error("object without a model should expose no geometry")
	}
	if !obj.WorldTransform().ApproxEqualThreshold(mgl32.Ident4(), 1e-6) {
		t.Errorf("WorldTransform() = %v, want identity", obj.WorldTransform())
	}
}

func TestGeometryComesFromModel(t *testing.T) {
	quad := model.NewQuad()
	obj := NewGameObject(WithModel(quad))
	if len(obj.Vertices()) != 4 || len(obj.Indices()) != 6 {
		t.Errorf("got %d vertices, %d indices", len(obj.Vertices()), len(obj.Indices()))
	}
	if obj.Model() != quad {
		t.Error("Model() did not return the configured model")
	}
}

func TestWorldTransformTracksSetters(t *testing.T) {
	obj := NewGameObject(WithPosition(mgl32.Vec3{1, 2, 3}))
	p := obj.WorldTransform().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if !p.Vec3().ApproxEqualThreshold(mgl32.Vec3{1, 2, 3}, 1e-6) {
		t.Errorf("origin maps to %v", p)
	}

	obj.SetScale(mgl32.Vec3{2, 2, 2})
	obj.SetPosition(mgl32.Vec3{})
	obj.SetRotation(mgl32.Vec3{0, mgl32.DegToRad(90), 0})
	got := obj.WorldTransform().Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	want := mgl32.Vec3{0, 0, -2}
	if !got.ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("rotated point = %v, want %v", got, want)
	}
}
