package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/agristream/livescript/internal/domain"
)

func TestMaterialRepo_Lifecycle(t *testing.T) {
	db := newTestDB(t, &domain.Material{})
	ctx := context.Background()

	m := &domain.Material{Platform: "mock", VideoID: "v-1", Title: "脐橙采摘", Keyword: "脐橙", Tags: []string{"水果"}}
	if err := CreateMaterial(ctx, db, m); err != nil {
		t.Fatalf("CreateMaterial: %v", err)
	}
	if m.Status != domain.MaterialCollected {
		t.Fatalf("status = %q", m.Status)
	}
	dup := &domain.Material{Platform: "mock", VideoID: "v-1", Title: "again"}
	if err := CreateMaterial(ctx, db, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}

	if err := SetTranscript(ctx, db, m.ID, "大家好"); err != nil {
		t.Fatalf("SetTranscript: %v", err)
	}
	got, err := GetMaterial(ctx, db, m.ID)
	if err != nil || got.Transcript != "大家好" || got.Status != domain.MaterialTranscribed || got.Tags[0] != "水果" {
		t.Fatalf("GetMaterial: %+v err=%v", got, err)
	}
	if err := SetTranscript(ctx, db, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	n, err := CountMaterials(ctx, db, MaterialFilter{Status: domain.MaterialTranscribed})
	if err != nil || n != 1 {
		t.Fatalf("CountMaterials: n=%d err=%v", n, err)
	}
	list, err := ListMaterialsPage(ctx, db, MaterialFilter{Keyword: "苹果"}, 0, 10)
	if err != nil || len(list) != 0 {
		t.Fatalf("ListMaterialsPage: %v err=%v", list, err)
	}
	if err := DeleteMaterial(ctx, db, m.ID); err != nil {
		t.Fatalf("DeleteMaterial: %v", err)
	}
}
