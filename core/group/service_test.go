package group_test

import (
	"context"
	"strings"
	"testing"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/group"
	"github.com/trezcool/mahudhurio/core/schedule"
	dummydb "github.com/trezcool/mahudhurio/storage/database/dummy"
)

var ctx = context.Background()

func setup(t *testing.T) group.Service {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	return group.NewService(dummydb.NewGroupRepository(db))
}

func addGroup(t *testing.T, svc group.Service, name, startTime string, level int, days ...string) group.Group {
	t.Helper()
	grp, err := svc.Create(ctx, group.NewGroup{Name: name, StartTime: startTime, Level: level, Days: days})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	return grp
}

func TestNewGroupValidation(t *testing.T) {
	svc := setup(t)
	addGroup(t, svc, "Group A", "16:00", 1, "Saturday", "Sunday", "Monday")

	tests := []struct {
		name    string
		ng      group.NewGroup
		wantErr string
	}{
		{
			name: "valid",
			ng:   group.NewGroup{Name: "Group B", StartTime: "18:00", Level: 2, Days: []string{"Tuesday", "Wednesday", "Thursday"}},
		},
		{
			name:    "bad start time",
			ng:      group.NewGroup{Name: "Group C", StartTime: "25:00", Level: 1, Days: []string{"Monday"}},
			wantErr: "clocktime",
		},
		{
			name:    "unknown day",
			ng:      group.NewGroup{Name: "Group C", StartTime: "16:00", Level: 1, Days: []string{"Blursday"}},
			wantErr: "rosterdays",
		},
		{
			name:    "repeated day",
			ng:      group.NewGroup{Name: "Group C", StartTime: "16:00", Level: 1, Days: []string{"Monday", "Monday"}},
			wantErr: "rosterdays",
		},
		{
			name:    "level out of range",
			ng:      group.NewGroup{Name: "Group C", StartTime: "16:00", Level: 4, Days: []string{"Monday"}},
			wantErr: "'level' failed on the 'max' tag",
		},
		{
			name:    "duplicate name and level",
			ng:      group.NewGroup{Name: "group a", StartTime: "17:00", Level: 1, Days: []string{"Monday"}},
			wantErr: "already exists",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ng.Validate(svc)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() failed: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			if vErr, ok := err.(*core.ValidationError); ok {
				if !strings.Contains(vErr.Fields[0].Error, tt.wantErr) {
					t.Errorf("error = %q; want contains %q", vErr.Fields[0].Error, tt.wantErr)
				}
				return
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q; want contains %q", err, tt.wantErr)
			}
		})
	}
}

func TestGroupSameNameDifferentLevelAllowed(t *testing.T) {
	svc := setup(t)
	addGroup(t, svc, "Group A", "16:00", 1, "Monday")

	ng := group.NewGroup{Name: "Group A", StartTime: "16:00", Level: 2, Days: []string{"Monday"}}
	if err := ng.Validate(svc); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if _, err := svc.Create(ctx, ng); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
}

func TestGroupQueryByDay(t *testing.T) {
	svc := setup(t)
	addGroup(t, svc, "Group A", "16:00", 1, "Saturday", "Sunday", "Monday")
	addGroup(t, svc, "Group B", "18:00", 2, "Tuesday", "Wednesday", "Thursday")

	groups, err := svc.QueryByDay(ctx, schedule.Monday)
	if err != nil {
		t.Fatalf("QueryByDay() failed: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "Group A" {
		t.Errorf("groups = %+v", groups)
	}

	groups, err = svc.QueryByDay(ctx, schedule.Friday)
	if err != nil {
		t.Fatalf("QueryByDay() failed: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("expected no groups on Friday, got %+v", groups)
	}
}

func TestGroupUpdate(t *testing.T) {
	svc := setup(t)
	grp := addGroup(t, svc, "Group A", "16:00", 1, "Monday")

	ug := group.UpdateGroup{StartTime: "17:30", Days: []string{"Tuesday", "Wednesday"}}
	if err := ug.Validate(grp, svc); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	updated, err := svc.Update(ctx, grp.ID, ug)
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if updated.Name != "Group A" || updated.StartTime != "17:30" || updated.Level != 1 {
		t.Errorf("updated = %+v", updated)
	}
	if !updated.ScheduledOn(schedule.Tuesday) || updated.ScheduledOn(schedule.Monday) {
		t.Errorf("days = %v", updated.Days)
	}

	if _, err = svc.Update(ctx, 999, group.UpdateGroup{}); err != group.ErrNotFound {
		t.Errorf("error = %v; want %v", err, group.ErrNotFound)
	}
}

func TestGroupFilter(t *testing.T) {
	svc := setup(t)
	addGroup(t, svc, "Group A", "16:00", 1, "Monday")
	addGroup(t, svc, "Group B", "18:00", 2, "Tuesday")
	addGroup(t, svc, "Evening C", "20:00", 2, "Tuesday")

	groups, meta, err := svc.Filter(ctx, group.QueryFilter{Search: "group"})
	if err != nil {
		t.Fatalf("Filter() failed: %v", err)
	}
	if len(groups) != 2 || meta.Total != 2 {
		t.Errorf("groups = %+v; meta = %+v", groups, meta)
	}

	groups, meta, err = svc.Filter(ctx, group.QueryFilter{Level: 2, Day: schedule.Tuesday})
	if err != nil {
		t.Fatalf("Filter() failed: %v", err)
	}
	if len(groups) != 2 || meta.Total != 2 {
		t.Errorf("groups = %+v; meta = %+v", groups, meta)
	}

	groups, meta, err = svc.Filter(ctx, group.QueryFilter{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("Filter() failed: %v", err)
	}
	if len(groups) != 1 || meta.Total != 3 || meta.TotalPages != 2 {
		t.Errorf("groups = %+v; meta = %+v", groups, meta)
	}
}

func TestGroupDelete(t *testing.T) {
	svc := setup(t)
	a := addGroup(t, svc, "Group A", "16:00", 1, "Monday")
	b := addGroup(t, svc, "Group B", "18:00", 2, "Tuesday")

	if err := svc.Delete(ctx, a.ID, b.ID); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if _, err := svc.GetByID(ctx, a.ID); err != group.ErrNotFound {
		t.Errorf("error = %v; want %v", err, group.ErrNotFound)
	}
}
