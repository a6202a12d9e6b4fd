package core

import (
	"testing"
	"time"
)

func TestConfigLoads(t *testing.T) {
	if Conf == nil {
		t.Fatal("Conf not initialized")
	}
	if Conf.DefaultFromEmail.Address != "noreply@localhost" {
		t.Errorf("DefaultFromEmail = %q; want noreply@localhost", Conf.DefaultFromEmail.Address)
	}
	if Conf.Attendance.GraceBefore != time.Hour || Conf.Attendance.GraceAfter != time.Hour {
		t.Errorf("grace window = %v/%v; want 1h/1h", Conf.Attendance.GraceBefore, Conf.Attendance.GraceAfter)
	}
	if Conf.Attendance.SweepSpec != "0 9-23 * * *" {
		t.Errorf("SweepSpec = %q", Conf.Attendance.SweepSpec)
	}
	if loc := Conf.Attendance.Location(); loc.String() != "Asia/Riyadh" {
		t.Errorf("Location = %v; want Asia/Riyadh", loc)
	}
	if addr := Conf.Server.Addr(); addr != ":8000" {
		t.Errorf("Server.Addr() = %q; want :8000", addr)
	}
}
