package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/mahudhurio/core"
	"github.com/trezcool/mahudhurio/core/attendance"
	"github.com/trezcool/mahudhurio/core/group"
	"github.com/trezcool/mahudhurio/core/student"
	"github.com/trezcool/mahudhurio/core/user"
	"github.com/trezcool/mahudhurio/scheduler"
	dummymail "github.com/trezcool/mahudhurio/services/email/dummy"
	dummydb "github.com/trezcool/mahudhurio/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

type testServer struct {
	Server
	usrSvc user.Service
	grpSvc group.Service
	stdSvc student.Service
	attSvc attendance.Service
	sched  *scheduler.Scheduler
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	// debug mode rewrites error bodies; tests assert the committed messages
	core.Conf.Debug = false
	core.Conf.TestMode = true

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	mailSvc := dummymail.NewService(core.Conf.AppName, core.Conf.DefaultFromEmail.Address)

	usrSvc := user.NewServiceMock(dummydb.NewUserRepository(db), mailSvc)
	grpSvc := group.NewService(dummydb.NewGroupRepository(db))
	stdSvc := student.NewService(dummydb.NewStudentRepository(db))
	attSvc := attendance.NewService(dummydb.NewAttendanceRepository(db), grpSvc, stdSvc)
	sched := scheduler.New(nopLogger{})

	srv := NewServer(&Options{
		Addr:           "localhost:0",
		DisableReqLogs: true,
		Logger:         nopLogger{},
		UserSvc:        usrSvc,
		GroupSvc:       grpSvc,
		StudentSvc:     stdSvc,
		AttendanceSvc:  attSvc,
		Scheduler:      sched,
	})
	return &testServer{
		Server: srv,
		usrSvc: usrSvc,
		grpSvc: grpSvc,
		stdSvc: stdSvc,
		attSvc: attSvc,
		sched:  sched,
	}
}

func (ts *testServer) addUser(t *testing.T, uname string, roles []string, active bool) user.User {
	t.Helper()
	usr, err := ts.usrSvc.Create(context.Background(), user.NewUser{
		Name:            uname,
		Username:        uname,
		Email:           uname + "@test.cd",
		Password:        "LordMuntuWaBantu#1",
		PasswordConfirm: "LordMuntuWaBantu#1",
		Roles:           roles,
	})
	if err != nil {
		t.Fatalf("creating user failed: %v", err)
	}
	if !active {
		usr, err = ts.usrSvc.Update(context.Background(), usr.ID, user.UpdateUser{IsActive: &active})
		if err != nil {
			t.Fatalf("deactivating user failed: %v", err)
		}
	}
	return usr
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
