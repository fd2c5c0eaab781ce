package web

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"image/png"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/transformer/internal/config"
	"github.com/JonMunkholm/transformer/internal/core"
)

const sampleCSV = "a,b,name\n1,2,x\n1,2,x\n3,NA,y\n"

type upload struct {
	name, content string
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *Server {
	t.Helper()
	cfg, err := config.LoadFrom(func(string) string { return "" })
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Rate.Enabled = false
	for _, m := range mutate {
		m(cfg)
	}

	svc := core.NewService(core.ServiceConfig{
		MaxFileSize:        cfg.Upload.MaxFileSize,
		MaxFilesPerSession: cfg.Upload.MaxFiles,
		SessionTTL:         cfg.Session.TTL,
	}, core.NewMemoryAuditLog(100), core.NewUploadLimiter(2, time.Second))

	srv := NewServer(svc, cfg)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func multipartBody(t *testing.T, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		part.Write([]byte(f.content))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("multipart close: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

// apiUpload uploads files through the API and returns the session ID and result.
func apiUpload(t *testing.T, srv *Server, sessionID string, files ...upload) (string, core.BatchResult) {
	t.Helper()
	body, ct := multipartBody(t, files...)
	req := httptest.NewRequest(http.MethodPost, "/api/files", body)
	req.Header.Set("Content-Type", ct)
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	rec := serve(srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}

	var res core.BatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	return rec.Header().Get(SessionHeader), res
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return e
}

func TestAPIUpload_IsolatesFailures(t *testing.T) {
	srv := newTestServer(t)

	sid, res := apiUpload(t, srv, "",
		upload{"good.csv", sampleCSV},
		upload{"notes.txt", "hello"},
	)

	if sid == "" {
		t.Error("response carries no session ID")
	}
	if res.Loaded != 1 || res.Failed != 1 {
		t.Fatalf("loaded/failed = %d/%d, want 1/1", res.Loaded, res.Failed)
	}
	if !strings.Contains(res.Files[1].Error, "notes.txt") || !strings.Contains(res.Files[1].Error, "FILE003") {
		t.Errorf("failure message = %q", res.Files[1].Error)
	}
	if res.Files[0].Rows != 3 || res.Files[0].Cols != 3 {
		t.Errorf("good file shape = %dx%d", res.Files[0].Rows, res.Files[0].Cols)
	}
	if res.Acknowledgment == "" {
		t.Error("missing acknowledgment")
	}
}

func TestAPIUpload_NoFiles(t *testing.T) {
	srv := newTestServer(t)
	body, ct := multipartBody(t)
	req := httptest.NewRequest(http.MethodPost, "/api/files", body)
	req.Header.Set("Content-Type", ct)

	rec := serve(srv, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != "FILE005" {
		t.Errorf("code = %s, want FILE005", e.Code)
	}
}

func TestAPI_CommandsViewsAndDownload(t *testing.T) {
	srv := newTestServer(t)
	sid, up := apiUpload(t, srv, "", upload{"data.csv", sampleCSV})
	fileID := up.Files[0].FileID

	command := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/files/"+fileID+"/commands", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(SessionHeader, sid)
		return serve(srv, req)
	}

	rec := command(`{"action":"remove_duplicates"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("command status = %d, body %s", rec.Code, rec.Body.String())
	}
	var cr CommandResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &cr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cr.File.Rows != 2 || !strings.Contains(cr.Result.Message, "1 of 3") {
		t.Errorf("after dedupe rows = %d, message %q", cr.File.Rows, cr.Result.Message)
	}

	if rec := command(`{"action":"select_columns","columns":["b","a"]}`); rec.Code != http.StatusOK {
		t.Fatalf("select_columns status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/files/"+fileID+"/stats?column=a", nil)
	req.Header.Set(SessionHeader, sid)
	rec = serve(srv, req)
	var sv core.StatsView
	if err := json.Unmarshal(rec.Body.Bytes(), &sv); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if sv.Mean != "2.0" || sv.Count != 2 {
		t.Errorf("stats = %+v", sv)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/files/"+fileID+"/convert?format=xlsx", nil)
	req.Header.Set(SessionHeader, sid)
	rec = serve(srv, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("convert status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != core.MIMETypeXLSX {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "data.xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Error("download is not a zip container")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/files/"+fileID+"/convert", nil)
	req.Header.Set(SessionHeader, sid)
	rec = serve(srv, req)
	if want := "b,a\n2,1\n"; !strings.HasPrefix(rec.Body.String(), want) {
		t.Errorf("csv download = %q, want prefix %q", rec.Body.String(), want)
	}
}

func TestAPI_Errors(t *testing.T) {
	srv := newTestServer(t)
	sid, up := apiUpload(t, srv, "", upload{"text.csv", "name\nx\n"})
	fileID := up.Files[0].FileID

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown file", http.MethodGet, "/api/files/nope", "", http.StatusNotFound, "SES002"},
		{"malformed command", http.MethodPost, "/api/files/" + fileID + "/commands", "{", http.StatusBadRequest, "VAL002"},
		{"unknown field", http.MethodPost, "/api/files/" + fileID + "/commands", `{"verb":"x"}`, http.StatusBadRequest, "VAL002"},
		{"unknown action", http.MethodPost, "/api/files/" + fileID + "/commands", `{"action":"explode"}`, http.StatusBadRequest, "VAL002"},
		{"unknown column", http.MethodGet, "/api/files/" + fileID + "/stats?column=zz", "", http.StatusBadRequest, "VAL001"},
		{"no numeric data", http.MethodGet, "/api/files/" + fileID + "/chart", "", http.StatusUnprocessableEntity, "VIZ001"},
		{"bad format", http.MethodGet, "/api/files/" + fileID + "/convert?format=pdf", "", http.StatusBadRequest, "VAL002"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set(SessionHeader, sid)
			rec := serve(srv, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if e := decodeError(t, rec); e.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", e.Code, tt.wantCode)
			}
		})
	}
}

func TestAPI_InfiniteValuesStillEncode(t *testing.T) {
	srv := newTestServer(t)
	sid, up := apiUpload(t, srv, "", upload{"inf.csv", "x,y\n1,inf\n2,3\n"})
	fileID := up.Files[0].FileID

	req := httptest.NewRequest(http.MethodPost, "/api/files/"+fileID+"/commands", strings.NewReader(`{"action":"set_visualize","enabled":true}`))
	req.Header.Set(SessionHeader, sid)
	if rec := serve(srv, req); rec.Code != http.StatusOK {
		t.Fatalf("set_visualize status = %d, body %s", rec.Code, rec.Body.String())
	}

	for _, path := range []string{"/api/files/" + fileID + "/chart", "/api/files/" + fileID, "/api/files"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set(SessionHeader, sid)
		rec := serve(srv, req)
		if rec.Code != http.StatusOK || !json.Valid(rec.Body.Bytes()) {
			t.Errorf("%s: status %d, body %q", path, rec.Code, rec.Body.String())
		}
	}

	req = httptest.NewRequest(http.MethodGet, "/api/files/"+fileID+"/chart", nil)
	req.Header.Set(SessionHeader, sid)
	var data core.ChartData
	json.Unmarshal(serve(srv, req).Body.Bytes(), &data)
	if len(data.Series) != 2 || data.Series[1].Values[0] != nil || *data.Series[1].Values[1] != 3 {
		t.Errorf("chart = %+v, want a gap for inf", data)
	}
}

func TestWriteJSON_EncodeFailureIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"v": math.Inf(1)})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if e := decodeError(t, rec); e.Code != "ERR000" {
		t.Errorf("code = %s, want ERR000", e.Code)
	}
}

func TestAPI_RemoveFile(t *testing.T) {
	srv := newTestServer(t)
	sid, up := apiUpload(t, srv, "", upload{"a.csv", "a\n1\n"})

	req := httptest.NewRequest(http.MethodDelete, "/api/files/"+up.Files[0].FileID, nil)
	req.Header.Set(SessionHeader, sid)
	if rec := serve(srv, req); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set(SessionHeader, sid)
	var list FileListResponse
	json.Unmarshal(serve(srv, req).Body.Bytes(), &list)
	if list.SessionID != sid || len(list.Files) != 0 {
		t.Errorf("list = %+v, want same session and no files", list)
	}
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestPage_UploadRedirectsWithFlash(t *testing.T) {
	srv := newTestServer(t)

	body, ct := multipartBody(t, upload{"sales.csv", sampleCSV}, upload{"bad.txt", "x"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := serve(srv, req)

	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("status/location = %d %q, want 303 /", rec.Code, rec.Header().Get("Location"))
	}
	session := cookieNamed(rec, srv.cfg.Session.CookieName)
	flash := cookieNamed(rec, flashCookie)
	if session == nil || flash == nil {
		t.Fatalf("cookies = %v, want session and flash", rec.Result().Cookies())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(session)
	req.AddCookie(flash)
	rec = serve(srv, req)

	page := rec.Body.String()
	for _, want := range []string{"All files processed: 1 loaded, 1 failed.", "Error processing bad.txt", "sales.csv", "3 rows × 3 columns"} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if c := cookieNamed(rec, flashCookie); c == nil || c.MaxAge >= 0 {
		t.Error("flash cookie not cleared after display")
	}

	// The flash is gone on the next view.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(session)
	if page := serve(srv, req).Body.String(); strings.Contains(page, "All files processed") {
		t.Error("flash shown twice")
	}
}

func TestPage_FormCommands(t *testing.T) {
	srv := newTestServer(t)
	sid, up := apiUpload(t, srv, "", upload{"data.csv", sampleCSV})
	fileID := up.Files[0].FileID

	post := func(path string, form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set(SessionHeader, sid)
		return serve(srv, req)
	}

	rec := post("/files/"+fileID+"/clean", url.Values{"op": {"fill_missing"}})
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/#file-"+fileID {
		t.Fatalf("clean = %d %q", rec.Code, rec.Header().Get("Location"))
	}

	post("/files/"+fileID+"/columns", url.Values{"columns": {"b"}})
	post("/files/"+fileID+"/visualize", url.Values{"enabled": {"true"}})

	req := httptest.NewRequest(http.MethodGet, "/api/files/"+fileID, nil)
	req.Header.Set(SessionHeader, sid)
	var view core.FileView
	json.Unmarshal(serve(srv, req).Body.Bytes(), &view)
	if view.Cols != 1 || !view.Visualize || view.Chart == nil {
		t.Errorf("view = cols %d visualize %v chart %v", view.Cols, view.Visualize, view.Chart)
	}

	// An unknown cleaning op is rejected with a flash, not applied.
	rec = post("/files/"+fileID+"/clean", url.Values{"op": {"reset"}})
	if cookieNamed(rec, flashCookie) == nil {
		t.Error("rejected op should set an error flash")
	}

	rec = post("/files/"+fileID+"/convert", url.Values{"format": {"xlsx"}})
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != core.MIMETypeXLSX {
		t.Errorf("convert = %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}

	req = httptest.NewRequest(http.MethodGet, "/files/"+fileID+"/chart.png", nil)
	req.Header.Set(SessionHeader, sid)
	rec = serve(srv, req)
	if rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("chart Content-Type = %q (status %d)", rec.Header().Get("Content-Type"), rec.Code)
	}
	cfg, err := png.DecodeConfig(rec.Body)
	if err != nil || cfg.Width != srv.cfg.Chart.Width {
		t.Errorf("chart = %+v, %v", cfg, err)
	}
}

func TestPage_ThemeToggle(t *testing.T) {
	srv := newTestServer(t)
	sid, _ := apiUpload(t, srv, "", upload{"a.csv", "a\n1\n"})

	req := httptest.NewRequest(http.MethodPost, "/theme", nil)
	req.Header.Set(SessionHeader, sid)
	serve(srv, req)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, sid)
	if page := serve(srv, req).Body.String(); !strings.Contains(page, `<body class="dark">`) {
		t.Error("dark theme not applied after toggle")
	}
}

func TestPage_ErrorIsHTML(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/files/missing/chart.png", nil)
	rec := serve(srv, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") || !strings.Contains(rec.Body.String(), "SES002") {
		t.Errorf("error page = %q", rec.Body.String())
	}
}

func TestAuditLog_ScopedToSession(t *testing.T) {
	srv := newTestServer(t)
	sid, _ := apiUpload(t, srv, "", upload{"mine.csv", "a\n1\n"})
	apiUpload(t, srv, "", upload{"theirs.csv", "a\n1\n"})

	req := httptest.NewRequest(http.MethodGet, "/api/audit-log", nil)
	req.Header.Set(SessionHeader, sid)
	var res core.AuditLogResult
	json.Unmarshal(serve(srv, req).Body.Bytes(), &res)
	if res.TotalCount != 1 || res.Entries[0].FileName != "mine.csv" {
		t.Errorf("audit = %+v, want only this session's upload", res)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/audit-log/export", nil)
	req.Header.Set(SessionHeader, sid)
	rec := serve(srv, req)
	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("export is not CSV: %v", err)
	}
	if len(rows) != 2 || rows[0][1] != "action" || rows[1][1] != "upload" {
		t.Errorf("export rows = %v", rows)
	}

	req = httptest.NewRequest(http.MethodGet, "/audit-log", nil)
	req.Header.Set(SessionHeader, sid)
	if page := serve(srv, req).Body.String(); !strings.Contains(page, "mine.csv") || strings.Contains(page, "theirs.csv") {
		t.Error("activity page not scoped to the session")
	}
}

func TestStatusAndSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)
	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	var st StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if st.Status != "ok" || st.Audit != "memory" || st.Uploads.MaxConcurrent != 2 {
		t.Errorf("status = %+v", st)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
	if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "default-src 'self'") {
		t.Error("missing CSP header")
	}
	if rec.Header().Get(SessionHeader) != "" {
		t.Error("status endpoint should not create sessions")
	}
}

func TestAPIKeyRequired(t *testing.T) {
	srv := newTestServer(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"secret"}
	})

	if rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/files", nil)); rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want 401", rec.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("X-API-Key", "secret")
	if rec := serve(srv, req); rec.Code != http.StatusOK {
		t.Errorf("with key status = %d, want 200", rec.Code)
	}
	// Pages are not behind the key.
	if rec := serve(srv, httptest.NewRequest(http.MethodGet, "/", nil)); rec.Code != http.StatusOK {
		t.Errorf("page status = %d, want 200", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	srv := newTestServer(t)
	rl := srv.newRateLimiter(2, time.Minute)

	if !rl.allow("1.1.1.1") || !rl.allow("1.1.1.1") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("1.1.1.1") {
		t.Error("third request should be limited")
	}
	if !rl.allow("2.2.2.2") {
		t.Error("limits are per client")
	}

	handler := rl.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.1.1.1:1000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "60" {
		t.Errorf("limited response = %d retry %q", rec.Code, rec.Header().Get("Retry-After"))
	}
	if e := decodeError(t, rec); e.Code != "RATE001" {
		t.Errorf("code = %s, want RATE001", e.Code)
	}
}
