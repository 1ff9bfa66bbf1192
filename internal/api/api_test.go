package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/verte-zerg/cpctprep/internal/model"
	"github.com/verte-zerg/cpctprep/internal/stats"
	"github.com/verte-zerg/cpctprep/internal/store"
	"github.com/verte-zerg/cpctprep/internal/store/mongostore"
	"github.com/verte-zerg/cpctprep/internal/typing"
)

var (
	_ Store = (*store.Store)(nil)
	_ Store = (*mongostore.Store)(nil)
)

var testSecret = []byte("test-secret")

func setup(t *testing.T) (Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	srv := NewServer(&Options{
		DisableReqLogs: true,
		Store:          st,
		JWTSecret:      testSecret,
		JWTTTL:         time.Hour,
	})
	return srv, st
}

func newAuthRequest(method, path, token string, body interface{}) (*http.Request, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func newRequest(method, path string, body interface{}) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", body)
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := GenerateToken(AdminClaims(model.Admin{ID: "a1", Username: "root"}, time.Hour), testSecret)
	require.NoError(t, err)
	return token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHomeAndHealth(t *testing.T) {
	srv, _ := setup(t)

	req, rec := newRequest(http.MethodGet, "/", nil)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome")

	req, rec = newRequest(http.MethodGet, "/healthz", nil)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestScore(t *testing.T) {
	srv, _ := setup(t)

	req, rec := newRequest(http.MethodPost, "/api/score", ScoreRequest{
		TypedText:      "the quick brwn fox",
		ReferenceText:  "the quick brown fox jumps",
		ElapsedSeconds: 60,
	})
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ScoreResponse
	decode(t, rec, &resp)
	assert.Equal(t, 4.0, resp.Metrics.GrossWordsPerMinute)
	assert.Equal(t, 3.0, resp.Metrics.NetWordsPerMinute)
	assert.Equal(t, 75.0, resp.Metrics.AccuracyPercent)
	assert.Equal(t, 3, resp.CorrectWords)
	assert.Equal(t, 1, resp.IncorrectWords)
	assert.Equal(t, 1, resp.MissingWords)
}

func TestScoreZeroElapsed(t *testing.T) {
	srv, _ := setup(t)

	req, rec := newRequest(http.MethodPost, "/api/score", ScoreRequest{TypedText: "a b", ReferenceText: "a c"})
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScoreResponse
	decode(t, rec, &resp)
	assert.Equal(t, 0.0, resp.Metrics.NetWordsPerMinute)
	assert.Equal(t, 100.0, resp.Metrics.AccuracyPercent)
}

func TestScoreValidation(t *testing.T) {
	srv, _ := setup(t)

	req, rec := newRequest(http.MethodPost, "/api/score", ScoreRequest{ElapsedSeconds: -1})
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var fields map[string]string
	decode(t, rec, &fields)
	assert.Contains(t, fields, "elapsedSeconds")

	req, rec = newRequest(http.MethodPost, "/api/score", ScoreRequest{TypedText: "a", ReferenceText: "a", ElapsedSeconds: 1e12})
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "elapsedSeconds")
}

func TestScoreTinyElapsed(t *testing.T) {
	srv, _ := setup(t)

	req, rec := newRequest(http.MethodPost, "/api/score", ScoreRequest{
		TypedText:      "the quick",
		ReferenceText:  "the quick",
		ElapsedSeconds: 6e-305,
	})
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ScoreResponse
	decode(t, rec, &resp)
	assert.Equal(t, 100.0, resp.Metrics.AccuracyPercent)
	assert.Greater(t, resp.Metrics.NetWordsPerMinute, 0.0)
}

func TestListExams(t *testing.T) {
	srv, _ := setup(t)

	req, rec := newRequest(http.MethodGet, "/api/exams", nil)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var exams []map[string]interface{}
	decode(t, rec, &exams)
	require.Len(t, exams, 2)
	assert.Equal(t, "cpct-english", exams[0]["key"])
	assert.Equal(t, 10.0, exams[0]["durationMinutes"])
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	srv, _ := setup(t)
	body := PassageRequest{Title: "One", Lang: "en", Text: "hello world"}

	tests := []struct {
		name     string
		token    string
		wantCode int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized},
		{"non-admin token", mustToken(t, &Claims{Username: "bob"}), http.StatusForbidden},
		{"expired token", mustToken(t, expiredClaims()), http.StatusUnauthorized},
		{"admin token", adminToken(t), http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/passages", tt.token, body)
			srv.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
}

func mustToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token, err := GenerateToken(claims, testSecret)
	require.NoError(t, err)
	return token
}

func expiredClaims() *Claims {
	c := AdminClaims(model.Admin{ID: "a1", Username: "root"}, -time.Minute)
	return c
}

func TestLoginLogoutMe(t *testing.T) {
	srv, st := setup(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = st.CreateAdmin(context.Background(), model.Admin{Username: "root", PasswordHash: string(hash)})
	require.NoError(t, err)

	req, rec := newRequest(http.MethodPost, "/api/admin/login", LoginRequest{Username: "root", Password: "nope"})
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req, rec = newRequest(http.MethodPost, "/api/admin/login", LoginRequest{Username: "root"})
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "password")

	req, rec = newRequest(http.MethodPost, "/api/admin/login", LoginRequest{Username: "root", Password: "s3cret"})
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login LoginResponse
	decode(t, rec, &login)
	assert.NotEmpty(t, login.Token)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == TokenCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req, rec = newRequest(http.MethodGet, "/api/admin/me", nil)
	req.AddCookie(cookie)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"username":"root"`)

	admin, err := st.GetAdminByUsername(context.Background(), "root")
	require.NoError(t, err)
	assert.NotNil(t, admin.LastLogin)

	req, rec = newRequest(http.MethodPost, "/api/admin/logout", nil)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestPassageCRUD(t *testing.T) {
	srv, _ := setup(t)
	token := adminToken(t)

	req, rec := newAuthRequest(http.MethodPost, "/api/passages", token, PassageRequest{Title: "One", Lang: "en", Exam: "cpct-english", Text: "the quick brown fox"})
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created model.Passage
	decode(t, rec, &created)
	assert.Equal(t, 4, created.WordCount)

	req, rec = newRequest(http.MethodGet, "/api/passages?lang=en", nil)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Passage
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Text)

	req, rec = newRequest(http.MethodGet, "/api/passages/"+created.ID, nil)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "the quick brown fox")

	req, rec = newRequest(http.MethodGet, "/api/passages/random?exam=cpct-english", nil)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req, rec = newRequest(http.MethodGet, "/api/passages/random?lang=hi", nil)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req, rec = newAuthRequest(http.MethodPut, "/api/passages/"+created.ID, token, PassageRequest{Title: "One", Lang: "en", Text: "a b"})
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated model.Passage
	decode(t, rec, &updated)
	assert.Equal(t, 2, updated.WordCount)

	req, rec = newAuthRequest(http.MethodPost, "/api/passages", token, PassageRequest{Title: "Two", Lang: "en", Exam: "bogus", Text: "a b"})
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown exam")

	req, rec = newAuthRequest(http.MethodPut, "/api/passages/"+created.ID, token, PassageRequest{Title: "One", Lang: "en", Exam: "bogus", Text: "a b"})
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req, rec = newAuthRequest(http.MethodPost, "/api/passages", token, PassageRequest{Lang: "en"})
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"this field is required"`)

	req, rec = newAuthRequest(http.MethodDelete, "/api/passages/"+created.ID, token, nil)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req, rec = newAuthRequest(http.MethodDelete, "/api/passages/"+created.ID, token, nil)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitResult(t *testing.T) {
	srv, st := setup(t)
	ctx := context.Background()
	reference := "the quick brown fox jumps over the lazy dog"
	p, err := st.CreatePassage(ctx, model.Passage{Title: "Fox", Lang: "en", Exam: "cpct-english", Text: reference})
	require.NoError(t, err)

	typed := "the quick brwn fox jumps"
	req, rec := newRequest(http.MethodPost, "/api/results", ResultRequest{
		PassageID:      p.ID,
		Candidate:      "asha",
		TypedText:      typed,
		ElapsedSeconds: 30,
	})
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp ResultResponse
	decode(t, rec, &resp)
	want := typing.ComputeMetricsFromText(typed, reference, 0.5)
	assert.Equal(t, want, resp.Metrics)
	assert.Equal(t, 4, resp.MissingWords)
	require.NotNil(t, resp.Verdict)
	assert.False(t, resp.Verdict.Passed)
	assert.Equal(t, "cpct-english", resp.Result.Exam)

	stored, err := st.GetResult(ctx, resp.Result.ID)
	require.NoError(t, err)
	assert.Equal(t, want.NetWordsPerMinute, stored.NetWPM)
	assert.Equal(t, want.GrossWordsPerMinute, stored.GrossWPM)
	assert.Equal(t, want.AccuracyPercent, stored.Accuracy)
	assert.Equal(t, int64(30000), stored.DurationMs)

	req, rec = newRequest(http.MethodGet, "/api/results/"+stored.ID, nil)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req, rec = newRequest(http.MethodGet, "/api/results/missing", nil)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req, rec = newRequest(http.MethodPost, "/api/results", ResultRequest{
		PassageID: p.ID, Candidate: "asha", Exam: "ssc", ElapsedSeconds: 30,
	})
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown exam")

	req, rec = newRequest(http.MethodPost, "/api/results", ResultRequest{
		PassageID: p.ID, Candidate: "asha", TypedText: typed, ElapsedSeconds: 1e12,
	})
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "elapsedSeconds")

	req, rec = newRequest(http.MethodPost, "/api/results", ResultRequest{PassageID: "nope", Candidate: "asha", ElapsedSeconds: 30})
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/api/results?candidate=asha", adminToken(t), nil)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var results []model.ResultAggregate
	decode(t, rec, &results)
	assert.Len(t, results, 1)
}

func TestLeaderboard(t *testing.T) {
	srv, st := setup(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, r := range []model.Result{
		{Candidate: "asha", NetWPM: 31, Accuracy: 95},
		{Candidate: "asha", NetWPM: 35, Accuracy: 97},
		{Candidate: "ravi", NetWPM: 35, Accuracy: 99},
		{Candidate: "meena", NetWPM: 28, Accuracy: 100},
	} {
		r.Exam = "cpct-english"
		r.Lang = "en"
		r.Source = model.SourceExam
		r.EndedAt = base.Add(time.Duration(i) * time.Minute)
		r.StartedAt = r.EndedAt.Add(-10 * time.Minute)
		_, err := st.InsertResult(ctx, r, nil)
		require.NoError(t, err)
	}

	req, rec := newRequest(http.MethodGet, "/api/leaderboard?exam=cpct-english&limit=2", nil)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var entries []stats.LeaderboardEntry
	decode(t, rec, &entries)
	require.Len(t, entries, 2)
	assert.Equal(t, "ravi", entries[0].Candidate)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "asha", entries[1].Candidate)
	assert.Equal(t, 35.0, entries[1].NetWPM)

	req, rec = newRequest(http.MethodGet, "/api/leaderboard?limit=500", nil)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req, rec = newRequest(http.MethodGet, "/api/leaderboard?exam=nope", nil)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLiveScoring(t *testing.T) {
	srv, st := setup(t)
	p, err := st.CreatePassage(context.Background(), model.Passage{Title: "Fox", Lang: "en", Text: "one two three four"})
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	frames := []struct {
		frame       LiveFrame
		wantNet     float64
		wantMissing int
		wantErr     string
	}{
		{LiveFrame{TypedText: "one two", ReferenceText: "one two three", ElapsedSeconds: 60}, 2, 1, ""},
		{LiveFrame{TypedText: "one tow three", PassageID: p.ID, ElapsedSeconds: 30}, 4, 1, ""},
		{LiveFrame{TypedText: "x", PassageID: "missing", ElapsedSeconds: 30}, 0, 0, "passage not found"},
		{LiveFrame{TypedText: "x", ReferenceText: "x", ElapsedSeconds: -5}, 0, 0, "elapsedSeconds must be between 0 and 86400"},
		{LiveFrame{TypedText: "x", ReferenceText: "x", ElapsedSeconds: 1e12}, 0, 0, "elapsedSeconds must be between 0 and 86400"},
	}
	for _, f := range frames {
		require.NoError(t, conn.WriteJSON(f.frame))
		var reply LiveReply
		require.NoError(t, conn.ReadJSON(&reply))
		if f.wantErr != "" {
			assert.Equal(t, f.wantErr, reply.Error)
			assert.Nil(t, reply.Metrics)
			continue
		}
		require.NotNil(t, reply.Metrics)
		assert.Equal(t, f.wantNet, reply.Metrics.NetWordsPerMinute)
		assert.Equal(t, f.wantMissing, reply.MissingWords)
	}
}
