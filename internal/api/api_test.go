package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bilgisen/newstrust/internal/cache"
	"github.com/bilgisen/newstrust/internal/config"
	"github.com/bilgisen/newstrust/internal/middleware"
	"github.com/bilgisen/newstrust/internal/models"
	"github.com/bilgisen/newstrust/internal/moderation"
	"github.com/bilgisen/newstrust/internal/storage"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const testSecret = "test-secret"

type testClient struct {
	t   *testing.T
	app *fiber.App
}

func newTestApp(t *testing.T) (*testClient, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	svc := moderation.NewService(store, cache.NewMockRedisClient("test:"), moderation.Options{})
	cfg := &config.Config{
		Env:         "test",
		HTTPTimeout: 5 * time.Second,
		JWTSecret:   testSecret,
	}
	h := NewHandlers(svc, nil, time.Minute)
	return &testClient{t: t, app: NewApp(cfg, h)}, store
}

func token(t *testing.T, role models.Role) string {
	t.Helper()
	tok, err := middleware.IssueToken(testSecret, models.Principal{UserID: bson.NewObjectID(), Role: role}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	return tok
}

// do sends a JSON request and decodes the response body into out when out
// is non-nil.
func (tc *testClient) do(method, path, tok string, body interface{}, out interface{}) int {
	tc.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			tc.t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := tc.app.Test(req, -1)
	if err != nil {
		tc.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			tc.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (tc *testClient) expect(want int, method, path, tok string, body interface{}, out interface{}) {
	tc.t.Helper()
	if got := tc.do(method, path, tok, body, out); got != want {
		tc.t.Fatalf("%s %s = %d, want %d", method, path, got, want)
	}
}

type errorBody struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

func TestDailyXScenario(t *testing.T) {
	tc, _ := newTestApp(t)
	checkerTok := token(t, models.RoleFactChecker)
	adminTok := token(t, models.RoleAdmin)
	aliceTok := token(t, models.RoleUser)
	bobTok := token(t, models.RoleUser)

	var news models.News
	tc.expect(http.StatusCreated, "POST", "/api/news", checkerTok, map[string]interface{}{
		"title":    "Budget passes",
		"summary":  "Parliament approved the budget",
		"content":  "Full story",
		"source":   "Daily X",
		"category": "politics",
	}, &news)
	if !news.FactChecked || news.CredibilityLevel != "Very Low" {
		t.Fatalf("created news = %+v", news)
	}
	newsPath := "/api/news/" + news.ID.Hex()

	var sources struct {
		Sources []models.Source `json:"sources"`
		Total   int64           `json:"total"`
	}
	tc.expect(http.StatusOK, "GET", "/api/sources?search=daily", "", nil, &sources)
	if sources.Total != 1 || sources.Sources[0].NewsCount != 1 || sources.Sources[0].Verified {
		t.Fatalf("sources after create = %+v", sources)
	}
	sourceID := sources.Sources[0].ID.Hex()

	var tally models.VoteTally
	tc.expect(http.StatusOK, "POST", newsPath+"/vote", aliceTok, map[string]string{"voteType": "upvote"}, &tally)
	tc.expect(http.StatusOK, "POST", newsPath+"/vote", bobTok, map[string]string{"voteType": "downvote"}, &tally)
	if tally.Upvotes != 1 || tally.Downvotes != 1 || len(tally.Voters) != 2 {
		t.Fatalf("tally = %+v", tally)
	}
	tc.expect(http.StatusOK, "POST", newsPath+"/vote", aliceTok, map[string]string{"voteType": "upvote"}, &tally)
	if tally.Upvotes != 0 || tally.Downvotes != 1 || len(tally.Voters) != 1 {
		t.Fatalf("tally after toggle = %+v", tally)
	}

	var root, reply models.CommentView
	tc.expect(http.StatusCreated, "POST", newsPath+"/comments", aliceTok, map[string]string{"content": "Source?"}, &root)
	tc.expect(http.StatusCreated, "POST", newsPath+"/comments", bobTok, map[string]string{
		"content":  "Official gazette",
		"parentId": root.ID.Hex(),
	}, &reply)
	if reply.ParentID == nil || *reply.ParentID != root.ID {
		t.Fatalf("reply = %+v", reply)
	}

	tc.expect(http.StatusOK, "GET", newsPath, "", nil, &news)
	if news.CommentsCount != 2 {
		t.Fatalf("commentsCount = %d, want 2", news.CommentsCount)
	}

	var reaction models.ReactionTally
	tc.expect(http.StatusOK, "POST", "/api/comments/"+root.ID.Hex()+"/react", bobTok, map[string]string{"reactionType": "like"}, &reaction)
	if reaction.Likes != 1 {
		t.Fatalf("reaction = %+v", reaction)
	}

	var denied errorBody
	tc.expect(http.StatusForbidden, "PUT", "/api/comments/"+root.ID.Hex(), bobTok, map[string]string{"content": "edited"}, &denied)
	if denied.Message != "Not authorized to update this comment" {
		t.Errorf("message = %q", denied.Message)
	}

	tc.expect(http.StatusOK, "DELETE", "/api/comments/"+root.ID.Hex(), aliceTok, nil, nil)
	tc.expect(http.StatusOK, "GET", newsPath, "", nil, &news)
	if news.CommentsCount != 0 {
		t.Fatalf("commentsCount after thread delete = %d, want 0", news.CommentsCount)
	}

	tc.expect(http.StatusForbidden, "DELETE", newsPath, checkerTok, nil, nil)
	tc.expect(http.StatusOK, "DELETE", newsPath, adminTok, nil, nil)
	tc.expect(http.StatusNotFound, "GET", newsPath, "", nil, nil)

	var src models.Source
	tc.expect(http.StatusOK, "GET", "/api/sources/"+sourceID, "", nil, &src)
	if src.NewsCount != 0 {
		t.Fatalf("newsCount after delete = %d, want 0", src.NewsCount)
	}
}

func TestAuthBoundaries(t *testing.T) {
	tc, _ := newTestApp(t)
	checkerTok := token(t, models.RoleFactChecker)
	path := "/api/news/" + bson.NewObjectID().Hex() + "/vote"

	var body errorBody
	tc.expect(http.StatusUnauthorized, "POST", path, "", map[string]string{"voteType": "upvote"}, &body)
	if body.Message != "Not authorized, no token" {
		t.Errorf("no token message = %q", body.Message)
	}

	tc.expect(http.StatusUnauthorized, "POST", path, "garbage", map[string]string{"voteType": "upvote"}, &body)
	if body.Message != "Not authorized, token failed" {
		t.Errorf("bad token message = %q", body.Message)
	}

	// Public routes ignore a bad token.
	tc.expect(http.StatusOK, "GET", "/api/news", "garbage", nil, nil)

	tc.expect(http.StatusForbidden, "POST", "/api/news", token(t, models.RoleUser), map[string]string{"title": "x"}, nil)
	tc.expect(http.StatusForbidden, "POST", "/api/admin/reconcile", checkerTok, nil, nil)
	tc.expect(http.StatusForbidden, "POST", "/api/admin/import", checkerTok, map[string][]string{"feed_urls": {"https://feeds.example/a"}}, nil)
	tc.expect(http.StatusNotFound, "POST", path, checkerTok, map[string]string{"voteType": "upvote"}, nil)
}

func TestValidationErrors(t *testing.T) {
	tc, _ := newTestApp(t)
	checkerTok := token(t, models.RoleFactChecker)

	var body errorBody
	tc.expect(http.StatusBadRequest, "POST", "/api/news", checkerTok, map[string]string{"title": "Only a title"}, &body)
	if body.Message != "Validation failed" || len(body.Errors) != 4 {
		t.Errorf("validation body = %+v", body)
	}

	tc.expect(http.StatusBadRequest, "POST", "/api/sources", checkerTok, map[string]string{"name": "Daily X", "type": "Tabloid"}, &body)
	if len(body.Errors) != 1 {
		t.Errorf("source validation body = %+v", body)
	}

	tc.expect(http.StatusCreated, "POST", "/api/sources", checkerTok, map[string]string{"name": "Daily X", "type": "Social Media"}, nil)
	tc.expect(http.StatusBadRequest, "POST", "/api/sources", checkerTok, map[string]string{"name": "Daily X"}, &body)
	if body.Message != "Source already exists" {
		t.Errorf("duplicate source message = %q", body.Message)
	}

	tc.expect(http.StatusBadRequest, "POST", "/api/news/"+bson.NewObjectID().Hex()+"/vote", checkerTok, map[string]string{"voteType": "maybe"}, &body)
	if body.Message != "Invalid vote type" {
		t.Errorf("vote message = %q", body.Message)
	}
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	tc, _ := newTestApp(t)

	var health struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	tc.expect(http.StatusOK, "GET", "/api/health", "", nil, &health)
	if health.Status != "ok" || health.Version != Version {
		t.Errorf("health = %+v", health)
	}

	tc.expect(http.StatusNotFound, "GET", "/api/nothing-here", "", nil, nil)
	tc.expect(http.StatusNotFound, "GET", "/api/news/not-an-id", "", nil, nil)
}

func TestReconcileEndpoint(t *testing.T) {
	tc, store := newTestApp(t)
	adminTok := token(t, models.RoleAdmin)

	var news models.News
	tc.expect(http.StatusCreated, "POST", "/api/news", adminTok, map[string]string{
		"title":    "Storm warning",
		"summary":  "Heavy rain",
		"content":  "Full story",
		"source":   "Daily X",
		"category": "weather",
	}, &news)
	if err := store.AddCommentsCount(context.Background(), news.ID, 3); err != nil {
		t.Fatalf("AddCommentsCount: %v", err)
	}

	var res moderation.ReconcileResult
	tc.expect(http.StatusOK, "POST", "/api/admin/reconcile", adminTok, nil, &res)
	if res.CommentsFixed != 1 || res.SourcesFixed != 0 {
		t.Errorf("reconcile = %+v", res)
	}
}

func TestRoleGateRunsBeforeValidation(t *testing.T) {
	tc, _ := newTestApp(t)
	userTok := token(t, models.RoleUser)
	checkerTok := token(t, models.RoleFactChecker)
	id := bson.NewObjectID().Hex()

	cases := []struct {
		method, path, tok string
	}{
		{"POST", "/api/news", userTok},
		{"PUT", "/api/news/" + id, userTok},
		{"PUT", "/api/news/" + id + "/credibility", userTok},
		{"DELETE", "/api/news/" + id, checkerTok},
		{"POST", "/api/sources", userTok},
		{"PUT", "/api/sources/" + id, userTok},
		{"PUT", "/api/sources/" + id + "/verify", checkerTok},
		{"DELETE", "/api/sources/" + id, checkerTok},
		{"POST", "/api/admin/import", checkerTok},
	}
	for _, c := range cases {
		var body errorBody
		// Bodies fail validation; the role gate must answer first.
		tc.expect(http.StatusForbidden, c.method, c.path, c.tok, map[string]string{"title": "x", "credibilityScore": "high"}, &body)
		if body.Message == "" || body.Errors != nil {
			t.Errorf("%s %s body = %+v", c.method, c.path, body)
		}
	}

	tc.expect(http.StatusUnauthorized, "POST", "/api/sources", "", map[string]string{"name": ""}, nil)
}

func TestDeleteReferencedSource(t *testing.T) {
	tc, _ := newTestApp(t)
	adminTok := token(t, models.RoleAdmin)

	tc.expect(http.StatusCreated, "POST", "/api/news", adminTok, map[string]string{
		"title":    "Storm warning",
		"summary":  "Heavy rain",
		"content":  "Full story",
		"source":   "Daily X",
		"category": "weather",
	}, nil)

	var sources struct {
		Sources []models.Source `json:"sources"`
	}
	tc.expect(http.StatusOK, "GET", "/api/sources?search=daily", "", nil, &sources)
	if len(sources.Sources) != 1 {
		t.Fatalf("sources = %+v", sources)
	}

	var body errorBody
	tc.expect(http.StatusBadRequest, "DELETE", "/api/sources/"+sources.Sources[0].ID.Hex(), adminTok, nil, &body)
	if body.Message != "Source still has news items" {
		t.Errorf("message = %q", body.Message)
	}
}
